package update_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshlebed/media-metadata-backup-machine/internal/update"
)

func validBuiltinConfiguration() update.Configuration {
	return update.Configuration{
		Sources: update.SourcesConfiguration{
			MoviesDirectory:   "/mnt/vault/movies",
			TorrentsDirectory: "/mnt/vault/metadata",
		},
		Output: update.OutputConfiguration{
			BackupDirectory:  "/srv/movies-backup",
			CSVFileName:      "movies.csv",
			MarkdownFileName: "MOVIES.md",
		},
		Git:     update.GitConfiguration{CommitMessage: "Update movie index"},
		Logging: update.LoggingConfiguration{LogFile: "/var/log/movies-index.log"},
		Indexer: update.IndexerConfiguration{Mode: update.IndexerModeBuiltin},
	}
}

func TestValidate(testInstance *testing.T) {
	testCases := []struct {
		name             string
		mutate           func(configuration *update.Configuration)
		expectedFragment string
	}{
		{
			name:   "valid_builtin_configuration",
			mutate: func(configuration *update.Configuration) {},
		},
		{
			name: "valid_external_configuration",
			mutate: func(configuration *update.Configuration) {
				configuration.Indexer.Mode = update.IndexerModeExternal
				configuration.Indexer.ScriptPath = "/opt/movies-index/update_movies_index.py"
				configuration.Sources = update.SourcesConfiguration{}
			},
		},
		{
			name: "missing_backup_directory",
			mutate: func(configuration *update.Configuration) {
				configuration.Output.BackupDirectory = "  "
			},
			expectedFragment: "output.backup_dir",
		},
		{
			name: "missing_commit_message",
			mutate: func(configuration *update.Configuration) {
				configuration.Git.CommitMessage = ""
			},
			expectedFragment: "git.commit_message",
		},
		{
			name: "missing_log_file",
			mutate: func(configuration *update.Configuration) {
				configuration.Logging.LogFile = ""
			},
			expectedFragment: "logging.log_file",
		},
		{
			name: "builtin_mode_requires_movies_directory",
			mutate: func(configuration *update.Configuration) {
				configuration.Sources.MoviesDirectory = ""
			},
			expectedFragment: "sources.movies_dir",
		},
		{
			name: "external_mode_requires_script_path",
			mutate: func(configuration *update.Configuration) {
				configuration.Indexer.Mode = update.IndexerModeExternal
				configuration.Indexer.ScriptPath = ""
			},
			expectedFragment: "indexer.script_path",
		},
		{
			name: "unsupported_indexer_mode",
			mutate: func(configuration *update.Configuration) {
				configuration.Indexer.Mode = "hybrid"
			},
			expectedFragment: "unsupported indexer mode",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			configuration := validBuiltinConfiguration()
			testCase.mutate(&configuration)

			validationError := configuration.Validate()
			if len(testCase.expectedFragment) == 0 {
				require.NoError(testInstance, validationError)
				return
			}
			require.ErrorContains(testInstance, validationError, testCase.expectedFragment)
		})
	}
}

func TestResolvePathsAnchorsRelativePathsToConfigurationDirectory(testInstance *testing.T) {
	configurationDirectory := testInstance.TempDir()
	configurationFilePath := filepath.Join(configurationDirectory, "config.yaml")

	configuration := validBuiltinConfiguration()
	configuration.Output.BackupDirectory = "backup"
	configuration.Logging.LogFile = "logs/update.log"

	resolved, resolveError := configuration.ResolvePaths(configurationFilePath)
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, filepath.Join(configurationDirectory, "backup"), resolved.Output.BackupDirectory)
	require.Equal(testInstance, filepath.Join(configurationDirectory, "logs", "update.log"), resolved.Logging.LogFile)
	require.Equal(testInstance, "/mnt/vault/movies", resolved.Sources.MoviesDirectory)
}

func TestResolvePathsDefaultsLockFileIntoBackupDirectory(testInstance *testing.T) {
	configurationDirectory := testInstance.TempDir()
	configurationFilePath := filepath.Join(configurationDirectory, "config.yaml")

	configuration := validBuiltinConfiguration()
	configuration.Options.LockFile = ""

	resolved, resolveError := configuration.ResolvePaths(configurationFilePath)
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, filepath.Join("/srv/movies-backup", ".movies-index.lock"), resolved.Options.LockFile)
}

func TestIgnoredDirectorySetTrimsAndDropsEmptyEntries(testInstance *testing.T) {
	configuration := update.Configuration{
		Options: update.OptionsConfiguration{IgnoreDirectories: []string{"lost+found", "  downloads  ", "", "   "}},
	}

	ignoredDirectories := configuration.IgnoredDirectorySet()
	require.Equal(testInstance, map[string]struct{}{"lost+found": {}, "downloads": {}}, ignoredDirectories)
}

func TestDefaultConfigurationValues(testInstance *testing.T) {
	defaultValues := update.DefaultConfigurationValues()
	require.Equal(testInstance, "movies.csv", defaultValues["output.csv_filename"])
	require.Equal(testInstance, "MOVIES.md", defaultValues["output.markdown_filename"])
	require.Equal(testInstance, update.IndexerModeBuiltin, defaultValues["indexer.mode"])
	require.Equal(testInstance, true, defaultValues["options.skip_hidden"])
}
