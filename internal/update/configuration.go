package update

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pathutils "github.com/joshlebed/media-metadata-backup-machine/internal/utils/path"
)

const (
	// IndexerModeBuiltin selects the in-process indexing engine.
	IndexerModeBuiltin = "builtin"
	// IndexerModeExternal selects the subprocess indexer script.
	IndexerModeExternal = "external"

	defaultCSVFileNameConstant      = "movies.csv"
	defaultMarkdownFileNameConstant = "MOVIES.md"
	defaultLogLevelConstant         = "info"
	defaultLogFormatConstant        = "console"
	defaultLockFileNameConstant     = ".movies-index.lock"

	missingConfigurationKeyTemplateConstant = "configuration key %s must be provided"
	unsupportedIndexerModeTemplateConstant  = "unsupported indexer mode %q"
	executableDirectoryFailureTemplate      = "unable to determine executable directory: %w"

	sourcesMoviesDirectoryKeyConstant   = "sources.movies_dir"
	sourcesTorrentsDirectoryKeyConstant = "sources.torrents_dir"
	outputBackupDirectoryKeyConstant    = "output.backup_dir"
	outputCSVFileNameKeyConstant        = "output.csv_filename"
	outputMarkdownFileNameKeyConstant   = "output.markdown_filename"
	gitCommitMessageKeyConstant         = "git.commit_message"
	loggingLogFileKeyConstant           = "logging.log_file"
	loggingLogLevelKeyConstant          = "logging.log_level"
	loggingLogFormatKeyConstant         = "logging.log_format"
	optionsSkipHiddenKeyConstant        = "options.skip_hidden"
	indexerModeKeyConstant              = "indexer.mode"
	indexerScriptPathKeyConstant        = "indexer.script_path"
)

// SourcesConfiguration locates the movie library and torrent metadata trees.
type SourcesConfiguration struct {
	MoviesDirectory   string `mapstructure:"movies_dir"`
	TorrentsDirectory string `mapstructure:"torrents_dir"`
}

// OutputConfiguration locates the backup repository and artifact names.
type OutputConfiguration struct {
	BackupDirectory  string `mapstructure:"backup_dir"`
	CSVFileName      string `mapstructure:"csv_filename"`
	MarkdownFileName string `mapstructure:"markdown_filename"`
}

// GitConfiguration controls the commit and synchronization behavior. Remote
// and branch are optional; when unset, git resolves the configured upstream.
type GitConfiguration struct {
	CommitMessage string `mapstructure:"commit_message"`
	AutoPull      bool   `mapstructure:"auto_pull"`
	AutoPush      bool   `mapstructure:"auto_push"`
	RemoteName    string `mapstructure:"remote"`
	BranchName    string `mapstructure:"branch"`
}

// LoggingConfiguration controls the console and file log sinks.
type LoggingConfiguration struct {
	LogFile   string `mapstructure:"log_file"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// OptionsConfiguration tunes library scanning and run serialization.
type OptionsConfiguration struct {
	SkipHidden        bool     `mapstructure:"skip_hidden"`
	IgnoreDirectories []string `mapstructure:"ignore_dirs"`
	LockFile          string   `mapstructure:"lock_file"`
}

// IndexerConfiguration selects and configures the indexing engine.
type IndexerConfiguration struct {
	Mode             string `mapstructure:"mode"`
	ScriptPath       string `mapstructure:"script_path"`
	WorkingDirectory string `mapstructure:"working_dir"`
}

// Configuration aggregates every configuration group of the application.
type Configuration struct {
	Sources SourcesConfiguration `mapstructure:"sources"`
	Output  OutputConfiguration  `mapstructure:"output"`
	Git     GitConfiguration     `mapstructure:"git"`
	Logging LoggingConfiguration `mapstructure:"logging"`
	Options OptionsConfiguration `mapstructure:"options"`
	Indexer IndexerConfiguration `mapstructure:"indexer"`
}

// DefaultConfigurationValues provides baseline values for the configuration loader.
func DefaultConfigurationValues() map[string]any {
	return map[string]any{
		outputCSVFileNameKeyConstant:      defaultCSVFileNameConstant,
		outputMarkdownFileNameKeyConstant: defaultMarkdownFileNameConstant,
		loggingLogLevelKeyConstant:        defaultLogLevelConstant,
		loggingLogFormatKeyConstant:       defaultLogFormatConstant,
		optionsSkipHiddenKeyConstant:      true,
		indexerModeKeyConstant:            IndexerModeBuiltin,
	}
}

type requiredConfigurationValue struct {
	keyName  string
	keyValue string
}

// Validate confirms every required configuration key carries a value.
func (configuration Configuration) Validate() error {
	requiredValues := []requiredConfigurationValue{
		{keyName: outputBackupDirectoryKeyConstant, keyValue: configuration.Output.BackupDirectory},
		{keyName: outputCSVFileNameKeyConstant, keyValue: configuration.Output.CSVFileName},
		{keyName: outputMarkdownFileNameKeyConstant, keyValue: configuration.Output.MarkdownFileName},
		{keyName: gitCommitMessageKeyConstant, keyValue: configuration.Git.CommitMessage},
		{keyName: loggingLogFileKeyConstant, keyValue: configuration.Logging.LogFile},
	}

	switch configuration.Indexer.Mode {
	case IndexerModeBuiltin:
		requiredValues = append(requiredValues,
			requiredConfigurationValue{keyName: sourcesMoviesDirectoryKeyConstant, keyValue: configuration.Sources.MoviesDirectory},
			requiredConfigurationValue{keyName: sourcesTorrentsDirectoryKeyConstant, keyValue: configuration.Sources.TorrentsDirectory},
		)
	case IndexerModeExternal:
		requiredValues = append(requiredValues,
			requiredConfigurationValue{keyName: indexerScriptPathKeyConstant, keyValue: configuration.Indexer.ScriptPath},
		)
	default:
		return fmt.Errorf(unsupportedIndexerModeTemplateConstant, configuration.Indexer.Mode)
	}

	var validationErrors []error
	for _, requiredValue := range requiredValues {
		if len(strings.TrimSpace(requiredValue.keyValue)) == 0 {
			validationErrors = append(validationErrors, fmt.Errorf(missingConfigurationKeyTemplateConstant, requiredValue.keyName))
		}
	}
	return errors.Join(validationErrors...)
}

// ResolvePaths anchors every relative path in the configuration against the
// configuration file's directory, falling back to the executable directory
// when no configuration file was used. An unset lock file defaults to a
// hidden file inside the backup directory.
func (configuration Configuration) ResolvePaths(configurationFilePath string) (Configuration, error) {
	anchorDirectory, anchorError := resolveAnchorDirectory(configurationFilePath)
	if anchorError != nil {
		return Configuration{}, anchorError
	}

	pathResolver := pathutils.NewPathResolver()
	resolved := configuration

	pathTargets := []*string{
		&resolved.Sources.MoviesDirectory,
		&resolved.Sources.TorrentsDirectory,
		&resolved.Output.BackupDirectory,
		&resolved.Logging.LogFile,
		&resolved.Options.LockFile,
		&resolved.Indexer.ScriptPath,
		&resolved.Indexer.WorkingDirectory,
	}
	for _, pathTarget := range pathTargets {
		*pathTarget = pathResolver.Resolve(anchorDirectory, *pathTarget)
	}

	if len(strings.TrimSpace(resolved.Options.LockFile)) == 0 {
		resolved.Options.LockFile = filepath.Join(resolved.Output.BackupDirectory, defaultLockFileNameConstant)
	}
	return resolved, nil
}

// CSVArtifactPath returns the CSV artifact location inside the backup directory.
func (configuration Configuration) CSVArtifactPath() string {
	return filepath.Join(configuration.Output.BackupDirectory, configuration.Output.CSVFileName)
}

// MarkdownArtifactPath returns the Markdown artifact location inside the backup directory.
func (configuration Configuration) MarkdownArtifactPath() string {
	return filepath.Join(configuration.Output.BackupDirectory, configuration.Output.MarkdownFileName)
}

// IgnoredDirectorySet converts the ignore list into a lookup set.
func (configuration Configuration) IgnoredDirectorySet() map[string]struct{} {
	ignoredDirectories := make(map[string]struct{}, len(configuration.Options.IgnoreDirectories))
	for _, directoryName := range configuration.Options.IgnoreDirectories {
		trimmedName := strings.TrimSpace(directoryName)
		if len(trimmedName) > 0 {
			ignoredDirectories[trimmedName] = struct{}{}
		}
	}
	return ignoredDirectories
}

func resolveAnchorDirectory(configurationFilePath string) (string, error) {
	if len(strings.TrimSpace(configurationFilePath)) > 0 {
		absoluteConfigurationPath, absoluteError := filepath.Abs(configurationFilePath)
		if absoluteError != nil {
			return "", absoluteError
		}
		return filepath.Dir(absoluteConfigurationPath), nil
	}

	executablePath, executableError := os.Executable()
	if executableError != nil {
		return "", fmt.Errorf(executableDirectoryFailureTemplate, executableError)
	}
	return filepath.Dir(executablePath), nil
}
