package indexer_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/joshlebed/media-metadata-backup-machine/internal/indexer"
)

func TestNewServiceRequiresLogger(testInstance *testing.T) {
	service, creationError := indexer.NewService(nil, indexer.ServiceOptions{})
	require.ErrorIs(testInstance, creationError, indexer.ErrIndexerLoggerMissing)
	require.Nil(testInstance, service)
}

func TestServiceRunGeneratesArtifactsOnceAndDetectsStability(testInstance *testing.T) {
	workspaceRoot := testInstance.TempDir()
	moviesDirectory := filepath.Join(workspaceRoot, "movies")
	torrentsDirectory := filepath.Join(workspaceRoot, "metadata")
	backupDirectory := filepath.Join(workspaceRoot, "backup")
	require.NoError(testInstance, os.MkdirAll(filepath.Join(moviesDirectory, "Inferno.mkv"), 0o755))
	require.NoError(testInstance, os.MkdirAll(filepath.Join(moviesDirectory, "Unmatched Movie"), 0o755))
	require.NoError(testInstance, os.MkdirAll(torrentsDirectory, 0o755))
	require.NoError(testInstance, os.WriteFile(filepath.Join(torrentsDirectory, "inferno.torrent"), []byte(singleFileTorrentBencode), 0o644))

	service, creationError := indexer.NewService(zaptest.NewLogger(testInstance), indexer.ServiceOptions{
		MoviesDirectory:   moviesDirectory,
		TorrentsDirectory: torrentsDirectory,
		BackupDirectory:   backupDirectory,
		CSVFileName:       "movies.csv",
		MarkdownFileName:  "MOVIES.md",
		ScanOptions:       indexer.LibraryScanOptions{SkipHidden: true},
	})
	require.NoError(testInstance, creationError)

	firstOutcome, firstRunError := service.Run(context.Background())
	require.NoError(testInstance, firstRunError)
	require.Equal(testInstance, indexer.OutcomeUpdated, firstOutcome)

	csvContent, csvReadError := os.ReadFile(filepath.Join(backupDirectory, "movies.csv"))
	require.NoError(testInstance, csvReadError)
	csvLines := strings.Split(strings.TrimRight(string(csvContent), "\n"), "\n")
	require.Equal(testInstance, "title,directory,magnet", csvLines[0])
	require.Len(testInstance, csvLines, 3)
	require.Contains(testInstance, csvLines[1], "magnet:?xt=urn:btih:")
	require.True(testInstance, strings.HasSuffix(csvLines[2], ","), "unmatched movie keeps an empty magnet column")

	markdownContent, markdownReadError := os.ReadFile(filepath.Join(backupDirectory, "MOVIES.md"))
	require.NoError(testInstance, markdownReadError)
	require.True(testInstance, strings.HasPrefix(string(markdownContent), "# Movie Library Index\n"))
	require.Contains(testInstance, string(markdownContent), "**Movies:** 2")
	require.Contains(testInstance, string(markdownContent), "- Inferno.mkv")

	secondOutcome, secondRunError := service.Run(context.Background())
	require.NoError(testInstance, secondRunError)
	require.Equal(testInstance, indexer.OutcomeNoChanges, secondOutcome)
}

func TestServiceRunRejectsMissingSourceDirectories(testInstance *testing.T) {
	workspaceRoot := testInstance.TempDir()
	existingDirectory := filepath.Join(workspaceRoot, "existing")
	require.NoError(testInstance, os.MkdirAll(existingDirectory, 0o755))
	missingDirectory := filepath.Join(workspaceRoot, "missing")

	testCases := []struct {
		name              string
		moviesDirectory   string
		torrentsDirectory string
	}{
		{name: "missing_movies_directory", moviesDirectory: missingDirectory, torrentsDirectory: existingDirectory},
		{name: "missing_torrents_directory", moviesDirectory: existingDirectory, torrentsDirectory: missingDirectory},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			service, creationError := indexer.NewService(zaptest.NewLogger(testInstance), indexer.ServiceOptions{
				MoviesDirectory:   testCase.moviesDirectory,
				TorrentsDirectory: testCase.torrentsDirectory,
				BackupDirectory:   filepath.Join(workspaceRoot, "backup"),
				CSVFileName:       "movies.csv",
				MarkdownFileName:  "MOVIES.md",
			})
			require.NoError(testInstance, creationError)

			_, runError := service.Run(context.Background())
			require.Error(testInstance, runError)
		})
	}
}
