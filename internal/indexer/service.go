package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	indexerLoggerMissingMessageConstant    = "indexer logger must be provided"
	moviesDirectoryMissingTemplateConstant = "movies directory not found: %s"
	torrentsDirectoryMissingTemplate       = "torrents directory not found: %s"
	backupDirectoryFailureTemplate         = "unable to create backup directory %s: %w"
	backupDirectoryModeConstant            = 0o755
	torrentsLoadedMessageConstant          = "Loaded torrent metadata"
	artifactUpdatedMessageConstant         = "Updated index artifact"
	noLibraryChangesMessageConstant        = "No changes detected in movie library"
	torrentCountLogFieldNameConstant       = "torrent_count"
	movieCountLogFieldNameConstant         = "movie_count"
	artifactPathLogFieldNameConstant       = "artifact_path"
	directoryLogFieldNameConstant          = "directory"
)

// Outcome reports whether an indexing run changed the artifacts.
type Outcome int

const (
	// OutcomeUpdated means at least one artifact was rewritten.
	OutcomeUpdated Outcome = iota
	// OutcomeNoChanges means both artifacts already matched the library.
	OutcomeNoChanges
)

// Indexer regenerates the library artifacts and reports whether they changed.
type Indexer interface {
	Run(executionContext context.Context) (Outcome, error)
}

// ErrIndexerLoggerMissing indicates the built-in service was constructed without a logger.
var ErrIndexerLoggerMissing = errors.New(indexerLoggerMissingMessageConstant)

// ServiceOptions configures the built-in indexing engine.
type ServiceOptions struct {
	MoviesDirectory   string
	TorrentsDirectory string
	BackupDirectory   string
	CSVFileName       string
	MarkdownFileName  string
	ScanOptions       LibraryScanOptions
}

// Service is the built-in in-process indexing engine.
type Service struct {
	logger  *zap.Logger
	options ServiceOptions
}

// NewService constructs the built-in indexing engine.
func NewService(logger *zap.Logger, serviceOptions ServiceOptions) (*Service, error) {
	if logger == nil {
		return nil, ErrIndexerLoggerMissing
	}
	return &Service{logger: logger, options: serviceOptions}, nil
}

// Run scans the library, matches torrents, and rewrites the CSV and
// Markdown artifacts when their content changed.
func (service *Service) Run(executionContext context.Context) (Outcome, error) {
	if _, statError := os.Stat(service.options.MoviesDirectory); statError != nil {
		return OutcomeNoChanges, fmt.Errorf(moviesDirectoryMissingTemplateConstant, service.options.MoviesDirectory)
	}
	if _, statError := os.Stat(service.options.TorrentsDirectory); statError != nil {
		return OutcomeNoChanges, fmt.Errorf(torrentsDirectoryMissingTemplate, service.options.TorrentsDirectory)
	}
	if mkdirError := os.MkdirAll(service.options.BackupDirectory, backupDirectoryModeConstant); mkdirError != nil {
		return OutcomeNoChanges, fmt.Errorf(backupDirectoryFailureTemplate, service.options.BackupDirectory, mkdirError)
	}

	torrentRecords, loadError := LoadTorrents(executionContext, service.logger, service.options.TorrentsDirectory)
	if loadError != nil {
		return OutcomeNoChanges, loadError
	}
	service.logger.Info(torrentsLoadedMessageConstant,
		zap.Int(torrentCountLogFieldNameConstant, len(torrentRecords)),
		zap.String(directoryLogFieldNameConstant, service.options.TorrentsDirectory),
	)

	movieDirectories, lastUpdated, scanError := ScanMovieLibrary(service.options.MoviesDirectory, service.options.ScanOptions)
	if scanError != nil {
		return OutcomeNoChanges, scanError
	}

	indexRows := make([]IndexRow, 0, len(movieDirectories))
	for _, movieDirectory := range movieDirectories {
		indexRow := IndexRow{Title: movieDirectory.Title, DirectoryPath: movieDirectory.Path}
		if matchedTorrent := MatchMovieToTorrent(movieDirectory, torrentRecords); matchedTorrent != nil {
			indexRow.MagnetLink = matchedTorrent.MagnetLink
		}
		indexRows = append(indexRows, indexRow)
	}

	csvPath := filepath.Join(service.options.BackupDirectory, service.options.CSVFileName)
	csvContent, renderError := RenderCSV(indexRows)
	if renderError != nil {
		return OutcomeNoChanges, renderError
	}
	csvChanged, csvWriteError := WriteFileIfChanged(csvPath, csvContent)
	if csvWriteError != nil {
		return OutcomeNoChanges, csvWriteError
	}

	markdownPath := filepath.Join(service.options.BackupDirectory, service.options.MarkdownFileName)
	markdownChanged, markdownWriteError := WriteFileIfChanged(markdownPath, RenderMarkdown(indexRows, lastUpdated))
	if markdownWriteError != nil {
		return OutcomeNoChanges, markdownWriteError
	}

	if csvChanged {
		service.logger.Info(artifactUpdatedMessageConstant,
			zap.String(artifactPathLogFieldNameConstant, csvPath),
			zap.Int(movieCountLogFieldNameConstant, len(indexRows)),
		)
	}
	if markdownChanged {
		service.logger.Info(artifactUpdatedMessageConstant,
			zap.String(artifactPathLogFieldNameConstant, markdownPath),
			zap.Int(movieCountLogFieldNameConstant, len(indexRows)),
		)
	}
	if !csvChanged && !markdownChanged {
		service.logger.Info(noLibraryChangesMessageConstant)
		return OutcomeNoChanges, nil
	}
	return OutcomeUpdated, nil
}
