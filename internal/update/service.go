package update

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/joshlebed/media-metadata-backup-machine/internal/indexer"
)

const (
	serviceLoggerMissingMessageConstant     = "update service logger must be provided"
	serviceRepositoryMissingMessageConstant = "update service repository manager must be provided"
	serviceIndexerMissingMessageConstant    = "update service indexer must be provided"
	notARepositoryMessageConstant           = "backup directory is not a git repository"
	repositoryCheckFailureTemplateConstant  = "unable to inspect backup repository: %w"
	pullFailureWarningMessageConstant       = "Pull failed, continuing with local state"
	indexerFailureTemplateConstant          = "index generation failed: %w"
	diffFailureTemplateConstant             = "unable to compare index artifacts: %w"
	stageFailureTemplateConstant            = "unable to stage index artifacts: %w"
	commitFailureTemplateConstant           = "unable to commit index artifacts: %w"
	pushFailureTemplateConstant             = "unable to push index commit: %w"
	indexUpToDateMessageConstant            = "Index artifacts already committed"
	noIndexChangesMessageConstant           = "Index reported no changes"
	dryRunMessageConstant                   = "Dry run: would commit index artifacts"
	commitCreatedMessageConstant            = "Committed index artifacts"
	commitPushedMessageConstant             = "Pushed index commit"
	commitTimestampLayoutConstant           = "2006-01-02 15:04:05"
	updatedTrailerTemplateConstant          = "Updated: %s"
	automationTrailerConstant               = "Automated update via cron job"
	backupDirectoryTrailerTemplate          = "Backup directory: %s"
	backupDirectoryLogFieldNameConstant     = "backup_directory"
	artifactsLogFieldNameConstant           = "artifacts"
)

// ErrServiceLoggerMissing indicates the service was constructed without a logger.
var ErrServiceLoggerMissing = errors.New(serviceLoggerMissingMessageConstant)

// ErrServiceRepositoryMissing indicates the service was constructed without a repository manager.
var ErrServiceRepositoryMissing = errors.New(serviceRepositoryMissingMessageConstant)

// ErrServiceIndexerMissing indicates the service was constructed without an indexer.
var ErrServiceIndexerMissing = errors.New(serviceIndexerMissingMessageConstant)

// ErrNotARepository indicates the backup directory holds no git repository.
// The directory is never initialized implicitly.
var ErrNotARepository = errors.New(notARepositoryMessageConstant)

// RepositoryManager abstracts the git operations of the update pipeline.
type RepositoryManager interface {
	IsRepository(executionContext context.Context, repositoryPath string) (bool, error)
	PullRebase(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error
	HasArtifactChanges(executionContext context.Context, repositoryPath string, artifactPaths []string) (bool, error)
	StagePaths(executionContext context.Context, repositoryPath string, artifactPaths []string) error
	Commit(executionContext context.Context, repositoryPath string, commitSubject string, commitTrailers []string) error
	Push(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error
}

// RunOptions carries the per-invocation switches of the update pipeline.
type RunOptions struct {
	DryRun   bool
	AutoPull bool
	AutoPush bool
}

// RunOutcome classifies how an update run ended.
type RunOutcome string

// Run outcomes.
const (
	RunOutcomeNoChanges RunOutcome = "no-changes"
	RunOutcomeDryRun    RunOutcome = "dry-run"
	RunOutcomeCommitted RunOutcome = "committed"
	RunOutcomePushed    RunOutcome = "pushed"
)

// RunResult reports what an update run did.
type RunResult struct {
	Outcome RunOutcome
}

// Dependencies bundles the collaborators of the update service.
type Dependencies struct {
	Logger     *zap.Logger
	Repository RepositoryManager
	Indexer    indexer.Indexer
	// Clock supplies commit timestamps; defaults to time.Now.
	Clock func() time.Time
}

// Service drives the full update pipeline: synchronize, reindex, and commit.
type Service struct {
	logger        *zap.Logger
	repository    RepositoryManager
	indexer       indexer.Indexer
	clock         func() time.Time
	configuration Configuration
}

// NewService constructs the update pipeline service.
func NewService(dependencies Dependencies, configuration Configuration) (*Service, error) {
	if dependencies.Logger == nil {
		return nil, ErrServiceLoggerMissing
	}
	if dependencies.Repository == nil {
		return nil, ErrServiceRepositoryMissing
	}
	if dependencies.Indexer == nil {
		return nil, ErrServiceIndexerMissing
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		logger:        dependencies.Logger,
		repository:    dependencies.Repository,
		indexer:       dependencies.Indexer,
		clock:         clock,
		configuration: configuration,
	}, nil
}

// Run executes the update pipeline against the configured backup repository.
func (service *Service) Run(executionContext context.Context, runOptions RunOptions) (RunResult, error) {
	backupDirectory := service.configuration.Output.BackupDirectory

	isRepository, repositoryCheckError := service.repository.IsRepository(executionContext, backupDirectory)
	if repositoryCheckError != nil {
		return RunResult{}, fmt.Errorf(repositoryCheckFailureTemplateConstant, repositoryCheckError)
	}
	if !isRepository {
		return RunResult{}, fmt.Errorf("%w: %s", ErrNotARepository, backupDirectory)
	}

	if runOptions.AutoPull {
		if pullError := service.repository.PullRebase(executionContext, backupDirectory, service.configuration.Git.RemoteName, service.configuration.Git.BranchName); pullError != nil {
			service.logger.Warn(pullFailureWarningMessageConstant,
				zap.String(backupDirectoryLogFieldNameConstant, backupDirectory),
				zap.Error(pullError),
			)
		}
	}

	indexOutcome, indexError := service.indexer.Run(executionContext)
	if indexError != nil {
		return RunResult{}, fmt.Errorf(indexerFailureTemplateConstant, indexError)
	}
	if indexOutcome == indexer.OutcomeNoChanges {
		service.logger.Info(noIndexChangesMessageConstant)
		return RunResult{Outcome: RunOutcomeNoChanges}, nil
	}

	artifactNames := []string{service.configuration.Output.CSVFileName, service.configuration.Output.MarkdownFileName}
	hasChanges, diffError := service.repository.HasArtifactChanges(executionContext, backupDirectory, artifactNames)
	if diffError != nil {
		return RunResult{}, fmt.Errorf(diffFailureTemplateConstant, diffError)
	}
	if !hasChanges {
		service.logger.Info(indexUpToDateMessageConstant,
			zap.Strings(artifactsLogFieldNameConstant, artifactNames),
		)
		return RunResult{Outcome: RunOutcomeNoChanges}, nil
	}

	if runOptions.DryRun {
		service.logger.Info(dryRunMessageConstant,
			zap.Strings(artifactsLogFieldNameConstant, artifactNames),
		)
		return RunResult{Outcome: RunOutcomeDryRun}, nil
	}

	if stageError := service.repository.StagePaths(executionContext, backupDirectory, artifactNames); stageError != nil {
		return RunResult{}, fmt.Errorf(stageFailureTemplateConstant, stageError)
	}

	commitTrailers := []string{
		fmt.Sprintf(updatedTrailerTemplateConstant, service.clock().Format(commitTimestampLayoutConstant)),
		automationTrailerConstant,
		fmt.Sprintf(backupDirectoryTrailerTemplate, backupDirectory),
	}
	if commitError := service.repository.Commit(executionContext, backupDirectory, service.configuration.Git.CommitMessage, commitTrailers); commitError != nil {
		return RunResult{}, fmt.Errorf(commitFailureTemplateConstant, commitError)
	}
	service.logger.Info(commitCreatedMessageConstant,
		zap.String(backupDirectoryLogFieldNameConstant, backupDirectory),
	)

	if !runOptions.AutoPush {
		return RunResult{Outcome: RunOutcomeCommitted}, nil
	}
	if pushError := service.repository.Push(executionContext, backupDirectory, service.configuration.Git.RemoteName, service.configuration.Git.BranchName); pushError != nil {
		return RunResult{}, fmt.Errorf(pushFailureTemplateConstant, pushError)
	}
	service.logger.Info(commitPushedMessageConstant,
		zap.String(backupDirectoryLogFieldNameConstant, backupDirectory),
	)
	return RunResult{Outcome: RunOutcomePushed}, nil
}
