package update

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joshlebed/media-metadata-backup-machine/internal/execshell"
	"github.com/joshlebed/media-metadata-backup-machine/internal/gitrepo"
	"github.com/joshlebed/media-metadata-backup-machine/internal/indexer"
	"github.com/joshlebed/media-metadata-backup-machine/internal/interpreter"
	"github.com/joshlebed/media-metadata-backup-machine/internal/runlock"
	"github.com/joshlebed/media-metadata-backup-machine/internal/utils"
)

const (
	commandUseConstant                    = "update"
	commandShortDescriptionConstant       = "Regenerate the movie index and commit changed artifacts"
	commandLongDescriptionConstant        = "update regenerates the movie index artifacts, stages them in the backup repository, and commits when their content changed."
	commandExecutionErrorTemplateConstant = "index update failed: %w"
	unexpectedArgumentsMessageConstant    = "update does not accept positional arguments"
	flagDryRunNameConstant                = "dry-run"
	flagDryRunDescriptionConstant         = "Report what would be committed without touching the repository"
	flagAutoPullNameConstant              = "auto-pull"
	flagAutoPullDescriptionConstant       = "Rebase onto the upstream branch before indexing"
	flagAutoPushNameConstant              = "auto-push"
	flagAutoPushDescriptionConstant       = "Push the commit after creating it"
	lockReleaseWarningMessageConstant     = "Unable to release run lock"
	outcomeLogMessageConstant             = "Update run finished"
	outcomeLogFieldNameConstant           = "outcome"
	runIdentifierLogFieldNameConstant     = "run_id"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the resolved application configuration.
type ConfigurationProvider func() Configuration

// CommandBuilder assembles the Cobra command for the update pipeline.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	// Repository and Indexer override the default collaborators in tests.
	Repository      RepositoryManager
	Indexer         indexer.Indexer
	contextAccessor utils.CommandContextAccessor
}

// Build constructs the update command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().Bool(flagDryRunNameConstant, false, flagDryRunDescriptionConstant)
	command.Flags().Bool(flagAutoPullNameConstant, false, flagAutoPullDescriptionConstant)
	command.Flags().Bool(flagAutoPushNameConstant, false, flagAutoPushDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	configuration := builder.resolveConfiguration()
	if validationError := configuration.Validate(); validationError != nil {
		return validationError
	}

	logger := builder.resolveLogger()
	runOptions := builder.parseOptions(command, configuration)

	runLock, lockCreationError := runlock.New(configuration.Options.LockFile)
	if lockCreationError != nil {
		return lockCreationError
	}
	if lockError := runLock.Acquire(); lockError != nil {
		return lockError
	}
	defer func() {
		if releaseError := runLock.Release(); releaseError != nil {
			logger.Warn(lockReleaseWarningMessageConstant, zap.Error(releaseError))
		}
	}()

	repository, indexerEngine, collaboratorError := builder.resolveCollaborators(command, logger, configuration)
	if collaboratorError != nil {
		return collaboratorError
	}

	service, serviceError := NewService(Dependencies{
		Logger:     logger,
		Repository: repository,
		Indexer:    indexerEngine,
	}, configuration)
	if serviceError != nil {
		return serviceError
	}

	runResult, runError := service.Run(command.Context(), runOptions)
	if runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}

	outcomeFields := []zap.Field{zap.String(outcomeLogFieldNameConstant, string(runResult.Outcome))}
	if runIdentifier, hasRunIdentifier := builder.contextAccessor.RunIdentifier(command.Context()); hasRunIdentifier {
		outcomeFields = append(outcomeFields, zap.String(runIdentifierLogFieldNameConstant, runIdentifier))
	}
	logger.Info(outcomeLogMessageConstant, outcomeFields...)
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, configuration Configuration) RunOptions {
	runOptions := RunOptions{
		AutoPull: configuration.Git.AutoPull,
		AutoPush: configuration.Git.AutoPush,
	}
	runOptions.DryRun, _ = command.Flags().GetBool(flagDryRunNameConstant)
	if command.Flags().Changed(flagAutoPullNameConstant) {
		runOptions.AutoPull, _ = command.Flags().GetBool(flagAutoPullNameConstant)
	}
	if command.Flags().Changed(flagAutoPushNameConstant) {
		runOptions.AutoPush, _ = command.Flags().GetBool(flagAutoPushNameConstant)
	}
	return runOptions
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	if builder.ConfigurationProvider == nil {
		return Configuration{}
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveCollaborators(command *cobra.Command, logger *zap.Logger, configuration Configuration) (RepositoryManager, indexer.Indexer, error) {
	repository := builder.Repository
	indexerEngine := builder.Indexer
	if repository != nil && indexerEngine != nil {
		return repository, indexerEngine, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, executorError := execshell.NewShellExecutor(logger, commandRunner)
	if executorError != nil {
		return nil, nil, executorError
	}

	if repository == nil {
		repositoryManager, repositoryError := gitrepo.NewRepositoryManager(shellExecutor)
		if repositoryError != nil {
			return nil, nil, repositoryError
		}
		repository = repositoryManager
	}

	if indexerEngine == nil {
		builtEngine, engineError := builder.buildIndexer(command, logger, shellExecutor, configuration)
		if engineError != nil {
			return nil, nil, engineError
		}
		indexerEngine = builtEngine
	}
	return repository, indexerEngine, nil
}

func (builder *CommandBuilder) buildIndexer(command *cobra.Command, logger *zap.Logger, shellExecutor *execshell.ShellExecutor, configuration Configuration) (indexer.Indexer, error) {
	if configuration.Indexer.Mode == IndexerModeExternal {
		invocation, probeError := interpreter.NewProber().Probe()
		if probeError != nil {
			return nil, probeError
		}
		configurationFilePath, _ := builder.contextAccessor.ConfigurationFilePath(command.Context())
		return indexer.NewSubprocessIndexer(shellExecutor, indexer.SubprocessOptions{
			Invocation:            invocation,
			ScriptPath:            configuration.Indexer.ScriptPath,
			WorkingDirectory:      configuration.Indexer.WorkingDirectory,
			ConfigurationFilePath: configurationFilePath,
		})
	}

	return indexer.NewService(logger, indexer.ServiceOptions{
		MoviesDirectory:   configuration.Sources.MoviesDirectory,
		TorrentsDirectory: configuration.Sources.TorrentsDirectory,
		BackupDirectory:   configuration.Output.BackupDirectory,
		CSVFileName:       configuration.Output.CSVFileName,
		MarkdownFileName:  configuration.Output.MarkdownFileName,
		ScanOptions: indexer.LibraryScanOptions{
			SkipHidden:         configuration.Options.SkipHidden,
			IgnoredDirectories: configuration.IgnoredDirectorySet(),
		},
	})
}
