package update

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joshlebed/media-metadata-backup-machine/internal/execshell"
	"github.com/joshlebed/media-metadata-backup-machine/internal/indexer"
	"github.com/joshlebed/media-metadata-backup-machine/internal/utils"
)

const (
	indexCommandUseConstant              = "index"
	indexCommandShortDescriptionConstant = "Regenerate the movie index artifacts without committing"
	indexCommandLongDescription          = "index regenerates the CSV and Markdown artifacts from the movie library and torrent metadata, leaving the backup repository untouched."
	indexCommandErrorTemplateConstant    = "index generation failed: %w"
	indexUnexpectedArgumentsMessage      = "index does not accept positional arguments"
	indexOutcomeLogMessageConstant       = "Index run finished"
)

var errIndexUnexpectedArguments = errors.New(indexUnexpectedArgumentsMessage)

// IndexCommandBuilder assembles the Cobra command that regenerates the index
// artifacts without touching the backup repository.
type IndexCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	// Indexer overrides the default engine in tests.
	Indexer         indexer.Indexer
	contextAccessor utils.CommandContextAccessor
}

// Build constructs the index command.
func (builder *IndexCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   indexCommandUseConstant,
		Short: indexCommandShortDescriptionConstant,
		Long:  indexCommandLongDescription,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *IndexCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errIndexUnexpectedArguments
	}

	var configuration Configuration
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	if validationError := configuration.Validate(); validationError != nil {
		return validationError
	}

	logger := zap.NewNop()
	if builder.LoggerProvider != nil {
		if providedLogger := builder.LoggerProvider(); providedLogger != nil {
			logger = providedLogger
		}
	}

	indexerEngine := builder.Indexer
	if indexerEngine == nil {
		commandBuilder := &CommandBuilder{contextAccessor: builder.contextAccessor}
		shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
		if executorError != nil {
			return executorError
		}
		builtEngine, engineError := commandBuilder.buildIndexer(command, logger, shellExecutor, configuration)
		if engineError != nil {
			return engineError
		}
		indexerEngine = builtEngine
	}

	indexOutcome, indexError := indexerEngine.Run(command.Context())
	if indexError != nil {
		return fmt.Errorf(indexCommandErrorTemplateConstant, indexError)
	}

	logger.Info(indexOutcomeLogMessageConstant,
		zap.Bool("artifacts_changed", indexOutcome == indexer.OutcomeUpdated),
	)
	return nil
}
