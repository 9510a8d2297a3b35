// Package cli wires the Cobra root command, configuration loading, and
// structured logging for the movies-index application.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/joshlebed/media-metadata-backup-machine/internal/update"
	"github.com/joshlebed/media-metadata-backup-machine/internal/utils"
)

const (
	applicationNameConstant                 = "movies-index"
	applicationShortDescriptionConstant     = "Maintain a version-controlled index of a movie library"
	applicationLongDescriptionConstant      = "movies-index scans a movie library and its torrent metadata, regenerates CSV and Markdown index artifacts, and commits them to a backup git repository."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Path to the configuration file (YAML)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	environmentPrefixConstant               = "MOVIESINDEX"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationFileEnvironmentVariable    = "CONFIG_FILE"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	runIdentifierFieldConstant              = "run_id"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	configurationResolveErrorTemplate       = "unable to resolve configuration paths: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	logFileFallbackWarningMessageConstant   = "Cannot write to log file, continuing with console logging only"
	logFileFieldConstant                    = "log_file"
	rootCommandInfoMessageConstant          = "movies-index CLI executed"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	defaultConfigurationSearchPathConstant  = "."
)

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          update.Configuration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	commandContextAccessor utils.CommandContextAccessor
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	updateBuilder := update.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() update.Configuration {
			return application.configuration
		},
	}
	updateCommand, updateBuildError := updateBuilder.Build()
	if updateBuildError == nil {
		cobraCommand.AddCommand(updateCommand)
	}

	indexBuilder := update.IndexCommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() update.Configuration {
			return application.configuration
		},
	}
	indexCommand, indexBuildError := indexBuilder.Build()
	if indexBuildError == nil {
		cobraCommand.AddCommand(indexCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	configurationFilePath := application.resolveConfigurationFilePath(command)

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(
		configurationFilePath,
		update.DefaultConfigurationValues(),
		&application.configuration,
	)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Logging.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Logging.LogFormat = application.logFormatFlagValue
	}

	resolvedConfiguration, resolveError := application.configuration.ResolvePaths(loadedConfiguration.ConfigFileUsed)
	if resolveError != nil {
		return fmt.Errorf(configurationResolveErrorTemplate, resolveError)
	}
	application.configuration = resolvedConfiguration

	if loggerError := application.initializeLogger(); loggerError != nil {
		return loggerError
	}

	runIdentifier := uuid.NewString()
	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Logging.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Logging.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.String(runIdentifierFieldConstant, runIdentifier),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		updatedContext = application.commandContextAccessor.WithRunIdentifier(updatedContext, runIdentifier)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

// resolveConfigurationFilePath prefers the --config flag and falls back to
// the CONFIG_FILE environment variable, mirroring the contract the external
// indexer script honors.
func (application *Application) resolveConfigurationFilePath(command *cobra.Command) string {
	if application.persistentFlagChanged(command, configFileFlagNameConstant) {
		return application.configurationFilePath
	}
	if len(application.configurationFilePath) > 0 {
		return application.configurationFilePath
	}
	return os.Getenv(configurationFileEnvironmentVariable)
}

// initializeLogger builds the console logger, teeing into the configured log
// file when it is writable. An unwritable log file downgrades to console-only
// logging instead of aborting the run.
func (application *Application) initializeLogger() error {
	logLevel := utils.LogLevel(application.configuration.Logging.LogLevel)
	logFormat := utils.LogFormat(application.configuration.Logging.LogFormat)

	logger, loggerCreationError := application.loggerFactory.CreateLogger(logLevel, logFormat, application.configuration.Logging.LogFile)
	if loggerCreationError == nil {
		application.logger = logger
		return nil
	}

	consoleLogger, consoleCreationError := application.loggerFactory.CreateLogger(logLevel, logFormat, "")
	if consoleCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, consoleCreationError)
	}
	application.logger = consoleLogger
	application.logger.Warn(logFileFallbackWarningMessageConstant,
		zap.String(logFileFieldConstant, application.configuration.Logging.LogFile),
		zap.Error(loggerCreationError),
	)
	return nil
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	if len(arguments) == 0 {
		return command.Help()
	}

	return nil
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
