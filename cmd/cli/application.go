package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uvmigrate/uvmigrate/internal/batch"
	"github.com/uvmigrate/uvmigrate/internal/inspect"
	"github.com/uvmigrate/uvmigrate/internal/migrate"
	"github.com/uvmigrate/uvmigrate/internal/ui"
	"github.com/uvmigrate/uvmigrate/internal/utils"
	"github.com/uvmigrate/uvmigrate/internal/utils/flags"
	pathutils "github.com/uvmigrate/uvmigrate/internal/utils/path"
)

const (
	applicationNameConstant                 = "uvmigrate"
	applicationShortDescriptionConstant     = "Migrate Python dependency manifests to a uv-style pyproject.toml"
	applicationLongDescriptionConstant      = "uvmigrate reads requirements files, Poetry and Pipenv manifests, setup.py metadata, and conda environment files, merges them into one dependency model, and writes an equivalent uv-style pyproject.toml without contacting any package index."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	migrationConfigurationKeyConstant       = "migration"
	environmentPrefixConstant               = "UVMIGRATE"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	rootCommandInfoMessageConstant          = "uvmigrate CLI executed"
	rootCommandDebugMessageConstant         = "uvmigrate CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	logFieldArgumentsConstant               = "arguments"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	defaultConfigurationSearchPathConstant  = "."
	userConfigurationDirectoryConstant      = "~/.uvmigrate"
	unknownCommandTemplateConstant          = "unknown command %q"
	developmentVersionConstant              = "(devel)"
)

// Process exit codes reported by the uvmigrate binary.
const (
	ExitCodeSuccess      = 0
	ExitCodeFailure      = 1
	ExitCodeInvalidInput = 2
)

// UsageError marks failures caused by an invalid command-line invocation.
type UsageError struct {
	Cause error
}

// Error describes the invalid invocation.
func (invocationError UsageError) Error() string {
	return invocationError.Cause.Error()
}

// Unwrap exposes the underlying cause.
func (invocationError UsageError) Unwrap() error {
	return invocationError.Cause
}

// ExitCode maps an execution error to the process exit status. Invalid flags,
// arguments, and configuration values report a distinct status from failed
// migrations.
func ExitCode(executionError error) int {
	if executionError == nil {
		return ExitCodeSuccess
	}

	var invocationError UsageError
	if errors.As(executionError, &invocationError) {
		return ExitCodeInvalidInput
	}

	var migrationInputError migrate.InvalidInputError
	if errors.As(executionError, &migrationInputError) {
		return ExitCodeInvalidInput
	}

	var inspectionInputError inspect.InvalidInputError
	if errors.As(executionError, &inspectionInputError) {
		return ExitCodeInvalidInput
	}

	return ExitCodeFailure
}

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common    ApplicationCommonConfiguration `mapstructure:"common"`
	Migration migrate.CommandConfiguration   `mapstructure:"migration"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	globalFlagValues       *flags.GlobalFlagValues
	commandContextAccessor utils.CommandContextAccessor
}

// batchEventObserver bridges batch run events to the console event logger,
// resolving the logger at event time because logging is configured after
// command construction.
type batchEventObserver struct {
	loggerProvider func() *zap.Logger
}

func (observer batchEventObserver) MigrationStarted(projectDirectory string) {
	ui.NewConsoleMigrationEventLogger(observer.loggerProvider()).MigrationStarted(projectDirectory)
}

func (observer batchEventObserver) MigrationCompleted(outcome batch.ProjectOutcome) {
	ui.NewConsoleMigrationEventLogger(observer.loggerProvider()).MigrationCompleted(outcome)
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	homeExpander := pathutils.NewHomeExpander()
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{
			defaultConfigurationSearchPathConstant,
			homeExpander.Expand(userConfigurationDirectoryConstant),
		},
	)
	embeddedConfigurationContent, embeddedConfigurationType := EmbeddedDefaultConfiguration()
	configurationLoader.SetEmbeddedConfiguration(embeddedConfigurationContent, embeddedConfigurationType)

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
		Version:       resolveApplicationVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.SetOut(utils.NewFlushingWriter(os.Stdout))
	cobraCommand.SetFlagErrorFunc(func(command *cobra.Command, flagError error) error {
		return UsageError{Cause: flagError}
	})

	application.globalFlagValues = flags.BindGlobalFlags(cobraCommand, flags.GlobalFlagDefaults{
		LogLevel:   string(utils.LogLevelInfo),
		LogLevels:  utils.SupportedLogLevelNames(),
		LogFormat:  string(utils.LogFormatConsole),
		LogFormats: utils.SupportedLogFormatNames(),
	})

	loggerProvider := func() *zap.Logger {
		return application.logger
	}
	migrationConfigurationProvider := func() migrate.CommandConfiguration {
		return application.configuration.Migration
	}

	runBuilder := migrate.CommandBuilder{
		LoggerProvider:        loggerProvider,
		ConfigurationProvider: migrationConfigurationProvider,
	}
	runCommand, runBuildError := runBuilder.Build()
	if runBuildError == nil {
		cobraCommand.AddCommand(runCommand)
	}

	detectBuilder := inspect.CommandBuilder{
		LoggerProvider: loggerProvider,
	}
	detectCommand, detectBuildError := detectBuilder.Build()
	if detectBuildError == nil {
		cobraCommand.AddCommand(detectCommand)
	}

	batchBuilder := batch.CommandBuilder{
		LoggerProvider:        loggerProvider,
		ConfigurationProvider: migrationConfigurationProvider,
		EventObserver:         batchEventObserver{loggerProvider: loggerProvider},
	}
	batchCommand, batchBuildError := batchBuilder.Build()
	if batchBuildError == nil {
		cobraCommand.AddCommand(batchCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the command hierarchy against the process arguments.
func (application *Application) Execute() error {
	return application.ExecuteWithArguments(os.Args[1:])
}

// ExecuteWithArguments normalizes toggle arguments, runs the configured Cobra
// command hierarchy, and ensures logger flushing.
func (application *Application) ExecuteWithArguments(arguments []string) error {
	normalizedArguments := flags.NormalizeToggleArguments(arguments)
	if normalizedArguments == nil {
		normalizedArguments = []string{}
	}
	application.rootCommand.SetArgs(normalizedArguments)
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
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
	}
	for configurationKey, configurationValue := range migrate.DefaultConfigurationValues(migrationConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.globalFlagValues.ConfigurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, flags.LogLevelFlagName) {
		application.configuration.Common.LogLevel = application.globalFlagValues.LogLevel
	}

	if application.persistentFlagChanged(command, flags.LogFormatFlagName) {
		application.configuration.Common.LogFormat = application.globalFlagValues.LogFormat
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return UsageError{Cause: fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)}
	}

	application.logger = logger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	application.propagateConfigurationFilePath(command)

	return nil
}

// propagateConfigurationFilePath stores the resolved configuration file path
// in the command context so subcommands can report which file configured them.
func (application *Application) propagateConfigurationFilePath(command *cobra.Command) {
	if command == nil {
		return
	}

	updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
		command.Context(),
		application.configurationMetadata.ConfigFileUsed,
	)
	command.SetContext(updatedContext)
	command.Root().SetContext(updatedContext)
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

	configurationFilePath, _ := application.commandContextAccessor.ConfigurationFilePath(command.Context())
	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
		zap.String(configurationFileFieldConstant, configurationFilePath),
	)

	if len(arguments) == 0 {
		return command.Help()
	}

	return UsageError{Cause: fmt.Errorf(unknownCommandTemplateConstant, arguments[0])}
}

// flushLogger syncs the active logger, tolerating the sync errors terminals
// and pipes report for stderr.
func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	if syncError == nil || errors.Is(syncError, syscall.ENOTSUP) || errors.Is(syncError, syscall.EINVAL) {
		return nil
	}
	return syncError
}

// persistentFlagChanged reports whether the named persistent flag was set on
// the command line, checking the command's own and inherited flag sets.
func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	if command.PersistentFlags().Changed(flagName) || command.InheritedFlags().Changed(flagName) {
		return true
	}

	return command.Root().PersistentFlags().Changed(flagName)
}

func resolveApplicationVersion() string {
	buildInformation, buildInformationAvailable := debug.ReadBuildInfo()
	if buildInformationAvailable && len(buildInformation.Main.Version) > 0 {
		return buildInformation.Main.Version
	}
	return developmentVersionConstant
}
