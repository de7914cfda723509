package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/report"
	"github.com/uvmigrate/uvmigrate/internal/sources"
	"github.com/uvmigrate/uvmigrate/internal/utils/flags"
)

const (
	runCommandUseConstant              = "run [path]"
	runCommandShortDescriptionConstant = "Migrate a project to a uv manifest"
	runCommandLongDescriptionConstant  = "run reads every legacy dependency definition the project directory carries, merges them into one model, and writes a uv-style pyproject.toml while leaving the legacy files untouched."
	currentDirectoryConstant           = "."
	migrationFailedTemplateConstant    = "migration failed: %w"
	migrationCompletedMessageConstant  = "Migration completed"
	migrationFailedMessageConstant     = "Migration failed"
	logFieldProjectDirectoryConstant   = "project_directory"
	logFieldOutputPathConstant         = "output_path"
	logFieldFinalStateConstant         = "final_state"
	logFieldDetectedFormatsConstant    = "detected_formats"
	logFieldWrittenFilesConstant       = "written_files"
	logFieldWarningCountConstant       = "warnings"
	logFieldDryRunConstant             = "dry_run"
	argumentsFieldNameConstant         = "arguments"
)

// MigrationExecutor performs one migration run.
type MigrationExecutor interface {
	Execute(executionContext context.Context, options MigrationOptions) (MigrationResult, error)
}

// ServiceProvider constructs a migration executor from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (MigrationExecutor, error)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the run Cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	Readers               []sources.Reader
	ServiceProvider       ServiceProvider
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the run command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           runCommandUseConstant,
		Short:         runCommandShortDescriptionConstant,
		Long:          runCommandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          validateProjectArgument,
		RunE:          builder.runMigration,
	}

	flagDefaults := DefaultCommandConfiguration()
	RegisterMigrationFlags(command, flagDefaults)

	return command, nil
}

func validateProjectArgument(command *cobra.Command, arguments []string) error {
	if validationError := cobra.MaximumNArgs(1)(command, arguments); validationError != nil {
		return InvalidInputError{FieldName: argumentsFieldNameConstant, Message: validationError.Error()}
	}
	return nil
}

// RegisterMigrationFlags binds the shared migration flag set to the command
// using the provided configuration defaults.
func RegisterMigrationFlags(command *cobra.Command, flagDefaults CommandConfiguration) {
	if command == nil {
		return
	}

	flagSet := command.Flags()
	flags.AddToggleFlag(flagSet, nil, flags.DryRunFlagName, "", false, flags.DryRunFlagUsage)
	flagSet.Bool(flags.ForceFlagName, false, flags.ForceFlagUsage)
	flagSet.String(flags.OutputFlagName, flagDefaults.Output, flags.OutputFlagUsage)
	flags.AddToggleFlag(flagSet, nil, flags.BackupFlagName, "", flagDefaults.Backup, flags.BackupFlagUsage)
	flags.AddToggleFlag(flagSet, nil, flags.MergeGroupsFlagName, "", flagDefaults.MergeGroups, flags.MergeGroupsFlagUsage)
	flags.AddToggleFlag(flagSet, nil, flags.ImportPipConfigurationFlagName, "", flagDefaults.ImportGlobalPipConf, flags.ImportPipConfigurationFlagUsage)
	flagSet.StringArray(flags.ImportIndexFlagName, nil, flags.ImportIndexFlagUsage)
}

func (builder *CommandBuilder) runMigration(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseOptions(command, arguments)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()

	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger:  logger,
		Readers: builder.resolveReaders(),
	})
	if serviceError != nil {
		return serviceError
	}

	result, migrationError := service.Execute(command.Context(), options)

	renderer := report.NewRenderer(report.NewWriterReporter(command.OutOrStdout()))
	renderer.Render(result.Report)

	if migrationError != nil {
		builder.logMigrationFailure(logger, options.ProjectDirectory, migrationError)
		return fmt.Errorf(migrationFailedTemplateConstant, migrationError)
	}

	builder.logMigrationSummary(logger, options, result)
	return nil
}

// ResolveMigrationOptions merges the registered migration flags with the
// provided configuration. Flag values win only when explicitly set, leaving
// the project directory for the caller to fill in.
func ResolveMigrationOptions(command *cobra.Command, configuration CommandConfiguration) (MigrationOptions, error) {
	sanitized := configuration.Sanitize()

	options := MigrationOptions{
		OutputPath:             sanitized.Output,
		Backup:                 sanitized.Backup,
		MergeGroups:            sanitized.MergeGroups,
		ImportPipConfiguration: sanitized.ImportGlobalPipConf,
	}

	priorityFormats, priorityError := sanitized.SourcePriorityFormats()
	if priorityError != nil {
		return MigrationOptions{}, priorityError
	}
	options.SourcePriority = priorityFormats

	if command != nil {
		flagSet := command.Flags()
		if flagSet.Changed(flags.OutputFlagName) {
			flagValue, _ := flagSet.GetString(flags.OutputFlagName)
			options.OutputPath = strings.TrimSpace(flagValue)
		}
		if flagSet.Changed(flags.BackupFlagName) {
			options.Backup, _ = flagSet.GetBool(flags.BackupFlagName)
		}
		if flagSet.Changed(flags.MergeGroupsFlagName) {
			options.MergeGroups, _ = flagSet.GetBool(flags.MergeGroupsFlagName)
		}
		if flagSet.Changed(flags.ImportPipConfigurationFlagName) {
			options.ImportPipConfiguration, _ = flagSet.GetBool(flags.ImportPipConfigurationFlagName)
		}
		options.DryRun, _ = flagSet.GetBool(flags.DryRunFlagName)
		options.Force, _ = flagSet.GetBool(flags.ForceFlagName)
		options.AdditionalIndexURLs, _ = flagSet.GetStringArray(flags.ImportIndexFlagName)
	}

	return options, nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string) (MigrationOptions, error) {
	options, optionsError := ResolveMigrationOptions(command, builder.resolveConfiguration())
	if optionsError != nil {
		return MigrationOptions{}, optionsError
	}

	options.ProjectDirectory = currentDirectoryConstant
	if len(arguments) > 0 {
		trimmedArgument := strings.TrimSpace(arguments[0])
		if len(trimmedArgument) > 0 {
			options.ProjectDirectory = trimmedArgument
		}
	}

	return options, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveReaders() []sources.Reader {
	if len(builder.Readers) > 0 {
		return builder.Readers
	}
	return sources.DefaultReaders()
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (MigrationExecutor, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}

	provided := builder.ConfigurationProvider()
	return provided.Sanitize()
}

func (builder *CommandBuilder) logMigrationFailure(logger *zap.Logger, projectDirectory string, failure error) {
	if logger == nil {
		return
	}

	logger.Error(
		migrationFailedMessageConstant,
		zap.String(logFieldProjectDirectoryConstant, projectDirectory),
		zap.Error(failure),
	)
}

func (builder *CommandBuilder) logMigrationSummary(logger *zap.Logger, options MigrationOptions, result MigrationResult) {
	if logger == nil {
		return
	}

	logger.Info(
		migrationCompletedMessageConstant,
		zap.String(logFieldProjectDirectoryConstant, options.ProjectDirectory),
		zap.String(logFieldOutputPathConstant, result.OutputPath),
		zap.String(logFieldFinalStateConstant, string(result.FinalState)),
		zap.Strings(logFieldDetectedFormatsConstant, formatStrings(result.DetectedFormats)),
		zap.Strings(logFieldWrittenFilesConstant, result.Report.WrittenFiles),
		zap.Int(logFieldWarningCountConstant, result.Report.CountBySeverity(report.SeverityWarning)),
		zap.Bool(logFieldDryRunConstant, options.DryRun),
	)
}

func formatStrings(sourceFormats []manifest.SourceFormat) []string {
	formatNames := make([]string, 0, len(sourceFormats))
	for _, sourceFormat := range sourceFormats {
		formatNames = append(formatNames, string(sourceFormat))
	}
	return formatNames
}
