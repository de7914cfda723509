package batch

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uvmigrate/uvmigrate/internal/discovery"
	"github.com/uvmigrate/uvmigrate/internal/migrate"
	"github.com/uvmigrate/uvmigrate/internal/report"
	"github.com/uvmigrate/uvmigrate/internal/sources"
	"github.com/uvmigrate/uvmigrate/internal/utils/flags"
	pathutils "github.com/uvmigrate/uvmigrate/internal/utils/path"
)

const (
	batchCommandUseConstant              = "batch"
	batchCommandShortDescriptionConstant = "Migrate every project discovered beneath the configured roots"
	batchCommandLongDescriptionConstant  = "batch walks the configured roots, discovers directories carrying migratable dependency definitions, and runs the migration pipeline over each discovered project concurrently."
	parallelFlagNameConstant             = "parallel"
	parallelFlagUsageConstant            = "Number of projects migrated concurrently (0 selects the CPU count)"
	batchFailedTemplateConstant          = "batch migration failed: %w"
	batchCompletedMessageConstant        = "Batch migration completed"
	batchFailedMessageConstant           = "Batch migration failed"
	projectHeaderTemplateConstant        = "==> %s\n"
	projectFailureLineTemplateConstant   = "failed: %v\n"
	batchSummaryTemplateConstant         = "%d project(s) migrated, %d failed\n"
	argumentsFieldNameConstant           = "arguments"
)

// BatchExecutor runs one batch migration.
type BatchExecutor interface {
	Run(executionContext context.Context, options BatchOptions) (BatchResult, error)
}

// ServiceProvider constructs a batch executor from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (BatchExecutor, error)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the batch Cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	Readers               []sources.Reader
	Discoverer            ProjectDiscoverer
	ServiceProvider       ServiceProvider
	ConfigurationProvider func() migrate.CommandConfiguration
	EventObserver         RunEventObserver
}

// Build constructs the batch command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           batchCommandUseConstant,
		Short:         batchCommandShortDescriptionConstant,
		Long:          batchCommandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          rejectPositionalArguments,
		RunE:          builder.runBatch,
	}

	flags.BindRootFlags(command, flags.RootFlagValues{Roots: []string{currentDirectoryConstant}})
	command.Flags().Int(parallelFlagNameConstant, 0, parallelFlagUsageConstant)
	migrate.RegisterMigrationFlags(command, migrate.DefaultCommandConfiguration())

	return command, nil
}

func (builder *CommandBuilder) runBatch(command *cobra.Command, _ []string) error {
	migrationOptions, optionsError := migrate.ResolveMigrationOptions(command, builder.resolveConfiguration())
	if optionsError != nil {
		return optionsError
	}

	flagSet := command.Flags()
	rootArguments, _ := flagSet.GetStringSlice(flags.DefaultRootFlagName)
	parallelism, _ := flagSet.GetInt(parallelFlagNameConstant)

	logger := builder.resolveLogger()

	service, serviceError := builder.resolveService(logger)
	if serviceError != nil {
		return serviceError
	}

	batchOptions := BatchOptions{
		Roots:       sanitizeRootArguments(rootArguments),
		Parallelism: parallelism,
		Migration:   migrationOptions,
	}

	result, runError := service.Run(command.Context(), batchOptions)

	builder.renderOutcomes(command, result)

	if runError != nil {
		logger.Error(batchFailedMessageConstant, zap.Error(runError))
		return fmt.Errorf(batchFailedTemplateConstant, runError)
	}

	logger.Info(
		batchCompletedMessageConstant,
		zap.Int(logFieldSucceededConstant, result.SucceededCount),
		zap.Int(logFieldFailedConstant, result.FailedCount),
	)
	return nil
}

func (builder *CommandBuilder) renderOutcomes(command *cobra.Command, result BatchResult) {
	outputWriter := command.OutOrStdout()
	renderer := report.NewRenderer(report.NewWriterReporter(outputWriter))
	for _, outcome := range result.Outcomes {
		fmt.Fprintf(outputWriter, projectHeaderTemplateConstant, outcome.ProjectDirectory)
		renderer.Render(outcome.Result.Report)
		if outcome.Failure != nil {
			fmt.Fprintf(outputWriter, projectFailureLineTemplateConstant, outcome.Failure)
		}
	}
	if len(result.Outcomes) > 0 {
		fmt.Fprintf(outputWriter, batchSummaryTemplateConstant, result.SucceededCount, result.FailedCount)
	}
}

func rejectPositionalArguments(command *cobra.Command, arguments []string) error {
	if validationError := cobra.NoArgs(command, arguments); validationError != nil {
		return migrate.InvalidInputError{FieldName: argumentsFieldNameConstant, Message: validationError.Error()}
	}
	return nil
}

func sanitizeRootArguments(rootArguments []string) []string {
	sanitizer := pathutils.NewRootPathSanitizerWithConfiguration(nil, pathutils.RootPathSanitizerConfiguration{
		ExcludeBooleanLiteralCandidates: true,
		PruneNestedPaths:                true,
	})

	sanitizedRoots := sanitizer.Sanitize(rootArguments)
	if len(sanitizedRoots) == 0 {
		return []string{currentDirectoryConstant}
	}
	return sanitizedRoots
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

func (builder *CommandBuilder) resolveDiscoverer() ProjectDiscoverer {
	if builder.Discoverer != nil {
		return builder.Discoverer
	}
	return discovery.NewFilesystemProjectDiscoverer()
}

func (builder *CommandBuilder) resolveService(logger *zap.Logger) (BatchExecutor, error) {
	executor, executorError := migrate.NewService(migrate.ServiceDependencies{
		Logger:  logger,
		Readers: builder.resolveReaders(),
	})
	if executorError != nil {
		return nil, executorError
	}

	dependencies := ServiceDependencies{
		Logger:        logger,
		Discoverer:    builder.resolveDiscoverer(),
		Executor:      executor,
		EventObserver: builder.EventObserver,
	}

	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolveConfiguration() migrate.CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return migrate.DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
}
