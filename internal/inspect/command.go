package inspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uvmigrate/uvmigrate/internal/sources"
)

const (
	detectCommandUseConstant              = "detect [path]"
	detectCommandShortDescriptionConstant = "Report the migratable definition formats a project carries"
	detectCommandLongDescriptionConstant  = "detect probes the project directory with every source reader and prints the recognized formats together with the number of dependency declarations each one carries. No files are written."
	currentDirectoryConstant              = "."
	inspectionFailedTemplateConstant      = "detection failed: %w"
	inspectionCompletedMessageConstant    = "Detection completed"
	inspectionFailedMessageConstant       = "Detection failed"
	logFieldProjectDirectoryConstant      = "project_directory"
	logFieldFormatCountConstant           = "format_count"
	headerLineTemplateConstant            = "%s: %d migratable definition format(s)\n"
	columnHeaderLineConstant              = "format         entries  warnings  project\n"
	formatLineTemplateConstant            = "%-13s %8d %9d  %s\n"
	missingProjectNamePlaceholderConstant = "-"
	argumentsFieldNameConstant            = "arguments"
)

// ProjectInspector performs one inspection run.
type ProjectInspector interface {
	Inspect(executionContext context.Context, options InspectionOptions) (InspectionResult, error)
}

// ServiceProvider constructs a project inspector from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (ProjectInspector, error)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the detect Cobra command.
type CommandBuilder struct {
	LoggerProvider  LoggerProvider
	Readers         []sources.Reader
	ServiceProvider ServiceProvider
}

// Build constructs the detect command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           detectCommandUseConstant,
		Short:         detectCommandShortDescriptionConstant,
		Long:          detectCommandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          validateProjectArgument,
		RunE:          builder.runInspection,
	}
	return command, nil
}

func validateProjectArgument(command *cobra.Command, arguments []string) error {
	if validationError := cobra.MaximumNArgs(1)(command, arguments); validationError != nil {
		return InvalidInputError{FieldName: argumentsFieldNameConstant, Message: validationError.Error()}
	}
	return nil
}

func (builder *CommandBuilder) runInspection(command *cobra.Command, arguments []string) error {
	projectDirectory := currentDirectoryConstant
	if len(arguments) > 0 {
		trimmedArgument := strings.TrimSpace(arguments[0])
		if len(trimmedArgument) > 0 {
			projectDirectory = trimmedArgument
		}
	}

	logger := builder.resolveLogger()

	inspector, serviceError := builder.resolveService(ServiceDependencies{
		Logger:  logger,
		Readers: builder.resolveReaders(),
	})
	if serviceError != nil {
		return serviceError
	}

	result, inspectionError := inspector.Inspect(command.Context(), InspectionOptions{ProjectDirectory: projectDirectory})
	if inspectionError != nil {
		logger.Error(
			inspectionFailedMessageConstant,
			zap.String(logFieldProjectDirectoryConstant, projectDirectory),
			zap.Error(inspectionError),
		)
		return fmt.Errorf(inspectionFailedTemplateConstant, inspectionError)
	}

	outputWriter := command.OutOrStdout()
	fmt.Fprintf(outputWriter, headerLineTemplateConstant, result.ProjectDirectory, len(result.Formats))
	fmt.Fprint(outputWriter, columnHeaderLineConstant)
	for _, formatInspection := range result.Formats {
		projectName := formatInspection.ProjectName
		if len(projectName) == 0 {
			projectName = missingProjectNamePlaceholderConstant
		}
		fmt.Fprintf(
			outputWriter,
			formatLineTemplateConstant,
			string(formatInspection.Format),
			formatInspection.EntryCount,
			formatInspection.WarningCount,
			projectName,
		)
	}

	logger.Info(
		inspectionCompletedMessageConstant,
		zap.String(logFieldProjectDirectoryConstant, projectDirectory),
		zap.Int(logFieldFormatCountConstant, len(result.Formats)),
	)
	return nil
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

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (ProjectInspector, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}
