package inspect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/report"
	"github.com/uvmigrate/uvmigrate/internal/sources"
)

const (
	projectDirectoryFieldNameConstant   = "project_directory"
	requiredValueMessageConstant        = "a value is required"
	sourceReadersMissingMessageConstant = "source readers not configured"
	detectionFailedTemplateConstant     = "source detection failed in %s: %w"
	noSourcesDetectedTemplateConstant   = "%s: %w"
	readSourceErrorTemplateConstant     = "unable to read %s definitions: %w"
)

// InvalidInputError describes inspection option validation failures.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", inputError.FieldName, inputError.Message)
}

var errSourceReadersMissing = errors.New(sourceReadersMissingMessageConstant)

// ServiceDependencies describes required collaborators for inspection.
type ServiceDependencies struct {
	Logger  *zap.Logger
	Readers []sources.Reader
}

// InspectionOptions configures one inspection run.
type InspectionOptions struct {
	ProjectDirectory string
}

// FormatInspection summarizes what one detected format declares.
type FormatInspection struct {
	Format       manifest.SourceFormat
	EntryCount   int
	WarningCount int
	ProjectName  string
}

// InspectionResult lists every detected format in reader priority order.
type InspectionResult struct {
	ProjectDirectory string
	Formats          []FormatInspection
}

// Service probes a project directory with the configured source readers.
type Service struct {
	logger  *zap.Logger
	readers []sources.Reader
}

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if len(dependencies.Readers) == 0 {
		return nil, errSourceReadersMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{logger: logger, readers: dependencies.Readers}, nil
}

// Inspect detects the applicable formats and reads each one to count its
// dependency declarations. Nothing is written.
func (service *Service) Inspect(executionContext context.Context, options InspectionOptions) (InspectionResult, error) {
	if len(strings.TrimSpace(options.ProjectDirectory)) == 0 {
		return InspectionResult{}, InvalidInputError{FieldName: projectDirectoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if contextError := executionContext.Err(); contextError != nil {
		return InspectionResult{}, contextError
	}

	result := InspectionResult{ProjectDirectory: options.ProjectDirectory}
	for _, sourceReader := range service.readers {
		formatDetected, detectionError := sourceReader.Detect(options.ProjectDirectory)
		if detectionError != nil {
			return InspectionResult{}, fmt.Errorf(detectionFailedTemplateConstant, options.ProjectDirectory, detectionError)
		}
		if !formatDetected {
			continue
		}

		recorder := report.NewRecorder(service.logger)
		rawSource, readError := sourceReader.Read(options.ProjectDirectory, recorder)
		if readError != nil {
			return InspectionResult{}, fmt.Errorf(readSourceErrorTemplateConstant, sourceReader.Format(), readError)
		}

		result.Formats = append(result.Formats, FormatInspection{
			Format:       sourceReader.Format(),
			EntryCount:   len(rawSource.Entries),
			WarningCount: recorder.WarningCount(),
			ProjectName:  rawSource.Project.Name,
		})
	}

	if len(result.Formats) == 0 {
		return InspectionResult{}, fmt.Errorf(noSourcesDetectedTemplateConstant, options.ProjectDirectory, sources.ErrNoSourcesDetected)
	}

	return result, nil
}
