package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/uvmigrate/uvmigrate/internal/emit"
	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/normalize"
	"github.com/uvmigrate/uvmigrate/internal/report"
	"github.com/uvmigrate/uvmigrate/internal/resolve"
	"github.com/uvmigrate/uvmigrate/internal/sources"
)

const (
	projectDirectoryFieldNameConstant       = "project_directory"
	requiredValueMessageConstant            = "a value is required"
	sourceReadersMissingMessageConstant     = "source readers not configured"
	warningsBlockEmissionMessageConstant    = "recorded warnings block emission unless forced"
	defaultOutputFileNameConstant           = "pyproject.toml"
	conflictCountTemplateConstant           = "blocking dependency conflicts: %d"
	warningsGateTemplateConstant            = "%d warnings block emission; use force to emit anyway"
	warningsGateErrorTemplateConstant       = "emission blocked by %d warnings: %w"
	detectionFailedTemplateConstant         = "source detection failed in %s: %w"
	noSourcesDetectedTemplateConstant       = "%s: %w"
	readSourceErrorTemplateConstant         = "unable to read %s definitions: %w"
	detectedFormatsTemplateConstant         = "detected source formats: %s"
	detectedFormatsSeparatorConstant        = ", "
	projectNameDerivedTemplateConstant      = "project name %q derived from the directory name"
	pipConfigurationImportTemplateConstant  = "imported %d index definitions from %s"
	pipConfigurationSkippedTemplateConstant = "pip configuration %s was ignored: %s"
	dryRunWouldWriteTemplateConstant        = "dry run: would write %s"
)

// InvalidInputError describes migration option validation failures.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", inputError.FieldName, inputError.Message)
}

// ConflictError reports unresolvable dependency conflicts that stopped the
// run before any output was written.
type ConflictError struct {
	Conflicts []manifest.Conflict
}

// Error summarizes the blocking conflicts.
func (conflictError ConflictError) Error() string {
	return fmt.Sprintf(conflictCountTemplateConstant, len(conflictError.Conflicts))
}

var (
	errSourceReadersMissing = errors.New(sourceReadersMissingMessageConstant)

	// ErrWarningsPresent stops emission when warnings were recorded and the
	// caller did not force the run.
	ErrWarningsPresent = errors.New(warningsBlockEmissionMessageConstant)
)

// ServiceDependencies describes required collaborators for migration.
type ServiceDependencies struct {
	Logger  *zap.Logger
	Readers []sources.Reader
}

// MigrationOptions configures one migration run.
type MigrationOptions struct {
	ProjectDirectory       string
	OutputPath             string
	DryRun                 bool
	Force                  bool
	Backup                 bool
	MergeGroups            bool
	SourcePriority         []manifest.SourceFormat
	ImportPipConfiguration bool
	AdditionalIndexURLs    []string
}

// MigrationResult captures the observable outcomes of a run.
type MigrationResult struct {
	FinalState      State
	DetectedFormats []manifest.SourceFormat
	Conflicts       []manifest.Conflict
	OutputPath      string
	Report          report.Report
}

// Service drives the migration pipeline over one project directory.
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

	service := &Service{
		logger:  logger,
		readers: dependencies.Readers,
	}

	return service, nil
}

// Execute performs the migration pipeline and returns the outcome together
// with the run report. The result carries the report on failures too.
func (service *Service) Execute(executionContext context.Context, options MigrationOptions) (MigrationResult, error) {
	if validationError := service.validateOptions(options); validationError != nil {
		return MigrationResult{}, validationError
	}

	recorder := report.NewRecorder(service.logger)
	machine := newStateMachine()
	result := MigrationResult{
		FinalState: machine.Current(),
		OutputPath: resolveOutputPath(options.ProjectDirectory, options.OutputPath),
	}

	if contextError := executionContext.Err(); contextError != nil {
		return failRun(machine, recorder, result, contextError)
	}
	if advanceError := machine.Advance(StateDetecting); advanceError != nil {
		return failRun(machine, recorder, result, advanceError)
	}

	detectedReaders, detectionError := service.detectReaders(options.ProjectDirectory, recorder)
	if detectionError != nil {
		return failRun(machine, recorder, result, detectionError)
	}
	result.DetectedFormats = readerFormats(detectedReaders)

	if contextError := executionContext.Err(); contextError != nil {
		return failRun(machine, recorder, result, contextError)
	}
	if advanceError := machine.Advance(StateReading); advanceError != nil {
		return failRun(machine, recorder, result, advanceError)
	}

	rawSources := make([]sources.RawSource, 0, len(detectedReaders))
	for _, sourceReader := range detectedReaders {
		rawSource, readError := sourceReader.Read(options.ProjectDirectory, recorder)
		if readError != nil {
			wrappedError := fmt.Errorf(readSourceErrorTemplateConstant, sourceReader.Format(), readError)
			recorder.Error(wrappedError.Error(), report.EventSite{})
			return failRun(machine, recorder, result, wrappedError)
		}
		rawSources = append(rawSources, rawSource)
	}

	importedIndexes := service.importIndexDefinitions(options, recorder)

	if contextError := executionContext.Err(); contextError != nil {
		return failRun(machine, recorder, result, contextError)
	}
	if advanceError := machine.Advance(StateNormalizing); advanceError != nil {
		return failRun(machine, recorder, result, advanceError)
	}

	normalizer := normalize.NewNormalizer(recorder)
	normalizedInput := normalizer.Normalize(rawSources, normalize.NormalizeOptions{
		MergeGroups:    options.MergeGroups,
		SourcePriority: options.SourcePriority,
	})
	normalizedInput.Project.Indexes = mergeIndexDefinitions(normalizedInput.Project.Indexes, importedIndexes)
	service.ensureProjectName(&normalizedInput, options.ProjectDirectory, recorder)

	if contextError := executionContext.Err(); contextError != nil {
		return failRun(machine, recorder, result, contextError)
	}
	if advanceError := machine.Advance(StateResolving); advanceError != nil {
		return failRun(machine, recorder, result, advanceError)
	}

	resolver := resolve.NewResolver(recorder)
	resolution := resolver.Resolve(normalizedInput, resolve.ResolveOptions{SourcePriority: options.SourcePriority})
	result.Conflicts = resolution.Conflicts
	if len(resolution.Conflicts) > 0 {
		return failRun(machine, recorder, result, ConflictError{Conflicts: resolution.Conflicts})
	}

	if warningCount := recorder.WarningCount(); warningCount > 0 && !options.Force {
		recorder.Error(fmt.Sprintf(warningsGateTemplateConstant, warningCount), report.EventSite{})
		return failRun(machine, recorder, result, fmt.Errorf(warningsGateErrorTemplateConstant, warningCount, ErrWarningsPresent))
	}

	if contextError := executionContext.Err(); contextError != nil {
		return failRun(machine, recorder, result, contextError)
	}
	if advanceError := machine.Advance(StateEmitting); advanceError != nil {
		return failRun(machine, recorder, result, advanceError)
	}

	emitter := emit.NewEmitter(recorder)
	renderedContent, renderError := emitter.Render(resolution.Project)
	if renderError != nil {
		recorder.Error(renderError.Error(), report.EventSite{File: result.OutputPath})
		return failRun(machine, recorder, result, renderError)
	}

	if options.DryRun {
		for _, plannedPath := range plannedOutputFiles(result.OutputPath, options.Backup) {
			recorder.Info(fmt.Sprintf(dryRunWouldWriteTemplateConstant, plannedPath), report.EventSite{})
		}
	} else {
		writtenFiles, publishError := emit.Publish(renderedContent, emit.PublishOptions{
			OutputPath: result.OutputPath,
			Backup:     options.Backup,
		})
		if publishError != nil {
			recorder.Error(publishError.Error(), report.EventSite{File: result.OutputPath})
			return failRun(machine, recorder, result, publishError)
		}
		for _, writtenFile := range writtenFiles {
			recorder.RecordWrittenFile(writtenFile)
		}
	}

	if advanceError := machine.Advance(StateDone); advanceError != nil {
		return failRun(machine, recorder, result, advanceError)
	}

	result.FinalState = machine.Current()
	result.Report = recorder.Snapshot()
	return result, nil
}

func (service *Service) validateOptions(options MigrationOptions) error {
	if len(strings.TrimSpace(options.ProjectDirectory)) == 0 {
		return InvalidInputError{FieldName: projectDirectoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return nil
}

func (service *Service) detectReaders(projectDirectory string, recorder *report.Recorder) ([]sources.Reader, error) {
	detectedReaders := make([]sources.Reader, 0, len(service.readers))
	for _, sourceReader := range service.readers {
		formatDetected, detectionError := sourceReader.Detect(projectDirectory)
		if detectionError != nil {
			return nil, fmt.Errorf(detectionFailedTemplateConstant, projectDirectory, detectionError)
		}
		if formatDetected {
			detectedReaders = append(detectedReaders, sourceReader)
		}
	}

	if len(detectedReaders) == 0 {
		recorder.Error(sources.ErrNoSourcesDetected.Error(), report.EventSite{File: projectDirectory})
		return nil, fmt.Errorf(noSourcesDetectedTemplateConstant, projectDirectory, sources.ErrNoSourcesDetected)
	}

	formatNames := make([]string, 0, len(detectedReaders))
	for _, detectedReader := range detectedReaders {
		formatNames = append(formatNames, string(detectedReader.Format()))
	}
	recorder.Info(
		fmt.Sprintf(detectedFormatsTemplateConstant, strings.Join(formatNames, detectedFormatsSeparatorConstant)),
		report.EventSite{},
	)

	return detectedReaders, nil
}

// importIndexDefinitions gathers index definitions requested through the pip
// configuration import and explicit index URLs. Import failures degrade to
// warnings because the migration can finish without the extra indexes.
func (service *Service) importIndexDefinitions(options MigrationOptions, recorder *report.Recorder) []manifest.IndexDefinition {
	var importedIndexes []manifest.IndexDefinition

	if options.ImportPipConfiguration {
		if configurationPath, configurationFound := sources.LocatePipConfiguration(options.ProjectDirectory); configurationFound {
			pipIndexes, readError := sources.ReadPipConfiguration(configurationPath)
			if readError != nil {
				recorder.Warning(
					fmt.Sprintf(pipConfigurationSkippedTemplateConstant, configurationPath, readError.Error()),
					report.EventSite{File: configurationPath},
				)
			} else if len(pipIndexes) > 0 {
				recorder.Info(
					fmt.Sprintf(pipConfigurationImportTemplateConstant, len(pipIndexes), configurationPath),
					report.EventSite{File: configurationPath},
				)
				importedIndexes = append(importedIndexes, pipIndexes...)
			}
		}
	}

	for _, indexURL := range options.AdditionalIndexURLs {
		trimmedURL := strings.TrimSpace(indexURL)
		if len(trimmedURL) == 0 {
			continue
		}
		importedIndexes = append(importedIndexes, sources.IndexDefinitionForURL(trimmedURL))
	}

	return importedIndexes
}

// ensureProjectName falls back to the directory name when no source declared
// a project name.
func (service *Service) ensureProjectName(normalizedInput *normalize.NormalizedInput, projectDirectory string, recorder *report.Recorder) {
	if len(strings.TrimSpace(normalizedInput.Project.Name)) > 0 {
		return
	}

	directoryPath := projectDirectory
	if absolutePath, absoluteError := filepath.Abs(projectDirectory); absoluteError == nil {
		directoryPath = absolutePath
	}

	derivedName := manifest.CanonicalName(filepath.Base(directoryPath))
	normalizedInput.Project.Name = derivedName
	recorder.Info(fmt.Sprintf(projectNameDerivedTemplateConstant, derivedName), report.EventSite{})
}

func failRun(machine *stateMachine, recorder *report.Recorder, result MigrationResult, failure error) (MigrationResult, error) {
	if transitionError := machine.Fail(); transitionError != nil {
		failure = errors.Join(failure, transitionError)
	}
	result.FinalState = machine.Current()
	result.Report = recorder.Snapshot()
	return result, failure
}

func resolveOutputPath(projectDirectory string, outputSetting string) string {
	trimmedSetting := strings.TrimSpace(outputSetting)
	if len(trimmedSetting) == 0 {
		trimmedSetting = defaultOutputFileNameConstant
	}
	if filepath.IsAbs(trimmedSetting) {
		return filepath.Clean(trimmedSetting)
	}
	return filepath.Join(projectDirectory, trimmedSetting)
}

func readerFormats(detectedReaders []sources.Reader) []manifest.SourceFormat {
	detectedFormats := make([]manifest.SourceFormat, 0, len(detectedReaders))
	for _, detectedReader := range detectedReaders {
		detectedFormats = append(detectedFormats, detectedReader.Format())
	}
	return detectedFormats
}

func mergeIndexDefinitions(existingIndexes []manifest.IndexDefinition, importedIndexes []manifest.IndexDefinition) []manifest.IndexDefinition {
	mergedIndexes := existingIndexes
	for _, importedIndex := range importedIndexes {
		alreadyPresent := false
		for _, existingIndex := range mergedIndexes {
			if existingIndex.URL == importedIndex.URL {
				alreadyPresent = true
				break
			}
		}
		if !alreadyPresent {
			mergedIndexes = append(mergedIndexes, importedIndex)
		}
	}
	return mergedIndexes
}

func plannedOutputFiles(outputPath string, backupEnabled bool) []string {
	plannedFiles := make([]string, 0, 2)
	if backupEnabled {
		if _, statError := os.Stat(outputPath); statError == nil {
			plannedFiles = append(plannedFiles, emit.BackupPath(outputPath))
		}
	}
	return append(plannedFiles, outputPath)
}
