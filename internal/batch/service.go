package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/uvmigrate/uvmigrate/internal/migrate"
)

const (
	currentDirectoryConstant          = "."
	outputFieldNameConstant           = "output"
	absoluteOutputPathMessageConstant = "must be a relative path for batch runs"
	discoveryFailedTemplateConstant   = "project discovery failed: %w"
	noProjectsTemplateConstant        = "%s: %w"
	rootListSeparatorConstant         = ", "
	failedMigrationsTemplateConstant  = "%d of %d projects: %w"
	interruptedTemplateConstant       = "batch run interrupted: %w"
	batchStartingMessageConstant      = "Batch run starting"
	batchFinishedMessageConstant      = "Batch run finished"
	logFieldRootsConstant             = "roots"
	logFieldProjectCountConstant      = "project_count"
	logFieldParallelismConstant       = "parallelism"
	logFieldSucceededConstant         = "succeeded"
	logFieldFailedConstant            = "failed"
)

var (
	errProjectDiscovererMissing = errors.New("project discoverer not configured")
	errMigrationExecutorMissing = errors.New("migration executor not configured")

	// ErrNoProjectsDiscovered reports that the configured roots hold no
	// migratable project definitions.
	ErrNoProjectsDiscovered = errors.New("no migratable projects discovered")
	// ErrProjectMigrationsFailed reports that at least one discovered project
	// failed to migrate.
	ErrProjectMigrationsFailed = errors.New("project migrations failed")
)

// ProjectDiscoverer locates project directories beneath the provided roots.
type ProjectDiscoverer interface {
	DiscoverProjects(roots []string) ([]string, error)
}

// ServiceDependencies carries the collaborators a batch service needs.
type ServiceDependencies struct {
	Logger        *zap.Logger
	Discoverer    ProjectDiscoverer
	Executor      migrate.MigrationExecutor
	EventObserver RunEventObserver
}

// BatchOptions parameterizes one batch run. The migration template applies to
// every discovered project with its project directory overwritten per project.
type BatchOptions struct {
	Roots       []string
	Parallelism int
	Migration   migrate.MigrationOptions
}

// ProjectOutcome captures the result of migrating one discovered project.
type ProjectOutcome struct {
	ProjectDirectory string
	Result           migrate.MigrationResult
	Failure          error
}

// Succeeded reports whether the project migrated without a fatal error.
func (outcome ProjectOutcome) Succeeded() bool {
	return outcome.Failure == nil
}

// BatchResult aggregates the outcomes of one batch run sorted by project
// directory.
type BatchResult struct {
	Outcomes       []ProjectOutcome
	SucceededCount int
	FailedCount    int
}

// Service migrates every discovered project through a bounded worker pool.
type Service struct {
	logger     *zap.Logger
	discoverer ProjectDiscoverer
	executor   migrate.MigrationExecutor
	observer   RunEventObserver
}

// NewService validates the dependencies and builds a batch service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Discoverer == nil {
		return nil, errProjectDiscovererMissing
	}
	if dependencies.Executor == nil {
		return nil, errMigrationExecutorMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	observer := dependencies.EventObserver
	if observer == nil {
		observer = noopRunEventObserver{}
	}

	return &Service{
		logger:     logger,
		discoverer: dependencies.Discoverer,
		executor:   dependencies.Executor,
		observer:   observer,
	}, nil
}

// Run discovers projects beneath the configured roots and migrates each one.
// The returned result carries every outcome even when the run reports an
// error overall.
func (service *Service) Run(executionContext context.Context, options BatchOptions) (BatchResult, error) {
	if filepath.IsAbs(options.Migration.OutputPath) {
		return BatchResult{}, migrate.InvalidInputError{FieldName: outputFieldNameConstant, Message: absoluteOutputPathMessageConstant}
	}

	normalizedRoots := normalizeRoots(options.Roots)
	workerCount := options.Parallelism
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	if contextError := executionContext.Err(); contextError != nil {
		return BatchResult{}, contextError
	}

	projectDirectories, discoveryError := service.discoverer.DiscoverProjects(normalizedRoots)
	if discoveryError != nil {
		return BatchResult{}, fmt.Errorf(discoveryFailedTemplateConstant, discoveryError)
	}
	if len(projectDirectories) == 0 {
		return BatchResult{}, fmt.Errorf(noProjectsTemplateConstant, strings.Join(normalizedRoots, rootListSeparatorConstant), ErrNoProjectsDiscovered)
	}

	if workerCount > len(projectDirectories) {
		workerCount = len(projectDirectories)
	}

	service.logger.Info(
		batchStartingMessageConstant,
		zap.Strings(logFieldRootsConstant, normalizedRoots),
		zap.Int(logFieldProjectCountConstant, len(projectDirectories)),
		zap.Int(logFieldParallelismConstant, workerCount),
	)

	outcomes := service.migrateProjects(executionContext, projectDirectories, options.Migration, workerCount)

	result := BatchResult{Outcomes: outcomes}
	for _, outcome := range outcomes {
		if outcome.Succeeded() {
			result.SucceededCount++
		} else {
			result.FailedCount++
		}
	}

	service.logger.Info(
		batchFinishedMessageConstant,
		zap.Int(logFieldProjectCountConstant, len(projectDirectories)),
		zap.Int(logFieldSucceededConstant, result.SucceededCount),
		zap.Int(logFieldFailedConstant, result.FailedCount),
	)

	if contextError := executionContext.Err(); contextError != nil {
		return result, fmt.Errorf(interruptedTemplateConstant, contextError)
	}
	if result.FailedCount > 0 {
		return result, fmt.Errorf(failedMigrationsTemplateConstant, result.FailedCount, len(outcomes), ErrProjectMigrationsFailed)
	}
	return result, nil
}

func (service *Service) migrateProjects(executionContext context.Context, projectDirectories []string, template migrate.MigrationOptions, workerCount int) []ProjectOutcome {
	jobs := make(chan string, len(projectDirectories))
	results := make(chan ProjectOutcome, len(projectDirectories))

	var waitGroup sync.WaitGroup
	for workerIndex := 0; workerIndex < workerCount; workerIndex++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			for projectDirectory := range jobs {
				select {
				case <-executionContext.Done():
					return
				default:
				}
				results <- service.migrateProject(executionContext, projectDirectory, template)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, projectDirectory := range projectDirectories {
			select {
			case <-executionContext.Done():
				return
			case jobs <- projectDirectory:
			}
		}
	}()

	go func() {
		waitGroup.Wait()
		close(results)
	}()

	outcomes := make([]ProjectOutcome, 0, len(projectDirectories))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}

	sort.Slice(outcomes, func(firstIndex, secondIndex int) bool {
		return outcomes[firstIndex].ProjectDirectory < outcomes[secondIndex].ProjectDirectory
	})
	return outcomes
}

func (service *Service) migrateProject(executionContext context.Context, projectDirectory string, template migrate.MigrationOptions) ProjectOutcome {
	service.observer.MigrationStarted(projectDirectory)

	migrationOptions := template
	migrationOptions.ProjectDirectory = projectDirectory

	migrationResult, migrationError := service.executor.Execute(executionContext, migrationOptions)
	outcome := ProjectOutcome{
		ProjectDirectory: projectDirectory,
		Result:           migrationResult,
		Failure:          migrationError,
	}
	service.observer.MigrationCompleted(outcome)
	return outcome
}

func normalizeRoots(roots []string) []string {
	normalized := make([]string, 0, len(roots))
	for _, root := range roots {
		trimmedRoot := strings.TrimSpace(root)
		if len(trimmedRoot) == 0 {
			continue
		}
		normalized = append(normalized, trimmedRoot)
	}
	if len(normalized) == 0 {
		normalized = append(normalized, currentDirectoryConstant)
	}
	return normalized
}
