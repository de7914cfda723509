package batch

// RunEventObserver receives progress callbacks while a batch run executes.
// Implementations must be safe for concurrent use because workers report
// from independent goroutines.
type RunEventObserver interface {
	MigrationStarted(projectDirectory string)
	MigrationCompleted(outcome ProjectOutcome)
}

type noopRunEventObserver struct{}

func (noopRunEventObserver) MigrationStarted(string) {}

func (noopRunEventObserver) MigrationCompleted(ProjectOutcome) {}
