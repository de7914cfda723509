// Package testsupport provides reusable stubs for migration command tests.
package testsupport

import (
	"context"
	"sync"

	"github.com/uvmigrate/uvmigrate/internal/migrate"
)

// ServiceStub implements the migration executor contract with canned
// outcomes keyed by project directory. It is safe for concurrent use.
type ServiceStub struct {
	Results map[string]migrate.MigrationResult
	Errors  map[string]error

	mutex           sync.Mutex
	executedOptions []migrate.MigrationOptions
}

// Execute records the received options and returns the outcome configured
// for the project directory.
func (stub *ServiceStub) Execute(_ context.Context, options migrate.MigrationOptions) (migrate.MigrationResult, error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()

	stub.executedOptions = append(stub.executedOptions, options)

	var result migrate.MigrationResult
	if stub.Results != nil {
		result = stub.Results[options.ProjectDirectory]
	}
	var executionError error
	if stub.Errors != nil {
		executionError = stub.Errors[options.ProjectDirectory]
	}
	return result, executionError
}

// ExecutedOptions returns a copy of the options passed to Execute so far.
func (stub *ServiceStub) ExecutedOptions() []migrate.MigrationOptions {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()

	return append([]migrate.MigrationOptions(nil), stub.executedOptions...)
}

// ExecutedDirectories lists the project directories the stub served.
func (stub *ServiceStub) ExecutedDirectories() []string {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()

	directories := make([]string, 0, len(stub.executedOptions))
	for _, executedOptions := range stub.executedOptions {
		directories = append(directories, executedOptions.ProjectDirectory)
	}
	return directories
}
