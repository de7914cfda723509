package batch_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uvmigrate/uvmigrate/internal/batch"
	"github.com/uvmigrate/uvmigrate/internal/migrate"
)

type batchExecutorStub struct {
	result  batch.BatchResult
	failure error

	mutex           sync.Mutex
	executedOptions []batch.BatchOptions
}

func (stub *batchExecutorStub) Run(_ context.Context, options batch.BatchOptions) (batch.BatchResult, error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()

	stub.executedOptions = append(stub.executedOptions, options)
	return stub.result, stub.failure
}

func (stub *batchExecutorStub) ExecutedOptions() []batch.BatchOptions {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()

	return append([]batch.BatchOptions(nil), stub.executedOptions...)
}

type observerStub struct{}

func (observerStub) MigrationStarted(string) {}

func (observerStub) MigrationCompleted(batch.ProjectOutcome) {}

func buildBatchCommand(testInstance *testing.T, builder *batch.CommandBuilder) (*bytes.Buffer, func(arguments ...string) error) {
	testInstance.Helper()

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetErr(outputBuffer)

	runCommand := func(arguments ...string) error {
		command.SetArgs(arguments)
		return command.Execute()
	}
	return outputBuffer, runCommand
}

func TestBatchCommandBuildConfiguresFlags(testInstance *testing.T) {
	testInstance.Parallel()

	builder := &batch.CommandBuilder{}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	require.Equal(testInstance, "batch", command.Use)

	flagExpectations := map[string]string{
		"root":     "[.]",
		"parallel": "0",
		"dry-run":  "false",
		"backup":   "true",
		"output":   "pyproject.toml",
	}
	for flagName, expectedDefault := range flagExpectations {
		flag := command.Flags().Lookup(flagName)
		require.NotNil(testInstance, flag, flagName)
		require.Equal(testInstance, expectedDefault, flag.DefValue, flagName)
	}
}

func TestBatchCommandForwardsOptionsToService(testInstance *testing.T) {
	testInstance.Parallel()

	executorStub := &batchExecutorStub{}
	observer := observerStub{}

	var capturedDependencies batch.ServiceDependencies
	builder := &batch.CommandBuilder{
		ServiceProvider: func(dependencies batch.ServiceDependencies) (batch.BatchExecutor, error) {
			capturedDependencies = dependencies
			return executorStub, nil
		},
		EventObserver: observer,
	}

	_, runCommand := buildBatchCommand(testInstance, builder)
	runError := runCommand(
		"--root", "workspace",
		"--root", "archive",
		"--parallel", "2",
		"--dry-run",
		"--output", "custom.toml",
	)
	require.NoError(testInstance, runError)

	executedOptions := executorStub.ExecutedOptions()
	require.Len(testInstance, executedOptions, 1)
	require.Equal(testInstance, []string{"workspace", "archive"}, executedOptions[0].Roots)
	require.Equal(testInstance, 2, executedOptions[0].Parallelism)
	require.True(testInstance, executedOptions[0].Migration.DryRun)
	require.Equal(testInstance, "custom.toml", executedOptions[0].Migration.OutputPath)
	require.True(testInstance, executedOptions[0].Migration.Backup)
	require.Equal(testInstance, "", executedOptions[0].Migration.ProjectDirectory)

	require.NotNil(testInstance, capturedDependencies.Executor)
	require.NotNil(testInstance, capturedDependencies.Discoverer)
	require.Equal(testInstance, observer, capturedDependencies.EventObserver)
}

func TestBatchCommandAppliesConfiguration(testInstance *testing.T) {
	testInstance.Parallel()

	executorStub := &batchExecutorStub{}
	builder := &batch.CommandBuilder{
		ServiceProvider: func(batch.ServiceDependencies) (batch.BatchExecutor, error) {
			return executorStub, nil
		},
		ConfigurationProvider: func() migrate.CommandConfiguration {
			return migrate.CommandConfiguration{
				Output:      " configured.toml ",
				Backup:      false,
				MergeGroups: true,
			}
		},
	}

	_, runCommand := buildBatchCommand(testInstance, builder)
	runError := runCommand()
	require.NoError(testInstance, runError)

	executedOptions := executorStub.ExecutedOptions()
	require.Len(testInstance, executedOptions, 1)
	require.Equal(testInstance, []string{"."}, executedOptions[0].Roots)
	require.Equal(testInstance, "configured.toml", executedOptions[0].Migration.OutputPath)
	require.False(testInstance, executedOptions[0].Migration.Backup)
	require.True(testInstance, executedOptions[0].Migration.MergeGroups)
}

func TestBatchCommandRendersOutcomesAndSummary(testInstance *testing.T) {
	testInstance.Parallel()

	migrationFailure := errors.New("resolution failed")
	executorStub := &batchExecutorStub{
		result: batch.BatchResult{
			Outcomes: []batch.ProjectOutcome{
				{ProjectDirectory: "projects/alpha", Result: migrate.MigrationResult{FinalState: migrate.StateDone}},
				{ProjectDirectory: "projects/beta", Failure: migrationFailure},
			},
			SucceededCount: 1,
			FailedCount:    1,
		},
		failure: batch.ErrProjectMigrationsFailed,
	}
	builder := &batch.CommandBuilder{
		ServiceProvider: func(batch.ServiceDependencies) (batch.BatchExecutor, error) {
			return executorStub, nil
		},
	}

	outputBuffer, runCommand := buildBatchCommand(testInstance, builder)
	runError := runCommand()

	require.ErrorIs(testInstance, runError, batch.ErrProjectMigrationsFailed)
	require.ErrorContains(testInstance, runError, "batch migration failed")

	renderedOutput := outputBuffer.String()
	require.Contains(testInstance, renderedOutput, "==> projects/alpha")
	require.Contains(testInstance, renderedOutput, "==> projects/beta")
	require.Contains(testInstance, renderedOutput, "failed: resolution failed")
	require.Contains(testInstance, renderedOutput, "1 project(s) migrated, 1 failed")
}

func TestBatchCommandRejectsUnknownSourceFormat(testInstance *testing.T) {
	testInstance.Parallel()

	executorStub := &batchExecutorStub{}
	builder := &batch.CommandBuilder{
		ServiceProvider: func(batch.ServiceDependencies) (batch.BatchExecutor, error) {
			return executorStub, nil
		},
		ConfigurationProvider: func() migrate.CommandConfiguration {
			return migrate.CommandConfiguration{SourcePriority: []string{"cargo"}}
		},
	}

	_, runCommand := buildBatchCommand(testInstance, builder)
	runError := runCommand()

	var inputError migrate.InvalidInputError
	require.ErrorAs(testInstance, runError, &inputError)
	require.Empty(testInstance, executorStub.ExecutedOptions())
}
