package inspect_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uvmigrate/uvmigrate/internal/inspect"
	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/sources"
)

type inspectorStub struct {
	result          inspect.InspectionResult
	failure         error
	executedOptions []inspect.InspectionOptions
}

func (stub *inspectorStub) Inspect(_ context.Context, options inspect.InspectionOptions) (inspect.InspectionResult, error) {
	stub.executedOptions = append(stub.executedOptions, options)
	if stub.failure != nil {
		return inspect.InspectionResult{}, stub.failure
	}
	return stub.result, nil
}

func buildDetectCommand(testInstance *testing.T, stub *inspectorStub) (*bytes.Buffer, func(arguments ...string) error) {
	testInstance.Helper()

	builder := &inspect.CommandBuilder{
		ServiceProvider: func(dependencies inspect.ServiceDependencies) (inspect.ProjectInspector, error) {
			return stub, nil
		},
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetErr(outputBuffer)

	return outputBuffer, func(arguments ...string) error {
		command.SetArgs(arguments)
		return command.Execute()
	}
}

func TestDetectCommandBuildConfiguresMetadata(testInstance *testing.T) {
	testInstance.Parallel()

	builder := &inspect.CommandBuilder{}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	require.Equal(testInstance, "detect [path]", command.Use)
}

func TestDetectCommandRendersInspection(testInstance *testing.T) {
	testInstance.Parallel()

	stub := &inspectorStub{
		result: inspect.InspectionResult{
			ProjectDirectory: "demo-dir",
			Formats: []inspect.FormatInspection{
				{Format: manifest.SourceFormatPoetry, EntryCount: 12, WarningCount: 0, ProjectName: "demo"},
				{Format: manifest.SourceFormatRequirements, EntryCount: 4, WarningCount: 1},
			},
		},
	}

	outputBuffer, runCommand := buildDetectCommand(testInstance, stub)
	require.NoError(testInstance, runCommand("demo-dir"))

	require.Len(testInstance, stub.executedOptions, 1)
	require.Equal(testInstance, "demo-dir", stub.executedOptions[0].ProjectDirectory)

	renderedOutput := outputBuffer.String()
	require.Contains(testInstance, renderedOutput, "demo-dir: 2 migratable definition format(s)")
	require.Contains(testInstance, renderedOutput, "poetry              12         0  demo")
	require.Contains(testInstance, renderedOutput, "requirements         4         1  -")
}

func TestDetectCommandDefaultsToCurrentDirectory(testInstance *testing.T) {
	testInstance.Parallel()

	stub := &inspectorStub{result: inspect.InspectionResult{ProjectDirectory: "."}}

	_, runCommand := buildDetectCommand(testInstance, stub)
	require.NoError(testInstance, runCommand())

	require.Len(testInstance, stub.executedOptions, 1)
	require.Equal(testInstance, ".", stub.executedOptions[0].ProjectDirectory)
}

func TestDetectCommandWrapsFailure(testInstance *testing.T) {
	testInstance.Parallel()

	stub := &inspectorStub{failure: sources.ErrNoSourcesDetected}

	_, runCommand := buildDetectCommand(testInstance, stub)
	executeError := runCommand("demo-dir")
	require.ErrorIs(testInstance, executeError, sources.ErrNoSourcesDetected)
	require.Contains(testInstance, executeError.Error(), "detection failed")
}
