package inspect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/sources"
)

func writeProjectFile(testInstance *testing.T, projectDirectory string, fileName string, content string) {
	testInstance.Helper()
	require.NoError(testInstance, os.WriteFile(filepath.Join(projectDirectory, fileName), []byte(content), 0o644))
}

func newTestService(testInstance *testing.T) *Service {
	testInstance.Helper()
	service, serviceError := NewService(ServiceDependencies{Readers: sources.DefaultReaders()})
	require.NoError(testInstance, serviceError)
	return service
}

func TestNewServiceRequiresReaders(testInstance *testing.T) {
	testInstance.Parallel()

	service, serviceError := NewService(ServiceDependencies{})
	require.ErrorIs(testInstance, serviceError, errSourceReadersMissing)
	require.Nil(testInstance, service)
}

func TestServiceInspectRejectsBlankProjectDirectory(testInstance *testing.T) {
	testInstance.Parallel()

	service := newTestService(testInstance)
	_, inspectionError := service.Inspect(context.Background(), InspectionOptions{ProjectDirectory: "   "})

	var inputError InvalidInputError
	require.ErrorAs(testInstance, inspectionError, &inputError)
	require.Equal(testInstance, projectDirectoryFieldNameConstant, inputError.FieldName)
}

func TestServiceInspectReportsFormatsAndCounts(testInstance *testing.T) {
	testInstance.Parallel()

	projectDirectory := testInstance.TempDir()
	writeProjectFile(testInstance, projectDirectory, "pyproject.toml", "[project]\nname = \"demo\"\ndependencies = [\"flask>=2.0\"]\n")
	writeProjectFile(testInstance, projectDirectory, "requirements.txt", "requests>=2.28\nclick==8.1\n")

	service := newTestService(testInstance)
	result, inspectionError := service.Inspect(context.Background(), InspectionOptions{ProjectDirectory: projectDirectory})
	require.NoError(testInstance, inspectionError)
	require.Equal(testInstance, projectDirectory, result.ProjectDirectory)
	require.Equal(testInstance, []FormatInspection{
		{Format: manifest.SourceFormatPoetry, EntryCount: 1, WarningCount: 0, ProjectName: "demo"},
		{Format: manifest.SourceFormatRequirements, EntryCount: 2, WarningCount: 0, ProjectName: ""},
	}, result.Formats)
}

func TestServiceInspectCountsReaderWarnings(testInstance *testing.T) {
	testInstance.Parallel()

	projectDirectory := testInstance.TempDir()
	writeProjectFile(testInstance, projectDirectory, "requirements.txt", "requests>=2.28\n--hash=sha256:deadbeef\n")

	service := newTestService(testInstance)
	result, inspectionError := service.Inspect(context.Background(), InspectionOptions{ProjectDirectory: projectDirectory})
	require.NoError(testInstance, inspectionError)
	require.Len(testInstance, result.Formats, 1)
	require.Equal(testInstance, 1, result.Formats[0].EntryCount)
	require.Equal(testInstance, 1, result.Formats[0].WarningCount)
}

func TestServiceInspectFailsWhenNothingDetected(testInstance *testing.T) {
	testInstance.Parallel()

	service := newTestService(testInstance)
	_, inspectionError := service.Inspect(context.Background(), InspectionOptions{ProjectDirectory: testInstance.TempDir()})
	require.ErrorIs(testInstance, inspectionError, sources.ErrNoSourcesDetected)
}

func TestServiceInspectStopsOnCancelledContext(testInstance *testing.T) {
	testInstance.Parallel()

	projectDirectory := testInstance.TempDir()
	writeProjectFile(testInstance, projectDirectory, "requirements.txt", "requests>=2.28\n")

	cancelledContext, cancelFunction := context.WithCancel(context.Background())
	cancelFunction()

	service := newTestService(testInstance)
	_, inspectionError := service.Inspect(cancelledContext, InspectionOptions{ProjectDirectory: projectDirectory})
	require.ErrorIs(testInstance, inspectionError, context.Canceled)
}
