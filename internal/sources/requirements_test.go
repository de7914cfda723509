package sources_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/report"
	"github.com/uvmigrate/uvmigrate/internal/sources"
)

const requirementsFixtureContentConstant = `# core dependencies
requests[security]>=2.0  # http client
flask==2.0.1 ; python_version >= "3.8"
python>=3.9
git+https://github.com/psf/black.git@23.1.0#egg=black
https://files.example.com/wheels/demo-1.0-py3-none-any.whl
-r common.txt
--find-links ./wheels
-e ./packages/toolkit
==2.0
`

func TestRequirementsReaderDetect(testInstance *testing.T) {
	testInstance.Parallel()

	testCases := []struct {
		name           string
		fileNames      []string
		expectedResult bool
	}{
		{name: "plain_requirements_file", fileNames: []string{"requirements.txt"}, expectedResult: true},
		{name: "suffixed_requirements_file", fileNames: []string{"requirements-dev.txt"}, expectedResult: true},
		{name: "underscore_suffix", fileNames: []string{"requirements_test.txt"}, expectedResult: true},
		{name: "unrelated_text_file", fileNames: []string{"notes.txt"}, expectedResult: false},
		{name: "prefix_without_separator", fileNames: []string{"requirementsfoo.txt"}, expectedResult: false},
		{name: "empty_directory", fileNames: nil, expectedResult: false},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		subtestName := fmt.Sprintf("%d_%s", testCaseIndex, testCase.name)
		testInstance.Run(subtestName, func(subtest *testing.T) {
			projectDirectory := subtest.TempDir()
			for _, fileName := range testCase.fileNames {
				writeProjectFile(subtest, projectDirectory, fileName, "requests\n")
			}

			detected, detectError := sources.NewRequirementsReader().Detect(projectDirectory)
			require.NoError(subtest, detectError)
			require.Equal(subtest, testCase.expectedResult, detected)
		})
	}
}

func TestRequirementsReaderExtractsEntries(testInstance *testing.T) {
	testInstance.Parallel()

	projectDirectory := testInstance.TempDir()
	writeProjectFile(testInstance, projectDirectory, "requirements.txt", requirementsFixtureContentConstant)
	writeProjectFile(testInstance, projectDirectory, "requirements-dev.txt", "pytest>=7.0\n")

	recorder := report.NewRecorder(nil)
	rawSource, readError := sources.NewRequirementsReader().Read(projectDirectory, recorder)
	require.NoError(testInstance, readError)

	require.Equal(testInstance, manifest.SourceFormatRequirements, rawSource.Format)
	require.Equal(testInstance, ">=3.9", rawSource.Project.RequiresPython)
	require.Len(testInstance, rawSource.Entries, 6)

	developmentEntry := rawSource.Entries[0]
	require.Equal(testInstance, "pytest", developmentEntry.Name)
	require.Equal(testInstance, ">=7.0", developmentEntry.ConstraintText)
	require.Equal(testInstance, manifest.DevelopmentGroup(), developmentEntry.Group)
	require.Equal(testInstance, "requirements-dev.txt", developmentEntry.File)
	require.Equal(testInstance, 1, developmentEntry.Line)

	requestsEntry := rawSource.Entries[1]
	require.Equal(testInstance, "requests", requestsEntry.Name)
	require.Equal(testInstance, []string{"security"}, requestsEntry.Extras)
	require.Equal(testInstance, ">=2.0", requestsEntry.ConstraintText)
	require.True(testInstance, requestsEntry.Source.IsRegistry())
	require.Equal(testInstance, manifest.MainGroup(), requestsEntry.Group)
	require.Equal(testInstance, 2, requestsEntry.Line)

	flaskEntry := rawSource.Entries[2]
	require.Equal(testInstance, "flask", flaskEntry.Name)
	require.Equal(testInstance, "==2.0.1", flaskEntry.ConstraintText)
	require.Equal(testInstance, `python_version >= "3.8"`, flaskEntry.Markers)

	blackEntry := rawSource.Entries[3]
	require.Equal(testInstance, "black", blackEntry.Name)
	require.Equal(testInstance, manifest.SourceKindVCS, blackEntry.Source.Kind)
	require.Equal(testInstance, "https://github.com/psf/black.git", blackEntry.Source.URL)
	require.Equal(testInstance, "23.1.0", blackEntry.Source.Reference)

	wheelEntry := rawSource.Entries[4]
	require.Equal(testInstance, "demo", wheelEntry.Name)
	require.Equal(testInstance, manifest.SourceKindURL, wheelEntry.Source.Kind)
	require.Equal(testInstance, "https://files.example.com/wheels/demo-1.0-py3-none-any.whl", wheelEntry.Source.URL)

	editableEntry := rawSource.Entries[5]
	require.Equal(testInstance, "toolkit", editableEntry.Name)
	require.Equal(testInstance, manifest.SourceKindPath, editableEntry.Source.Kind)
	require.Equal(testInstance, "./packages/toolkit", editableEntry.Source.Path)
	require.True(testInstance, editableEntry.Source.Editable)

	require.Equal(testInstance, 1, recorder.WarningCount())
}

func TestRequirementsReaderClassifiesFileNamesIntoGroups(testInstance *testing.T) {
	testInstance.Parallel()

	testCases := []struct {
		name          string
		fileName      string
		expectedGroup manifest.GroupLabel
	}{
		{name: "plain_file_is_main", fileName: "requirements.txt", expectedGroup: manifest.MainGroup()},
		{name: "dev_suffix", fileName: "requirements-dev.txt", expectedGroup: manifest.DevelopmentGroup()},
		{name: "testing_suffix", fileName: "requirements_testing.txt", expectedGroup: manifest.DevelopmentGroup()},
		{name: "docs_suffix_is_named", fileName: "requirements-docs.txt", expectedGroup: manifest.NamedGroup("docs")},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		subtestName := fmt.Sprintf("%d_%s", testCaseIndex, testCase.name)
		testInstance.Run(subtestName, func(subtest *testing.T) {
			projectDirectory := subtest.TempDir()
			writeProjectFile(subtest, projectDirectory, testCase.fileName, "requests>=2.0\n")

			rawSource, readError := sources.NewRequirementsReader().Read(projectDirectory, report.NewRecorder(nil))
			require.NoError(subtest, readError)
			require.Len(subtest, rawSource.Entries, 1)
			require.Equal(subtest, testCase.expectedGroup, rawSource.Entries[0].Group)
		})
	}
}

func TestRequirementsReaderRecordsDirectiveEvents(testInstance *testing.T) {
	testInstance.Parallel()

	projectDirectory := testInstance.TempDir()
	writeProjectFile(testInstance, projectDirectory, "requirements.txt", "-r base.txt\n--unknown-flag value\n-e .\n")

	recorder := report.NewRecorder(nil)
	rawSource, readError := sources.NewRequirementsReader().Read(projectDirectory, recorder)
	require.NoError(testInstance, readError)
	require.Empty(testInstance, rawSource.Entries)

	migrationReport := recorder.Snapshot()
	require.Equal(testInstance, 1, migrationReport.CountBySeverity(report.SeverityWarning))
	require.Equal(testInstance, 2, migrationReport.CountBySeverity(report.SeverityInfo))
}
