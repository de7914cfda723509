package sources_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/report"
	"github.com/uvmigrate/uvmigrate/internal/sources"
)

const setupScriptFixtureContentConstant = `import os
from setuptools import setup, find_packages

__version__ = "2.1.0"

setup(
    name="data-pipeline",
    version=__version__,
    description="Data pipeline tools",
    author="Platform Team",
    author_email="platform@example.com",
    url="https://example.com/data-pipeline",
    python_requires=">=3.9",
    packages=find_packages(),
    install_requires=[
        "click>=8.0",  # cli
        "sqlalchemy>=1.4,<2.0",
    ],
    extras_require={
        "test": ["pytest>=7.0"],
        "docs": ["sphinx>=6.0"],
    },
    entry_points={
        "console_scripts": [
            "pipeline = data_pipeline.cli:main",
        ],
    },
)
`

const setupScriptINIEntryPointsFixtureConstant = `from setuptools import setup

setup(
    name="tool",
    version="1.0",
    install_requires=REQUIREMENTS,
    entry_points="""
    [console_scripts]
    tool = tool.cli:run
    """,
)
`

func TestSetupScriptReaderDetect(testInstance *testing.T) {
	testInstance.Parallel()

	projectDirectory := testInstance.TempDir()
	detected, detectError := sources.NewSetupScriptReader().Detect(projectDirectory)
	require.NoError(testInstance, detectError)
	require.False(testInstance, detected)

	writeProjectFile(testInstance, projectDirectory, "setup.py", setupScriptFixtureContentConstant)
	detected, detectError = sources.NewSetupScriptReader().Detect(projectDirectory)
	require.NoError(testInstance, detectError)
	require.True(testInstance, detected)
}

func TestSetupScriptReaderExtractsLiteralMetadata(testInstance *testing.T) {
	testInstance.Parallel()

	projectDirectory := testInstance.TempDir()
	writeProjectFile(testInstance, projectDirectory, "setup.py", setupScriptFixtureContentConstant)

	recorder := report.NewRecorder(nil)
	rawSource, readError := sources.NewSetupScriptReader().Read(projectDirectory, recorder)
	require.NoError(testInstance, readError)

	require.Equal(testInstance, "data-pipeline", rawSource.Project.Name)
	require.Equal(testInstance, "2.1.0", rawSource.Project.Version)
	require.Equal(testInstance, "Data pipeline tools", rawSource.Project.Description)
	require.Equal(testInstance, []manifest.Author{{Name: "Platform Team", Email: "platform@example.com"}}, rawSource.Project.Authors)
	require.Equal(testInstance, "https://example.com/data-pipeline", rawSource.Project.URLs["homepage"])
	require.Equal(testInstance, ">=3.9", rawSource.Project.RequiresPython)
	require.Equal(testInstance, "data_pipeline.cli:main", rawSource.Project.Scripts["pipeline"])
	require.True(testInstance, rawSource.Project.Packaged)

	require.Len(testInstance, rawSource.Entries, 4)

	require.Equal(testInstance, "click", rawSource.Entries[0].Name)
	require.Equal(testInstance, ">=8.0", rawSource.Entries[0].ConstraintText)
	require.Equal(testInstance, manifest.MainGroup(), rawSource.Entries[0].Group)
	require.Equal(testInstance, 15, rawSource.Entries[0].Line)

	require.Equal(testInstance, "sqlalchemy", rawSource.Entries[1].Name)
	require.Equal(testInstance, ">=1.4,<2.0", rawSource.Entries[1].ConstraintText)

	require.Equal(testInstance, "sphinx", rawSource.Entries[2].Name)
	require.Equal(testInstance, manifest.NamedGroup("docs"), rawSource.Entries[2].Group)

	require.Equal(testInstance, "pytest", rawSource.Entries[3].Name)
	require.Equal(testInstance, manifest.DevelopmentGroup(), rawSource.Entries[3].Group)

	migrationReport := recorder.Snapshot()
	require.Equal(testInstance, 0, migrationReport.CountBySeverity(report.SeverityWarning))
	require.Equal(testInstance, 2, migrationReport.CountBySeverity(report.SeverityInfo))
}

func TestSetupScriptReaderReadsINIEntryPointsAndWarnsOnDynamicValues(testInstance *testing.T) {
	testInstance.Parallel()

	projectDirectory := testInstance.TempDir()
	writeProjectFile(testInstance, projectDirectory, "setup.py", setupScriptINIEntryPointsFixtureConstant)

	recorder := report.NewRecorder(nil)
	rawSource, readError := sources.NewSetupScriptReader().Read(projectDirectory, recorder)
	require.NoError(testInstance, readError)

	require.Equal(testInstance, "tool", rawSource.Project.Name)
	require.Equal(testInstance, "1.0", rawSource.Project.Version)
	require.Equal(testInstance, "tool.cli:run", rawSource.Project.Scripts["tool"])
	require.Empty(testInstance, rawSource.Entries)
	require.Equal(testInstance, 1, recorder.WarningCount())
}

func TestSetupScriptReaderRejectsScriptsWithoutSetupCall(testInstance *testing.T) {
	testInstance.Parallel()

	projectDirectory := testInstance.TempDir()
	writeProjectFile(testInstance, projectDirectory, "setup.py", "import setuptools\n\nprint(\"no call here\")\n")

	_, readError := sources.NewSetupScriptReader().Read(projectDirectory, report.NewRecorder(nil))
	require.Error(testInstance, readError)

	var parseError sources.ParseError
	require.ErrorAs(testInstance, readError, &parseError)
}
