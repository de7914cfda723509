package emit_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uvmigrate/uvmigrate/internal/emit"
	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/report"
	"github.com/uvmigrate/uvmigrate/internal/sources"
	"github.com/uvmigrate/uvmigrate/internal/version"
)

func mustParseSpecifier(testInstance *testing.T, specifierText string) version.Constraint {
	testInstance.Helper()
	parsedConstraint, parseError := version.ParseSpecifier(specifierText)
	require.NoError(testInstance, parseError)
	return parsedConstraint
}

func fullProjectModel(testInstance *testing.T) manifest.ProjectModel {
	testInstance.Helper()
	return manifest.ProjectModel{
		Name:           "demo-app",
		Version:        "1.2.0",
		Description:    "Demo application",
		Authors:        []manifest.Author{{Name: "Jane Doe", Email: "jane@example.com"}},
		RequiresPython: mustParseSpecifier(testInstance, ">=3.10"),
		Dependencies: []manifest.Dependency{
			{
				Name:        "requests",
				DisplayName: "requests",
				Constraint:  mustParseSpecifier(testInstance, ">=2.28,<3.0"),
				Extras:      []string{"security"},
				Group:       manifest.MainGroup(),
			},
			{
				Name:        "internal-lib",
				DisplayName: "internal-lib",
				Source:      manifest.VCSSource("https://github.com/example/internal-lib.git", "v1.2.0"),
				Group:       manifest.MainGroup(),
			},
			{
				Name:        "local-helper",
				DisplayName: "local-helper",
				Source:      manifest.PathSource("../helper", true),
				Group:       manifest.MainGroup(),
			},
			{
				Name:        "pytest",
				DisplayName: "pytest",
				Constraint:  mustParseSpecifier(testInstance, ">=7.0"),
				Group:       manifest.DevelopmentGroup(),
			},
			{
				Name:        "mkdocs",
				DisplayName: "mkdocs",
				Constraint:  mustParseSpecifier(testInstance, ">=1.4"),
				Group:       manifest.NamedGroup("docs"),
			},
		},
		Scripts:     map[string]string{"demo": "demo.cli:main"},
		URLs:        map[string]string{"homepage": "https://example.com"},
		BuildSystem: &manifest.BuildSystem{Requires: []string{"hatchling"}, Backend: "hatchling.build"},
		Indexes: []manifest.IndexDefinition{
			{Name: "internal", URL: "https://pypi.internal.example.com/simple", Default: true},
		},
		Passthrough: []manifest.PassthroughSection{
			{Path: []string{"custom-section"}, Content: map[string]any{"key": "value"}},
			{Path: []string{"tool", "black"}, Content: map[string]any{"line-length": int64(100)}},
		},
	}
}

func TestRenderOrdersSectionsDeterministically(testInstance *testing.T) {
	testInstance.Parallel()

	projectModel := fullProjectModel(testInstance)
	emitter := emit.NewEmitter(nil)

	firstDocument, firstError := emitter.Render(projectModel)
	require.NoError(testInstance, firstError)
	secondDocument, secondError := emitter.Render(projectModel)
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, firstDocument, secondDocument)

	renderedText := string(firstDocument)
	sectionHeaders := []string{
		"[project]",
		"[dependency-groups]",
		"[build-system]",
		"[tool.uv",
		"[tool.black]",
		"[custom-section]",
	}
	previousIndex := -1
	for _, sectionHeader := range sectionHeaders {
		headerIndex := strings.Index(renderedText, sectionHeader)
		require.GreaterOrEqual(testInstance, headerIndex, 0, sectionHeader)
		require.Greater(testInstance, headerIndex, previousIndex, sectionHeader)
		previousIndex = headerIndex
	}

	require.Contains(testInstance, renderedText, "requests[security]>=2.28,<3.0")
	require.Contains(testInstance, renderedText, "pytest>=7.0")
	require.Contains(testInstance, renderedText, "mkdocs>=1.4")
	require.Contains(testInstance, renderedText, "requires-python")
	require.Contains(testInstance, renderedText, "https://pypi.internal.example.com/simple")
	require.True(testInstance, strings.HasSuffix(renderedText, "\n"))
}

func TestRenderRoundTripsThroughProjectReader(testInstance *testing.T) {
	testInstance.Parallel()

	projectModel := fullProjectModel(testInstance)
	emitter := emit.NewEmitter(nil)
	renderedDocument, renderError := emitter.Render(projectModel)
	require.NoError(testInstance, renderError)

	projectDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(projectDirectory, "pyproject.toml"), renderedDocument, 0o644))

	recorder := report.NewRecorder(nil)
	rawSource, readError := sources.NewPoetryReader().Read(projectDirectory, recorder)
	require.NoError(testInstance, readError)

	require.Equal(testInstance, "demo-app", rawSource.Project.Name)
	require.Equal(testInstance, "1.2.0", rawSource.Project.Version)
	require.Equal(testInstance, "Demo application", rawSource.Project.Description)
	require.Equal(testInstance, []manifest.Author{{Name: "Jane Doe", Email: "jane@example.com"}}, rawSource.Project.Authors)
	require.Equal(testInstance, ">=3.10", rawSource.Project.RequiresPython)
	require.Equal(testInstance, "demo.cli:main", rawSource.Project.Scripts["demo"])
	require.Equal(testInstance, "https://example.com", rawSource.Project.URLs["homepage"])

	require.Len(testInstance, rawSource.Entries, 5)

	require.Equal(testInstance, "requests", rawSource.Entries[0].Name)
	require.Equal(testInstance, []string{"security"}, rawSource.Entries[0].Extras)
	require.Equal(testInstance, ">=2.28,<3.0", rawSource.Entries[0].ConstraintText)

	require.Equal(testInstance, "internal-lib", rawSource.Entries[1].Name)
	require.Equal(testInstance, manifest.SourceKindVCS, rawSource.Entries[1].Source.Kind)
	require.Equal(testInstance, "https://github.com/example/internal-lib.git", rawSource.Entries[1].Source.URL)
	require.Equal(testInstance, "v1.2.0", rawSource.Entries[1].Source.Reference)

	require.Equal(testInstance, "local-helper", rawSource.Entries[2].Name)
	require.Equal(testInstance, manifest.SourceKindPath, rawSource.Entries[2].Source.Kind)
	require.Equal(testInstance, "../helper", rawSource.Entries[2].Source.Path)
	require.True(testInstance, rawSource.Entries[2].Source.Editable)

	require.Equal(testInstance, "pytest", rawSource.Entries[3].Name)
	require.Equal(testInstance, manifest.DevelopmentGroup(), rawSource.Entries[3].Group)

	require.Equal(testInstance, "mkdocs", rawSource.Entries[4].Name)
	require.Equal(testInstance, manifest.NamedGroup("docs"), rawSource.Entries[4].Group)

	require.Equal(testInstance, projectModel.Indexes, rawSource.Project.Indexes)

	require.Len(testInstance, rawSource.Passthrough, 2)
	require.Equal(testInstance, []string{"custom-section"}, rawSource.Passthrough[0].Path)
	require.Equal(testInstance, []string{"tool", "black"}, rawSource.Passthrough[1].Path)
}

func TestRenderFallsBackForUnsupportedVCS(testInstance *testing.T) {
	testInstance.Parallel()

	projectModel := manifest.ProjectModel{
		Name: "legacy-app",
		Dependencies: []manifest.Dependency{
			{
				Name:        "hg-package",
				DisplayName: "hg-package",
				Constraint:  mustParseSpecifier(testInstance, ">=1.0"),
				Source:      manifest.VCSSource("hg+https://hg.example.com/hg-package", "tip"),
				Group:       manifest.MainGroup(),
				Origin:      manifest.Origin{File: "requirements.txt", Line: 7},
			},
		},
	}

	recorder := report.NewRecorder(nil)
	emitter := emit.NewEmitter(recorder)
	renderedDocument, renderError := emitter.Render(projectModel)
	require.NoError(testInstance, renderError)

	renderedText := string(renderedDocument)
	require.Contains(testInstance, renderedText, "hg-package>=1.0")
	require.NotContains(testInstance, renderedText, "hg+https://hg.example.com")
	require.NotContains(testInstance, renderedText, "[tool.uv")

	migrationReport := recorder.Snapshot()
	require.Equal(testInstance, 1, migrationReport.CountBySeverity(report.SeverityWarning))
	require.Equal(testInstance, "requirements.txt", migrationReport.Events[0].File)
}

func TestRenderOmitsEmptySections(testInstance *testing.T) {
	testInstance.Parallel()

	projectModel := manifest.ProjectModel{
		Name: "tiny",
		Dependencies: []manifest.Dependency{
			{
				Name:        "flask",
				DisplayName: "flask",
				Constraint:  mustParseSpecifier(testInstance, "==2.0.1"),
				Group:       manifest.MainGroup(),
			},
		},
	}

	emitter := emit.NewEmitter(nil)
	renderedDocument, renderError := emitter.Render(projectModel)
	require.NoError(testInstance, renderError)

	renderedText := string(renderedDocument)
	require.Contains(testInstance, renderedText, "[project]")
	require.Contains(testInstance, renderedText, "flask==2.0.1")
	require.NotContains(testInstance, renderedText, "[dependency-groups]")
	require.NotContains(testInstance, renderedText, "[build-system]")
	require.NotContains(testInstance, renderedText, "[tool.uv")
	require.NotContains(testInstance, renderedText, "version =")
}
