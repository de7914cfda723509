package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/normalize"
	"github.com/uvmigrate/uvmigrate/internal/report"
	"github.com/uvmigrate/uvmigrate/internal/sources"
)

func TestNormalizeOrdersSourcesByPriority(testInstance *testing.T) {
	testInstance.Parallel()

	requirementsSource := sources.RawSource{
		Format: manifest.SourceFormatRequirements,
		Project: sources.RawProject{
			RequiresPython:        ">=3.8",
			RequiresPythonDialect: sources.ConstraintDialectStandard,
		},
		Entries: []sources.RawEntry{
			{
				Name:           "Flask",
				ConstraintText: "==2.0.1",
				Dialect:        sources.ConstraintDialectStandard,
				Group:          manifest.MainGroup(),
				File:           "requirements.txt",
				Line:           1,
			},
		},
	}
	poetrySource := sources.RawSource{
		Format: manifest.SourceFormatPoetry,
		Project: sources.RawProject{
			Name:                  "demo",
			Version:               "1.0.0",
			RequiresPython:        "^3.9",
			RequiresPythonDialect: sources.ConstraintDialectPoetry,
		},
		Entries: []sources.RawEntry{
			{
				Name:           "requests",
				ConstraintText: "^2.28",
				Dialect:        sources.ConstraintDialectPoetry,
				Group:          manifest.MainGroup(),
				File:           "pyproject.toml",
				Line:           12,
			},
		},
	}

	recorder := report.NewRecorder(nil)
	normalizer := normalize.NewNormalizer(recorder)
	normalizedInput := normalizer.Normalize(
		[]sources.RawSource{requirementsSource, poetrySource},
		normalize.NormalizeOptions{},
	)

	require.Equal(testInstance, "demo", normalizedInput.Project.Name)
	require.Equal(testInstance, "1.0.0", normalizedInput.Project.Version)
	require.Equal(testInstance, ">=3.9,<4", normalizedInput.Project.RequiresPython.String())

	require.Len(testInstance, normalizedInput.Dependencies, 2)
	require.Equal(testInstance, "requests", normalizedInput.Dependencies[0].Name)
	require.Equal(testInstance, ">=2.28,<3", normalizedInput.Dependencies[0].Constraint.String())
	require.Equal(testInstance, manifest.SourceFormatPoetry, normalizedInput.Dependencies[0].Origin.Format)
	require.Equal(testInstance, 12, normalizedInput.Dependencies[0].Origin.Line)

	require.Equal(testInstance, "flask", normalizedInput.Dependencies[1].Name)
	require.Equal(testInstance, "Flask", normalizedInput.Dependencies[1].DisplayName)
	require.Equal(testInstance, "==2.0.1", normalizedInput.Dependencies[1].Constraint.String())

	migrationReport := recorder.Snapshot()
	require.Equal(testInstance, 1, migrationReport.CountBySeverity(report.SeverityInfo))
	require.Equal(testInstance, 0, migrationReport.CountBySeverity(report.SeverityWarning))
}

func TestNormalizeHonorsCustomSourcePriority(testInstance *testing.T) {
	testInstance.Parallel()

	rawSources := []sources.RawSource{
		{
			Format:  manifest.SourceFormatPoetry,
			Entries: []sources.RawEntry{{Name: "from-poetry", Group: manifest.MainGroup()}},
		},
		{
			Format:  manifest.SourceFormatRequirements,
			Entries: []sources.RawEntry{{Name: "from-requirements", Group: manifest.MainGroup()}},
		},
	}

	normalizer := normalize.NewNormalizer(nil)
	normalizedInput := normalizer.Normalize(rawSources, normalize.NormalizeOptions{
		SourcePriority: []manifest.SourceFormat{manifest.SourceFormatRequirements},
	})

	require.Len(testInstance, normalizedInput.Dependencies, 2)
	require.Equal(testInstance, "from-requirements", normalizedInput.Dependencies[0].Name)
	require.Equal(testInstance, "from-poetry", normalizedInput.Dependencies[1].Name)
}

func TestNormalizeKeepsUnparsableConstraintsUnconstrained(testInstance *testing.T) {
	testInstance.Parallel()

	rawSources := []sources.RawSource{
		{
			Format: manifest.SourceFormatRequirements,
			Entries: []sources.RawEntry{
				{
					Name:           "legacy-pkg",
					ConstraintText: "===1.0",
					Dialect:        sources.ConstraintDialectStandard,
					Group:          manifest.MainGroup(),
					File:           "requirements.txt",
					Line:           4,
				},
			},
		},
	}

	recorder := report.NewRecorder(nil)
	normalizer := normalize.NewNormalizer(recorder)
	normalizedInput := normalizer.Normalize(rawSources, normalize.NormalizeOptions{})

	require.Len(testInstance, normalizedInput.Dependencies, 1)
	require.True(testInstance, normalizedInput.Dependencies[0].Constraint.IsUnconstrained())

	migrationReport := recorder.Snapshot()
	require.Equal(testInstance, 1, migrationReport.CountBySeverity(report.SeverityWarning))
	require.Equal(testInstance, "requirements.txt", migrationReport.Events[0].File)
	require.Equal(testInstance, 4, migrationReport.Events[0].Line)
}

func TestNormalizeCanonicalizesNamesAndExtras(testInstance *testing.T) {
	testInstance.Parallel()

	rawSources := []sources.RawSource{
		{
			Format: manifest.SourceFormatRequirements,
			Entries: []sources.RawEntry{
				{
					Name:    "My_Package.Utils",
					Extras:  []string{"Security", "socks", "security"},
					Dialect: sources.ConstraintDialectStandard,
					Group:   manifest.MainGroup(),
				},
			},
		},
	}

	normalizer := normalize.NewNormalizer(nil)
	normalizedInput := normalizer.Normalize(rawSources, normalize.NormalizeOptions{})

	require.Len(testInstance, normalizedInput.Dependencies, 1)
	require.Equal(testInstance, "my-package-utils", normalizedInput.Dependencies[0].Name)
	require.Equal(testInstance, "My_Package.Utils", normalizedInput.Dependencies[0].DisplayName)
	require.Equal(testInstance, []string{"security", "socks"}, normalizedInput.Dependencies[0].Extras)
}

func TestNormalizeMergeGroupsFoldsNamedGroupsIntoDev(testInstance *testing.T) {
	testInstance.Parallel()

	rawSources := []sources.RawSource{
		{
			Format: manifest.SourceFormatPipenv,
			Entries: []sources.RawEntry{
				{Name: "requests", Group: manifest.MainGroup()},
				{Name: "pytest", Group: manifest.DevelopmentGroup()},
				{Name: "mkdocs", Group: manifest.NamedGroup("docs")},
			},
		},
	}

	normalizer := normalize.NewNormalizer(nil)
	normalizedInput := normalizer.Normalize(rawSources, normalize.NormalizeOptions{MergeGroups: true})

	require.Len(testInstance, normalizedInput.Dependencies, 3)
	require.Equal(testInstance, manifest.MainGroup(), normalizedInput.Dependencies[0].Group)
	require.Equal(testInstance, manifest.DevelopmentGroup(), normalizedInput.Dependencies[1].Group)
	require.Equal(testInstance, manifest.DevelopmentGroup(), normalizedInput.Dependencies[2].Group)
}

func TestNormalizeAddsBuildSystemForPackagedProjects(testInstance *testing.T) {
	testInstance.Parallel()

	packagedInput := normalize.NewNormalizer(nil).Normalize(
		[]sources.RawSource{{Format: manifest.SourceFormatPoetry, Project: sources.RawProject{Name: "demo", Packaged: true}}},
		normalize.NormalizeOptions{},
	)
	require.NotNil(testInstance, packagedInput.Project.BuildSystem)
	require.Equal(testInstance, []string{"hatchling"}, packagedInput.Project.BuildSystem.Requires)
	require.Equal(testInstance, "hatchling.build", packagedInput.Project.BuildSystem.Backend)

	plainInput := normalize.NewNormalizer(nil).Normalize(
		[]sources.RawSource{{Format: manifest.SourceFormatRequirements}},
		normalize.NormalizeOptions{},
	)
	require.Nil(testInstance, plainInput.Project.BuildSystem)
}

func TestNormalizeMergesMetadataMapsAndIndexes(testInstance *testing.T) {
	testInstance.Parallel()

	poetrySource := sources.RawSource{
		Format: manifest.SourceFormatPoetry,
		Project: sources.RawProject{
			Scripts: map[string]string{"serve": "app.cli:serve"},
			URLs:    map[string]string{"homepage": "https://example.com"},
			Indexes: []manifest.IndexDefinition{
				{Name: "internal", URL: "https://pypi.internal.example.com/simple", Default: true},
			},
		},
		Passthrough: []manifest.PassthroughSection{
			{Path: []string{"tool", "black"}, Content: map[string]any{"line-length": int64(100)}},
		},
	}
	pipenvSource := sources.RawSource{
		Format: manifest.SourceFormatPipenv,
		Project: sources.RawProject{
			Scripts: map[string]string{"serve": "python -m app", "migrate": "python -m app.migrate"},
			URLs:    map[string]string{"repository": "https://github.com/example/demo"},
			Indexes: []manifest.IndexDefinition{
				{Name: "mirror", URL: "https://pypi.internal.example.com/simple"},
			},
		},
		Passthrough: []manifest.PassthroughSection{
			{Path: []string{"tool", "black"}, Content: map[string]any{"line-length": int64(88)}},
			{Path: []string{"tool", "isort"}, Content: map[string]any{"profile": "black"}},
		},
	}

	normalizer := normalize.NewNormalizer(nil)
	normalizedInput := normalizer.Normalize(
		[]sources.RawSource{pipenvSource, poetrySource},
		normalize.NormalizeOptions{},
	)

	require.Equal(testInstance, "app.cli:serve", normalizedInput.Project.Scripts["serve"])
	require.Equal(testInstance, "python -m app.migrate", normalizedInput.Project.Scripts["migrate"])
	require.Equal(testInstance, "https://example.com", normalizedInput.Project.URLs["homepage"])
	require.Equal(testInstance, "https://github.com/example/demo", normalizedInput.Project.URLs["repository"])

	require.Len(testInstance, normalizedInput.Project.Indexes, 1)
	require.Equal(testInstance, "internal", normalizedInput.Project.Indexes[0].Name)

	require.Len(testInstance, normalizedInput.Project.Passthrough, 2)
	require.Equal(testInstance, []string{"tool", "black"}, normalizedInput.Project.Passthrough[0].Path)
	require.Equal(testInstance, map[string]any{"line-length": int64(100)}, normalizedInput.Project.Passthrough[0].Content)
	require.Equal(testInstance, []string{"tool", "isort"}, normalizedInput.Project.Passthrough[1].Path)
}

func TestSourceRankFollowsPriorityList(testInstance *testing.T) {
	testInstance.Parallel()

	customPriority := []manifest.SourceFormat{manifest.SourceFormatRequirements, manifest.SourceFormatPoetry}
	require.Equal(testInstance, 0, normalize.SourceRank(manifest.SourceFormatRequirements, customPriority))
	require.Equal(testInstance, 1, normalize.SourceRank(manifest.SourceFormatPoetry, customPriority))
	require.Equal(testInstance, 2, normalize.SourceRank(manifest.SourceFormatConda, customPriority))

	require.Equal(testInstance, 0, normalize.SourceRank(manifest.SourceFormatConda, nil))
	require.Equal(testInstance, 4, normalize.SourceRank(manifest.SourceFormatRequirements, nil))
}
