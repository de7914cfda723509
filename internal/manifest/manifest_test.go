package manifest_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/version"
)

func TestCanonicalName(testInstance *testing.T) {
	testInstance.Parallel()

	testCases := []struct {
		name          string
		rawName       string
		canonicalName string
	}{
		{name: "already_canonical", rawName: "requests", canonicalName: "requests"},
		{name: "mixed_case", rawName: "Django", canonicalName: "django"},
		{name: "underscore_separator", rawName: "typing_extensions", canonicalName: "typing-extensions"},
		{name: "dot_separator", rawName: "zope.interface", canonicalName: "zope-interface"},
		{name: "separator_runs", rawName: "some__odd..name", canonicalName: "some-odd-name"},
		{name: "mixed_separators", rawName: "Django_Rest.Framework", canonicalName: "django-rest-framework"},
		{name: "surrounding_whitespace", rawName: "  flask  ", canonicalName: "flask"},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		subtestName := fmt.Sprintf("%d_%s", testCaseIndex, testCase.name)

		testInstance.Run(subtestName, func(subtest *testing.T) {
			require.Equal(subtest, testCase.canonicalName, manifest.CanonicalName(testCase.rawName))
		})
	}
}

func TestParseSourceFormat(testInstance *testing.T) {
	testInstance.Parallel()

	parsedFormat, parseError := manifest.ParseSourceFormat(" Poetry ")
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, manifest.SourceFormatPoetry, parsedFormat)

	_, unknownError := manifest.ParseSourceFormat("cargo")
	require.Error(testInstance, unknownError)
}

func TestGroupLabelString(testInstance *testing.T) {
	testInstance.Parallel()

	require.Equal(testInstance, "main", manifest.MainGroup().String())
	require.Equal(testInstance, "dev", manifest.DevelopmentGroup().String())
	require.Equal(testInstance, "docs", manifest.NamedGroup("Docs").String())
	require.Equal(testInstance, manifest.NamedGroup("docs"), manifest.NamedGroup(" DOCS "))
}

func TestDependencyRequirementString(testInstance *testing.T) {
	testInstance.Parallel()

	rangeConstraint, constraintError := version.ParseSpecifier(">=2.28,<3")
	require.NoError(testInstance, constraintError)

	testCases := []struct {
		name         string
		dependency   manifest.Dependency
		renderedText string
	}{
		{
			name: "constrained_registry_dependency",
			dependency: manifest.Dependency{
				DisplayName: "requests",
				Constraint:  rangeConstraint,
				Source:      manifest.RegistrySource(),
			},
			renderedText: "requests>=2.28,<3",
		},
		{
			name: "extras_and_markers",
			dependency: manifest.Dependency{
				DisplayName: "uvicorn",
				Extras:      []string{"standard"},
				Constraint:  rangeConstraint,
				Source:      manifest.RegistrySource(),
				Markers:     "sys_platform == 'linux'",
			},
			renderedText: "uvicorn[standard]>=2.28,<3; sys_platform == 'linux'",
		},
		{
			name: "unconstrained_dependency",
			dependency: manifest.Dependency{
				DisplayName: "flask",
				Source:      manifest.RegistrySource(),
			},
			renderedText: "flask",
		},
		{
			name: "vcs_dependency_omits_constraint",
			dependency: manifest.Dependency{
				DisplayName: "mylib",
				Constraint:  rangeConstraint,
				Source:      manifest.VCSSource("https://github.com/example/mylib.git", "v1.2.0"),
			},
			renderedText: "mylib",
		},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		subtestName := fmt.Sprintf("%d_%s", testCaseIndex, testCase.name)

		testInstance.Run(subtestName, func(subtest *testing.T) {
			require.Equal(subtest, testCase.renderedText, testCase.dependency.RequirementString())
		})
	}
}

func TestProjectModelDependenciesByGroup(testInstance *testing.T) {
	testInstance.Parallel()

	model := manifest.ProjectModel{
		Dependencies: []manifest.Dependency{
			{Name: "requests", Group: manifest.MainGroup()},
			{Name: "pytest", Group: manifest.DevelopmentGroup()},
			{Name: "flask", Group: manifest.MainGroup()},
			{Name: "sphinx", Group: manifest.NamedGroup("docs")},
		},
	}

	groupOrder, grouped := model.DependenciesByGroup()
	require.Equal(testInstance, []manifest.GroupLabel{
		manifest.MainGroup(),
		manifest.DevelopmentGroup(),
		manifest.NamedGroup("docs"),
	}, groupOrder)
	require.Len(testInstance, grouped[manifest.MainGroup()], 2)
	require.Equal(testInstance, "requests", grouped[manifest.MainGroup()][0].Name)
	require.Equal(testInstance, "flask", grouped[manifest.MainGroup()][1].Name)
}
