package manifest

import (
	"strings"

	"github.com/uvmigrate/uvmigrate/internal/version"
)

const dottedPathSeparatorConstant = "."

// Author identifies a project author or maintainer.
type Author struct {
	Name  string
	Email string
}

// IndexDefinition names an alternative package index.
type IndexDefinition struct {
	Name    string
	URL     string
	Default bool
}

// BuildSystem describes the build backend of the project.
type BuildSystem struct {
	Requires []string
	Backend  string
}

// PassthroughSection carries a metadata table the engine does not interpret,
// keyed by its dotted table path. Content holds the decoded value.
type PassthroughSection struct {
	Path    []string
	Content any
}

// DottedPath joins the section path into its manifest header form.
func (section PassthroughSection) DottedPath() string {
	return strings.Join(section.Path, dottedPathSeparatorConstant)
}

// ProjectModel is the resolved project ready for emission.
type ProjectModel struct {
	Name           string
	Version        string
	Description    string
	Authors        []Author
	RequiresPython version.Constraint
	Dependencies   []Dependency
	Scripts        map[string]string
	URLs           map[string]string
	BuildSystem    *BuildSystem
	Indexes        []IndexDefinition
	Passthrough    []PassthroughSection
}

// DependenciesByGroup splits dependencies per group, preserving first-seen
// group order and the dependency order inside each group.
func (model ProjectModel) DependenciesByGroup() ([]GroupLabel, map[GroupLabel][]Dependency) {
	groupOrder := make([]GroupLabel, 0)
	grouped := make(map[GroupLabel][]Dependency)
	for _, dependency := range model.Dependencies {
		if _, groupSeen := grouped[dependency.Group]; !groupSeen {
			groupOrder = append(groupOrder, dependency.Group)
		}
		grouped[dependency.Group] = append(grouped[dependency.Group], dependency)
	}
	return groupOrder, grouped
}
