package emit

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/report"
)

const (
	indentSymbolConstant                = "    "
	fragmentSeparatorConstant           = "\n\n"
	trailingNewlineConstant             = "\n"
	projectSectionNameConstant          = "project"
	dependencyGroupsSectionNameConstant = "dependency-groups"
	buildSystemSectionNameConstant      = "build-system"
	toolUVSectionNameConstant           = "tool.uv"
	toolTableKeyConstant                = "tool"
	vcsSchemeSeparatorConstant          = "+"
	mercurialURLPrefixConstant          = "hg+"
	subversionURLPrefixConstant         = "svn+"
	bazaarURLPrefixConstant             = "bzr+"
	unsupportedVCSTemplateConstant      = "dependency %q: %s is not a supported source; kept as a plain requirement"
	conflictingSourceTemplateConstant   = "dependency %q: conflicting source definitions across groups; the first one is kept"
)

type projectAuthorTable struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
}

type projectTable struct {
	Name           string               `toml:"name"`
	Version        string               `toml:"version,omitempty"`
	Description    string               `toml:"description,omitempty"`
	Authors        []projectAuthorTable `toml:"authors,omitempty,inline"`
	RequiresPython string               `toml:"requires-python,omitempty"`
	Dependencies   []string             `toml:"dependencies,multiline"`
	Scripts        map[string]string    `toml:"scripts,omitempty"`
	URLs           map[string]string    `toml:"urls,omitempty"`
}

type projectDocument struct {
	Project projectTable `toml:"project"`
}

type dependencyGroupsDocument struct {
	DependencyGroups map[string][]string `toml:"dependency-groups"`
}

type buildSystemTable struct {
	Requires     []string `toml:"requires"`
	BuildBackend string   `toml:"build-backend"`
}

type buildSystemDocument struct {
	BuildSystem buildSystemTable `toml:"build-system"`
}

type uvSourceTable struct {
	Git      string `toml:"git,omitempty"`
	Rev      string `toml:"rev,omitempty"`
	URL      string `toml:"url,omitempty"`
	Path     string `toml:"path,omitempty"`
	Editable bool   `toml:"editable,omitempty"`
}

type uvTable struct {
	Sources map[string]uvSourceTable `toml:"sources,omitempty"`
	Index   []uvIndexTable           `toml:"index,omitempty"`
}

type uvIndexTable struct {
	Name    string `toml:"name"`
	URL     string `toml:"url"`
	Default bool   `toml:"default,omitempty"`
}

type toolTable struct {
	UV uvTable `toml:"uv"`
}

type toolUVDocument struct {
	Tool toolTable `toml:"tool"`
}

// Emitter renders a resolved project model into manifest text.
type Emitter struct {
	recorder *report.Recorder
}

// NewEmitter constructs an emitter recording fallback events on the given
// recorder.
func NewEmitter(recorder *report.Recorder) *Emitter {
	if recorder == nil {
		recorder = report.NewRecorder(nil)
	}
	return &Emitter{recorder: recorder}
}

// Render produces the manifest document for the model. Identical models
// render to byte-identical output.
func (emitter *Emitter) Render(projectModel manifest.ProjectModel) ([]byte, error) {
	mainRequirements, groupRequirements, dependencySources := emitter.renderDependencies(projectModel)

	fragments := make([]string, 0, 6+len(projectModel.Passthrough))

	projectFragment, projectError := encodeFragment(projectDocument{Project: projectTable{
		Name:           projectModel.Name,
		Version:        projectModel.Version,
		Description:    projectModel.Description,
		Authors:        renderAuthors(projectModel.Authors),
		RequiresPython: requiresPythonText(projectModel),
		Dependencies:   mainRequirements,
		Scripts:        projectModel.Scripts,
		URLs:           projectModel.URLs,
	}}, false)
	if projectError != nil {
		return nil, EmitError{Section: projectSectionNameConstant, Err: projectError}
	}
	fragments = append(fragments, projectFragment)

	if len(groupRequirements) > 0 {
		groupsFragment, groupsError := encodeFragment(dependencyGroupsDocument{DependencyGroups: groupRequirements}, true)
		if groupsError != nil {
			return nil, EmitError{Section: dependencyGroupsSectionNameConstant, Err: groupsError}
		}
		fragments = append(fragments, groupsFragment)
	}

	if projectModel.BuildSystem != nil {
		buildFragment, buildError := encodeFragment(buildSystemDocument{BuildSystem: buildSystemTable{
			Requires:     projectModel.BuildSystem.Requires,
			BuildBackend: projectModel.BuildSystem.Backend,
		}}, false)
		if buildError != nil {
			return nil, EmitError{Section: buildSystemSectionNameConstant, Err: buildError}
		}
		fragments = append(fragments, buildFragment)
	}

	if len(dependencySources) > 0 || len(projectModel.Indexes) > 0 {
		uvFragment, uvError := encodeFragment(toolUVDocument{Tool: toolTable{UV: uvTable{
			Sources: dependencySources,
			Index:   renderIndexes(projectModel.Indexes),
		}}}, false)
		if uvError != nil {
			return nil, EmitError{Section: toolUVSectionNameConstant, Err: uvError}
		}
		fragments = append(fragments, uvFragment)
	}

	passthroughFragments, passthroughError := renderPassthrough(projectModel.Passthrough)
	if passthroughError != nil {
		return nil, passthroughError
	}
	fragments = append(fragments, passthroughFragments...)

	document := strings.Join(fragments, fragmentSeparatorConstant) + trailingNewlineConstant
	return []byte(document), nil
}

// renderDependencies splits the model dependencies into the main requirement
// list, the per-group lists, and the source table entries they need.
func (emitter *Emitter) renderDependencies(projectModel manifest.ProjectModel) ([]string, map[string][]string, map[string]uvSourceTable) {
	mainRequirements := make([]string, 0, len(projectModel.Dependencies))
	groupRequirements := make(map[string][]string)
	dependencySources := make(map[string]uvSourceTable)

	for _, dependency := range projectModel.Dependencies {
		renderedDependency := dependency
		if sourceEntry, representable := emitter.sourceTableEntry(dependency); representable {
			existingEntry, alreadyMapped := dependencySources[dependency.Name]
			switch {
			case !alreadyMapped:
				dependencySources[dependency.Name] = sourceEntry
			case existingEntry != sourceEntry:
				emitter.recorder.Warning(
					fmt.Sprintf(conflictingSourceTemplateConstant, dependency.DisplayName),
					report.EventSite{File: dependency.Origin.File, Line: dependency.Origin.Line},
				)
			}
		} else {
			renderedDependency.Source = manifest.RegistrySource()
		}

		requirementText := renderedDependency.RequirementString()
		if renderedDependency.Group == manifest.MainGroup() {
			mainRequirements = append(mainRequirements, requirementText)
			continue
		}
		groupName := renderedDependency.Group.String()
		groupRequirements[groupName] = append(groupRequirements[groupName], requirementText)
	}

	return mainRequirements, groupRequirements, dependencySources
}

// sourceTableEntry maps a dependency source onto the uv source table. The
// second result is false when the dependency stays a plain requirement.
func (emitter *Emitter) sourceTableEntry(dependency manifest.Dependency) (uvSourceTable, bool) {
	switch dependency.Source.Kind {
	case manifest.SourceKindVCS:
		if !supportedVCSURL(dependency.Source.URL) {
			emitter.recorder.Warning(
				fmt.Sprintf(unsupportedVCSTemplateConstant, dependency.DisplayName, vcsSchemeName(dependency.Source.URL)),
				report.EventSite{File: dependency.Origin.File, Line: dependency.Origin.Line},
			)
			return uvSourceTable{}, false
		}
		return uvSourceTable{Git: dependency.Source.URL, Rev: dependency.Source.Reference}, true
	case manifest.SourceKindPath:
		return uvSourceTable{Path: dependency.Source.Path, Editable: dependency.Source.Editable}, true
	case manifest.SourceKindURL:
		return uvSourceTable{URL: dependency.Source.URL}, true
	default:
		return uvSourceTable{}, false
	}
}

func supportedVCSURL(repositoryURL string) bool {
	return !strings.HasPrefix(repositoryURL, mercurialURLPrefixConstant) &&
		!strings.HasPrefix(repositoryURL, subversionURLPrefixConstant) &&
		!strings.HasPrefix(repositoryURL, bazaarURLPrefixConstant)
}

func vcsSchemeName(repositoryURL string) string {
	schemeEnd := strings.Index(repositoryURL, vcsSchemeSeparatorConstant)
	if schemeEnd <= 0 {
		return repositoryURL
	}
	return repositoryURL[:schemeEnd]
}

func renderAuthors(authors []manifest.Author) []projectAuthorTable {
	if len(authors) == 0 {
		return nil
	}
	rendered := make([]projectAuthorTable, 0, len(authors))
	for _, author := range authors {
		rendered = append(rendered, projectAuthorTable{Name: author.Name, Email: author.Email})
	}
	return rendered
}

func renderIndexes(indexDefinitions []manifest.IndexDefinition) []uvIndexTable {
	if len(indexDefinitions) == 0 {
		return nil
	}
	rendered := make([]uvIndexTable, 0, len(indexDefinitions))
	for _, indexDefinition := range indexDefinitions {
		rendered = append(rendered, uvIndexTable{
			Name:    indexDefinition.Name,
			URL:     indexDefinition.URL,
			Default: indexDefinition.Default,
		})
	}
	return rendered
}

func requiresPythonText(projectModel manifest.ProjectModel) string {
	if projectModel.RequiresPython.IsUnconstrained() {
		return ""
	}
	return projectModel.RequiresPython.String()
}

// renderPassthrough encodes the preserved sections, tool tables first, each
// block sorted by its dotted path.
func renderPassthrough(passthroughSections []manifest.PassthroughSection) ([]string, error) {
	toolSections := make([]manifest.PassthroughSection, 0, len(passthroughSections))
	topLevelSections := make([]manifest.PassthroughSection, 0, len(passthroughSections))
	for _, passthroughSection := range passthroughSections {
		if len(passthroughSection.Path) > 1 && passthroughSection.Path[0] == toolTableKeyConstant {
			toolSections = append(toolSections, passthroughSection)
			continue
		}
		topLevelSections = append(topLevelSections, passthroughSection)
	}
	sortPassthroughSections(toolSections)
	sortPassthroughSections(topLevelSections)

	fragments := make([]string, 0, len(passthroughSections))
	for _, passthroughSection := range append(toolSections, topLevelSections...) {
		fragment, encodeError := encodeFragment(nestedDocument(passthroughSection.Path, passthroughSection.Content), false)
		if encodeError != nil {
			return nil, EmitError{Section: passthroughSection.DottedPath(), Err: encodeError}
		}
		fragments = append(fragments, fragment)
	}
	return fragments, nil
}

func sortPassthroughSections(passthroughSections []manifest.PassthroughSection) {
	sort.SliceStable(passthroughSections, func(leftIndex int, rightIndex int) bool {
		return passthroughSections[leftIndex].DottedPath() < passthroughSections[rightIndex].DottedPath()
	})
}

// nestedDocument wraps content in tables matching the section path.
func nestedDocument(sectionPath []string, content any) map[string]any {
	wrapped := map[string]any{sectionPath[len(sectionPath)-1]: content}
	for pathIndex := len(sectionPath) - 2; pathIndex >= 0; pathIndex-- {
		wrapped = map[string]any{sectionPath[pathIndex]: wrapped}
	}
	return wrapped
}

// encodeFragment marshals one document section. Multiline renders every array
// one element per line.
func encodeFragment(document any, multilineArrays bool) (string, error) {
	var buffer bytes.Buffer
	encoder := toml.NewEncoder(&buffer)
	encoder.SetIndentSymbol(indentSymbolConstant)
	encoder.SetArraysMultiline(multilineArrays)
	if encodeError := encoder.Encode(document); encodeError != nil {
		return "", encodeError
	}
	return strings.TrimRight(buffer.String(), trailingNewlineConstant), nil
}
