package manifest

import (
	"fmt"
	"strings"

	"github.com/uvmigrate/uvmigrate/internal/version"
)

const (
	sourceFormatRequirementsStringConstant = "requirements"
	sourceFormatPoetryStringConstant       = "poetry"
	sourceFormatPipenvStringConstant       = "pipenv"
	sourceFormatSetupScriptStringConstant  = "setuppy"
	sourceFormatCondaStringConstant        = "conda"
	unknownSourceFormatTemplateConstant    = "unknown source format %q"
	groupKindMainStringConstant            = "main"
	groupKindDevelopmentStringConstant     = "dev"
	groupKindNamedStringConstant           = "named"
	sourceKindRegistryStringConstant       = "registry"
	sourceKindURLStringConstant            = "url"
	sourceKindPathStringConstant           = "path"
	sourceKindVCSStringConstant            = "vcs"
	extrasOpeningBracketConstant           = "["
	extrasClosingBracketConstant           = "]"
	extrasSeparatorConstant                = ","
	markerSeparatorConstant                = "; "
)

// SourceFormat identifies a legacy project definition format.
type SourceFormat string

// Supported legacy formats.
const (
	SourceFormatRequirements SourceFormat = SourceFormat(sourceFormatRequirementsStringConstant)
	SourceFormatPoetry       SourceFormat = SourceFormat(sourceFormatPoetryStringConstant)
	SourceFormatPipenv       SourceFormat = SourceFormat(sourceFormatPipenvStringConstant)
	SourceFormatSetupScript  SourceFormat = SourceFormat(sourceFormatSetupScriptStringConstant)
	SourceFormatConda        SourceFormat = SourceFormat(sourceFormatCondaStringConstant)
)

// AllSourceFormats lists every supported format in default priority order.
func AllSourceFormats() []SourceFormat {
	return []SourceFormat{
		SourceFormatConda,
		SourceFormatPoetry,
		SourceFormatPipenv,
		SourceFormatSetupScript,
		SourceFormatRequirements,
	}
}

// ParseSourceFormat resolves configuration text into a source format.
func ParseSourceFormat(formatText string) (SourceFormat, error) {
	candidate := SourceFormat(strings.ToLower(strings.TrimSpace(formatText)))
	for _, knownFormat := range AllSourceFormats() {
		if candidate == knownFormat {
			return knownFormat, nil
		}
	}
	return SourceFormat(""), fmt.Errorf(unknownSourceFormatTemplateConstant, formatText)
}

// SourceKind distinguishes how a dependency is obtained.
type SourceKind string

// Supported dependency source kinds.
const (
	SourceKindRegistry SourceKind = SourceKind(sourceKindRegistryStringConstant)
	SourceKindURL      SourceKind = SourceKind(sourceKindURLStringConstant)
	SourceKindPath     SourceKind = SourceKind(sourceKindPathStringConstant)
	SourceKindVCS      SourceKind = SourceKind(sourceKindVCSStringConstant)
)

// DependencySource describes where a dependency is fetched from. The zero
// value denotes the default package registry.
type DependencySource struct {
	Kind      SourceKind
	URL       string
	Path      string
	Reference string
	Editable  bool
}

// RegistrySource names the default package registry.
func RegistrySource() DependencySource {
	return DependencySource{Kind: SourceKindRegistry}
}

// URLSource points at a direct archive or wheel URL.
func URLSource(archiveURL string) DependencySource {
	return DependencySource{Kind: SourceKindURL, URL: archiveURL}
}

// PathSource points at a local directory or archive.
func PathSource(localPath string, editable bool) DependencySource {
	return DependencySource{Kind: SourceKindPath, Path: localPath, Editable: editable}
}

// VCSSource points at a version control repository with an optional revision.
func VCSSource(repositoryURL string, reference string) DependencySource {
	return DependencySource{Kind: SourceKindVCS, URL: repositoryURL, Reference: reference}
}

// IsRegistry reports whether the source is the default package registry.
func (dependencySource DependencySource) IsRegistry() bool {
	return dependencySource.Kind == SourceKindRegistry || len(dependencySource.Kind) == 0
}

// GroupKind classifies dependency groups.
type GroupKind string

// Supported group kinds.
const (
	GroupKindMain        GroupKind = GroupKind(groupKindMainStringConstant)
	GroupKindDevelopment GroupKind = GroupKind(groupKindDevelopmentStringConstant)
	GroupKindNamed       GroupKind = GroupKind(groupKindNamedStringConstant)
)

// GroupLabel identifies the dependency group an entry belongs to. Labels are
// comparable and suitable as map keys.
type GroupLabel struct {
	Kind GroupKind
	Name string
}

// MainGroup labels runtime dependencies.
func MainGroup() GroupLabel {
	return GroupLabel{Kind: GroupKindMain}
}

// DevelopmentGroup labels development-only dependencies.
func DevelopmentGroup() GroupLabel {
	return GroupLabel{Kind: GroupKindDevelopment}
}

// NamedGroup labels dependencies of a custom group.
func NamedGroup(groupName string) GroupLabel {
	return GroupLabel{Kind: GroupKindNamed, Name: CanonicalGroupName(groupName)}
}

// String renders the label the way the emitted manifest names groups.
func (label GroupLabel) String() string {
	switch label.Kind {
	case GroupKindNamed:
		return label.Name
	case GroupKindDevelopment:
		return groupKindDevelopmentStringConstant
	default:
		return groupKindMainStringConstant
	}
}

// Origin records the declaration site of a raw dependency entry.
type Origin struct {
	Format SourceFormat
	File   string
	Line   int
}

// Dependency is one normalized dependency declaration.
type Dependency struct {
	Name        string
	DisplayName string
	Constraint  version.Constraint
	Extras      []string
	Markers     string
	Source      DependencySource
	Group       GroupLabel
	Origin      Origin
}

// RequirementString renders the dependency in requirement syntax, combining
// display name, extras, constraint, and markers. Non-registry sources render
// without a constraint because the source pin replaces it.
func (dependency Dependency) RequirementString() string {
	var builder strings.Builder
	builder.WriteString(dependency.DisplayName)

	if len(dependency.Extras) > 0 {
		builder.WriteString(extrasOpeningBracketConstant)
		builder.WriteString(strings.Join(dependency.Extras, extrasSeparatorConstant))
		builder.WriteString(extrasClosingBracketConstant)
	}

	if dependency.Source.IsRegistry() && !dependency.Constraint.IsUnconstrained() {
		builder.WriteString(dependency.Constraint.String())
	}

	if len(dependency.Markers) > 0 {
		builder.WriteString(markerSeparatorConstant)
		builder.WriteString(dependency.Markers)
	}

	return builder.String()
}
