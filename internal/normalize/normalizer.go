package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/report"
	"github.com/uvmigrate/uvmigrate/internal/sources"
)

const (
	unparsableConstraintTemplateConstant         = "dependency %q keeps no constraint: %s"
	unparsablePythonRequirementTemplateConstant  = "requires-python from %s was ignored: %s"
	conflictingPythonRequirementTemplateConstant = "requires-python %q from %s is shadowed by %q"
	defaultBuildSystemBackendConstant            = "hatchling.build"
	defaultBuildSystemRequirementConstant        = "hatchling"
	passthroughSectionPathSeparatorConstant      = "."
)

// NormalizeOptions adjusts how raw sources are folded into the model.
type NormalizeOptions struct {
	// MergeGroups folds named dependency groups into the development group.
	MergeGroups bool
	// SourcePriority orders formats from most to least authoritative. An
	// empty list uses the default format order.
	SourcePriority []manifest.SourceFormat
}

// NormalizedInput is the canonical project model together with the flat
// dependency list awaiting resolution.
type NormalizedInput struct {
	Project      manifest.ProjectModel
	Dependencies []manifest.Dependency
}

// Normalizer folds raw source entries into canonical dependencies.
type Normalizer struct {
	recorder *report.Recorder
}

// NewNormalizer constructs a normalizer recording events on the given
// recorder.
func NewNormalizer(recorder *report.Recorder) *Normalizer {
	if recorder == nil {
		recorder = report.NewRecorder(nil)
	}
	return &Normalizer{recorder: recorder}
}

// Normalize merges the raw sources in priority order into a project model and
// a flat dependency list. Dependencies keep their per-source order with the
// most authoritative source first.
func (normalizer *Normalizer) Normalize(rawSources []sources.RawSource, options NormalizeOptions) NormalizedInput {
	orderedSources := orderSourcesByPriority(rawSources, options.SourcePriority)

	normalizedInput := NormalizedInput{}
	for _, rawSource := range orderedSources {
		normalizer.mergeProjectMetadata(&normalizedInput.Project, rawSource)

		for _, rawEntry := range rawSource.Entries {
			normalizedInput.Dependencies = append(
				normalizedInput.Dependencies,
				normalizer.normalizeEntry(rawSource.Format, rawEntry, options),
			)
		}
	}

	if normalizedInput.Project.BuildSystem == nil && projectIsPackaged(orderedSources) {
		normalizedInput.Project.BuildSystem = &manifest.BuildSystem{
			Requires: []string{defaultBuildSystemRequirementConstant},
			Backend:  defaultBuildSystemBackendConstant,
		}
	}

	return normalizedInput
}

func (normalizer *Normalizer) normalizeEntry(
	sourceFormat manifest.SourceFormat,
	rawEntry sources.RawEntry,
	options NormalizeOptions,
) manifest.Dependency {
	dependency := manifest.Dependency{
		Name:        manifest.CanonicalName(rawEntry.Name),
		DisplayName: rawEntry.Name,
		Extras:      canonicalExtras(rawEntry.Extras),
		Markers:     strings.TrimSpace(rawEntry.Markers),
		Source:      rawEntry.Source,
		Group:       rawEntry.Group,
		Origin: manifest.Origin{
			Format: sourceFormat,
			File:   rawEntry.File,
			Line:   rawEntry.Line,
		},
	}

	if options.MergeGroups && dependency.Group.Kind == manifest.GroupKindNamed {
		dependency.Group = manifest.DevelopmentGroup()
	}

	parsedConstraint, parseError := ParseConstraint(rawEntry.ConstraintText, rawEntry.Dialect)
	if parseError != nil {
		normalizer.recorder.Warning(
			fmt.Sprintf(unparsableConstraintTemplateConstant, rawEntry.Name, parseError.Error()),
			report.EventSite{File: rawEntry.File, Line: rawEntry.Line},
		)
		return dependency
	}
	dependency.Constraint = parsedConstraint
	return dependency
}

func (normalizer *Normalizer) mergeProjectMetadata(projectModel *manifest.ProjectModel, rawSource sources.RawSource) {
	rawProject := rawSource.Project

	if len(projectModel.Name) == 0 {
		projectModel.Name = rawProject.Name
	}
	if len(projectModel.Version) == 0 {
		projectModel.Version = rawProject.Version
	}
	if len(projectModel.Description) == 0 {
		projectModel.Description = rawProject.Description
	}
	if len(projectModel.Authors) == 0 {
		projectModel.Authors = rawProject.Authors
	}

	normalizer.mergePythonRequirement(projectModel, rawSource)

	for _, scriptName := range sortedMapKeys(rawProject.Scripts) {
		if projectModel.Scripts == nil {
			projectModel.Scripts = make(map[string]string)
		}
		if _, alreadySet := projectModel.Scripts[scriptName]; !alreadySet {
			projectModel.Scripts[scriptName] = rawProject.Scripts[scriptName]
		}
	}
	for _, urlName := range sortedMapKeys(rawProject.URLs) {
		if projectModel.URLs == nil {
			projectModel.URLs = make(map[string]string)
		}
		if _, alreadySet := projectModel.URLs[urlName]; !alreadySet {
			projectModel.URLs[urlName] = rawProject.URLs[urlName]
		}
	}

	for _, indexDefinition := range rawProject.Indexes {
		if !containsIndexURL(projectModel.Indexes, indexDefinition.URL) {
			projectModel.Indexes = append(projectModel.Indexes, indexDefinition)
		}
	}
	for _, passthroughSection := range rawSource.Passthrough {
		if !containsPassthroughPath(projectModel.Passthrough, passthroughSection.Path) {
			projectModel.Passthrough = append(projectModel.Passthrough, passthroughSection)
		}
	}
}

func (normalizer *Normalizer) mergePythonRequirement(projectModel *manifest.ProjectModel, rawSource sources.RawSource) {
	rawProject := rawSource.Project
	if len(rawProject.RequiresPython) == 0 {
		return
	}

	parsedRequirement, parseError := ParseConstraint(rawProject.RequiresPython, rawProject.RequiresPythonDialect)
	if parseError != nil {
		normalizer.recorder.Warning(
			fmt.Sprintf(unparsablePythonRequirementTemplateConstant, rawSource.Format, parseError.Error()),
			report.EventSite{},
		)
		return
	}
	if parsedRequirement.IsUnconstrained() {
		return
	}

	if projectModel.RequiresPython.IsUnconstrained() {
		projectModel.RequiresPython = parsedRequirement
		return
	}
	if !projectModel.RequiresPython.Equal(parsedRequirement) {
		normalizer.recorder.Info(
			fmt.Sprintf(
				conflictingPythonRequirementTemplateConstant,
				parsedRequirement.String(),
				rawSource.Format,
				projectModel.RequiresPython.String(),
			),
			report.EventSite{},
		)
	}
}

// orderSourcesByPriority sorts sources from most to least authoritative.
// Formats missing from the priority list follow the listed ones in default
// order.
func orderSourcesByPriority(rawSources []sources.RawSource, sourcePriority []manifest.SourceFormat) []sources.RawSource {
	if len(sourcePriority) == 0 {
		sourcePriority = manifest.AllSourceFormats()
	}

	priorityRanks := make(map[manifest.SourceFormat]int, len(sourcePriority))
	for priorityIndex, sourceFormat := range sourcePriority {
		priorityRanks[sourceFormat] = priorityIndex
	}
	fallbackRank := len(sourcePriority)
	for _, sourceFormat := range manifest.AllSourceFormats() {
		if _, ranked := priorityRanks[sourceFormat]; !ranked {
			priorityRanks[sourceFormat] = fallbackRank
			fallbackRank++
		}
	}

	orderedSources := make([]sources.RawSource, len(rawSources))
	copy(orderedSources, rawSources)
	sort.SliceStable(orderedSources, func(leftIndex int, rightIndex int) bool {
		return priorityRanks[orderedSources[leftIndex].Format] < priorityRanks[orderedSources[rightIndex].Format]
	})
	return orderedSources
}

// SourceRank reports the priority rank of a format under the given priority
// list, lower meaning more authoritative.
func SourceRank(sourceFormat manifest.SourceFormat, sourcePriority []manifest.SourceFormat) int {
	if len(sourcePriority) == 0 {
		sourcePriority = manifest.AllSourceFormats()
	}
	for priorityIndex, candidateFormat := range sourcePriority {
		if candidateFormat == sourceFormat {
			return priorityIndex
		}
	}
	return len(sourcePriority)
}

func projectIsPackaged(rawSources []sources.RawSource) bool {
	for _, rawSource := range rawSources {
		if rawSource.Project.Packaged {
			return true
		}
	}
	return false
}

func canonicalExtras(rawExtras []string) []string {
	if len(rawExtras) == 0 {
		return nil
	}

	seenExtras := make(map[string]bool, len(rawExtras))
	canonicalized := make([]string, 0, len(rawExtras))
	for _, rawExtra := range rawExtras {
		canonicalExtra := manifest.CanonicalName(rawExtra)
		if len(canonicalExtra) == 0 || seenExtras[canonicalExtra] {
			continue
		}
		seenExtras[canonicalExtra] = true
		canonicalized = append(canonicalized, canonicalExtra)
	}
	sort.Strings(canonicalized)
	return canonicalized
}

func containsIndexURL(indexDefinitions []manifest.IndexDefinition, indexURL string) bool {
	for _, indexDefinition := range indexDefinitions {
		if indexDefinition.URL == indexURL {
			return true
		}
	}
	return false
}

func containsPassthroughPath(passthroughSections []manifest.PassthroughSection, sectionPath []string) bool {
	joinedPath := strings.Join(sectionPath, passthroughSectionPathSeparatorConstant)
	for _, passthroughSection := range passthroughSections {
		if strings.Join(passthroughSection.Path, passthroughSectionPathSeparatorConstant) == joinedPath {
			return true
		}
	}
	return false
}

func sortedMapKeys(stringMap map[string]string) []string {
	keys := make([]string, 0, len(stringMap))
	for key := range stringMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
