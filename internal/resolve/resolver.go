package resolve

import (
	"fmt"
	"sort"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/normalize"
	"github.com/uvmigrate/uvmigrate/internal/report"
	"github.com/uvmigrate/uvmigrate/internal/version"
)

const (
	duplicateMergedTemplateConstant           = "dependency %q (group %s): %s and %s merged into %s"
	pinKeptTemplateConstant                   = "dependency %q (group %s): pin %s from %s kept over %s from %s"
	priorityResolvedTemplateConstant          = "dependency %q (group %s): %s from %s overrides %s from %s"
	mergedConstraintAnyTextConstant           = "any version"
	requirementSummarySourceSeparatorConstant = " "
)

// ResolveOptions adjusts how duplicate declarations are reconciled.
type ResolveOptions struct {
	// SourcePriority orders formats from most to least authoritative when a
	// duplicate cannot merge cleanly. An empty list uses the default order.
	SourcePriority []manifest.SourceFormat
}

// Resolution is the outcome of merging all duplicate declarations. Any
// conflict blocks the migration.
type Resolution struct {
	Project   manifest.ProjectModel
	Conflicts []manifest.Conflict
}

// Resolver reconciles duplicate dependency declarations into one entry per
// package and group.
type Resolver struct {
	recorder *report.Recorder
}

// NewResolver constructs a resolver recording events on the given recorder.
func NewResolver(recorder *report.Recorder) *Resolver {
	if recorder == nil {
		recorder = report.NewRecorder(nil)
	}
	return &Resolver{recorder: recorder}
}

type dependencyKey struct {
	name  string
	group manifest.GroupLabel
}

// Resolve merges the normalized dependencies into the project model. The
// dependency order is the first occurrence of each package and group pair.
func (resolver *Resolver) Resolve(normalizedInput normalize.NormalizedInput, options ResolveOptions) Resolution {
	orderedKeys := make([]dependencyKey, 0, len(normalizedInput.Dependencies))
	accumulated := make(map[dependencyKey]*manifest.Dependency, len(normalizedInput.Dependencies))
	conflicts := make([]manifest.Conflict, 0)

	for _, candidate := range normalizedInput.Dependencies {
		key := dependencyKey{name: candidate.Name, group: candidate.Group}
		existing, keySeen := accumulated[key]
		if !keySeen {
			candidateCopy := candidate
			accumulated[key] = &candidateCopy
			orderedKeys = append(orderedKeys, key)
			continue
		}

		mergeConflict := resolver.mergeDuplicate(existing, candidate, options.SourcePriority)
		if mergeConflict != nil {
			conflicts = append(conflicts, *mergeConflict)
			resolver.recorder.Error(mergeConflict.Description(), report.EventSite{
				File: candidate.Origin.File,
				Line: candidate.Origin.Line,
			})
		}
	}

	resolvedProject := normalizedInput.Project
	resolvedProject.Dependencies = make([]manifest.Dependency, 0, len(orderedKeys))
	for _, key := range orderedKeys {
		resolvedProject.Dependencies = append(resolvedProject.Dependencies, *accumulated[key])
	}

	return Resolution{Project: resolvedProject, Conflicts: conflicts}
}

// mergeDuplicate folds the candidate declaration into the accumulated entry
// and returns a conflict when the two cannot be reconciled.
func (resolver *Resolver) mergeDuplicate(
	existing *manifest.Dependency,
	candidate manifest.Dependency,
	sourcePriority []manifest.SourceFormat,
) *manifest.Conflict {
	existing.Extras = unionExtras(existing.Extras, candidate.Extras)

	if !sameDependencySource(existing.Source, candidate.Source) {
		return resolver.resolveByPriority(existing, candidate, sourcePriority, manifest.ConflictReasonSources)
	}
	if existing.Markers != candidate.Markers {
		return resolver.resolveByPriority(existing, candidate, sourcePriority, manifest.ConflictReasonMarkers)
	}

	intersection := existing.Constraint.And(candidate.Constraint)
	if intersection.Satisfiable() {
		resolver.recorder.Info(
			fmt.Sprintf(
				duplicateMergedTemplateConstant,
				existing.DisplayName,
				existing.Group.String(),
				describeRequirement(requirementOf(*existing)),
				describeRequirement(requirementOf(candidate)),
				constraintText(intersection),
			),
			report.EventSite{File: candidate.Origin.File, Line: candidate.Origin.Line},
		)
		existing.Constraint = intersection
		return nil
	}

	if pinnedConstraint, pinApplies := pinOverRange(existing.Constraint, candidate.Constraint); pinApplies {
		resolver.recorder.Warning(
			fmt.Sprintf(
				pinKeptTemplateConstant,
				existing.DisplayName,
				existing.Group.String(),
				constraintText(existing.Constraint),
				existing.Origin.File,
				constraintText(candidate.Constraint),
				candidate.Origin.File,
			),
			report.EventSite{File: candidate.Origin.File, Line: candidate.Origin.Line},
		)
		existing.Constraint = pinnedConstraint
		return nil
	}
	if pinnedConstraint, pinApplies := pinOverRange(candidate.Constraint, existing.Constraint); pinApplies {
		resolver.recorder.Warning(
			fmt.Sprintf(
				pinKeptTemplateConstant,
				existing.DisplayName,
				existing.Group.String(),
				constraintText(candidate.Constraint),
				candidate.Origin.File,
				constraintText(existing.Constraint),
				existing.Origin.File,
			),
			report.EventSite{File: candidate.Origin.File, Line: candidate.Origin.Line},
		)
		existing.Constraint = pinnedConstraint
		existing.Origin = candidate.Origin
		return nil
	}

	return resolver.resolveByPriority(existing, candidate, sourcePriority, manifest.ConflictReasonConstraints)
}

// resolveByPriority keeps the declaration from the more authoritative format
// and reports a conflict when both sides rank equally.
func (resolver *Resolver) resolveByPriority(
	existing *manifest.Dependency,
	candidate manifest.Dependency,
	sourcePriority []manifest.SourceFormat,
	conflictReason manifest.ConflictReason,
) *manifest.Conflict {
	existingRank := normalize.SourceRank(existing.Origin.Format, sourcePriority)
	candidateRank := normalize.SourceRank(candidate.Origin.Format, sourcePriority)
	if existingRank == candidateRank {
		return &manifest.Conflict{
			Name:   existing.Name,
			Group:  existing.Group,
			Reason: conflictReason,
			First:  requirementOf(*existing),
			Second: requirementOf(candidate),
		}
	}

	winner := *existing
	loser := candidate
	if candidateRank < existingRank {
		winner = candidate
		loser = *existing
	}

	resolver.recorder.Warning(
		fmt.Sprintf(
			priorityResolvedTemplateConstant,
			existing.DisplayName,
			existing.Group.String(),
			describeRequirement(requirementOf(winner)),
			winner.Origin.File,
			describeRequirement(requirementOf(loser)),
			loser.Origin.File,
		),
		report.EventSite{File: candidate.Origin.File, Line: candidate.Origin.Line},
	)

	mergedExtras := existing.Extras
	displayName := existing.DisplayName
	*existing = winner
	existing.Extras = mergedExtras
	existing.DisplayName = displayName
	return nil
}

// pinOverRange resolves an exact pin against a plain range. The pin side wins
// together with every bound of the range the pinned version still satisfies.
func pinOverRange(pinnedConstraint version.Constraint, rangedConstraint version.Constraint) (version.Constraint, bool) {
	pinnedVersion, pinFound := pinnedConstraint.Pin()
	if !pinFound {
		return version.Constraint{}, false
	}
	if _, rangeIsPinned := rangedConstraint.Pin(); rangeIsPinned {
		return version.Constraint{}, false
	}

	keptComparators := make([]version.Comparator, 0)
	for _, comparator := range rangedConstraint.Comparators() {
		if version.NewConstraint(comparator).Allows(pinnedVersion) {
			keptComparators = append(keptComparators, comparator)
		}
	}
	return pinnedConstraint.And(version.NewConstraint(keptComparators...)), true
}

func sameDependencySource(firstSource manifest.DependencySource, secondSource manifest.DependencySource) bool {
	if firstSource.IsRegistry() && secondSource.IsRegistry() {
		return true
	}
	return firstSource == secondSource
}

func requirementOf(dependency manifest.Dependency) manifest.Requirement {
	return manifest.Requirement{
		Constraint: dependency.Constraint,
		Source:     dependency.Source,
		Markers:    dependency.Markers,
		Origin:     dependency.Origin,
	}
}

func describeRequirement(requirement manifest.Requirement) string {
	if !requirement.Source.IsRegistry() {
		return string(requirement.Source.Kind) + requirementSummarySourceSeparatorConstant + requirement.Source.URL + requirement.Source.Path
	}
	return constraintText(requirement.Constraint)
}

func constraintText(constraint version.Constraint) string {
	if constraint.IsUnconstrained() {
		return mergedConstraintAnyTextConstant
	}
	return constraint.String()
}

func unionExtras(firstExtras []string, secondExtras []string) []string {
	if len(secondExtras) == 0 {
		return firstExtras
	}
	if len(firstExtras) == 0 {
		merged := make([]string, len(secondExtras))
		copy(merged, secondExtras)
		return merged
	}

	seenExtras := make(map[string]bool, len(firstExtras)+len(secondExtras))
	merged := make([]string, 0, len(firstExtras)+len(secondExtras))
	for _, extra := range firstExtras {
		if !seenExtras[extra] {
			seenExtras[extra] = true
			merged = append(merged, extra)
		}
	}
	for _, extra := range secondExtras {
		if !seenExtras[extra] {
			seenExtras[extra] = true
			merged = append(merged, extra)
		}
	}
	sort.Strings(merged)
	return merged
}
