package manifest

import (
	"fmt"

	"github.com/uvmigrate/uvmigrate/internal/version"
)

const (
	conflictReasonConstraintsStringConstant = "incompatible version requirements"
	conflictReasonSourcesStringConstant     = "incompatible dependency sources"
	conflictReasonMarkersStringConstant     = "incompatible environment markers"
	conflictDescriptionTemplateConstant     = "package %q (group %s): %s: %s from %s vs %s from %s"
	unconstrainedRequirementTextConstant    = "any version"
)

// ConflictReason classifies why two requirements could not merge.
type ConflictReason string

// Supported conflict reasons.
const (
	ConflictReasonConstraints ConflictReason = ConflictReason(conflictReasonConstraintsStringConstant)
	ConflictReasonSources     ConflictReason = ConflictReason(conflictReasonSourcesStringConstant)
	ConflictReasonMarkers     ConflictReason = ConflictReason(conflictReasonMarkersStringConstant)
)

// Requirement pairs a dependency requirement with its declaration site.
type Requirement struct {
	Constraint version.Constraint
	Source     DependencySource
	Markers    string
	Origin     Origin
}

func (requirement Requirement) describe() string {
	switch {
	case !requirement.Source.IsRegistry():
		return string(requirement.Source.Kind) + " " + requirement.Source.URL + requirement.Source.Path
	case requirement.Constraint.IsUnconstrained():
		return unconstrainedRequirementTextConstant
	default:
		return requirement.Constraint.String()
	}
}

// Conflict records two irreconcilable requirements for the same dependency.
type Conflict struct {
	Name   string
	Group  GroupLabel
	Reason ConflictReason
	First  Requirement
	Second Requirement
}

// Description renders the conflict for reports and error messages.
func (conflict Conflict) Description() string {
	return fmt.Sprintf(
		conflictDescriptionTemplateConstant,
		conflict.Name,
		conflict.Group.String(),
		string(conflict.Reason),
		conflict.First.describe(),
		conflict.First.Origin.File,
		conflict.Second.describe(),
		conflict.Second.Origin.File,
	)
}
