package version

import (
	"fmt"
	"sort"
	"strings"
)

const (
	clauseSeparatorConstant                = ","
	wildcardSuffixConstant                 = ".*"
	wildcardAnyConstant                    = "*"
	arbitraryEqualityOperatorConstant      = "==="
	invalidSpecifierTemplateConstant       = "invalid version specifier %q: clause %q: %s"
	arbitraryEqualityReasonConstant        = "arbitrary equality is not supported"
	missingOperatorReasonConstant          = "missing comparison operator"
	missingVersionReasonConstant           = "missing version after operator"
	emptyClauseReasonConstant              = "empty clause"
	wildcardOperatorReasonTemplateConstant = "wildcard version requires == or !=, got %q"
	operatorEqualStringConstant            = "=="
	operatorNotEqualStringConstant         = "!="
	operatorGreaterOrEqualStringConstant   = ">="
	operatorLessOrEqualStringConstant      = "<="
	operatorGreaterStringConstant          = ">"
	operatorLessStringConstant             = "<"
	operatorCompatibleStringConstant       = "~="
	operatorSortRankEqualConstant          = 0
	operatorSortRankCompatibleConstant     = 1
	operatorSortRankGreaterOrEqualConstant = 2
	operatorSortRankGreaterConstant        = 3
	operatorSortRankLessOrEqualConstant    = 4
	operatorSortRankLessConstant           = 5
	operatorSortRankNotEqualConstant       = 6
)

// Operator identifies a version comparison operation.
type Operator string

// Supported comparison operators.
const (
	OperatorEqual          Operator = Operator(operatorEqualStringConstant)
	OperatorNotEqual       Operator = Operator(operatorNotEqualStringConstant)
	OperatorGreaterOrEqual Operator = Operator(operatorGreaterOrEqualStringConstant)
	OperatorLessOrEqual    Operator = Operator(operatorLessOrEqualStringConstant)
	OperatorGreater        Operator = Operator(operatorGreaterStringConstant)
	OperatorLess           Operator = Operator(operatorLessStringConstant)
	OperatorCompatible     Operator = Operator(operatorCompatibleStringConstant)
)

var specifierOperatorsInMatchOrder = []Operator{
	OperatorGreaterOrEqual,
	OperatorLessOrEqual,
	OperatorEqual,
	OperatorNotEqual,
	OperatorCompatible,
	OperatorGreater,
	OperatorLess,
}

var operatorSortRanks = map[Operator]int{
	OperatorEqual:          operatorSortRankEqualConstant,
	OperatorCompatible:     operatorSortRankCompatibleConstant,
	OperatorGreaterOrEqual: operatorSortRankGreaterOrEqualConstant,
	OperatorGreater:        operatorSortRankGreaterConstant,
	OperatorLessOrEqual:    operatorSortRankLessOrEqualConstant,
	OperatorLess:           operatorSortRankLessConstant,
	OperatorNotEqual:       operatorSortRankNotEqualConstant,
}

// ConstraintParseError reports a version specifier that could not be
// interpreted as a comparator set.
type ConstraintParseError struct {
	Expression string
	Clause     string
	Reason     string
}

// Error renders the specifier, the failing clause, and the failure reason.
func (parseError ConstraintParseError) Error() string {
	return fmt.Sprintf(invalidSpecifierTemplateConstant, parseError.Expression, parseError.Clause, parseError.Reason)
}

// Comparator pairs an operator with a version. Prefix marks wildcard clauses
// such as ==1.2.* that match on release segments only.
type Comparator struct {
	Operator Operator
	Version  Version
	Prefix   bool
}

// String renders the comparator in specifier syntax.
func (comparator Comparator) String() string {
	rendered := string(comparator.Operator) + comparator.Version.String()
	if comparator.Prefix {
		rendered += wildcardSuffixConstant
	}
	return rendered
}

// Constraint is an ordered comparator set. All comparators must hold
// simultaneously; the empty set is unconstrained.
type Constraint struct {
	comparators []Comparator
}

// NewConstraint builds a constraint from comparators, deduplicated and held
// in canonical order.
func NewConstraint(comparators ...Comparator) Constraint {
	ordered := make([]Comparator, 0, len(comparators))
	ordered = append(ordered, comparators...)
	sort.SliceStable(ordered, func(firstIndex int, secondIndex int) bool {
		return compareComparators(ordered[firstIndex], ordered[secondIndex]) < 0
	})

	deduplicated := make([]Comparator, 0, len(ordered))
	for _, comparator := range ordered {
		if len(deduplicated) > 0 && compareComparators(deduplicated[len(deduplicated)-1], comparator) == 0 {
			continue
		}
		deduplicated = append(deduplicated, comparator)
	}

	return Constraint{comparators: deduplicated}
}

func compareComparators(leftComparator Comparator, rightComparator Comparator) int {
	versionComparison := leftComparator.Version.Compare(rightComparator.Version)
	if versionComparison != comparisonEqualConstant {
		return versionComparison
	}
	rankComparison := compareNumbers(operatorSortRanks[leftComparator.Operator], operatorSortRanks[rightComparator.Operator])
	if rankComparison != comparisonEqualConstant {
		return rankComparison
	}
	if leftComparator.Prefix == rightComparator.Prefix {
		return comparisonEqualConstant
	}
	if leftComparator.Prefix {
		return comparisonGreaterConstant
	}
	return comparisonLessConstant
}

// ParseSpecifier interprets a comma-separated specifier expression such as
// ">=1.0,<2.0" into a comparator set. Empty text and "*" are unconstrained.
func ParseSpecifier(specifierText string) (Constraint, error) {
	trimmedSpecifier := strings.TrimSpace(specifierText)
	if len(trimmedSpecifier) == 0 || trimmedSpecifier == wildcardAnyConstant {
		return Constraint{}, nil
	}

	clauses := strings.Split(trimmedSpecifier, clauseSeparatorConstant)
	comparators := make([]Comparator, 0, len(clauses))
	for _, rawClause := range clauses {
		clause := strings.TrimSpace(rawClause)
		if len(clause) == 0 {
			return Constraint{}, ConstraintParseError{Expression: specifierText, Clause: rawClause, Reason: emptyClauseReasonConstant}
		}

		comparator, includeComparator, clauseError := parseSpecifierClause(clause)
		if clauseError != nil {
			return Constraint{}, ConstraintParseError{Expression: specifierText, Clause: clause, Reason: clauseError.Error()}
		}
		if includeComparator {
			comparators = append(comparators, comparator)
		}
	}

	return NewConstraint(comparators...), nil
}

func parseSpecifierClause(clause string) (Comparator, bool, error) {
	if strings.HasPrefix(clause, arbitraryEqualityOperatorConstant) {
		return Comparator{}, false, fmt.Errorf("%s", arbitraryEqualityReasonConstant)
	}

	var matchedOperator Operator
	for _, candidateOperator := range specifierOperatorsInMatchOrder {
		if strings.HasPrefix(clause, string(candidateOperator)) {
			matchedOperator = candidateOperator
			break
		}
	}
	if len(matchedOperator) == 0 {
		return Comparator{}, false, fmt.Errorf("%s", missingOperatorReasonConstant)
	}

	versionText := strings.TrimSpace(clause[len(matchedOperator):])
	if len(versionText) == 0 {
		return Comparator{}, false, fmt.Errorf("%s", missingVersionReasonConstant)
	}
	if versionText == wildcardAnyConstant {
		return Comparator{}, false, nil
	}

	prefixMatch := false
	if strings.HasSuffix(versionText, wildcardSuffixConstant) {
		if matchedOperator != OperatorEqual && matchedOperator != OperatorNotEqual {
			return Comparator{}, false, fmt.Errorf(wildcardOperatorReasonTemplateConstant, matchedOperator)
		}
		prefixMatch = true
		versionText = strings.TrimSuffix(versionText, wildcardSuffixConstant)
		if len(versionText) == 0 {
			return Comparator{}, false, fmt.Errorf("%s", missingVersionReasonConstant)
		}
	}

	parsedVersion, versionError := Parse(versionText)
	if versionError != nil {
		return Comparator{}, false, versionError
	}

	return Comparator{Operator: matchedOperator, Version: parsedVersion, Prefix: prefixMatch}, true, nil
}

// Comparators returns a copy of the comparator set in canonical order.
func (constraint Constraint) Comparators() []Comparator {
	copied := make([]Comparator, len(constraint.comparators))
	copy(copied, constraint.comparators)
	return copied
}

// IsUnconstrained reports whether the set carries no comparators.
func (constraint Constraint) IsUnconstrained() bool {
	return len(constraint.comparators) == 0
}

// And merges two comparator sets into their conjunction.
func (constraint Constraint) And(otherConstraint Constraint) Constraint {
	merged := make([]Comparator, 0, len(constraint.comparators)+len(otherConstraint.comparators))
	merged = append(merged, constraint.comparators...)
	merged = append(merged, otherConstraint.comparators...)
	return NewConstraint(merged...)
}

// Pin returns the exact version demanded by an equality comparator.
func (constraint Constraint) Pin() (Version, bool) {
	for _, comparator := range constraint.comparators {
		if comparator.Operator == OperatorEqual && !comparator.Prefix {
			return comparator.Version, true
		}
	}
	return Version{}, false
}

// Allows reports whether a candidate version satisfies every comparator.
func (constraint Constraint) Allows(candidateVersion Version) bool {
	for _, comparator := range constraint.comparators {
		if !comparatorAllows(comparator, candidateVersion) {
			return false
		}
	}
	return true
}

func comparatorAllows(comparator Comparator, candidateVersion Version) bool {
	switch comparator.Operator {
	case OperatorEqual:
		if comparator.Prefix {
			return releasePrefixMatches(comparator.Version, candidateVersion)
		}
		return candidateVersion.Compare(comparator.Version) == comparisonEqualConstant
	case OperatorNotEqual:
		if comparator.Prefix {
			return !releasePrefixMatches(comparator.Version, candidateVersion)
		}
		return candidateVersion.Compare(comparator.Version) != comparisonEqualConstant
	case OperatorGreaterOrEqual:
		return candidateVersion.Compare(comparator.Version) >= comparisonEqualConstant
	case OperatorLessOrEqual:
		return candidateVersion.Compare(comparator.Version) <= comparisonEqualConstant
	case OperatorGreater:
		return candidateVersion.Compare(comparator.Version) > comparisonEqualConstant
	case OperatorLess:
		return candidateVersion.Compare(comparator.Version) < comparisonEqualConstant
	case OperatorCompatible:
		return candidateVersion.Compare(comparator.Version) >= comparisonEqualConstant &&
			candidateVersion.Compare(compatibleReleaseUpperBound(comparator.Version)) < comparisonEqualConstant
	default:
		return false
	}
}

func releasePrefixMatches(prefixVersion Version, candidateVersion Version) bool {
	if prefixVersion.Epoch != candidateVersion.Epoch {
		return false
	}
	for segmentIndex := range prefixVersion.Release {
		if releaseSegmentAt(candidateVersion.Release, segmentIndex) != prefixVersion.Release[segmentIndex] {
			return false
		}
	}
	return true
}

type intervalBound struct {
	version   Version
	inclusive bool
	defined   bool
}

// Satisfiable reports whether at least one version can satisfy the whole
// comparator set. Exclusions influence the outcome only when the remaining
// interval has collapsed to a single version.
func (constraint Constraint) Satisfiable() bool {
	lowerBound := intervalBound{}
	upperBound := intervalBound{}
	exclusions := make([]Comparator, 0)

	for _, comparator := range constraint.comparators {
		switch comparator.Operator {
		case OperatorEqual:
			if comparator.Prefix {
				lowerBound = tightenLowerBound(lowerBound, comparator.Version, true)
				upperBound = tightenUpperBound(upperBound, releasePrefixUpperBound(comparator.Version), false)
				continue
			}
			lowerBound = tightenLowerBound(lowerBound, comparator.Version, true)
			upperBound = tightenUpperBound(upperBound, comparator.Version, true)
		case OperatorGreaterOrEqual:
			lowerBound = tightenLowerBound(lowerBound, comparator.Version, true)
		case OperatorGreater:
			lowerBound = tightenLowerBound(lowerBound, comparator.Version, false)
		case OperatorLessOrEqual:
			upperBound = tightenUpperBound(upperBound, comparator.Version, true)
		case OperatorLess:
			upperBound = tightenUpperBound(upperBound, comparator.Version, false)
		case OperatorCompatible:
			lowerBound = tightenLowerBound(lowerBound, comparator.Version, true)
			upperBound = tightenUpperBound(upperBound, compatibleReleaseUpperBound(comparator.Version), false)
		case OperatorNotEqual:
			exclusions = append(exclusions, comparator)
		}
	}

	if lowerBound.defined && upperBound.defined {
		boundComparison := lowerBound.version.Compare(upperBound.version)
		if boundComparison > comparisonEqualConstant {
			return false
		}
		if boundComparison == comparisonEqualConstant {
			if !lowerBound.inclusive || !upperBound.inclusive {
				return false
			}
			for _, exclusion := range exclusions {
				if !comparatorAllows(exclusion, lowerBound.version) {
					return false
				}
			}
		}
	}

	return true
}

func tightenLowerBound(currentBound intervalBound, candidateVersion Version, inclusive bool) intervalBound {
	if !currentBound.defined {
		return intervalBound{version: candidateVersion, inclusive: inclusive, defined: true}
	}
	comparison := candidateVersion.Compare(currentBound.version)
	if comparison > comparisonEqualConstant {
		return intervalBound{version: candidateVersion, inclusive: inclusive, defined: true}
	}
	if comparison == comparisonEqualConstant && !inclusive {
		return intervalBound{version: candidateVersion, inclusive: false, defined: true}
	}
	return currentBound
}

func tightenUpperBound(currentBound intervalBound, candidateVersion Version, inclusive bool) intervalBound {
	if !currentBound.defined {
		return intervalBound{version: candidateVersion, inclusive: inclusive, defined: true}
	}
	comparison := candidateVersion.Compare(currentBound.version)
	if comparison < comparisonEqualConstant {
		return intervalBound{version: candidateVersion, inclusive: inclusive, defined: true}
	}
	if comparison == comparisonEqualConstant && !inclusive {
		return intervalBound{version: candidateVersion, inclusive: false, defined: true}
	}
	return currentBound
}

func releaseVersion(releaseSegments []int) Version {
	return Version{
		Release: releaseSegments,
		Post:    absentSegmentNumberSentinelConstant,
		Dev:     absentSegmentNumberSentinelConstant,
	}
}

func releasePrefixUpperBound(prefixVersion Version) Version {
	bumpedSegments := make([]int, len(prefixVersion.Release))
	copy(bumpedSegments, prefixVersion.Release)
	bumpedSegments[len(bumpedSegments)-1]++
	upper := releaseVersion(bumpedSegments)
	upper.Epoch = prefixVersion.Epoch
	return upper
}

func compatibleReleaseUpperBound(compatibleVersion Version) Version {
	segmentCount := len(compatibleVersion.Release)
	if segmentCount < 2 {
		return releasePrefixUpperBound(compatibleVersion)
	}
	truncatedSegments := make([]int, segmentCount-1)
	copy(truncatedSegments, compatibleVersion.Release[:segmentCount-1])
	truncated := releaseVersion(truncatedSegments)
	truncated.Epoch = compatibleVersion.Epoch
	return releasePrefixUpperBound(truncated)
}

// String renders the comparator set as a canonical specifier expression.
func (constraint Constraint) String() string {
	renderedClauses := make([]string, 0, len(constraint.comparators))
	for _, comparator := range constraint.comparators {
		renderedClauses = append(renderedClauses, comparator.String())
	}
	return strings.Join(renderedClauses, clauseSeparatorConstant)
}

// Equal reports whether two comparator sets are canonically identical.
func (constraint Constraint) Equal(otherConstraint Constraint) bool {
	return constraint.String() == otherConstraint.String()
}
