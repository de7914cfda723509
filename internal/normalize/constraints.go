package normalize

import (
	"errors"
	"strings"

	"github.com/uvmigrate/uvmigrate/internal/sources"
	"github.com/uvmigrate/uvmigrate/internal/version"
)

const (
	poetryOrSeparatorConstant             = "||"
	poetryCaretPrefixConstant             = "^"
	poetryTildePrefixConstant             = "~"
	compatibleOperatorPrefixConstant      = "~="
	clauseSeparatorConstant               = ","
	exactOperatorPrefixConstant           = "=="
	wildcardAnyConstant                   = "*"
	alternativesUnsupportedReasonConstant = "alternative requirements are not supported"
)

// ParseConstraint interprets a constraint expression in the named dialect and
// returns its comparator set.
func ParseConstraint(constraintText string, dialect sources.ConstraintDialect) (version.Constraint, error) {
	if dialect == sources.ConstraintDialectPoetry {
		return parsePoetryConstraint(constraintText)
	}
	return version.ParseSpecifier(constraintText)
}

// parsePoetryConstraint translates poetry requirement syntax, expanding caret
// and tilde shorthands and treating bare versions as exact pins.
func parsePoetryConstraint(constraintText string) (version.Constraint, error) {
	trimmedText := strings.TrimSpace(constraintText)
	if len(trimmedText) == 0 || trimmedText == wildcardAnyConstant {
		return version.Constraint{}, nil
	}
	if strings.Contains(trimmedText, poetryOrSeparatorConstant) {
		return version.Constraint{}, version.ConstraintParseError{
			Expression: constraintText,
			Reason:     alternativesUnsupportedReasonConstant,
		}
	}

	combinedConstraint := version.Constraint{}
	for _, rawClause := range strings.Split(trimmedText, clauseSeparatorConstant) {
		clauseText := strings.TrimSpace(rawClause)
		if len(clauseText) == 0 || clauseText == wildcardAnyConstant {
			continue
		}

		clauseConstraint, clauseError := parsePoetryClause(clauseText)
		if clauseError != nil {
			var specifierError version.ConstraintParseError
			if errors.As(clauseError, &specifierError) {
				return version.Constraint{}, clauseError
			}
			return version.Constraint{}, version.ConstraintParseError{
				Expression: constraintText,
				Clause:     clauseText,
				Reason:     clauseError.Error(),
			}
		}
		combinedConstraint = combinedConstraint.And(clauseConstraint)
	}
	return combinedConstraint, nil
}

func parsePoetryClause(clauseText string) (version.Constraint, error) {
	switch {
	case strings.HasPrefix(clauseText, poetryCaretPrefixConstant):
		return version.ExpandCaret(strings.TrimSpace(clauseText[len(poetryCaretPrefixConstant):]))
	case strings.HasPrefix(clauseText, poetryTildePrefixConstant) && !strings.HasPrefix(clauseText, compatibleOperatorPrefixConstant):
		return version.ExpandTilde(strings.TrimSpace(clauseText[len(poetryTildePrefixConstant):]))
	case isBareVersionStart(clauseText[0]):
		return version.ParseSpecifier(exactOperatorPrefixConstant + clauseText)
	default:
		return version.ParseSpecifier(clauseText)
	}
}

func isBareVersionStart(firstByte byte) bool {
	if firstByte >= '0' && firstByte <= '9' {
		return true
	}
	return firstByte == 'v' || firstByte == 'V'
}
