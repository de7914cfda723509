package manifest

import "strings"

const canonicalNameSeparatorConstant = '-'

// CanonicalName lowers a distribution name and collapses every run of
// hyphens, underscores, and dots into a single hyphen, so that spellings
// such as "Django_Rest.Framework" and "django-rest-framework" compare equal.
func CanonicalName(rawName string) string {
	loweredName := strings.ToLower(strings.TrimSpace(rawName))

	var builder strings.Builder
	builder.Grow(len(loweredName))
	previousWasSeparator := false
	for _, character := range loweredName {
		switch character {
		case '-', '_', '.':
			if !previousWasSeparator {
				builder.WriteRune(canonicalNameSeparatorConstant)
			}
			previousWasSeparator = true
		default:
			builder.WriteRune(character)
			previousWasSeparator = false
		}
	}

	return builder.String()
}

// CanonicalGroupName lowers a dependency group name for comparisons.
func CanonicalGroupName(rawGroupName string) string {
	return strings.ToLower(strings.TrimSpace(rawGroupName))
}
