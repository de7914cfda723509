package sources

import (
	"fmt"
	"path"
	"strings"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
)

const (
	markerSeparatorRuneConstant           = ';'
	extrasOpenRuneConstant                = '['
	extrasCloseRuneConstant               = ']'
	extrasListSeparatorConstant           = ","
	directReferenceSeparatorConstant      = " @ "
	urlFragmentSeparatorConstant          = "#"
	eggFragmentPrefixConstant             = "egg="
	fragmentFieldSeparatorConstant        = "&"
	vcsGitPrefixConstant                  = "git+"
	vcsMercurialPrefixConstant            = "hg+"
	vcsSubversionPrefixConstant           = "svn+"
	vcsBazaarPrefixConstant               = "bzr+"
	httpSchemePrefixConstant              = "http://"
	httpsSchemePrefixConstant             = "https://"
	fileSchemePrefixConstant              = "file://"
	wheelFileSuffixConstant               = ".whl"
	sourceArchiveSuffixConstant           = ".tar.gz"
	zipArchiveSuffixConstant              = ".zip"
	wheelNameSeparatorConstant            = "-"
	missingEggNameReasonConstant          = "cannot determine package name from URL; add an #egg= fragment"
	emptyRequirementReasonConstant        = "empty requirement"
	unterminatedExtrasReasonTemplateConst = "unterminated extras list in %q"
	invalidPackageNameReasonTemplate      = "invalid package name %q"
	unexpectedTrailingTextReasonTemplate  = "expected a version specifier after %q, got %q"
	referenceSeparatorConstant            = "@"
	pathSegmentSeparatorConstant          = "/"
)

// requirementLine is one parsed requirement expression.
type requirementLine struct {
	name           string
	extras         []string
	constraintText string
	markers        string
	source         manifest.DependencySource
}

var vcsURLPrefixes = []string{
	vcsGitPrefixConstant,
	vcsMercurialPrefixConstant,
	vcsSubversionPrefixConstant,
	vcsBazaarPrefixConstant,
}

var directURLPrefixes = []string{
	httpSchemePrefixConstant,
	httpsSchemePrefixConstant,
	fileSchemePrefixConstant,
}

// parseRequirementText interprets a single requirement expression covering
// plain specifier syntax, direct URL references, and VCS references.
func parseRequirementText(requirementText string) (requirementLine, error) {
	specifierPart := requirementText
	markersPart := ""
	if separatorIndex := strings.IndexRune(requirementText, markerSeparatorRuneConstant); separatorIndex >= 0 {
		specifierPart = requirementText[:separatorIndex]
		markersPart = strings.TrimSpace(requirementText[separatorIndex+1:])
	}
	specifierPart = strings.TrimSpace(specifierPart)
	if len(specifierPart) == 0 {
		return requirementLine{}, fmt.Errorf("%s", emptyRequirementReasonConstant)
	}

	if hasAnyPrefix(specifierPart, vcsURLPrefixes) {
		parsedLine, parseError := parseVCSRequirement(specifierPart)
		if parseError != nil {
			return requirementLine{}, parseError
		}
		parsedLine.markers = markersPart
		return parsedLine, nil
	}

	if hasAnyPrefix(specifierPart, directURLPrefixes) {
		parsedLine, parseError := parseURLRequirement(specifierPart)
		if parseError != nil {
			return requirementLine{}, parseError
		}
		parsedLine.markers = markersPart
		return parsedLine, nil
	}

	if separatorIndex := strings.Index(specifierPart, directReferenceSeparatorConstant); separatorIndex > 0 {
		namePart := strings.TrimSpace(specifierPart[:separatorIndex])
		referencePart := strings.TrimSpace(specifierPart[separatorIndex+len(directReferenceSeparatorConstant):])

		parsedName, parsedExtras, remainderText, nameError := parseNameAndExtras(namePart)
		if nameError != nil {
			return requirementLine{}, nameError
		}
		if len(remainderText) > 0 {
			return requirementLine{}, fmt.Errorf(unexpectedTrailingTextReasonTemplate, parsedName, remainderText)
		}

		referenceSource, sourceError := parseReferenceSource(referencePart)
		if sourceError != nil {
			return requirementLine{}, sourceError
		}

		return requirementLine{name: parsedName, extras: parsedExtras, markers: markersPart, source: referenceSource}, nil
	}

	parsedName, parsedExtras, remainderText, nameError := parseNameAndExtras(specifierPart)
	if nameError != nil {
		return requirementLine{}, nameError
	}

	constraintText := strings.TrimSpace(remainderText)
	constraintText = strings.TrimPrefix(constraintText, "(")
	constraintText = strings.TrimSuffix(constraintText, ")")
	if len(constraintText) > 0 && !isSpecifierStart(constraintText[0]) {
		return requirementLine{}, fmt.Errorf(unexpectedTrailingTextReasonTemplate, parsedName, constraintText)
	}

	return requirementLine{
		name:           parsedName,
		extras:         parsedExtras,
		constraintText: constraintText,
		markers:        markersPart,
		source:         manifest.RegistrySource(),
	}, nil
}

func parseNameAndExtras(requirementText string) (string, []string, string, error) {
	nameEnd := 0
	for nameEnd < len(requirementText) && isPackageNameCharacter(requirementText[nameEnd]) {
		nameEnd++
	}
	parsedName := requirementText[:nameEnd]
	if len(parsedName) == 0 {
		return "", nil, "", fmt.Errorf(invalidPackageNameReasonTemplate, requirementText)
	}

	remainderText := requirementText[nameEnd:]
	var parsedExtras []string
	if len(remainderText) > 0 && remainderText[0] == extrasOpenRuneConstant {
		closingIndex := strings.IndexByte(remainderText, extrasCloseRuneConstant)
		if closingIndex < 0 {
			return "", nil, "", fmt.Errorf(unterminatedExtrasReasonTemplateConst, requirementText)
		}
		for _, extraName := range strings.Split(remainderText[1:closingIndex], extrasListSeparatorConstant) {
			trimmedExtra := strings.TrimSpace(extraName)
			if len(trimmedExtra) > 0 {
				parsedExtras = append(parsedExtras, trimmedExtra)
			}
		}
		remainderText = remainderText[closingIndex+1:]
	}

	return parsedName, parsedExtras, remainderText, nil
}

func parseReferenceSource(referenceText string) (manifest.DependencySource, error) {
	if hasAnyPrefix(referenceText, vcsURLPrefixes) {
		parsedLine, parseError := parseVCSReference(referenceText)
		if parseError != nil {
			return manifest.DependencySource{}, parseError
		}
		return parsedLine, nil
	}
	return manifest.URLSource(referenceText), nil
}

func parseVCSRequirement(requirementText string) (requirementLine, error) {
	strippedText, fragmentName := splitEggFragment(requirementText)

	vcsSource, sourceError := parseVCSReference(strippedText)
	if sourceError != nil {
		return requirementLine{}, sourceError
	}

	if len(fragmentName) == 0 {
		return requirementLine{}, fmt.Errorf("%s", missingEggNameReasonConstant)
	}

	return requirementLine{name: fragmentName, source: vcsSource}, nil
}

func parseVCSReference(referenceText string) (manifest.DependencySource, error) {
	strippedText, _ := splitEggFragment(referenceText)

	repositoryURL := strippedText
	revisionReference := ""
	lastReferenceIndex := strings.LastIndex(strippedText, referenceSeparatorConstant)
	if lastReferenceIndex > strings.LastIndex(strippedText, pathSegmentSeparatorConstant) {
		repositoryURL = strippedText[:lastReferenceIndex]
		revisionReference = strippedText[lastReferenceIndex+1:]
	}

	repositoryURL = strings.TrimPrefix(repositoryURL, vcsGitPrefixConstant)
	return manifest.VCSSource(repositoryURL, revisionReference), nil
}

func parseURLRequirement(requirementText string) (requirementLine, error) {
	strippedText, fragmentName := splitEggFragment(requirementText)

	packageName := fragmentName
	if len(packageName) == 0 {
		packageName = packageNameFromArchivePath(strippedText)
	}
	if len(packageName) == 0 {
		return requirementLine{}, fmt.Errorf("%s", missingEggNameReasonConstant)
	}

	return requirementLine{name: packageName, source: manifest.URLSource(strippedText)}, nil
}

func splitEggFragment(urlText string) (string, string) {
	fragmentIndex := strings.Index(urlText, urlFragmentSeparatorConstant)
	if fragmentIndex < 0 {
		return urlText, ""
	}

	strippedText := urlText[:fragmentIndex]
	for _, fragmentField := range strings.Split(urlText[fragmentIndex+1:], fragmentFieldSeparatorConstant) {
		if strings.HasPrefix(fragmentField, eggFragmentPrefixConstant) {
			return strippedText, strings.TrimSpace(strings.TrimPrefix(fragmentField, eggFragmentPrefixConstant))
		}
	}
	return strippedText, ""
}

func packageNameFromArchivePath(urlText string) string {
	baseName := path.Base(urlText)
	switch {
	case strings.HasSuffix(baseName, wheelFileSuffixConstant):
		trimmedName := strings.TrimSuffix(baseName, wheelFileSuffixConstant)
		if separatorIndex := strings.Index(trimmedName, wheelNameSeparatorConstant); separatorIndex > 0 {
			return trimmedName[:separatorIndex]
		}
		return trimmedName
	case strings.HasSuffix(baseName, sourceArchiveSuffixConstant), strings.HasSuffix(baseName, zipArchiveSuffixConstant):
		trimmedName := strings.TrimSuffix(baseName, sourceArchiveSuffixConstant)
		trimmedName = strings.TrimSuffix(trimmedName, zipArchiveSuffixConstant)
		separatorIndex := strings.LastIndex(trimmedName, wheelNameSeparatorConstant)
		if separatorIndex > 0 && separatorIndex+1 < len(trimmedName) && isDigitCharacter(trimmedName[separatorIndex+1]) {
			return trimmedName[:separatorIndex]
		}
		return ""
	default:
		return ""
	}
}

func hasAnyPrefix(text string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

func isPackageNameCharacter(character byte) bool {
	switch {
	case character >= 'a' && character <= 'z':
		return true
	case character >= 'A' && character <= 'Z':
		return true
	case character >= '0' && character <= '9':
		return true
	case character == '-' || character == '_' || character == '.':
		return true
	default:
		return false
	}
}

func isDigitCharacter(character byte) bool {
	return character >= '0' && character <= '9'
}

func isSpecifierStart(character byte) bool {
	switch character {
	case '<', '>', '=', '!', '~':
		return true
	default:
		return false
	}
}
