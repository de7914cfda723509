package version

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	versionPrefixConstant               = "v"
	epochSeparatorConstant              = "!"
	releaseSegmentSeparatorConstant     = "."
	preReleasePhaseAlphaConstant        = "a"
	preReleasePhaseBetaConstant         = "b"
	preReleasePhaseCandidateConstant    = "rc"
	postReleaseSegmentConstant          = "post"
	developmentSegmentConstant          = "dev"
	invalidVersionTemplateConstant      = "invalid version %q: %s"
	emptyVersionReasonConstant          = "empty version text"
	missingReleaseReasonConstant        = "missing release segment"
	invalidEpochReasonConstant          = "epoch is not a number"
	trailingTextReasonTemplateConstant  = "unrecognized trailing text %q"
	duplicateSegmentTemplateConstant    = "duplicate %s segment"
	absentSegmentNumberSentinelConstant = -1
	preReleaseRankDevelopmentConstant   = 0
	preReleaseRankAlphaConstant         = 1
	preReleaseRankBetaConstant          = 2
	preReleaseRankCandidateConstant     = 3
	preReleaseRankFinalReleaseConstant  = 4
	developmentAbsentRankConstant       = int(^uint(0) >> 1)
	segmentNamePreReleaseConstant       = "pre-release"
	segmentNamePostReleaseConstant      = "post-release"
	segmentNameDevelopmentConstant      = "development"
	canonicalPostReleaseFormatConstant  = ".post%d"
	canonicalDevelopmentFormatConstant  = ".dev%d"
	canonicalEpochFormatConstant        = "%d!"
	canonicalPreReleaseFormatConstant   = "%s%d"
	unknownSuffixReasonTemplateConstant = "unrecognized suffix %q"
	postReleaseAliasRevConstant         = "rev"
	postReleaseAliasShortConstant       = "r"
	preReleaseAliasAlphaConstant        = "alpha"
	preReleaseAliasBetaConstant         = "beta"
	preReleaseAliasCandidateConstant    = "c"
	preReleaseAliasPreConstant          = "pre"
	preReleaseAliasPreviewConstant      = "preview"
	hyphenSeparatorRuneConstant         = '-'
	underscoreSeparatorRuneConstant     = '_'
	dotSeparatorRuneConstant            = '.'
	comparisonLessConstant              = -1
	comparisonEqualConstant             = 0
	comparisonGreaterConstant           = 1
)

// InvalidVersionError reports version text that does not follow the supported
// release numbering scheme.
type InvalidVersionError struct {
	Text   string
	Reason string
}

// Error renders the failing text together with the parse failure reason.
func (invalidVersion InvalidVersionError) Error() string {
	return fmt.Sprintf(invalidVersionTemplateConstant, invalidVersion.Text, invalidVersion.Reason)
}

// Version is a parsed package version: optional epoch, dotted release
// segments, and optional pre-release, post-release, and development markers.
// Post and Dev hold -1 when the corresponding marker is absent.
type Version struct {
	Epoch     int
	Release   []int
	PrePhase  string
	PreNumber int
	Post      int
	Dev       int
}

var preReleasePhaseAliases = map[string]string{
	preReleasePhaseAlphaConstant:     preReleasePhaseAlphaConstant,
	preReleaseAliasAlphaConstant:     preReleasePhaseAlphaConstant,
	preReleasePhaseBetaConstant:      preReleasePhaseBetaConstant,
	preReleaseAliasBetaConstant:      preReleasePhaseBetaConstant,
	preReleasePhaseCandidateConstant: preReleasePhaseCandidateConstant,
	preReleaseAliasCandidateConstant: preReleasePhaseCandidateConstant,
	preReleaseAliasPreConstant:       preReleasePhaseCandidateConstant,
	preReleaseAliasPreviewConstant:   preReleasePhaseCandidateConstant,
}

var postReleaseAliases = map[string]bool{
	postReleaseSegmentConstant:    true,
	postReleaseAliasRevConstant:   true,
	postReleaseAliasShortConstant: true,
}

var preReleasePhaseRanks = map[string]int{
	preReleasePhaseAlphaConstant:     preReleaseRankAlphaConstant,
	preReleasePhaseBetaConstant:      preReleaseRankBetaConstant,
	preReleasePhaseCandidateConstant: preReleaseRankCandidateConstant,
}

// Parse interprets version text and returns its structured form.
func Parse(versionText string) (Version, error) {
	normalizedText := strings.ToLower(strings.TrimSpace(versionText))
	normalizedText = strings.TrimPrefix(normalizedText, versionPrefixConstant)
	if len(normalizedText) == 0 {
		return Version{}, InvalidVersionError{Text: versionText, Reason: emptyVersionReasonConstant}
	}

	parsedVersion := Version{Post: absentSegmentNumberSentinelConstant, Dev: absentSegmentNumberSentinelConstant}

	if separatorIndex := strings.Index(normalizedText, epochSeparatorConstant); separatorIndex >= 0 {
		epochValue, epochError := strconv.Atoi(normalizedText[:separatorIndex])
		if epochError != nil {
			return Version{}, InvalidVersionError{Text: versionText, Reason: invalidEpochReasonConstant}
		}
		parsedVersion.Epoch = epochValue
		normalizedText = normalizedText[separatorIndex+1:]
	}

	releaseSegments, remainingText, releaseError := scanReleaseSegments(normalizedText)
	if releaseError != nil {
		return Version{}, InvalidVersionError{Text: versionText, Reason: releaseError.Error()}
	}
	parsedVersion.Release = releaseSegments

	suffixError := scanVersionSuffixes(&parsedVersion, remainingText)
	if suffixError != nil {
		return Version{}, InvalidVersionError{Text: versionText, Reason: suffixError.Error()}
	}

	return parsedVersion, nil
}

func scanReleaseSegments(versionText string) ([]int, string, error) {
	segments := make([]int, 0, 4)
	position := 0
	for {
		digitStart := position
		for position < len(versionText) && isDigit(versionText[position]) {
			position++
		}
		if digitStart == position {
			return nil, versionText, fmt.Errorf("%s", missingReleaseReasonConstant)
		}
		segmentValue, segmentError := strconv.Atoi(versionText[digitStart:position])
		if segmentError != nil {
			return nil, versionText, segmentError
		}
		segments = append(segments, segmentValue)

		if position+1 < len(versionText) && versionText[position] == byte(dotSeparatorRuneConstant) && isDigit(versionText[position+1]) {
			position++
			continue
		}
		break
	}
	return segments, versionText[position:], nil
}

func scanVersionSuffixes(parsedVersion *Version, remainingText string) error {
	for len(remainingText) > 0 {
		separatorSeen := byte(0)
		switch remainingText[0] {
		case byte(dotSeparatorRuneConstant), byte(hyphenSeparatorRuneConstant), byte(underscoreSeparatorRuneConstant):
			separatorSeen = remainingText[0]
			remainingText = remainingText[1:]
		}

		alphaStart := 0
		alphaEnd := alphaStart
		for alphaEnd < len(remainingText) && isLetter(remainingText[alphaEnd]) {
			alphaEnd++
		}
		alphaToken := remainingText[alphaStart:alphaEnd]

		digitStart := alphaEnd
		if len(alphaToken) > 0 && digitStart+1 < len(remainingText) && isSeparator(remainingText[digitStart]) && isDigit(remainingText[digitStart+1]) {
			digitStart++
		}
		digitEnd := digitStart
		for digitEnd < len(remainingText) && isDigit(remainingText[digitEnd]) {
			digitEnd++
		}
		digitToken := remainingText[digitStart:digitEnd]

		if len(alphaToken) == 0 && len(digitToken) == 0 {
			return fmt.Errorf(trailingTextReasonTemplateConstant, remainingText)
		}

		segmentNumber := 0
		if len(digitToken) > 0 {
			parsedNumber, numberError := strconv.Atoi(digitToken)
			if numberError != nil {
				return numberError
			}
			segmentNumber = parsedNumber
		}

		switch {
		case len(alphaToken) == 0 && separatorSeen == byte(hyphenSeparatorRuneConstant):
			if parsedVersion.Post != absentSegmentNumberSentinelConstant {
				return fmt.Errorf(duplicateSegmentTemplateConstant, segmentNamePostReleaseConstant)
			}
			parsedVersion.Post = segmentNumber
		case preReleasePhaseAliases[alphaToken] != "":
			if len(parsedVersion.PrePhase) > 0 {
				return fmt.Errorf(duplicateSegmentTemplateConstant, segmentNamePreReleaseConstant)
			}
			parsedVersion.PrePhase = preReleasePhaseAliases[alphaToken]
			parsedVersion.PreNumber = segmentNumber
		case postReleaseAliases[alphaToken]:
			if parsedVersion.Post != absentSegmentNumberSentinelConstant {
				return fmt.Errorf(duplicateSegmentTemplateConstant, segmentNamePostReleaseConstant)
			}
			parsedVersion.Post = segmentNumber
		case alphaToken == developmentSegmentConstant:
			if parsedVersion.Dev != absentSegmentNumberSentinelConstant {
				return fmt.Errorf(duplicateSegmentTemplateConstant, segmentNameDevelopmentConstant)
			}
			parsedVersion.Dev = segmentNumber
		default:
			return fmt.Errorf(unknownSuffixReasonTemplateConstant, alphaToken)
		}

		remainingText = remainingText[digitEnd:]
	}
	return nil
}

func isDigit(character byte) bool {
	return character >= '0' && character <= '9'
}

func isSeparator(character byte) bool {
	switch character {
	case byte(dotSeparatorRuneConstant), byte(hyphenSeparatorRuneConstant), byte(underscoreSeparatorRuneConstant):
		return true
	default:
		return false
	}
}

func isLetter(character byte) bool {
	return character >= 'a' && character <= 'z'
}

// Compare orders two versions, returning a negative value when the receiver
// precedes the argument, zero when equal, and a positive value otherwise.
// Development markers precede pre-releases, pre-releases precede the final
// release, and post-releases follow it.
func (parsedVersion Version) Compare(otherVersion Version) int {
	if parsedVersion.Epoch != otherVersion.Epoch {
		return compareNumbers(parsedVersion.Epoch, otherVersion.Epoch)
	}

	releaseComparison := compareReleaseSegments(parsedVersion.Release, otherVersion.Release)
	if releaseComparison != comparisonEqualConstant {
		return releaseComparison
	}

	leftPreRank, leftPreNumber := parsedVersion.preReleaseKey()
	rightPreRank, rightPreNumber := otherVersion.preReleaseKey()
	if leftPreRank != rightPreRank {
		return compareNumbers(leftPreRank, rightPreRank)
	}
	if leftPreNumber != rightPreNumber {
		return compareNumbers(leftPreNumber, rightPreNumber)
	}

	if parsedVersion.Post != otherVersion.Post {
		return compareNumbers(parsedVersion.Post, otherVersion.Post)
	}

	return compareNumbers(parsedVersion.developmentKey(), otherVersion.developmentKey())
}

func (parsedVersion Version) preReleaseKey() (int, int) {
	if len(parsedVersion.PrePhase) == 0 {
		if parsedVersion.Post == absentSegmentNumberSentinelConstant && parsedVersion.Dev != absentSegmentNumberSentinelConstant {
			return preReleaseRankDevelopmentConstant, 0
		}
		return preReleaseRankFinalReleaseConstant, 0
	}
	return preReleasePhaseRanks[parsedVersion.PrePhase], parsedVersion.PreNumber
}

func (parsedVersion Version) developmentKey() int {
	if parsedVersion.Dev == absentSegmentNumberSentinelConstant {
		return developmentAbsentRankConstant
	}
	return parsedVersion.Dev
}

func compareReleaseSegments(leftSegments []int, rightSegments []int) int {
	segmentCount := len(leftSegments)
	if len(rightSegments) > segmentCount {
		segmentCount = len(rightSegments)
	}
	for segmentIndex := 0; segmentIndex < segmentCount; segmentIndex++ {
		comparison := compareNumbers(releaseSegmentAt(leftSegments, segmentIndex), releaseSegmentAt(rightSegments, segmentIndex))
		if comparison != comparisonEqualConstant {
			return comparison
		}
	}
	return comparisonEqualConstant
}

func releaseSegmentAt(segments []int, segmentIndex int) int {
	if segmentIndex < len(segments) {
		return segments[segmentIndex]
	}
	return 0
}

func compareNumbers(leftNumber int, rightNumber int) int {
	switch {
	case leftNumber < rightNumber:
		return comparisonLessConstant
	case leftNumber > rightNumber:
		return comparisonGreaterConstant
	default:
		return comparisonEqualConstant
	}
}

// String renders the canonical text of the version.
func (parsedVersion Version) String() string {
	var builder strings.Builder
	if parsedVersion.Epoch > 0 {
		builder.WriteString(fmt.Sprintf(canonicalEpochFormatConstant, parsedVersion.Epoch))
	}

	for segmentIndex, segmentValue := range parsedVersion.Release {
		if segmentIndex > 0 {
			builder.WriteString(releaseSegmentSeparatorConstant)
		}
		builder.WriteString(strconv.Itoa(segmentValue))
	}

	if len(parsedVersion.PrePhase) > 0 {
		builder.WriteString(fmt.Sprintf(canonicalPreReleaseFormatConstant, parsedVersion.PrePhase, parsedVersion.PreNumber))
	}
	if parsedVersion.Post != absentSegmentNumberSentinelConstant {
		builder.WriteString(fmt.Sprintf(canonicalPostReleaseFormatConstant, parsedVersion.Post))
	}
	if parsedVersion.Dev != absentSegmentNumberSentinelConstant {
		builder.WriteString(fmt.Sprintf(canonicalDevelopmentFormatConstant, parsedVersion.Dev))
	}

	return builder.String()
}
