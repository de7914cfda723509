package sources

import (
	"sort"
	"strings"
)

const (
	pythonCommentByteConstant          = '#'
	pythonEscapeByteConstant           = '\\'
	pythonSingleQuoteByteConstant      = '\''
	pythonDoubleQuoteByteConstant      = '"'
	pythonStringPrefixBytesConstant    = "rbuRBUfF"
	pythonFormattedPrefixLowerConstant = byte('f')
	pythonFormattedPrefixUpperConstant = byte('F')
	pythonRawPrefixLowerConstant       = byte('r')
	pythonRawPrefixUpperConstant       = byte('R')
	pythonIdentifierExtraByteConstant  = '_'
	tripleQuoteLengthConstant          = 3
)

// setupKeywordArgument is one keyword argument of a setup() call.
type setupKeywordArgument struct {
	name      string
	valueText string
	line      int
}

// setupArgumentRegion is the interior of a setup() call together with its
// position in the script.
type setupArgumentRegion struct {
	text        string
	startOffset int
	scriptText  string
}

// locateSetupArgumentRegion finds the first setup( call and returns the text
// between its parentheses with comments blanked out.
func locateSetupArgumentRegion(scriptText string) (setupArgumentRegion, bool, error) {
	strippedText := stripPythonComments(scriptText)

	searchOffset := 0
	for {
		callIndex := strings.Index(strippedText[searchOffset:], setupCallNameConstant)
		if callIndex < 0 {
			return setupArgumentRegion{}, false, nil
		}
		absoluteIndex := searchOffset + callIndex
		searchOffset = absoluteIndex + len(setupCallNameConstant)

		if absoluteIndex > 0 && isPythonIdentifierByte(strippedText[absoluteIndex-1]) {
			continue
		}
		openIndex := absoluteIndex + len(setupCallNameConstant)
		for openIndex < len(strippedText) && (strippedText[openIndex] == ' ' || strippedText[openIndex] == '\t' || strippedText[openIndex] == '\n' || strippedText[openIndex] == '\r') {
			openIndex++
		}
		if openIndex >= len(strippedText) || strippedText[openIndex] != '(' {
			continue
		}

		closeIndex, balanced := matchingCloseIndex(strippedText, openIndex)
		if !balanced {
			return setupArgumentRegion{}, false, ParseError{File: setupScriptFileNameConstant, Message: setupUnbalancedCallMessageConstant}
		}
		return setupArgumentRegion{
			text:        strippedText[openIndex+1 : closeIndex],
			startOffset: openIndex + 1,
			scriptText:  scriptText,
		}, true, nil
	}
}

// splitSetupArguments breaks the argument region into keyword arguments,
// skipping positional arguments and starred expansions.
func splitSetupArguments(argumentRegion setupArgumentRegion) []setupKeywordArgument {
	var keywordArguments []setupKeywordArgument

	for _, argumentSegment := range splitTopLevelPython(argumentRegion.text, ',') {
		segmentText := argumentSegment.text
		equalsIndex := topLevelKeywordEqualsIndex(segmentText)
		if equalsIndex < 0 {
			continue
		}

		argumentName := strings.TrimSpace(segmentText[:equalsIndex])
		if !isPythonIdentifier(argumentName) {
			continue
		}

		leadingSpaceLength := len(segmentText) - len(strings.TrimLeft(segmentText, " \t\r\n"))
		keywordArguments = append(keywordArguments, setupKeywordArgument{
			name:      argumentName,
			valueText: segmentText[equalsIndex+1:],
			line:      lineNumberAt(argumentRegion.scriptText, argumentRegion.startOffset+argumentSegment.offset+leadingSpaceLength),
		})
	}
	return keywordArguments
}

// pythonSegment is a top-level slice of an expression list together with its
// offset inside the parent text.
type pythonSegment struct {
	text   string
	offset int
}

// splitTopLevelPython splits text at separator bytes that sit at bracket
// depth zero outside string literals.
func splitTopLevelPython(text string, separator byte) []pythonSegment {
	var segments []pythonSegment
	segmentStart := 0
	bracketDepth := 0

	byteIndex := 0
	for byteIndex < len(text) {
		currentByte := text[byteIndex]
		switch {
		case currentByte == pythonSingleQuoteByteConstant || currentByte == pythonDoubleQuoteByteConstant:
			byteIndex = skipPythonString(text, byteIndex)
			continue
		case currentByte == '(' || currentByte == '[' || currentByte == '{':
			bracketDepth++
		case currentByte == ')' || currentByte == ']' || currentByte == '}':
			bracketDepth--
		case currentByte == separator && bracketDepth == 0:
			segments = appendNonEmptySegment(segments, text, segmentStart, byteIndex)
			segmentStart = byteIndex + 1
		}
		byteIndex++
	}
	return appendNonEmptySegment(segments, text, segmentStart, len(text))
}

func appendNonEmptySegment(segments []pythonSegment, text string, segmentStart int, segmentEnd int) []pythonSegment {
	segmentText := text[segmentStart:segmentEnd]
	if len(strings.TrimSpace(segmentText)) == 0 {
		return segments
	}
	return append(segments, pythonSegment{text: segmentText, offset: segmentStart})
}

// topLevelKeywordEqualsIndex finds the '=' of a keyword argument, ignoring
// comparison operators and nested expressions.
func topLevelKeywordEqualsIndex(argumentText string) int {
	bracketDepth := 0
	byteIndex := 0
	for byteIndex < len(argumentText) {
		currentByte := argumentText[byteIndex]
		switch {
		case currentByte == pythonSingleQuoteByteConstant || currentByte == pythonDoubleQuoteByteConstant:
			byteIndex = skipPythonString(argumentText, byteIndex)
			continue
		case currentByte == '(' || currentByte == '[' || currentByte == '{':
			bracketDepth++
		case currentByte == ')' || currentByte == ']' || currentByte == '}':
			bracketDepth--
		case currentByte == '=' && bracketDepth == 0:
			if byteIndex+1 < len(argumentText) && argumentText[byteIndex+1] == '=' {
				return -1
			}
			if byteIndex > 0 && strings.IndexByte("=<>!", argumentText[byteIndex-1]) >= 0 {
				return -1
			}
			return byteIndex
		}
		byteIndex++
	}
	return -1
}

// matchingCloseIndex walks from an opening parenthesis to its matching close,
// skipping string literals.
func matchingCloseIndex(text string, openIndex int) (int, bool) {
	bracketDepth := 0
	byteIndex := openIndex
	for byteIndex < len(text) {
		currentByte := text[byteIndex]
		switch {
		case currentByte == pythonSingleQuoteByteConstant || currentByte == pythonDoubleQuoteByteConstant:
			byteIndex = skipPythonString(text, byteIndex)
			continue
		case currentByte == '(' || currentByte == '[' || currentByte == '{':
			bracketDepth++
		case currentByte == ')' || currentByte == ']' || currentByte == '}':
			bracketDepth--
			if bracketDepth == 0 {
				return byteIndex, true
			}
		}
		byteIndex++
	}
	return 0, false
}

// skipPythonString returns the index just past the string literal whose
// opening quote sits at quoteIndex. Triple quotes and escapes are honored.
func skipPythonString(text string, quoteIndex int) int {
	quoteByte := text[quoteIndex]

	if quoteIndex+tripleQuoteLengthConstant <= len(text) && text[quoteIndex+1] == quoteByte && text[quoteIndex+2] == quoteByte {
		byteIndex := quoteIndex + tripleQuoteLengthConstant
		for byteIndex < len(text) {
			if text[byteIndex] == pythonEscapeByteConstant {
				byteIndex += 2
				continue
			}
			if byteIndex+tripleQuoteLengthConstant <= len(text) &&
				text[byteIndex] == quoteByte && text[byteIndex+1] == quoteByte && text[byteIndex+2] == quoteByte {
				return byteIndex + tripleQuoteLengthConstant
			}
			byteIndex++
		}
		return len(text)
	}

	byteIndex := quoteIndex + 1
	for byteIndex < len(text) {
		if text[byteIndex] == pythonEscapeByteConstant {
			byteIndex += 2
			continue
		}
		if text[byteIndex] == quoteByte {
			return byteIndex + 1
		}
		byteIndex++
	}
	return len(text)
}

// stripPythonComments blanks out comments while preserving byte offsets.
func stripPythonComments(scriptText string) string {
	strippedBytes := []byte(scriptText)
	byteIndex := 0
	for byteIndex < len(strippedBytes) {
		currentByte := strippedBytes[byteIndex]
		if currentByte == pythonSingleQuoteByteConstant || currentByte == pythonDoubleQuoteByteConstant {
			byteIndex = skipPythonString(scriptText, byteIndex)
			continue
		}
		if currentByte == pythonCommentByteConstant {
			for byteIndex < len(strippedBytes) && strippedBytes[byteIndex] != '\n' {
				strippedBytes[byteIndex] = ' '
				byteIndex++
			}
			continue
		}
		byteIndex++
	}
	return string(strippedBytes)
}

// parsePythonStringLiteral evaluates an expression consisting only of string
// literals, honoring implicit concatenation. Formatted strings and any other
// expression shape report false.
func parsePythonStringLiteral(expressionText string) (string, bool) {
	remainingText := strings.TrimSpace(expressionText)
	if len(remainingText) == 0 {
		return "", false
	}

	var valueBuilder strings.Builder
	literalCount := 0
	for len(remainingText) > 0 {
		literalValue, consumedLength, literalFound := scanSinglePythonLiteral(remainingText)
		if !literalFound {
			return "", false
		}
		valueBuilder.WriteString(literalValue)
		literalCount++
		remainingText = strings.TrimSpace(remainingText[consumedLength:])
	}
	return valueBuilder.String(), literalCount > 0
}

// scanSinglePythonLiteral reads one string literal at the start of the text
// and returns its unescaped value and consumed length.
func scanSinglePythonLiteral(text string) (string, int, bool) {
	prefixLength := 0
	rawString := false
	for prefixLength < len(text) && strings.IndexByte(pythonStringPrefixBytesConstant, text[prefixLength]) >= 0 {
		if text[prefixLength] == pythonFormattedPrefixLowerConstant || text[prefixLength] == pythonFormattedPrefixUpperConstant {
			return "", 0, false
		}
		if text[prefixLength] == pythonRawPrefixLowerConstant || text[prefixLength] == pythonRawPrefixUpperConstant {
			rawString = true
		}
		prefixLength++
		if prefixLength > 2 {
			return "", 0, false
		}
	}
	if prefixLength >= len(text) {
		return "", 0, false
	}
	quoteByte := text[prefixLength]
	if quoteByte != pythonSingleQuoteByteConstant && quoteByte != pythonDoubleQuoteByteConstant {
		return "", 0, false
	}

	endIndex := skipPythonString(text, prefixLength)
	literalText := text[prefixLength:endIndex]

	quoteLength := 1
	if len(literalText) >= 2*tripleQuoteLengthConstant &&
		strings.HasPrefix(literalText, strings.Repeat(string(quoteByte), tripleQuoteLengthConstant)) {
		quoteLength = tripleQuoteLengthConstant
	}
	if len(literalText) < 2*quoteLength {
		return "", 0, false
	}
	interiorText := literalText[quoteLength : len(literalText)-quoteLength]

	if rawString {
		return interiorText, endIndex, true
	}
	return unescapePythonString(interiorText), endIndex, true
}

func unescapePythonString(interiorText string) string {
	if !strings.ContainsRune(interiorText, rune(pythonEscapeByteConstant)) {
		return interiorText
	}

	var valueBuilder strings.Builder
	byteIndex := 0
	for byteIndex < len(interiorText) {
		currentByte := interiorText[byteIndex]
		if currentByte != pythonEscapeByteConstant || byteIndex+1 >= len(interiorText) {
			valueBuilder.WriteByte(currentByte)
			byteIndex++
			continue
		}
		escapedByte := interiorText[byteIndex+1]
		switch escapedByte {
		case 'n':
			valueBuilder.WriteByte('\n')
		case 't':
			valueBuilder.WriteByte('\t')
		case pythonEscapeByteConstant, pythonSingleQuoteByteConstant, pythonDoubleQuoteByteConstant:
			valueBuilder.WriteByte(escapedByte)
		default:
			valueBuilder.WriteByte(currentByte)
			valueBuilder.WriteByte(escapedByte)
		}
		byteIndex += 2
	}
	return valueBuilder.String()
}

// parsePythonStringList evaluates a list or tuple of string literals. The
// partial result reports whether non-literal items were skipped; the static
// result reports whether the expression was a list at all.
func parsePythonStringList(expressionText string) ([]string, bool, bool) {
	trimmedText := strings.TrimSpace(expressionText)
	if len(trimmedText) < 2 {
		return nil, false, false
	}
	openByte := trimmedText[0]
	closeByte := trimmedText[len(trimmedText)-1]
	if !(openByte == '[' && closeByte == ']') && !(openByte == '(' && closeByte == ')') {
		return nil, false, false
	}

	var literalValues []string
	partial := false
	for _, itemSegment := range splitTopLevelPython(trimmedText[1:len(trimmedText)-1], ',') {
		literalValue, literalFound := parsePythonStringLiteral(itemSegment.text)
		if !literalFound {
			partial = true
			continue
		}
		literalValues = append(literalValues, literalValue)
	}
	return literalValues, partial, true
}

// parsePythonStringListDictionary evaluates a dict mapping string keys to
// lists of strings. Single string values become one-element lists.
func parsePythonStringListDictionary(expressionText string) (map[string][]string, bool) {
	trimmedText := strings.TrimSpace(expressionText)
	if len(trimmedText) < 2 || trimmedText[0] != '{' || trimmedText[len(trimmedText)-1] != '}' {
		return nil, false
	}

	dictionary := make(map[string][]string)
	for _, pairSegment := range splitTopLevelPython(trimmedText[1:len(trimmedText)-1], ',') {
		colonIndex := topLevelColonIndex(pairSegment.text)
		if colonIndex < 0 {
			continue
		}
		keyValue, keyFound := parsePythonStringLiteral(pairSegment.text[:colonIndex])
		if !keyFound {
			continue
		}
		valueText := pairSegment.text[colonIndex+1:]
		if listValues, _, listIsStatic := parsePythonStringList(valueText); listIsStatic {
			dictionary[keyValue] = append(dictionary[keyValue], listValues...)
			continue
		}
		if literalValue, literalFound := parsePythonStringLiteral(valueText); literalFound {
			dictionary[keyValue] = append(dictionary[keyValue], literalValue)
		}
	}
	return dictionary, true
}

func topLevelColonIndex(pairText string) int {
	bracketDepth := 0
	byteIndex := 0
	for byteIndex < len(pairText) {
		currentByte := pairText[byteIndex]
		switch {
		case currentByte == pythonSingleQuoteByteConstant || currentByte == pythonDoubleQuoteByteConstant:
			byteIndex = skipPythonString(pairText, byteIndex)
			continue
		case currentByte == '(' || currentByte == '[' || currentByte == '{':
			bracketDepth++
		case currentByte == ')' || currentByte == ']' || currentByte == '}':
			bracketDepth--
		case currentByte == ':' && bracketDepth == 0:
			return byteIndex
		}
		byteIndex++
	}
	return -1
}

func sortedStringListDictionaryKeys(dictionary map[string][]string) []string {
	keys := make([]string, 0, len(dictionary))
	for key := range dictionary {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func isPythonIdentifier(candidateText string) bool {
	if len(candidateText) == 0 {
		return false
	}
	for byteIndex := 0; byteIndex < len(candidateText); byteIndex++ {
		if !isPythonIdentifierByte(candidateText[byteIndex]) {
			return false
		}
	}
	return true
}

func isPythonIdentifierByte(candidateByte byte) bool {
	switch {
	case candidateByte >= 'a' && candidateByte <= 'z':
		return true
	case candidateByte >= 'A' && candidateByte <= 'Z':
		return true
	case candidateByte >= '0' && candidateByte <= '9':
		return true
	case candidateByte == pythonIdentifierExtraByteConstant:
		return true
	default:
		return false
	}
}

func lineNumberAt(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	return 1 + strings.Count(text[:offset], "\n")
}
