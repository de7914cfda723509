package sources

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/report"
)

const (
	requirementsFilePrefixConstant           = "requirements"
	requirementsFileSuffixConstant           = ".txt"
	requirementsCommentPrefixConstant        = "#"
	requirementsInlineCommentMarkerConstant  = " #"
	requirementsDirectivePrefixConstant      = "-"
	editableShortFlagConstant                = "-e"
	editableLongFlagConstant                 = "--editable"
	directiveValueSeparatorConstant          = "="
	requirementsGroupSeparatorsConstant      = "-_"
	developmentGroupAliasDevConstant         = "dev"
	developmentGroupAliasDevelopConstant     = "develop"
	developmentGroupAliasTestConstant        = "test"
	developmentGroupAliasTestingConstant     = "testing"
	pythonRequirementNameConstant            = "python"
	skippedDirectiveTemplateConstant         = "skipped pip directive %q"
	skippedDirectiveWithHintTemplateConstant = "skipped pip directive %q: %s"
	editableMissingTargetMessageConstant     = "editable requirement is missing its target"
	editablePathFallbackTemplateConstant     = "editable path %q has no usable package name"
	editableProjectRootMessageConstant       = "editable project root requirement is implied by the migrated manifest"
	pythonRequirementMessageConstant         = "using python requirement for requires-python"
	requirementsReadErrorTemplateConstant    = "reading %s: %w"
	skippedRequirementTemplateConstant       = "skipped requirement: %s"
)

var skippedDirectiveHints = map[string]string{
	"-r":                "nested requirement files are not imported",
	"--requirement":     "nested requirement files are not imported",
	"-c":                "constraint files are not imported",
	"--constraint":      "constraint files are not imported",
	"-i":                "index URLs are declared in the emitted manifest instead",
	"--index-url":       "index URLs are declared in the emitted manifest instead",
	"--extra-index-url": "index URLs are declared in the emitted manifest instead",
}

var quietlySkippedDirectives = map[string]bool{
	"-f":               true,
	"--find-links":     true,
	"--trusted-host":   true,
	"--no-index":       true,
	"--pre":            true,
	"--prefer-binary":  true,
	"--require-hashes": true,
	"--only-binary":    true,
	"--no-binary":      true,
	"--use-feature":    true,
}

// RequirementsReader reads requirements*.txt files, classifying each file
// into a dependency group by its name.
type RequirementsReader struct{}

// NewRequirementsReader constructs a requirements reader.
func NewRequirementsReader() *RequirementsReader {
	return &RequirementsReader{}
}

// Format names the requirements format.
func (reader *RequirementsReader) Format() manifest.SourceFormat {
	return manifest.SourceFormatRequirements
}

// Detect reports whether the directory carries requirements files.
func (reader *RequirementsReader) Detect(projectDirectory string) (bool, error) {
	matchedFiles, matchError := reader.matchRequirementsFiles(projectDirectory)
	if matchError != nil {
		return false, matchError
	}
	return len(matchedFiles) > 0, nil
}

// Read extracts every requirements file into raw entries.
func (reader *RequirementsReader) Read(projectDirectory string, recorder *report.Recorder) (RawSource, error) {
	matchedFiles, matchError := reader.matchRequirementsFiles(projectDirectory)
	if matchError != nil {
		return RawSource{}, matchError
	}

	rawSource := RawSource{Format: manifest.SourceFormatRequirements}
	for _, fileName := range matchedFiles {
		filePath := filepath.Join(projectDirectory, fileName)
		groupLabel := classifyRequirementsFileName(fileName)

		fileEntries, readError := reader.readRequirementsFile(filePath, fileName, groupLabel, &rawSource, recorder)
		if readError != nil {
			return RawSource{}, readError
		}
		rawSource.Entries = append(rawSource.Entries, fileEntries...)
	}

	return rawSource, nil
}

func (reader *RequirementsReader) matchRequirementsFiles(projectDirectory string) ([]string, error) {
	directoryEntries, readError := os.ReadDir(projectDirectory)
	if readError != nil {
		return nil, readError
	}

	matchedFiles := make([]string, 0)
	for _, directoryEntry := range directoryEntries {
		if directoryEntry.IsDir() {
			continue
		}
		entryName := directoryEntry.Name()
		if isRequirementsFileName(entryName) {
			matchedFiles = append(matchedFiles, entryName)
		}
	}
	return matchedFiles, nil
}

func isRequirementsFileName(fileName string) bool {
	if !strings.HasSuffix(fileName, requirementsFileSuffixConstant) {
		return false
	}
	remainderText := strings.TrimSuffix(fileName, requirementsFileSuffixConstant)
	if !strings.HasPrefix(remainderText, requirementsFilePrefixConstant) {
		return false
	}
	remainderText = strings.TrimPrefix(remainderText, requirementsFilePrefixConstant)
	if len(remainderText) == 0 {
		return true
	}
	return strings.ContainsRune(requirementsGroupSeparatorsConstant, rune(remainderText[0]))
}

func classifyRequirementsFileName(fileName string) manifest.GroupLabel {
	groupText := strings.TrimSuffix(fileName, requirementsFileSuffixConstant)
	groupText = strings.TrimPrefix(groupText, requirementsFilePrefixConstant)
	groupText = strings.TrimLeft(groupText, requirementsGroupSeparatorsConstant)
	if len(groupText) == 0 {
		return manifest.MainGroup()
	}

	switch manifest.CanonicalGroupName(groupText) {
	case developmentGroupAliasDevConstant, developmentGroupAliasDevelopConstant,
		developmentGroupAliasTestConstant, developmentGroupAliasTestingConstant:
		return manifest.DevelopmentGroup()
	default:
		return manifest.NamedGroup(groupText)
	}
}

func (reader *RequirementsReader) readRequirementsFile(
	filePath string,
	fileName string,
	groupLabel manifest.GroupLabel,
	rawSource *RawSource,
	recorder *report.Recorder,
) ([]RawEntry, error) {
	fileHandle, openError := os.Open(filePath)
	if openError != nil {
		return nil, fmt.Errorf(requirementsReadErrorTemplateConstant, filePath, openError)
	}
	defer fileHandle.Close()

	entries := make([]RawEntry, 0)
	lineScanner := bufio.NewScanner(fileHandle)
	lineNumber := 0
	for lineScanner.Scan() {
		lineNumber++
		lineText := strings.TrimSpace(lineScanner.Text())
		if commentIndex := strings.Index(lineText, requirementsInlineCommentMarkerConstant); commentIndex >= 0 {
			lineText = strings.TrimSpace(lineText[:commentIndex])
		}
		if len(lineText) == 0 || strings.HasPrefix(lineText, requirementsCommentPrefixConstant) {
			continue
		}

		eventSite := report.EventSite{File: fileName, Line: lineNumber}

		if strings.HasPrefix(lineText, requirementsDirectivePrefixConstant) {
			entry, entryParsed := reader.readDirectiveLine(lineText, fileName, lineNumber, groupLabel, recorder, eventSite)
			if entryParsed {
				entries = append(entries, entry)
			}
			continue
		}

		parsedLine, parseError := parseRequirementText(lineText)
		if parseError != nil {
			recorder.Warning(fmt.Sprintf(skippedRequirementTemplateConstant, parseError.Error()), eventSite)
			continue
		}

		if manifest.CanonicalName(parsedLine.name) == pythonRequirementNameConstant {
			rawSource.Project.RequiresPython = parsedLine.constraintText
			rawSource.Project.RequiresPythonDialect = ConstraintDialectStandard
			recorder.Info(pythonRequirementMessageConstant, eventSite)
			continue
		}

		entries = append(entries, RawEntry{
			Name:           parsedLine.name,
			ConstraintText: parsedLine.constraintText,
			Dialect:        ConstraintDialectStandard,
			Extras:         parsedLine.extras,
			Markers:        parsedLine.markers,
			Source:         parsedLine.source,
			Group:          groupLabel,
			File:           fileName,
			Line:           lineNumber,
		})
	}

	if scanError := lineScanner.Err(); scanError != nil {
		return nil, fmt.Errorf(requirementsReadErrorTemplateConstant, filePath, scanError)
	}

	return entries, nil
}

func (reader *RequirementsReader) readDirectiveLine(
	lineText string,
	fileName string,
	lineNumber int,
	groupLabel manifest.GroupLabel,
	recorder *report.Recorder,
	eventSite report.EventSite,
) (RawEntry, bool) {
	directiveName, directiveValue := splitDirective(lineText)

	if directiveName == editableShortFlagConstant || directiveName == editableLongFlagConstant {
		return reader.readEditableDirective(directiveValue, fileName, lineNumber, groupLabel, recorder, eventSite)
	}

	if hintText, hintKnown := skippedDirectiveHints[directiveName]; hintKnown {
		recorder.Info(fmt.Sprintf(skippedDirectiveWithHintTemplateConstant, lineText, hintText), eventSite)
		return RawEntry{}, false
	}
	if quietlySkippedDirectives[directiveName] {
		recorder.Info(fmt.Sprintf(skippedDirectiveTemplateConstant, lineText), eventSite)
		return RawEntry{}, false
	}

	recorder.Warning(fmt.Sprintf(skippedDirectiveTemplateConstant, lineText), eventSite)
	return RawEntry{}, false
}

func (reader *RequirementsReader) readEditableDirective(
	directiveValue string,
	fileName string,
	lineNumber int,
	groupLabel manifest.GroupLabel,
	recorder *report.Recorder,
	eventSite report.EventSite,
) (RawEntry, bool) {
	if len(directiveValue) == 0 {
		recorder.Warning(editableMissingTargetMessageConstant, eventSite)
		return RawEntry{}, false
	}

	if hasAnyPrefix(directiveValue, vcsURLPrefixes) || hasAnyPrefix(directiveValue, directURLPrefixes) {
		parsedLine, parseError := parseRequirementText(directiveValue)
		if parseError != nil {
			recorder.Warning(fmt.Sprintf(skippedRequirementTemplateConstant, parseError.Error()), eventSite)
			return RawEntry{}, false
		}
		parsedLine.source.Editable = true
		return RawEntry{
			Name:    parsedLine.name,
			Dialect: ConstraintDialectStandard,
			Source:  parsedLine.source,
			Group:   groupLabel,
			File:    fileName,
			Line:    lineNumber,
		}, true
	}

	packageName := filepath.Base(filepath.Clean(directiveValue))
	if packageName == "." {
		recorder.Info(editableProjectRootMessageConstant, eventSite)
		return RawEntry{}, false
	}
	if packageName == string(filepath.Separator) {
		recorder.Warning(fmt.Sprintf(editablePathFallbackTemplateConstant, directiveValue), eventSite)
		return RawEntry{}, false
	}

	return RawEntry{
		Name:    packageName,
		Dialect: ConstraintDialectStandard,
		Source:  manifest.PathSource(directiveValue, true),
		Group:   groupLabel,
		File:    fileName,
		Line:    lineNumber,
	}, true
}

func splitDirective(lineText string) (string, string) {
	if separatorIndex := strings.IndexAny(lineText, directiveValueSeparatorConstant+" \t"); separatorIndex >= 0 {
		return lineText[:separatorIndex], strings.TrimSpace(lineText[separatorIndex+1:])
	}
	return lineText, ""
}
