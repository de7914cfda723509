package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/report"
)

const (
	setupScriptFileNameConstant             = "setup.py"
	setupCallNameConstant                   = "setup"
	setupNameArgumentConstant               = "name"
	setupVersionArgumentConstant            = "version"
	setupDescriptionArgumentConstant        = "description"
	setupAuthorArgumentConstant             = "author"
	setupAuthorEmailArgumentConstant        = "author_email"
	setupURLArgumentConstant                = "url"
	setupPythonRequiresArgumentConstant     = "python_requires"
	setupInstallRequiresArgumentConstant    = "install_requires"
	setupExtrasRequireArgumentConstant      = "extras_require"
	setupTestsRequireArgumentConstant       = "tests_require"
	setupEntryPointsArgumentConstant        = "entry_points"
	setupConsoleScriptsKeyConstant          = "console_scripts"
	setupHomepageURLKeyConstant             = "homepage"
	setupVersionVariableNameConstant        = "__version__"
	setupScriptAssignmentSeparatorConstant  = "="
	setupEntryPointSectionOpenConstant      = "["
	setupEntryPointSectionCloseConstant     = "]"
	setupScriptReadErrorTemplateConstant    = "reading %s: %w"
	setupCallMissingMessageConstant         = "no setup() call found"
	setupDynamicValueTemplateConstant       = "argument %q is not a static literal"
	setupPartialListTemplateConstant        = "argument %q mixes literals with dynamic expressions; only the literals were read"
	setupDynamicVersionMessageConstant      = "version is dynamic and no __version__ assignment was found"
	setupExtrasBecomeGroupsTemplateConstant = "extras_require group %q was migrated as a dependency group"
	setupUnbalancedCallMessageConstant      = "setup() call is not balanced"
)

// SetupScriptReader statically extracts metadata from setup.py without
// executing it. Only literal arguments are read.
type SetupScriptReader struct{}

// NewSetupScriptReader constructs a setup.py reader.
func NewSetupScriptReader() *SetupScriptReader {
	return &SetupScriptReader{}
}

// Format names the setup script format.
func (reader *SetupScriptReader) Format() manifest.SourceFormat {
	return manifest.SourceFormatSetupScript
}

// Detect reports whether the directory contains a setup.py file.
func (reader *SetupScriptReader) Detect(projectDirectory string) (bool, error) {
	fileInformation, statError := os.Stat(filepath.Join(projectDirectory, setupScriptFileNameConstant))
	if statError != nil {
		if os.IsNotExist(statError) {
			return false, nil
		}
		return false, statError
	}
	return !fileInformation.IsDir(), nil
}

// Read locates the setup() call and extracts its literal keyword arguments.
func (reader *SetupScriptReader) Read(projectDirectory string, recorder *report.Recorder) (RawSource, error) {
	scriptPath := filepath.Join(projectDirectory, setupScriptFileNameConstant)
	fileContent, readError := os.ReadFile(scriptPath)
	if readError != nil {
		return RawSource{}, fmt.Errorf(setupScriptReadErrorTemplateConstant, scriptPath, readError)
	}

	scriptText := string(fileContent)
	argumentRegion, regionFound, balanceError := locateSetupArgumentRegion(scriptText)
	if balanceError != nil {
		return RawSource{}, ParseError{File: setupScriptFileNameConstant, Message: setupUnbalancedCallMessageConstant}
	}
	if !regionFound {
		return RawSource{}, ParseError{File: setupScriptFileNameConstant, Message: setupCallMissingMessageConstant}
	}

	rawSource := RawSource{Format: manifest.SourceFormatSetupScript}
	setupArguments := splitSetupArguments(argumentRegion)

	for _, setupArgument := range setupArguments {
		reader.applySetupArgument(setupArgument, scriptText, &rawSource, recorder)
	}

	if len(rawSource.Project.Name) > 0 {
		rawSource.Project.Packaged = true
	}
	return rawSource, nil
}

func (reader *SetupScriptReader) applySetupArgument(
	setupArgument setupKeywordArgument,
	scriptText string,
	rawSource *RawSource,
	recorder *report.Recorder,
) {
	eventSite := report.EventSite{File: setupScriptFileNameConstant, Line: setupArgument.line}

	switch setupArgument.name {
	case setupNameArgumentConstant:
		rawSource.Project.Name = reader.literalOrWarn(setupArgument, recorder)
	case setupVersionArgumentConstant:
		reader.applyVersionArgument(setupArgument, scriptText, rawSource, recorder)
	case setupDescriptionArgumentConstant:
		rawSource.Project.Description, _ = parsePythonStringLiteral(setupArgument.valueText)
	case setupAuthorArgumentConstant:
		if authorName, literalFound := parsePythonStringLiteral(setupArgument.valueText); literalFound {
			rawSource.Project.Authors = mergeAuthorName(rawSource.Project.Authors, authorName)
		}
	case setupAuthorEmailArgumentConstant:
		if authorEmail, literalFound := parsePythonStringLiteral(setupArgument.valueText); literalFound {
			rawSource.Project.Authors = mergeAuthorEmail(rawSource.Project.Authors, authorEmail)
		}
	case setupURLArgumentConstant:
		if projectURL, literalFound := parsePythonStringLiteral(setupArgument.valueText); literalFound {
			if rawSource.Project.URLs == nil {
				rawSource.Project.URLs = make(map[string]string)
			}
			rawSource.Project.URLs[setupHomepageURLKeyConstant] = projectURL
		}
	case setupPythonRequiresArgumentConstant:
		if requiresPython, literalFound := parsePythonStringLiteral(setupArgument.valueText); literalFound {
			rawSource.Project.RequiresPython = requiresPython
			rawSource.Project.RequiresPythonDialect = ConstraintDialectStandard
		} else {
			recorder.Warning(fmt.Sprintf(setupDynamicValueTemplateConstant, setupArgument.name), eventSite)
		}
	case setupInstallRequiresArgumentConstant:
		reader.applyRequirementList(setupArgument, manifest.MainGroup(), rawSource, recorder)
	case setupTestsRequireArgumentConstant:
		reader.applyRequirementList(setupArgument, manifest.DevelopmentGroup(), rawSource, recorder)
	case setupExtrasRequireArgumentConstant:
		reader.applyExtrasRequire(setupArgument, rawSource, recorder)
	case setupEntryPointsArgumentConstant:
		reader.applyEntryPoints(setupArgument, rawSource, recorder)
	}
}

func (reader *SetupScriptReader) literalOrWarn(setupArgument setupKeywordArgument, recorder *report.Recorder) string {
	literalValue, literalFound := parsePythonStringLiteral(setupArgument.valueText)
	if !literalFound {
		recorder.Warning(
			fmt.Sprintf(setupDynamicValueTemplateConstant, setupArgument.name),
			report.EventSite{File: setupScriptFileNameConstant, Line: setupArgument.line},
		)
	}
	return literalValue
}

func (reader *SetupScriptReader) applyVersionArgument(
	setupArgument setupKeywordArgument,
	scriptText string,
	rawSource *RawSource,
	recorder *report.Recorder,
) {
	if literalValue, literalFound := parsePythonStringLiteral(setupArgument.valueText); literalFound {
		rawSource.Project.Version = literalValue
		return
	}

	if assignedVersion, assignmentFound := findVersionAssignment(scriptText); assignmentFound {
		rawSource.Project.Version = assignedVersion
		return
	}
	recorder.Warning(
		setupDynamicVersionMessageConstant,
		report.EventSite{File: setupScriptFileNameConstant, Line: setupArgument.line},
	)
}

func (reader *SetupScriptReader) applyRequirementList(
	setupArgument setupKeywordArgument,
	groupLabel manifest.GroupLabel,
	rawSource *RawSource,
	recorder *report.Recorder,
) {
	eventSite := report.EventSite{File: setupScriptFileNameConstant, Line: setupArgument.line}
	literalValues, listIsPartial, listIsStatic := parsePythonStringList(setupArgument.valueText)
	if !listIsStatic {
		recorder.Warning(fmt.Sprintf(setupDynamicValueTemplateConstant, setupArgument.name), eventSite)
		return
	}
	if listIsPartial {
		recorder.Warning(fmt.Sprintf(setupPartialListTemplateConstant, setupArgument.name), eventSite)
	}

	for _, requirementText := range literalValues {
		parsedLine, parseError := parseRequirementText(requirementText)
		if parseError != nil {
			recorder.Warning(parseError.Error(), eventSite)
			continue
		}
		rawSource.Entries = append(rawSource.Entries, RawEntry{
			Name:           parsedLine.name,
			ConstraintText: parsedLine.constraintText,
			Dialect:        ConstraintDialectStandard,
			Extras:         parsedLine.extras,
			Markers:        parsedLine.markers,
			Source:         parsedLine.source,
			Group:          groupLabel,
			File:           setupScriptFileNameConstant,
			Line:           setupArgument.line,
		})
	}
}

func (reader *SetupScriptReader) applyExtrasRequire(
	setupArgument setupKeywordArgument,
	rawSource *RawSource,
	recorder *report.Recorder,
) {
	eventSite := report.EventSite{File: setupScriptFileNameConstant, Line: setupArgument.line}
	extrasDictionary, dictionaryIsStatic := parsePythonStringListDictionary(setupArgument.valueText)
	if !dictionaryIsStatic {
		recorder.Warning(fmt.Sprintf(setupDynamicValueTemplateConstant, setupArgument.name), eventSite)
		return
	}

	for _, extrasGroupName := range sortedStringListDictionaryKeys(extrasDictionary) {
		groupLabel := classifySetupExtrasGroup(extrasGroupName)
		recorder.Info(fmt.Sprintf(setupExtrasBecomeGroupsTemplateConstant, extrasGroupName), eventSite)

		for _, requirementText := range extrasDictionary[extrasGroupName] {
			parsedLine, parseError := parseRequirementText(requirementText)
			if parseError != nil {
				recorder.Warning(parseError.Error(), eventSite)
				continue
			}
			rawSource.Entries = append(rawSource.Entries, RawEntry{
				Name:           parsedLine.name,
				ConstraintText: parsedLine.constraintText,
				Dialect:        ConstraintDialectStandard,
				Extras:         parsedLine.extras,
				Markers:        parsedLine.markers,
				Source:         parsedLine.source,
				Group:          groupLabel,
				File:           setupScriptFileNameConstant,
				Line:           setupArgument.line,
			})
		}
	}
}

func (reader *SetupScriptReader) applyEntryPoints(
	setupArgument setupKeywordArgument,
	rawSource *RawSource,
	recorder *report.Recorder,
) {
	trimmedValue := strings.TrimSpace(setupArgument.valueText)

	var consoleScriptLines []string
	if strings.HasPrefix(trimmedValue, "{") {
		entryPointDictionary, dictionaryIsStatic := parsePythonStringListDictionary(setupArgument.valueText)
		if !dictionaryIsStatic {
			recorder.Warning(
				fmt.Sprintf(setupDynamicValueTemplateConstant, setupArgument.name),
				report.EventSite{File: setupScriptFileNameConstant, Line: setupArgument.line},
			)
			return
		}
		consoleScriptLines = entryPointDictionary[setupConsoleScriptsKeyConstant]
	} else if literalValue, literalFound := parsePythonStringLiteral(setupArgument.valueText); literalFound {
		consoleScriptLines = consoleScriptsFromINIText(literalValue)
	} else {
		recorder.Warning(
			fmt.Sprintf(setupDynamicValueTemplateConstant, setupArgument.name),
			report.EventSite{File: setupScriptFileNameConstant, Line: setupArgument.line},
		)
		return
	}

	for _, scriptLine := range consoleScriptLines {
		scriptName, scriptTarget, separatorFound := strings.Cut(scriptLine, setupScriptAssignmentSeparatorConstant)
		if !separatorFound {
			continue
		}
		if rawSource.Project.Scripts == nil {
			rawSource.Project.Scripts = make(map[string]string)
		}
		rawSource.Project.Scripts[strings.TrimSpace(scriptName)] = strings.TrimSpace(scriptTarget)
	}
}

// consoleScriptsFromINIText reads the [console_scripts] section of the
// ini-style entry_points string form.
func consoleScriptsFromINIText(entryPointsText string) []string {
	var consoleScriptLines []string
	insideConsoleScripts := false
	for _, rawLine := range strings.Split(entryPointsText, "\n") {
		trimmedLine := strings.TrimSpace(rawLine)
		if strings.HasPrefix(trimmedLine, setupEntryPointSectionOpenConstant) && strings.HasSuffix(trimmedLine, setupEntryPointSectionCloseConstant) {
			sectionName := strings.TrimSuffix(strings.TrimPrefix(trimmedLine, setupEntryPointSectionOpenConstant), setupEntryPointSectionCloseConstant)
			insideConsoleScripts = strings.TrimSpace(sectionName) == setupConsoleScriptsKeyConstant
			continue
		}
		if insideConsoleScripts && len(trimmedLine) > 0 {
			consoleScriptLines = append(consoleScriptLines, trimmedLine)
		}
	}
	return consoleScriptLines
}

func classifySetupExtrasGroup(extrasGroupName string) manifest.GroupLabel {
	switch manifest.CanonicalGroupName(extrasGroupName) {
	case developmentGroupAliasDevConstant,
		developmentGroupAliasDevelopConstant,
		developmentGroupAliasTestConstant,
		developmentGroupAliasTestingConstant:
		return manifest.DevelopmentGroup()
	default:
		return manifest.NamedGroup(extrasGroupName)
	}
}

func mergeAuthorName(authors []manifest.Author, authorName string) []manifest.Author {
	if len(authors) == 0 {
		return []manifest.Author{{Name: authorName}}
	}
	authors[0].Name = authorName
	return authors
}

func mergeAuthorEmail(authors []manifest.Author, authorEmail string) []manifest.Author {
	if len(authors) == 0 {
		return []manifest.Author{{Email: authorEmail}}
	}
	authors[0].Email = authorEmail
	return authors
}

// findVersionAssignment scans for a literal __version__ assignment anywhere
// in the script.
func findVersionAssignment(scriptText string) (string, bool) {
	searchOffset := 0
	for {
		variableIndex := strings.Index(scriptText[searchOffset:], setupVersionVariableNameConstant)
		if variableIndex < 0 {
			return "", false
		}
		absoluteIndex := searchOffset + variableIndex
		remainderText := scriptText[absoluteIndex+len(setupVersionVariableNameConstant):]
		trimmedRemainder := strings.TrimLeft(remainderText, " \t")
		if strings.HasPrefix(trimmedRemainder, setupScriptAssignmentSeparatorConstant) && !strings.HasPrefix(trimmedRemainder, "==") {
			assignedExpression := trimmedRemainder[len(setupScriptAssignmentSeparatorConstant):]
			if literalValue, literalFound := parsePythonStringLiteral(assignedExpression); literalFound {
				return literalValue, true
			}
		}
		searchOffset = absoluteIndex + len(setupVersionVariableNameConstant)
	}
}
