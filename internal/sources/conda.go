package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/report"
)

const (
	condaEnvironmentFileNameConstant          = "environment.yml"
	condaEnvironmentAlternateFileNameConstant = "environment.yaml"
	condaPipListKeyConstant                   = "pip"
	condaPythonPackageNameConstant            = "python"
	condaChannelSeparatorConstant             = "::"
	condaSpecifierOperatorCharactersConstant  = "=<>!~"
	condaClauseSeparatorConstant              = ","
	condaExactOperatorConstant                = "=="
	condaSingleEqualsOperatorConstant         = "="
	condaMinimumOperatorConstant              = ">="
	condaWildcardSuffixConstant               = "*"
	condaWildcardCanonicalSuffixConstant      = ".*"
	condaReadErrorTemplateConstant            = "reading %s: %w"
	condaSkippedPackageTemplateConstant       = "skipped conda-managed package %q"
	condaRenamedPackageTemplateConstant       = "mapped conda package %q to %q"
	condaSkippedEntryTemplateConstant         = "skipped unrecognized conda entry: %s"
)

// condaInfrastructurePackages lists conda packages that have no PyPI
// distribution or are managed by the target tool itself.
var condaInfrastructurePackages = map[string]bool{
	"pip":              true,
	"setuptools":       true,
	"wheel":            true,
	"conda":            true,
	"mamba":            true,
	"ca-certificates":  true,
	"openssl":          true,
	"sqlite":           true,
	"libffi":           true,
	"ncurses":          true,
	"readline":         true,
	"tk":               true,
	"xz":               true,
	"zlib":             true,
	"bzip2":            true,
	"libgcc-ng":        true,
	"libstdcxx-ng":     true,
	"ld_impl_linux-64": true,
}

// condaToPyPINameMap rewrites conda package names whose PyPI distribution
// uses a different name.
var condaToPyPINameMap = map[string]string{
	"pytorch":         "torch",
	"pytorch-cpu":     "torch",
	"py-opencv":       "opencv-python",
	"opencv":          "opencv-python",
	"matplotlib-base": "matplotlib",
	"msgpack-python":  "msgpack",
	"ruamel_yaml":     "ruamel.yaml",
	"pytables":        "tables",
	"py-xgboost":      "xgboost",
}

type condaEnvironmentDocument struct {
	Name         string      `yaml:"name"`
	Dependencies []yaml.Node `yaml:"dependencies"`
}

// CondaReader reads conda environment.yml manifests.
type CondaReader struct{}

// NewCondaReader constructs a conda environment reader.
func NewCondaReader() *CondaReader {
	return &CondaReader{}
}

// Format names the conda format.
func (reader *CondaReader) Format() manifest.SourceFormat {
	return manifest.SourceFormatConda
}

// Detect reports whether the directory contains an environment file.
func (reader *CondaReader) Detect(projectDirectory string) (bool, error) {
	_, fileName, statError := reader.locateEnvironmentFile(projectDirectory)
	if statError != nil {
		return false, statError
	}
	return len(fileName) > 0, nil
}

// Read extracts pip-installable dependencies, the python requirement, and the
// environment name from a conda environment file.
func (reader *CondaReader) Read(projectDirectory string, recorder *report.Recorder) (RawSource, error) {
	environmentPath, environmentFileName, locateError := reader.locateEnvironmentFile(projectDirectory)
	if locateError != nil {
		return RawSource{}, locateError
	}
	if len(environmentFileName) == 0 {
		return RawSource{}, os.ErrNotExist
	}

	fileContent, readError := os.ReadFile(environmentPath)
	if readError != nil {
		return RawSource{}, fmt.Errorf(condaReadErrorTemplateConstant, environmentPath, readError)
	}

	var document condaEnvironmentDocument
	if unmarshalError := yaml.Unmarshal(fileContent, &document); unmarshalError != nil {
		return RawSource{}, ParseError{File: environmentFileName, Message: unmarshalError.Error()}
	}

	rawSource := RawSource{Format: manifest.SourceFormatConda}
	rawSource.Project.Name = document.Name

	for nodeIndex := range document.Dependencies {
		dependencyNode := document.Dependencies[nodeIndex]
		switch dependencyNode.Kind {
		case yaml.ScalarNode:
			reader.readCondaSpecifier(dependencyNode.Value, dependencyNode.Line, environmentFileName, &rawSource, recorder)
		case yaml.MappingNode:
			reader.readPipSublist(dependencyNode, environmentFileName, &rawSource, recorder)
		default:
			recorder.Warning(
				fmt.Sprintf(condaSkippedEntryTemplateConstant, dependencyNode.Value),
				report.EventSite{File: environmentFileName, Line: dependencyNode.Line},
			)
		}
	}

	return rawSource, nil
}

func (reader *CondaReader) locateEnvironmentFile(projectDirectory string) (string, string, error) {
	candidateFileNames := []string{condaEnvironmentFileNameConstant, condaEnvironmentAlternateFileNameConstant}
	for _, candidateFileName := range candidateFileNames {
		candidatePath := filepath.Join(projectDirectory, candidateFileName)
		fileInformation, statError := os.Stat(candidatePath)
		if statError != nil {
			if os.IsNotExist(statError) {
				continue
			}
			return "", "", statError
		}
		if !fileInformation.IsDir() {
			return candidatePath, candidateFileName, nil
		}
	}
	return "", "", nil
}

func (reader *CondaReader) readCondaSpecifier(
	specifierText string,
	lineNumber int,
	environmentFileName string,
	rawSource *RawSource,
	recorder *report.Recorder,
) {
	eventSite := report.EventSite{File: environmentFileName, Line: lineNumber}
	packageName, constraintText := parseCondaDependencyText(specifierText)
	if len(packageName) == 0 {
		recorder.Warning(fmt.Sprintf(condaSkippedEntryTemplateConstant, specifierText), eventSite)
		return
	}

	canonicalPackageName := manifest.CanonicalName(packageName)
	if canonicalPackageName == condaPythonPackageNameConstant {
		rawSource.Project.RequiresPython = relaxCondaPythonConstraint(constraintText)
		rawSource.Project.RequiresPythonDialect = ConstraintDialectStandard
		return
	}
	if condaInfrastructurePackages[canonicalPackageName] {
		recorder.Info(fmt.Sprintf(condaSkippedPackageTemplateConstant, packageName), eventSite)
		return
	}
	if mappedName, nameMapped := condaToPyPINameMap[canonicalPackageName]; nameMapped {
		recorder.Info(fmt.Sprintf(condaRenamedPackageTemplateConstant, packageName, mappedName), eventSite)
		packageName = mappedName
	}

	rawSource.Entries = append(rawSource.Entries, RawEntry{
		Name:           packageName,
		ConstraintText: constraintText,
		Dialect:        ConstraintDialectStandard,
		Source:         manifest.RegistrySource(),
		Group:          manifest.MainGroup(),
		File:           environmentFileName,
		Line:           lineNumber,
	})
}

func (reader *CondaReader) readPipSublist(
	mappingNode yaml.Node,
	environmentFileName string,
	rawSource *RawSource,
	recorder *report.Recorder,
) {
	for contentIndex := 0; contentIndex+1 < len(mappingNode.Content); contentIndex += 2 {
		keyNode := mappingNode.Content[contentIndex]
		valueNode := mappingNode.Content[contentIndex+1]
		if keyNode.Value != condaPipListKeyConstant || valueNode.Kind != yaml.SequenceNode {
			recorder.Warning(
				fmt.Sprintf(condaSkippedEntryTemplateConstant, keyNode.Value),
				report.EventSite{File: environmentFileName, Line: keyNode.Line},
			)
			continue
		}

		for _, requirementNode := range valueNode.Content {
			parsedLine, parseError := parseRequirementText(requirementNode.Value)
			if parseError != nil {
				recorder.Warning(
					parseError.Error(),
					report.EventSite{File: environmentFileName, Line: requirementNode.Line},
				)
				continue
			}
			rawSource.Entries = append(rawSource.Entries, RawEntry{
				Name:           parsedLine.name,
				ConstraintText: parsedLine.constraintText,
				Dialect:        ConstraintDialectStandard,
				Extras:         parsedLine.extras,
				Markers:        parsedLine.markers,
				Source:         parsedLine.source,
				Group:          manifest.MainGroup(),
				File:           environmentFileName,
				Line:           requirementNode.Line,
			})
		}
	}
}

// parseCondaDependencyText splits a conda match specification into a package
// name and an equivalent pip constraint expression. Channel prefixes and
// build strings are discarded.
func parseCondaDependencyText(specifierText string) (string, string) {
	trimmedText := strings.TrimSpace(specifierText)
	if separatorIndex := strings.LastIndex(trimmedText, condaChannelSeparatorConstant); separatorIndex >= 0 {
		trimmedText = trimmedText[separatorIndex+len(condaChannelSeparatorConstant):]
	}

	operatorIndex := strings.IndexAny(trimmedText, condaSpecifierOperatorCharactersConstant)
	if operatorIndex < 0 {
		return trimmedText, ""
	}
	if operatorIndex == 0 {
		return "", ""
	}

	packageName := strings.TrimSpace(trimmedText[:operatorIndex])
	specifierClauses := strings.Split(trimmedText[operatorIndex:], condaClauseSeparatorConstant)
	convertedClauses := make([]string, 0, len(specifierClauses))
	for _, specifierClause := range specifierClauses {
		convertedClause := convertCondaClause(strings.TrimSpace(specifierClause))
		if len(convertedClause) > 0 {
			convertedClauses = append(convertedClauses, convertedClause)
		}
	}
	return packageName, strings.Join(convertedClauses, condaClauseSeparatorConstant)
}

func convertCondaClause(clauseText string) string {
	if strings.HasPrefix(clauseText, condaExactOperatorConstant) {
		versionText := stripCondaBuildString(clauseText[len(condaExactOperatorConstant):])
		return exactCondaClause(versionText)
	}
	if strings.HasPrefix(clauseText, condaSingleEqualsOperatorConstant) {
		versionText := stripCondaBuildString(clauseText[len(condaSingleEqualsOperatorConstant):])
		return exactCondaClause(versionText)
	}
	return clauseText
}

func exactCondaClause(versionText string) string {
	if len(versionText) == 0 || versionText == condaWildcardSuffixConstant {
		return ""
	}
	if strings.HasSuffix(versionText, condaWildcardSuffixConstant) && !strings.HasSuffix(versionText, condaWildcardCanonicalSuffixConstant) {
		versionText = strings.TrimSuffix(versionText, condaWildcardSuffixConstant) + condaWildcardCanonicalSuffixConstant
	}
	return condaExactOperatorConstant + versionText
}

func stripCondaBuildString(versionText string) string {
	if buildSeparatorIndex := strings.Index(versionText, condaSingleEqualsOperatorConstant); buildSeparatorIndex >= 0 {
		return versionText[:buildSeparatorIndex]
	}
	return versionText
}

// relaxCondaPythonConstraint widens an exact interpreter pin into a minimum
// bound. Wildcard pins keep their prefix form.
func relaxCondaPythonConstraint(constraintText string) string {
	if strings.HasPrefix(constraintText, condaExactOperatorConstant) && !strings.HasSuffix(constraintText, condaWildcardCanonicalSuffixConstant) {
		return condaMinimumOperatorConstant + constraintText[len(condaExactOperatorConstant):]
	}
	return constraintText
}
