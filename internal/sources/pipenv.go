package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/report"
)

const (
	pipfileFileNameConstant               = "Pipfile"
	pipfilePackagesKeyConstant            = "packages"
	pipfileDevelopmentPackagesKeyConstant = "dev-packages"
	pipfileRequiresKeyConstant            = "requires"
	pipfileScriptsKeyConstant             = "scripts"
	pipfileSourceKeyConstant              = "source"
	pipfilePythonVersionKeyConstant       = "python_version"
	pipfilePythonFullVersionKeyConstant   = "python_full_version"
	pipfileVersionKeyConstant             = "version"
	pipfileExtrasKeyConstant              = "extras"
	pipfileMarkersKeyConstant             = "markers"
	pipfileGitKeyConstant                 = "git"
	pipfileReferenceKeyConstant           = "ref"
	pipfilePathKeyConstant                = "path"
	pipfileFileKeyConstant                = "file"
	pipfileEditableKeyConstant            = "editable"
	pipfileIndexKeyConstant               = "index"
	pipfileSourceNameKeyConstant          = "name"
	pipfileSourceURLKeyConstant           = "url"
	pipfileUnconstrainedValueConstant     = "*"
	pipfileMinimumVersionPrefixConstant   = ">="
	pipfileExactVersionPrefixConstant     = "=="
	pipfileMarkerConjunctionConstant      = " and "
	pipfileMarkerTemplateConstant         = "%s == '%s'"
	pypiSimpleIndexURLConstant            = "https://pypi.org/simple"
	pipfileReadErrorTemplateConstant      = "reading %s: %w"
	pipfileNamedIndexTemplateConstant     = "dependency %q names package index %q; the named index must be carried manually"
	pipfileSkippedValueTemplateConstant   = "skipped dependency %q: unsupported value"
)

// pipfileMarkerKeys lists dependency table keys pipenv treats as inline
// environment markers.
var pipfileMarkerKeys = []string{
	"sys_platform",
	"os_name",
	"platform_machine",
	"platform_system",
	"python_version",
	"implementation_name",
}

// PipenvReader reads Pipfile manifests.
type PipenvReader struct{}

// NewPipenvReader constructs a Pipfile reader.
func NewPipenvReader() *PipenvReader {
	return &PipenvReader{}
}

// Format names the pipenv format.
func (reader *PipenvReader) Format() manifest.SourceFormat {
	return manifest.SourceFormatPipenv
}

// Detect reports whether the directory contains a Pipfile.
func (reader *PipenvReader) Detect(projectDirectory string) (bool, error) {
	fileInformation, statError := os.Stat(filepath.Join(projectDirectory, pipfileFileNameConstant))
	if statError != nil {
		if os.IsNotExist(statError) {
			return false, nil
		}
		return false, statError
	}
	return !fileInformation.IsDir(), nil
}

// Read extracts packages, development packages, the python requirement,
// scripts, and custom index definitions from a Pipfile.
func (reader *PipenvReader) Read(projectDirectory string, recorder *report.Recorder) (RawSource, error) {
	pipfilePath := filepath.Join(projectDirectory, pipfileFileNameConstant)
	fileContent, readError := os.ReadFile(pipfilePath)
	if readError != nil {
		return RawSource{}, fmt.Errorf(pipfileReadErrorTemplateConstant, pipfilePath, readError)
	}

	var rootTable map[string]any
	if unmarshalError := toml.Unmarshal(fileContent, &rootTable); unmarshalError != nil {
		return RawSource{}, ParseError{File: pipfileFileNameConstant, Message: unmarshalError.Error()}
	}

	rawSource := RawSource{Format: manifest.SourceFormatPipenv}

	if packagesTable, packagesFound := tableAt(rootTable, pipfilePackagesKeyConstant); packagesFound {
		reader.readPackageTable(packagesTable, manifest.MainGroup(), &rawSource, recorder)
	}
	if developmentTable, developmentFound := tableAt(rootTable, pipfileDevelopmentPackagesKeyConstant); developmentFound {
		reader.readPackageTable(developmentTable, manifest.DevelopmentGroup(), &rawSource, recorder)
	}

	reader.readRequiresTable(rootTable, &rawSource)
	reader.readScriptsTable(rootTable, &rawSource)
	reader.readSourceBlocks(rootTable, &rawSource)

	return rawSource, nil
}

func (reader *PipenvReader) readPackageTable(
	packagesTable map[string]any,
	groupLabel manifest.GroupLabel,
	rawSource *RawSource,
	recorder *report.Recorder,
) {
	for _, packageName := range sortedKeys(packagesTable) {
		entry, entryUsable := reader.packageEntry(packageName, packagesTable[packageName], groupLabel, recorder)
		if entryUsable {
			rawSource.Entries = append(rawSource.Entries, entry)
		}
	}
}

func (reader *PipenvReader) packageEntry(
	packageName string,
	packageValue any,
	groupLabel manifest.GroupLabel,
	recorder *report.Recorder,
) (RawEntry, bool) {
	eventSite := report.EventSite{File: pipfileFileNameConstant}
	entry := RawEntry{
		Name:    packageName,
		Dialect: ConstraintDialectStandard,
		Source:  manifest.RegistrySource(),
		Group:   groupLabel,
		File:    pipfileFileNameConstant,
	}

	switch typedValue := packageValue.(type) {
	case string:
		if typedValue != pipfileUnconstrainedValueConstant {
			entry.ConstraintText = typedValue
		}
		return entry, true
	case map[string]any:
		if versionText, versionFound := stringAt(typedValue, pipfileVersionKeyConstant); versionFound && versionText != pipfileUnconstrainedValueConstant {
			entry.ConstraintText = versionText
		}
		entry.Markers, _ = stringAt(typedValue, pipfileMarkersKeyConstant)
		if extraValues, extrasFound := typedValue[pipfileExtrasKeyConstant].([]any); extrasFound {
			for _, extraValue := range extraValues {
				if extraText, isString := extraValue.(string); isString {
					entry.Extras = append(entry.Extras, extraText)
				}
			}
		}

		for _, markerKey := range pipfileMarkerKeys {
			markerValue, markerFound := stringAt(typedValue, markerKey)
			if !markerFound {
				continue
			}
			markerClause := fmt.Sprintf(pipfileMarkerTemplateConstant, markerKey, markerValue)
			if len(entry.Markers) > 0 {
				entry.Markers = entry.Markers + pipfileMarkerConjunctionConstant + markerClause
			} else {
				entry.Markers = markerClause
			}
		}

		editableFlag, _ := typedValue[pipfileEditableKeyConstant].(bool)
		if gitURL, gitFound := stringAt(typedValue, pipfileGitKeyConstant); gitFound {
			reference, _ := stringAt(typedValue, pipfileReferenceKeyConstant)
			entry.Source = manifest.VCSSource(gitURL, reference)
			entry.Source.Editable = editableFlag
			entry.ConstraintText = ""
		} else if localPath, pathFound := stringAt(typedValue, pipfilePathKeyConstant); pathFound {
			entry.Source = manifest.PathSource(localPath, editableFlag)
			entry.ConstraintText = ""
		} else if archiveURL, fileFound := stringAt(typedValue, pipfileFileKeyConstant); fileFound {
			entry.Source = manifest.URLSource(archiveURL)
			entry.ConstraintText = ""
		}

		if namedIndex, indexFound := stringAt(typedValue, pipfileIndexKeyConstant); indexFound {
			recorder.Warning(fmt.Sprintf(pipfileNamedIndexTemplateConstant, packageName, namedIndex), eventSite)
		}

		return entry, true
	default:
		recorder.Warning(fmt.Sprintf(pipfileSkippedValueTemplateConstant, packageName), eventSite)
		return RawEntry{}, false
	}
}

func (reader *PipenvReader) readRequiresTable(rootTable map[string]any, rawSource *RawSource) {
	requiresTable, requiresFound := tableAt(rootTable, pipfileRequiresKeyConstant)
	if !requiresFound {
		return
	}

	if fullVersion, fullFound := stringAt(requiresTable, pipfilePythonFullVersionKeyConstant); fullFound {
		rawSource.Project.RequiresPython = pipfileExactVersionPrefixConstant + fullVersion
		rawSource.Project.RequiresPythonDialect = ConstraintDialectStandard
		return
	}
	if majorMinorVersion, versionFound := stringAt(requiresTable, pipfilePythonVersionKeyConstant); versionFound {
		rawSource.Project.RequiresPython = pipfileMinimumVersionPrefixConstant + majorMinorVersion
		rawSource.Project.RequiresPythonDialect = ConstraintDialectStandard
	}
}

func (reader *PipenvReader) readScriptsTable(rootTable map[string]any, rawSource *RawSource) {
	scriptsTable, scriptsFound := tableAt(rootTable, pipfileScriptsKeyConstant)
	if !scriptsFound {
		return
	}
	for _, scriptName := range sortedKeys(scriptsTable) {
		scriptCommand, isString := scriptsTable[scriptName].(string)
		if !isString {
			continue
		}
		if rawSource.Project.Scripts == nil {
			rawSource.Project.Scripts = make(map[string]string)
		}
		rawSource.Project.Scripts[scriptName] = scriptCommand
	}
}

func (reader *PipenvReader) readSourceBlocks(rootTable map[string]any, rawSource *RawSource) {
	sourceValues, sourcesFound := rootTable[pipfileSourceKeyConstant].([]any)
	if !sourcesFound {
		return
	}

	for _, sourceValue := range sourceValues {
		sourceTable, isTable := sourceValue.(map[string]any)
		if !isTable {
			continue
		}
		indexURL, urlFound := stringAt(sourceTable, pipfileSourceURLKeyConstant)
		if !urlFound || strings.TrimSuffix(indexURL, "/") == pypiSimpleIndexURLConstant {
			continue
		}
		indexDefinition := manifest.IndexDefinition{URL: indexURL}
		indexDefinition.Name, _ = stringAt(sourceTable, pipfileSourceNameKeyConstant)
		rawSource.Project.Indexes = append(rawSource.Project.Indexes, indexDefinition)
	}
}
