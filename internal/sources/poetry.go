package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/report"
)

const (
	pyprojectFileNameConstant                  = "pyproject.toml"
	pyprojectToolKeyConstant                   = "tool"
	pyprojectPoetryKeyConstant                 = "poetry"
	pyprojectUVKeyConstant                     = "uv"
	pyprojectProjectKeyConstant                = "project"
	pyprojectBuildSystemKeyConstant            = "build-system"
	pyprojectDependencyGroupsKeyConstant       = "dependency-groups"
	pyprojectNameKeyConstant                   = "name"
	pyprojectVersionKeyConstant                = "version"
	pyprojectDescriptionKeyConstant            = "description"
	pyprojectAuthorsKeyConstant                = "authors"
	pyprojectEmailKeyConstant                  = "email"
	pyprojectRequiresPythonKeyConstant         = "requires-python"
	pyprojectDependenciesKeyConstant           = "dependencies"
	pyprojectOptionalDependenciesKeyConstant   = "optional-dependencies"
	pyprojectScriptsKeyConstant                = "scripts"
	pyprojectURLsKeyConstant                   = "urls"
	poetryDevDependenciesKeyConstant           = "dev-dependencies"
	poetryGroupKeyConstant                     = "group"
	poetrySourceKeyConstant                    = "source"
	poetryPythonDependencyNameConstant         = "python"
	poetryHomepageKeyConstant                  = "homepage"
	poetryRepositoryKeyConstant                = "repository"
	poetryDocumentationKeyConstant             = "documentation"
	poetryDependencyVersionKeyConstant         = "version"
	poetryDependencyExtrasKeyConstant          = "extras"
	poetryDependencyMarkersKeyConstant         = "markers"
	poetryDependencyGitKeyConstant             = "git"
	poetryDependencyRevisionKeyConstant        = "rev"
	poetryDependencyBranchKeyConstant          = "branch"
	poetryDependencyTagKeyConstant             = "tag"
	poetryDependencyPathKeyConstant            = "path"
	poetryDependencyDevelopKeyConstant         = "develop"
	poetryDependencyURLKeyConstant             = "url"
	poetryDependencyOptionalKeyConstant        = "optional"
	poetryDependencySourceKeyConstant          = "source"
	poetrySourcePriorityKeyConstant            = "priority"
	poetrySourcePriorityDefaultConstant        = "default"
	poetrySourceDefaultKeyConstant             = "default"
	uvSourcesKeyConstant                       = "sources"
	uvIndexKeyConstant                         = "index"
	uvIndexDefaultKeyConstant                  = "default"
	uvSourceGitKeyConstant                     = "git"
	uvSourceRevisionKeyConstant                = "rev"
	uvSourceBranchKeyConstant                  = "branch"
	uvSourceTagKeyConstant                     = "tag"
	uvSourceURLKeyConstant                     = "url"
	uvSourcePathKeyConstant                    = "path"
	uvSourceEditableKeyConstant                = "editable"
	dependencyGroupIncludeKeyConstant          = "include-group"
	developmentGroupNameConstant               = "dev"
	testGroupNameConstant                      = "test"
	authorEmailOpenConstant                    = "<"
	authorEmailCloseConstant                   = ">"
	pyprojectReadErrorTemplateConstant         = "reading %s: %w"
	skippedOptionalDependencyTemplateConstant  = "skipped optional dependency %q; extras are not migrated"
	skippedOptionalDependenciesTableConstant   = "skipped [project.optional-dependencies]; extras are not migrated"
	skippedIncludeGroupTemplateConstant        = "skipped include-group reference in group %q"
	skippedMultipleConstraintsTemplateConstant = "skipped dependency %q: multiple constraint tables are not supported"
	skippedNamedSourceTemplateConstant         = "dependency %q names package source %q; the named index must be carried manually"
	skippedDependencyValueTemplateConstant     = "skipped dependency %q: unsupported value"
)

// PoetryReader reads pyproject.toml files containing Poetry metadata, PEP 621
// project tables, or PEP 735 dependency groups.
type PoetryReader struct{}

// NewPoetryReader constructs a pyproject reader.
func NewPoetryReader() *PoetryReader {
	return &PoetryReader{}
}

// Format names the poetry format.
func (reader *PoetryReader) Format() manifest.SourceFormat {
	return manifest.SourceFormatPoetry
}

// Detect reports whether the directory carries a readable pyproject.toml
// with any recognized metadata table.
func (reader *PoetryReader) Detect(projectDirectory string) (bool, error) {
	pyprojectPath := filepath.Join(projectDirectory, pyprojectFileNameConstant)
	fileContent, readError := os.ReadFile(pyprojectPath)
	if readError != nil {
		if os.IsNotExist(readError) {
			return false, nil
		}
		return false, readError
	}

	var rootTable map[string]any
	if unmarshalError := toml.Unmarshal(fileContent, &rootTable); unmarshalError != nil {
		return true, nil
	}

	if _, poetryFound := tableAt(rootTable, pyprojectToolKeyConstant, pyprojectPoetryKeyConstant); poetryFound {
		return true, nil
	}
	if _, projectFound := tableAt(rootTable, pyprojectProjectKeyConstant); projectFound {
		return true, nil
	}
	if _, groupsFound := tableAt(rootTable, pyprojectDependencyGroupsKeyConstant); groupsFound {
		return true, nil
	}
	return false, nil
}

// Read extracts project metadata, dependencies, groups, index definitions,
// and passthrough tables from pyproject.toml.
func (reader *PoetryReader) Read(projectDirectory string, recorder *report.Recorder) (RawSource, error) {
	pyprojectPath := filepath.Join(projectDirectory, pyprojectFileNameConstant)
	fileContent, readError := os.ReadFile(pyprojectPath)
	if readError != nil {
		return RawSource{}, fmt.Errorf(pyprojectReadErrorTemplateConstant, pyprojectPath, readError)
	}

	var rootTable map[string]any
	if unmarshalError := toml.Unmarshal(fileContent, &rootTable); unmarshalError != nil {
		return RawSource{}, ParseError{File: pyprojectFileNameConstant, Message: unmarshalError.Error()}
	}

	rawSource := RawSource{Format: manifest.SourceFormatPoetry}

	uvSourceBindings := reader.readUVTable(rootTable, &rawSource)
	reader.readProjectTable(rootTable, &rawSource, uvSourceBindings, recorder)
	reader.readPoetryTable(rootTable, &rawSource, recorder)
	reader.readDependencyGroupsTable(rootTable, &rawSource, recorder)
	reader.collectPassthroughSections(rootTable, &rawSource)

	if _, buildSystemFound := tableAt(rootTable, pyprojectBuildSystemKeyConstant); buildSystemFound {
		rawSource.Project.Packaged = true
	}

	return rawSource, nil
}

func (reader *PoetryReader) readProjectTable(
	rootTable map[string]any,
	rawSource *RawSource,
	uvSourceBindings map[string]manifest.DependencySource,
	recorder *report.Recorder,
) {
	projectTable, projectFound := tableAt(rootTable, pyprojectProjectKeyConstant)
	if !projectFound {
		return
	}

	rawSource.Project.Name, _ = stringAt(projectTable, pyprojectNameKeyConstant)
	rawSource.Project.Version, _ = stringAt(projectTable, pyprojectVersionKeyConstant)
	rawSource.Project.Description, _ = stringAt(projectTable, pyprojectDescriptionKeyConstant)
	if requiresPython, requiresFound := stringAt(projectTable, pyprojectRequiresPythonKeyConstant); requiresFound {
		rawSource.Project.RequiresPython = requiresPython
		rawSource.Project.RequiresPythonDialect = ConstraintDialectStandard
	}

	if authorValues, authorsFound := projectTable[pyprojectAuthorsKeyConstant].([]any); authorsFound {
		for _, authorValue := range authorValues {
			authorTable, isTable := authorValue.(map[string]any)
			if !isTable {
				continue
			}
			author := manifest.Author{}
			author.Name, _ = stringAt(authorTable, pyprojectNameKeyConstant)
			author.Email, _ = stringAt(authorTable, pyprojectEmailKeyConstant)
			if len(author.Name) > 0 || len(author.Email) > 0 {
				rawSource.Project.Authors = append(rawSource.Project.Authors, author)
			}
		}
	}

	reader.readStringTableInto(projectTable, pyprojectScriptsKeyConstant, &rawSource.Project.Scripts)
	reader.readStringTableInto(projectTable, pyprojectURLsKeyConstant, &rawSource.Project.URLs)

	if dependencyValues, dependenciesFound := projectTable[pyprojectDependenciesKeyConstant].([]any); dependenciesFound {
		for _, dependencyValue := range dependencyValues {
			requirementText, isString := dependencyValue.(string)
			if !isString {
				continue
			}
			parsedLine, parseError := parseRequirementText(requirementText)
			if parseError != nil {
				recorder.Warning(parseError.Error(), report.EventSite{File: pyprojectFileNameConstant})
				continue
			}

			entrySource := parsedLine.source
			if boundSource, bindingFound := uvSourceBindings[manifest.CanonicalName(parsedLine.name)]; bindingFound {
				entrySource = boundSource
			}

			rawSource.Entries = append(rawSource.Entries, RawEntry{
				Name:           parsedLine.name,
				ConstraintText: parsedLine.constraintText,
				Dialect:        ConstraintDialectStandard,
				Extras:         parsedLine.extras,
				Markers:        parsedLine.markers,
				Source:         entrySource,
				Group:          manifest.MainGroup(),
				File:           pyprojectFileNameConstant,
			})
		}
	}

	if _, optionalFound := tableAt(projectTable, pyprojectOptionalDependenciesKeyConstant); optionalFound {
		recorder.Info(skippedOptionalDependenciesTableConstant, report.EventSite{File: pyprojectFileNameConstant})
	}
}

func (reader *PoetryReader) readPoetryTable(rootTable map[string]any, rawSource *RawSource, recorder *report.Recorder) {
	poetryTable, poetryFound := tableAt(rootTable, pyprojectToolKeyConstant, pyprojectPoetryKeyConstant)
	if !poetryFound {
		return
	}
	rawSource.Project.Packaged = true

	if len(rawSource.Project.Name) == 0 {
		rawSource.Project.Name, _ = stringAt(poetryTable, pyprojectNameKeyConstant)
	}
	if len(rawSource.Project.Version) == 0 {
		rawSource.Project.Version, _ = stringAt(poetryTable, pyprojectVersionKeyConstant)
	}
	if len(rawSource.Project.Description) == 0 {
		rawSource.Project.Description, _ = stringAt(poetryTable, pyprojectDescriptionKeyConstant)
	}
	if authorValues, authorsFound := poetryTable[pyprojectAuthorsKeyConstant].([]any); authorsFound && len(rawSource.Project.Authors) == 0 {
		for _, authorValue := range authorValues {
			authorText, isString := authorValue.(string)
			if !isString {
				continue
			}
			rawSource.Project.Authors = append(rawSource.Project.Authors, parseAuthorText(authorText))
		}
	}

	reader.readStringTableInto(poetryTable, pyprojectScriptsKeyConstant, &rawSource.Project.Scripts)
	reader.readPoetryURLs(poetryTable, rawSource)
	reader.readPoetrySources(poetryTable, rawSource)

	if dependenciesTable, dependenciesFound := tableAt(poetryTable, pyprojectDependenciesKeyConstant); dependenciesFound {
		reader.readPoetryDependencyTable(dependenciesTable, manifest.MainGroup(), rawSource, recorder)
	}
	if legacyDevTable, legacyDevFound := tableAt(poetryTable, poetryDevDependenciesKeyConstant); legacyDevFound {
		reader.readPoetryDependencyTable(legacyDevTable, manifest.DevelopmentGroup(), rawSource, recorder)
	}

	if groupsTable, groupsFound := tableAt(poetryTable, poetryGroupKeyConstant); groupsFound {
		for _, groupName := range sortedKeys(groupsTable) {
			groupTable, isTable := tableAt(groupsTable, groupName)
			if !isTable {
				continue
			}
			groupDependencies, dependenciesFound := tableAt(groupTable, pyprojectDependenciesKeyConstant)
			if !dependenciesFound {
				continue
			}
			reader.readPoetryDependencyTable(groupDependencies, classifyPoetryGroup(groupName), rawSource, recorder)
		}
	}
}

func (reader *PoetryReader) readPoetryDependencyTable(
	dependenciesTable map[string]any,
	groupLabel manifest.GroupLabel,
	rawSource *RawSource,
	recorder *report.Recorder,
) {
	for _, dependencyName := range sortedKeys(dependenciesTable) {
		dependencyValue := dependenciesTable[dependencyName]

		if manifest.CanonicalName(dependencyName) == poetryPythonDependencyNameConstant {
			if requiresPython, isString := dependencyValue.(string); isString {
				rawSource.Project.RequiresPython = requiresPython
				rawSource.Project.RequiresPythonDialect = ConstraintDialectPoetry
			}
			continue
		}

		entry, entryUsable := reader.poetryDependencyEntry(dependencyName, dependencyValue, groupLabel, recorder)
		if entryUsable {
			rawSource.Entries = append(rawSource.Entries, entry)
		}
	}
}

func (reader *PoetryReader) poetryDependencyEntry(
	dependencyName string,
	dependencyValue any,
	groupLabel manifest.GroupLabel,
	recorder *report.Recorder,
) (RawEntry, bool) {
	eventSite := report.EventSite{File: pyprojectFileNameConstant}
	entry := RawEntry{
		Name:    dependencyName,
		Dialect: ConstraintDialectPoetry,
		Source:  manifest.RegistrySource(),
		Group:   groupLabel,
		File:    pyprojectFileNameConstant,
	}

	switch typedValue := dependencyValue.(type) {
	case string:
		entry.ConstraintText = typedValue
		return entry, true
	case map[string]any:
		if optionalValue, optionalFound := typedValue[poetryDependencyOptionalKeyConstant].(bool); optionalFound && optionalValue {
			recorder.Info(fmt.Sprintf(skippedOptionalDependencyTemplateConstant, dependencyName), eventSite)
			return RawEntry{}, false
		}

		entry.ConstraintText, _ = stringAt(typedValue, poetryDependencyVersionKeyConstant)
		entry.Markers, _ = stringAt(typedValue, poetryDependencyMarkersKeyConstant)
		if extraValues, extrasFound := typedValue[poetryDependencyExtrasKeyConstant].([]any); extrasFound {
			for _, extraValue := range extraValues {
				if extraText, isString := extraValue.(string); isString {
					entry.Extras = append(entry.Extras, extraText)
				}
			}
		}

		if gitURL, gitFound := stringAt(typedValue, poetryDependencyGitKeyConstant); gitFound {
			reference, _ := stringAt(typedValue, poetryDependencyRevisionKeyConstant)
			if len(reference) == 0 {
				reference, _ = stringAt(typedValue, poetryDependencyTagKeyConstant)
			}
			if len(reference) == 0 {
				reference, _ = stringAt(typedValue, poetryDependencyBranchKeyConstant)
			}
			entry.Source = manifest.VCSSource(gitURL, reference)
			entry.ConstraintText = ""
		} else if localPath, pathFound := stringAt(typedValue, poetryDependencyPathKeyConstant); pathFound {
			developFlag, _ := typedValue[poetryDependencyDevelopKeyConstant].(bool)
			entry.Source = manifest.PathSource(localPath, developFlag)
			entry.ConstraintText = ""
		} else if archiveURL, urlFound := stringAt(typedValue, poetryDependencyURLKeyConstant); urlFound {
			entry.Source = manifest.URLSource(archiveURL)
			entry.ConstraintText = ""
		}

		if namedSource, sourceFound := stringAt(typedValue, poetryDependencySourceKeyConstant); sourceFound {
			recorder.Warning(fmt.Sprintf(skippedNamedSourceTemplateConstant, dependencyName, namedSource), eventSite)
		}

		return entry, true
	case []any:
		recorder.Warning(fmt.Sprintf(skippedMultipleConstraintsTemplateConstant, dependencyName), eventSite)
		return RawEntry{}, false
	default:
		recorder.Warning(fmt.Sprintf(skippedDependencyValueTemplateConstant, dependencyName), eventSite)
		return RawEntry{}, false
	}
}

func (reader *PoetryReader) readPoetryURLs(poetryTable map[string]any, rawSource *RawSource) {
	urlKeys := []string{poetryHomepageKeyConstant, poetryRepositoryKeyConstant, poetryDocumentationKeyConstant}
	for _, urlKey := range urlKeys {
		urlValue, urlFound := stringAt(poetryTable, urlKey)
		if !urlFound {
			continue
		}
		if rawSource.Project.URLs == nil {
			rawSource.Project.URLs = make(map[string]string)
		}
		if _, alreadySet := rawSource.Project.URLs[urlKey]; !alreadySet {
			rawSource.Project.URLs[urlKey] = urlValue
		}
	}
}

func (reader *PoetryReader) readPoetrySources(poetryTable map[string]any, rawSource *RawSource) {
	sourceValues, sourcesFound := poetryTable[poetrySourceKeyConstant].([]any)
	if !sourcesFound {
		return
	}

	for _, sourceValue := range sourceValues {
		sourceTable, isTable := sourceValue.(map[string]any)
		if !isTable {
			continue
		}
		indexDefinition := manifest.IndexDefinition{}
		indexDefinition.Name, _ = stringAt(sourceTable, pyprojectNameKeyConstant)
		indexDefinition.URL, _ = stringAt(sourceTable, poetryDependencyURLKeyConstant)
		if priorityValue, priorityFound := stringAt(sourceTable, poetrySourcePriorityKeyConstant); priorityFound {
			indexDefinition.Default = priorityValue == poetrySourcePriorityDefaultConstant
		}
		if defaultValue, defaultFound := sourceTable[poetrySourceDefaultKeyConstant].(bool); defaultFound {
			indexDefinition.Default = defaultValue
		}
		if len(indexDefinition.URL) > 0 {
			rawSource.Project.Indexes = append(rawSource.Project.Indexes, indexDefinition)
		}
	}
}

func (reader *PoetryReader) readDependencyGroupsTable(rootTable map[string]any, rawSource *RawSource, recorder *report.Recorder) {
	groupsTable, groupsFound := tableAt(rootTable, pyprojectDependencyGroupsKeyConstant)
	if !groupsFound {
		return
	}

	for _, groupName := range sortedKeys(groupsTable) {
		groupValues, isList := groupsTable[groupName].([]any)
		if !isList {
			continue
		}
		groupLabel := classifyPoetryGroup(groupName)

		for _, groupValue := range groupValues {
			switch typedValue := groupValue.(type) {
			case string:
				parsedLine, parseError := parseRequirementText(typedValue)
				if parseError != nil {
					recorder.Warning(parseError.Error(), report.EventSite{File: pyprojectFileNameConstant})
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
					File:           pyprojectFileNameConstant,
				})
			case map[string]any:
				if _, includeFound := typedValue[dependencyGroupIncludeKeyConstant]; includeFound {
					recorder.Info(fmt.Sprintf(skippedIncludeGroupTemplateConstant, groupName), report.EventSite{File: pyprojectFileNameConstant})
				}
			}
		}
	}
}

func (reader *PoetryReader) readUVTable(rootTable map[string]any, rawSource *RawSource) map[string]manifest.DependencySource {
	uvTable, uvFound := tableAt(rootTable, pyprojectToolKeyConstant, pyprojectUVKeyConstant)
	if !uvFound {
		return nil
	}

	sourceBindings := make(map[string]manifest.DependencySource)
	if sourcesTable, sourcesFound := tableAt(uvTable, uvSourcesKeyConstant); sourcesFound {
		for _, packageName := range sortedKeys(sourcesTable) {
			sourceTable, isTable := tableAt(sourcesTable, packageName)
			if !isTable {
				continue
			}
			if gitURL, gitFound := stringAt(sourceTable, uvSourceGitKeyConstant); gitFound {
				reference, _ := stringAt(sourceTable, uvSourceRevisionKeyConstant)
				if len(reference) == 0 {
					reference, _ = stringAt(sourceTable, uvSourceTagKeyConstant)
				}
				if len(reference) == 0 {
					reference, _ = stringAt(sourceTable, uvSourceBranchKeyConstant)
				}
				sourceBindings[manifest.CanonicalName(packageName)] = manifest.VCSSource(gitURL, reference)
				continue
			}
			if localPath, pathFound := stringAt(sourceTable, uvSourcePathKeyConstant); pathFound {
				editableFlag, _ := sourceTable[uvSourceEditableKeyConstant].(bool)
				sourceBindings[manifest.CanonicalName(packageName)] = manifest.PathSource(localPath, editableFlag)
				continue
			}
			if archiveURL, urlFound := stringAt(sourceTable, uvSourceURLKeyConstant); urlFound {
				sourceBindings[manifest.CanonicalName(packageName)] = manifest.URLSource(archiveURL)
			}
		}
	}

	if indexValues, indexesFound := uvTable[uvIndexKeyConstant].([]any); indexesFound {
		for _, indexValue := range indexValues {
			indexTable, isTable := indexValue.(map[string]any)
			if !isTable {
				continue
			}
			indexDefinition := manifest.IndexDefinition{}
			indexDefinition.Name, _ = stringAt(indexTable, pyprojectNameKeyConstant)
			indexDefinition.URL, _ = stringAt(indexTable, poetryDependencyURLKeyConstant)
			indexDefinition.Default, _ = indexTable[uvIndexDefaultKeyConstant].(bool)
			if len(indexDefinition.URL) > 0 {
				rawSource.Project.Indexes = append(rawSource.Project.Indexes, indexDefinition)
			}
		}
	}

	return sourceBindings
}

func (reader *PoetryReader) collectPassthroughSections(rootTable map[string]any, rawSource *RawSource) {
	recognizedTopLevelKeys := map[string]bool{
		pyprojectProjectKeyConstant:          true,
		pyprojectToolKeyConstant:             true,
		pyprojectBuildSystemKeyConstant:      true,
		pyprojectDependencyGroupsKeyConstant: true,
	}

	for _, topLevelKey := range sortedKeys(rootTable) {
		if recognizedTopLevelKeys[topLevelKey] {
			continue
		}
		rawSource.Passthrough = append(rawSource.Passthrough, manifest.PassthroughSection{
			Path:    []string{topLevelKey},
			Content: rootTable[topLevelKey],
		})
	}

	toolTable, toolFound := tableAt(rootTable, pyprojectToolKeyConstant)
	if !toolFound {
		return
	}
	for _, toolKey := range sortedKeys(toolTable) {
		if toolKey == pyprojectPoetryKeyConstant || toolKey == pyprojectUVKeyConstant {
			continue
		}
		rawSource.Passthrough = append(rawSource.Passthrough, manifest.PassthroughSection{
			Path:    []string{pyprojectToolKeyConstant, toolKey},
			Content: toolTable[toolKey],
		})
	}
}

func (reader *PoetryReader) readStringTableInto(parentTable map[string]any, tableKey string, target *map[string]string) {
	valueTable, tableFound := tableAt(parentTable, tableKey)
	if !tableFound {
		return
	}
	for _, entryKey := range sortedKeys(valueTable) {
		entryValue, isString := valueTable[entryKey].(string)
		if !isString {
			continue
		}
		if *target == nil {
			*target = make(map[string]string)
		}
		if _, alreadySet := (*target)[entryKey]; !alreadySet {
			(*target)[entryKey] = entryValue
		}
	}
}

func classifyPoetryGroup(groupName string) manifest.GroupLabel {
	switch manifest.CanonicalGroupName(groupName) {
	case developmentGroupNameConstant, testGroupNameConstant:
		return manifest.DevelopmentGroup()
	default:
		return manifest.NamedGroup(groupName)
	}
}

func parseAuthorText(authorText string) manifest.Author {
	openIndex := strings.Index(authorText, authorEmailOpenConstant)
	if openIndex < 0 {
		return manifest.Author{Name: strings.TrimSpace(authorText)}
	}

	authorName := strings.TrimSpace(authorText[:openIndex])
	authorEmail := strings.TrimSpace(authorText[openIndex+1:])
	authorEmail = strings.TrimSuffix(authorEmail, authorEmailCloseConstant)
	return manifest.Author{Name: authorName, Email: authorEmail}
}

func tableAt(parentTable map[string]any, keyPath ...string) (map[string]any, bool) {
	currentTable := parentTable
	for _, key := range keyPath {
		childValue, childFound := currentTable[key]
		if !childFound {
			return nil, false
		}
		childTable, isTable := childValue.(map[string]any)
		if !isTable {
			return nil, false
		}
		currentTable = childTable
	}
	return currentTable, true
}

func stringAt(parentTable map[string]any, key string) (string, bool) {
	stringValue, isString := parentTable[key].(string)
	return stringValue, isString
}

func sortedKeys(table map[string]any) []string {
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
