package sources

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
)

const (
	pipConfigurationFileNameConstant         = "pip.conf"
	pipConfigurationWindowsFileNameConstant  = "pip.ini"
	pipConfigurationUserDirectoryConstant    = ".config/pip"
	pipConfigurationLegacyDirectoryConstant  = ".pip"
	pipConfigurationGlobalSectionConstant    = "global"
	pipConfigurationInstallSectionConstant   = "install"
	pipConfigurationIndexURLKeyConstant      = "index-url"
	pipConfigurationExtraIndexURLKeyConstant = "extra-index-url"
)

// LocatePipConfiguration finds the pip configuration file that applies to the
// project directory. The project copy wins over the per-user files.
func LocatePipConfiguration(projectDirectory string) (string, bool) {
	candidatePaths := []string{
		filepath.Join(projectDirectory, pipConfigurationFileNameConstant),
		filepath.Join(projectDirectory, pipConfigurationWindowsFileNameConstant),
	}
	if homeDirectory, homeError := os.UserHomeDir(); homeError == nil {
		candidatePaths = append(candidatePaths,
			filepath.Join(homeDirectory, pipConfigurationUserDirectoryConstant, pipConfigurationFileNameConstant),
			filepath.Join(homeDirectory, pipConfigurationLegacyDirectoryConstant, pipConfigurationFileNameConstant),
		)
	}

	for _, candidatePath := range candidatePaths {
		fileInformation, statError := os.Stat(candidatePath)
		if statError == nil && !fileInformation.IsDir() {
			return candidatePath, true
		}
	}
	return "", false
}

// ReadPipConfiguration extracts index definitions from a pip configuration
// file. The default PyPI index produces no definition.
func ReadPipConfiguration(configurationPath string) ([]manifest.IndexDefinition, error) {
	configurationFile, loadError := ini.Load(configurationPath)
	if loadError != nil {
		return nil, ParseError{File: filepath.Base(configurationPath), Message: loadError.Error()}
	}

	var indexDefinitions []manifest.IndexDefinition
	sectionNames := []string{pipConfigurationGlobalSectionConstant, pipConfigurationInstallSectionConstant}

	for _, sectionName := range sectionNames {
		configurationSection := configurationFile.Section(sectionName)

		primaryIndexURL := strings.TrimSpace(configurationSection.Key(pipConfigurationIndexURLKeyConstant).String())
		if len(primaryIndexURL) > 0 && !isDefaultPyPIIndexURL(primaryIndexURL) {
			indexDefinitions = append(indexDefinitions, manifest.IndexDefinition{
				Name:    indexNameFromURL(primaryIndexURL),
				URL:     primaryIndexURL,
				Default: true,
			})
		}

		extraIndexValue := configurationSection.Key(pipConfigurationExtraIndexURLKeyConstant).String()
		for _, extraIndexURL := range strings.Fields(extraIndexValue) {
			if isDefaultPyPIIndexURL(extraIndexURL) {
				continue
			}
			indexDefinitions = append(indexDefinitions, manifest.IndexDefinition{
				Name: indexNameFromURL(extraIndexURL),
				URL:  extraIndexURL,
			})
		}
	}
	return dedupeIndexDefinitions(indexDefinitions), nil
}

// IndexDefinitionForURL builds an index definition for an explicitly
// requested index URL, naming it after the URL host.
func IndexDefinitionForURL(indexURL string) manifest.IndexDefinition {
	return manifest.IndexDefinition{Name: indexNameFromURL(indexURL), URL: indexURL}
}

func isDefaultPyPIIndexURL(indexURL string) bool {
	return strings.TrimSuffix(indexURL, "/") == pypiSimpleIndexURLConstant
}

// indexNameFromURL derives a stable index name from the URL host.
func indexNameFromURL(indexURL string) string {
	parsedURL, parseError := url.Parse(indexURL)
	if parseError != nil || len(parsedURL.Hostname()) == 0 {
		return indexURL
	}
	return parsedURL.Hostname()
}

func dedupeIndexDefinitions(indexDefinitions []manifest.IndexDefinition) []manifest.IndexDefinition {
	seenURLs := make(map[string]bool, len(indexDefinitions))
	deduped := indexDefinitions[:0]
	for _, indexDefinition := range indexDefinitions {
		if seenURLs[indexDefinition.URL] {
			continue
		}
		seenURLs[indexDefinition.URL] = true
		deduped = append(deduped, indexDefinition)
	}
	if len(deduped) == 0 {
		return nil
	}
	return deduped
}
