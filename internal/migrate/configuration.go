package migrate

import (
	"strings"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
)

const (
	sourcePriorityFieldNameConstant = "source_priority"

	configurationKeySeparatorConstant           = "."
	outputConfigurationKeyConstant              = "output"
	backupConfigurationKeyConstant              = "backup"
	mergeGroupsConfigurationKeyConstant         = "merge_groups"
	sourcePriorityConfigurationKeyConstant      = "source_priority"
	importGlobalPipConfConfigurationKeyConstant = "import_global_pip_conf"
)

// CommandConfiguration captures persisted configuration for migration runs.
type CommandConfiguration struct {
	Output              string   `mapstructure:"output"`
	Backup              bool     `mapstructure:"backup"`
	MergeGroups         bool     `mapstructure:"merge_groups"`
	SourcePriority      []string `mapstructure:"source_priority"`
	ImportGlobalPipConf bool     `mapstructure:"import_global_pip_conf"`
}

// DefaultCommandConfiguration returns baseline configuration values for
// migration runs.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Output:              defaultOutputFileNameConstant,
		Backup:              true,
		MergeGroups:         false,
		SourcePriority:      nil,
		ImportGlobalPipConf: false,
	}
}

// DefaultConfigurationValues produces Viper defaults for migration commands
// keyed beneath the provided root key.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()

	priorityNames := make([]string, 0, len(manifest.AllSourceFormats()))
	for _, sourceFormat := range manifest.AllSourceFormats() {
		priorityNames = append(priorityNames, string(sourceFormat))
	}

	return map[string]any{
		rootKey + configurationKeySeparatorConstant + outputConfigurationKeyConstant:              defaults.Output,
		rootKey + configurationKeySeparatorConstant + backupConfigurationKeyConstant:              defaults.Backup,
		rootKey + configurationKeySeparatorConstant + mergeGroupsConfigurationKeyConstant:         defaults.MergeGroups,
		rootKey + configurationKeySeparatorConstant + sourcePriorityConfigurationKeyConstant:      priorityNames,
		rootKey + configurationKeySeparatorConstant + importGlobalPipConfConfigurationKeyConstant: defaults.ImportGlobalPipConf,
	}
}

// Sanitize trims configured values and removes empty entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Output = strings.TrimSpace(configuration.Output)

	sanitizedPriority := make([]string, 0, len(configuration.SourcePriority))
	for _, formatName := range configuration.SourcePriority {
		trimmedName := strings.TrimSpace(formatName)
		if len(trimmedName) > 0 {
			sanitizedPriority = append(sanitizedPriority, trimmedName)
		}
	}
	if len(sanitizedPriority) == 0 {
		sanitizedPriority = nil
	}
	sanitized.SourcePriority = sanitizedPriority

	return sanitized
}

// SourcePriorityFormats parses the configured source priority list. An empty
// list leaves the default format order in effect.
func (configuration CommandConfiguration) SourcePriorityFormats() ([]manifest.SourceFormat, error) {
	if len(configuration.SourcePriority) == 0 {
		return nil, nil
	}

	priorityFormats := make([]manifest.SourceFormat, 0, len(configuration.SourcePriority))
	for _, formatName := range configuration.SourcePriority {
		parsedFormat, parseError := manifest.ParseSourceFormat(formatName)
		if parseError != nil {
			return nil, InvalidInputError{FieldName: sourcePriorityFieldNameConstant, Message: parseError.Error()}
		}
		priorityFormats = append(priorityFormats, parsedFormat)
	}
	return priorityFormats, nil
}
