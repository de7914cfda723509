package flags

import "github.com/spf13/cobra"

const (
	// ConfigurationFileFlagName exposes the persistent configuration file flag name.
	ConfigurationFileFlagName          = "config"
	configurationFileFlagUsageConstant = "Optional path to a configuration file (YAML or JSON)."
	// LogLevelFlagName exposes the persistent log level flag name.
	LogLevelFlagName                = "log-level"
	logLevelFlagDescriptionConstant = "Log verbosity."
	// LogFormatFlagName exposes the persistent log format flag name.
	LogFormatFlagName                = "log-format"
	logFormatFlagDescriptionConstant = "Log output encoding."
)

// GlobalFlagValues stores persistent flag values shared by every subcommand.
type GlobalFlagValues struct {
	ConfigurationFilePath string
	LogLevel              string
	LogFormat             string
}

// GlobalFlagDefaults describes the configured defaults highlighted in usage text.
type GlobalFlagDefaults struct {
	LogLevel   string
	LogLevels  []string
	LogFormat  string
	LogFormats []string
}

// BindGlobalFlags attaches the configuration and logging flags to the command
// using persistent scope. Flag defaults stay empty so callers can distinguish
// explicit selections from configured values.
func BindGlobalFlags(command *cobra.Command, defaults GlobalFlagDefaults) *GlobalFlagValues {
	values := &GlobalFlagValues{}
	if command == nil {
		return values
	}

	persistentFlagSet := command.PersistentFlags()
	persistentFlagSet.StringVar(&values.ConfigurationFilePath, ConfigurationFileFlagName, "", configurationFileFlagUsageConstant)
	persistentFlagSet.StringVar(&values.LogLevel, LogLevelFlagName, "", FormatChoiceUsage(defaults.LogLevel, defaults.LogLevels, logLevelFlagDescriptionConstant))
	persistentFlagSet.StringVar(&values.LogFormat, LogFormatFlagName, "", FormatChoiceUsage(defaults.LogFormat, defaults.LogFormats, logFormatFlagDescriptionConstant))
	return values
}
