// Package flags provides helpers for binding shared command-line flags to Cobra commands.
package flags

import "github.com/spf13/cobra"

const (
	// DefaultRootFlagName exposes the shared discovery root flag name.
	DefaultRootFlagName = "root"
	// DefaultRootFlagUsage describes the shared discovery root flag purpose.
	DefaultRootFlagUsage = "Directories scanned for migratable projects (repeatable)"
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Run the full pipeline without writing any files"
	// ForceFlagName exposes the shared force flag name.
	ForceFlagName = "force"
	// ForceFlagUsage describes the shared force flag purpose.
	ForceFlagUsage = "Emit output even when warnings were recorded"
	// OutputFlagName exposes the shared output path flag name.
	OutputFlagName = "output"
	// OutputFlagUsage describes the shared output path flag purpose.
	OutputFlagUsage = "Target manifest path; relative paths resolve inside the project directory"
	// BackupFlagName exposes the shared backup flag name.
	BackupFlagName = "backup"
	// BackupFlagUsage describes the shared backup flag purpose.
	BackupFlagUsage = "Copy an existing target aside before overwriting it"
	// MergeGroupsFlagName exposes the shared merge-groups flag name.
	MergeGroupsFlagName = "merge-groups"
	// MergeGroupsFlagUsage describes the shared merge-groups flag purpose.
	MergeGroupsFlagUsage = "Fold named dependency groups into the dev group"
	// ImportPipConfigurationFlagName exposes the shared pip configuration import flag name.
	ImportPipConfigurationFlagName = "import-global-pip-conf"
	// ImportPipConfigurationFlagUsage describes the shared pip configuration import flag purpose.
	ImportPipConfigurationFlagUsage = "Import index definitions from the applicable pip configuration"
	// ImportIndexFlagName exposes the shared index import flag name.
	ImportIndexFlagName = "import-index"
	// ImportIndexFlagUsage describes the shared index import flag purpose.
	ImportIndexFlagUsage = "Additional package index URL to record (repeatable)"
)

// RootFlagValues stores discovery root flag values shared by batch-style commands.
type RootFlagValues struct {
	Roots []string
}

// BindRootFlags attaches the shared discovery root flag to the provided command.
// Existing registrations are preserved so callers may bind eagerly.
func BindRootFlags(command *cobra.Command, defaults RootFlagValues) *RootFlagValues {
	values := RootFlagValues{Roots: append([]string{}, defaults.Roots...)}
	if command == nil {
		return &values
	}

	if command.Flags().Lookup(DefaultRootFlagName) == nil {
		command.Flags().StringSliceVar(&values.Roots, DefaultRootFlagName, values.Roots, DefaultRootFlagUsage)
	}
	return &values
}
