package sources

import (
	"errors"
	"fmt"

	"github.com/uvmigrate/uvmigrate/internal/manifest"
	"github.com/uvmigrate/uvmigrate/internal/report"
)

const (
	constraintDialectStandardStringConstant = "standard"
	constraintDialectPoetryStringConstant   = "poetry"
	parseErrorWithLineTemplateConstant      = "parse error in %s:%d: %s"
	parseErrorTemplateConstant              = "parse error in %s: %s"
	noSourcesDetectedMessageConstant        = "no migratable project definitions detected"
)

// ErrNoSourcesDetected indicates that no reader recognized the project.
var ErrNoSourcesDetected = errors.New(noSourcesDetectedMessageConstant)

// ConstraintDialect identifies the constraint syntax a raw entry uses.
type ConstraintDialect string

// Supported constraint dialects.
const (
	// ConstraintDialectStandard is specifier syntax such as ">=1.0,<2.0".
	ConstraintDialectStandard ConstraintDialect = ConstraintDialect(constraintDialectStandardStringConstant)
	// ConstraintDialectPoetry additionally allows caret and tilde shorthand.
	ConstraintDialectPoetry ConstraintDialect = ConstraintDialect(constraintDialectPoetryStringConstant)
)

// ParseError reports a source line or value a reader could not interpret.
type ParseError struct {
	File    string
	Line    int
	Message string
}

// Error renders the parse failure with its location.
func (parseError ParseError) Error() string {
	if parseError.Line > 0 {
		return fmt.Sprintf(parseErrorWithLineTemplateConstant, parseError.File, parseError.Line, parseError.Message)
	}
	return fmt.Sprintf(parseErrorTemplateConstant, parseError.File, parseError.Message)
}

// RawEntry is one dependency declaration as read from a legacy file.
type RawEntry struct {
	Name           string
	ConstraintText string
	Dialect        ConstraintDialect
	Extras         []string
	Markers        string
	Source         manifest.DependencySource
	Group          manifest.GroupLabel
	File           string
	Line           int
}

// RawProject carries the project metadata a source may declare.
type RawProject struct {
	Name                  string
	Version               string
	Description           string
	Authors               []manifest.Author
	RequiresPython        string
	RequiresPythonDialect ConstraintDialect
	Scripts               map[string]string
	URLs                  map[string]string
	Indexes               []manifest.IndexDefinition
	Packaged              bool
}

// RawSource is everything one reader extracted from a project directory.
type RawSource struct {
	Format      manifest.SourceFormat
	Project     RawProject
	Entries     []RawEntry
	Passthrough []manifest.PassthroughSection
}

// Reader loads one legacy project definition format.
type Reader interface {
	// Format names the legacy format the reader understands.
	Format() manifest.SourceFormat
	// Detect reports whether the project directory carries this format.
	Detect(projectDirectory string) (bool, error)
	// Read extracts the format's declarations. Recoverable parse failures
	// are recorded on the recorder and skipped.
	Read(projectDirectory string, recorder *report.Recorder) (RawSource, error)
}

// DefaultReaders constructs every format reader in default priority order.
func DefaultReaders() []Reader {
	return []Reader{
		NewCondaReader(),
		NewPoetryReader(),
		NewPipenvReader(),
		NewSetupScriptReader(),
		NewRequirementsReader(),
	}
}

// IsProjectDefinitionFileName reports whether the file name alone marks a
// directory as carrying a migratable project definition.
func IsProjectDefinitionFileName(fileName string) bool {
	switch fileName {
	case condaEnvironmentFileNameConstant, condaEnvironmentAlternateFileNameConstant,
		pyprojectFileNameConstant, pipfileFileNameConstant, setupScriptFileNameConstant:
		return true
	default:
		return isRequirementsFileName(fileName)
	}
}

// DetectFormats probes the project directory with each reader and returns
// the recognized formats in reader order.
func DetectFormats(projectDirectory string, readers []Reader) ([]manifest.SourceFormat, error) {
	detectedFormats := make([]manifest.SourceFormat, 0, len(readers))
	for _, reader := range readers {
		formatDetected, detectionError := reader.Detect(projectDirectory)
		if detectionError != nil {
			return nil, detectionError
		}
		if formatDetected {
			detectedFormats = append(detectedFormats, reader.Format())
		}
	}
	if len(detectedFormats) == 0 {
		return nil, ErrNoSourcesDetected
	}
	return detectedFormats, nil
}
