package emit

import "fmt"

const (
	emitErrorTemplateConstant = "cannot render section %q: %s"
	ioErrorTemplateConstant   = "%s %s: %s"
)

// EmitError reports a model value that cannot be rendered into the target
// manifest schema.
type EmitError struct {
	Section string
	Err     error
}

// Error renders the failing section together with the underlying failure.
func (emitError EmitError) Error() string {
	return fmt.Sprintf(emitErrorTemplateConstant, emitError.Section, emitError.Err)
}

// Unwrap exposes the underlying failure.
func (emitError EmitError) Unwrap() error {
	return emitError.Err
}

// IOError reports a filesystem failure while publishing rendered output.
type IOError struct {
	Operation string
	Path      string
	Err       error
}

// Error renders the failing operation, path, and underlying failure.
func (ioError IOError) Error() string {
	return fmt.Sprintf(ioErrorTemplateConstant, ioError.Operation, ioError.Path, ioError.Err)
}

// Unwrap exposes the underlying failure.
func (ioError IOError) Unwrap() error {
	return ioError.Err
}
