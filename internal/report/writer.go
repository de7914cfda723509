package report

import (
	"fmt"
	"io"
	"os"
)

const (
	eventLineTemplateConstant         = "%-7s %s\n"
	eventSiteSuffixTemplateConstant   = "%s (%s)"
	eventSiteWithLineTemplateConstant = "%s (%s:%d)"
	writtenFileLineTemplateConstant   = "wrote %s\n"
	summaryLineTemplateConstant       = "%d warning(s), %d error(s)\n"
)

// Reporter publishes rendered migration output to an underlying sink.
type Reporter interface {
	Printf(format string, arguments ...any)
}

type writerReporter struct {
	writer io.Writer
}

// NewWriterReporter constructs a Reporter that writes to the provided io.Writer.
func NewWriterReporter(writer io.Writer) Reporter {
	if writer == nil || writer == io.Discard {
		writer = os.Stdout
	}
	return writerReporter{writer: writer}
}

func (reporter writerReporter) Printf(format string, arguments ...any) {
	if reporter.writer == nil {
		return
	}
	fmt.Fprintf(reporter.writer, format, arguments...)
}

// Renderer renders migration reports through a Reporter.
type Renderer struct {
	reporter Reporter
}

// NewRenderer constructs a renderer over the provided reporter. A nil
// reporter falls back to standard output.
func NewRenderer(reporter Reporter) *Renderer {
	if reporter == nil {
		reporter = NewWriterReporter(nil)
	}
	return &Renderer{reporter: reporter}
}

// Render prints every event, the written files, and a severity summary.
func (renderer *Renderer) Render(migrationReport Report) {
	for _, event := range migrationReport.Events {
		message := event.Message
		switch {
		case len(event.File) > 0 && event.Line > 0:
			message = fmt.Sprintf(eventSiteWithLineTemplateConstant, event.Message, event.File, event.Line)
		case len(event.File) > 0:
			message = fmt.Sprintf(eventSiteSuffixTemplateConstant, event.Message, event.File)
		}
		renderer.reporter.Printf(eventLineTemplateConstant, string(event.Severity), message)
	}

	for _, writtenFile := range migrationReport.WrittenFiles {
		renderer.reporter.Printf(writtenFileLineTemplateConstant, writtenFile)
	}

	renderer.reporter.Printf(
		summaryLineTemplateConstant,
		migrationReport.CountBySeverity(SeverityWarning),
		migrationReport.CountBySeverity(SeverityError),
	)
}
