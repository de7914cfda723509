package report

import (
	"go.uber.org/zap"
)

const (
	severityInfoStringConstant    = "info"
	severityWarningStringConstant = "warning"
	severityErrorStringConstant   = "error"
	eventFileLogFieldConstant     = "file"
	eventLineLogFieldConstant     = "line"
)

// Severity grades migration events.
type Severity string

// Supported severities.
const (
	SeverityInfo    Severity = Severity(severityInfoStringConstant)
	SeverityWarning Severity = Severity(severityWarningStringConstant)
	SeverityError   Severity = Severity(severityErrorStringConstant)
)

// EventSite locates the source text an event refers to. A zero Line means
// the event concerns the whole file.
type EventSite struct {
	File string
	Line int
}

// Event is one recorded migration observation.
type Event struct {
	Severity Severity
	Message  string
	File     string
	Line     int
}

// Report is the outcome of one migration run. Instances returned by the
// orchestrator are snapshots and stay unchanged afterwards.
type Report struct {
	Events       []Event
	WrittenFiles []string
}

// CountBySeverity tallies events of the requested severity.
func (migrationReport Report) CountBySeverity(severity Severity) int {
	count := 0
	for _, event := range migrationReport.Events {
		if event.Severity == severity {
			count++
		}
	}
	return count
}

// Recorder accumulates events during a run and mirrors them to a logger.
type Recorder struct {
	logger       *zap.Logger
	events       []Event
	writtenFiles []string
}

// NewRecorder constructs a recorder mirroring events to the provided logger.
// A nil logger disables mirroring.
func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger}
}

// Info records an informational event.
func (recorder *Recorder) Info(message string, site EventSite) {
	recorder.record(SeverityInfo, message, site)
	recorder.logger.Info(message, siteLogFields(site)...)
}

// Warning records a degradation the migration survived.
func (recorder *Recorder) Warning(message string, site EventSite) {
	recorder.record(SeverityWarning, message, site)
	recorder.logger.Warn(message, siteLogFields(site)...)
}

// Error records a failure that ends the migration.
func (recorder *Recorder) Error(message string, site EventSite) {
	recorder.record(SeverityError, message, site)
	recorder.logger.Error(message, siteLogFields(site)...)
}

// RecordWrittenFile notes a file the migration produced.
func (recorder *Recorder) RecordWrittenFile(filePath string) {
	recorder.writtenFiles = append(recorder.writtenFiles, filePath)
}

// WarningCount tallies recorded warnings.
func (recorder *Recorder) WarningCount() int {
	return recorder.countBySeverity(SeverityWarning)
}

// ErrorCount tallies recorded errors.
func (recorder *Recorder) ErrorCount() int {
	return recorder.countBySeverity(SeverityError)
}

// Snapshot copies the recorded state into an independent report.
func (recorder *Recorder) Snapshot() Report {
	snapshotEvents := make([]Event, len(recorder.events))
	copy(snapshotEvents, recorder.events)
	snapshotFiles := make([]string, len(recorder.writtenFiles))
	copy(snapshotFiles, recorder.writtenFiles)
	return Report{Events: snapshotEvents, WrittenFiles: snapshotFiles}
}

func (recorder *Recorder) record(severity Severity, message string, site EventSite) {
	recorder.events = append(recorder.events, Event{
		Severity: severity,
		Message:  message,
		File:     site.File,
		Line:     site.Line,
	})
}

func (recorder *Recorder) countBySeverity(severity Severity) int {
	count := 0
	for _, event := range recorder.events {
		if event.Severity == severity {
			count++
		}
	}
	return count
}

func siteLogFields(site EventSite) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if len(site.File) > 0 {
		fields = append(fields, zap.String(eventFileLogFieldConstant, site.File))
	}
	if site.Line > 0 {
		fields = append(fields, zap.Int(eventLineLogFieldConstant, site.Line))
	}
	return fields
}
