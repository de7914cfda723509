package ui

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/uvmigrate/uvmigrate/internal/batch"
	"github.com/uvmigrate/uvmigrate/internal/report"
)

const (
	migrationStartedMessageTemplateConstant   = "Migrating %s"
	migrationCompletedMessageTemplateConstant = "Migrated %s"
	migrationFailedMessageTemplateConstant    = "%s failed: %s"
	warningCountSuffixTemplateConstant        = " with %d warning(s)"
	unknownFailureMessageConstant             = "unknown error"
	emptyStringConstant                       = ""
)

// MigrationEventFormatter builds human-readable messages for batch migration lifecycle events.
type MigrationEventFormatter struct{}

// BuildStartedMessage formats the message describing a project about to migrate.
func (formatter MigrationEventFormatter) BuildStartedMessage(projectDirectory string) string {
	return fmt.Sprintf(migrationStartedMessageTemplateConstant, strings.TrimSpace(projectDirectory))
}

// BuildSuccessMessage formats the message describing a successfully migrated project.
func (formatter MigrationEventFormatter) BuildSuccessMessage(outcome batch.ProjectOutcome) string {
	baseMessage := fmt.Sprintf(migrationCompletedMessageTemplateConstant, strings.TrimSpace(outcome.ProjectDirectory))
	warningSuffix := formatter.formatWarningSuffix(outcome)
	if len(warningSuffix) == 0 {
		return baseMessage
	}
	return baseMessage + warningSuffix
}

// BuildFailureMessage formats the message describing a project whose migration failed.
func (formatter MigrationEventFormatter) BuildFailureMessage(outcome batch.ProjectOutcome) string {
	failureMessage := unknownFailureMessageConstant
	if outcome.Failure != nil {
		failureMessage = outcome.Failure.Error()
	}
	return fmt.Sprintf(migrationFailedMessageTemplateConstant, strings.TrimSpace(outcome.ProjectDirectory), failureMessage)
}

func (formatter MigrationEventFormatter) formatWarningSuffix(outcome batch.ProjectOutcome) string {
	warningCount := outcome.Result.Report.CountBySeverity(report.SeverityWarning)
	if warningCount == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(warningCountSuffixTemplateConstant, warningCount)
}

// ConsoleMigrationEventLogger renders batch migration lifecycle events using a
// zap logger configured for human-readable output. It implements
// batch.RunEventObserver and is safe for concurrent use.
type ConsoleMigrationEventLogger struct {
	logger    *zap.Logger
	formatter MigrationEventFormatter
}

// NewConsoleMigrationEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleMigrationEventLogger(logger *zap.Logger) *ConsoleMigrationEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleMigrationEventLogger{logger: logger, formatter: MigrationEventFormatter{}}
}

// MigrationStarted implements batch.RunEventObserver by logging migration start notifications.
func (eventLogger *ConsoleMigrationEventLogger) MigrationStarted(projectDirectory string) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildStartedMessage(projectDirectory))
}

// MigrationCompleted implements batch.RunEventObserver by logging per-project outcomes.
func (eventLogger *ConsoleMigrationEventLogger) MigrationCompleted(outcome batch.ProjectOutcome) {
	if eventLogger == nil {
		return
	}
	if !outcome.Succeeded() {
		eventLogger.logger.Error(eventLogger.formatter.BuildFailureMessage(outcome))
		return
	}
	if outcome.Result.Report.CountBySeverity(report.SeverityWarning) > 0 {
		eventLogger.logger.Warn(eventLogger.formatter.BuildSuccessMessage(outcome))
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildSuccessMessage(outcome))
}
