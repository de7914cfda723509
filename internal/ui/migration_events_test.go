package ui_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/uvmigrate/uvmigrate/internal/batch"
	"github.com/uvmigrate/uvmigrate/internal/migrate"
	"github.com/uvmigrate/uvmigrate/internal/report"
	"github.com/uvmigrate/uvmigrate/internal/ui"
)

const (
	testProjectDirectoryConstant          = "projects/demo"
	testMigrationFailureReasonConstant    = "resolution failed"
	testStartMessageExpectationConstant   = "Migrating " + testProjectDirectoryConstant
	testSuccessMessageExpectationConstant = "Migrated " + testProjectDirectoryConstant
	testWarningMessageExpectationConstant = "Migrated " + testProjectDirectoryConstant + " with 2 warning(s)"
	testFailureMessageExpectationConstant = testProjectDirectoryConstant + " failed: " + testMigrationFailureReasonConstant
)

func buildOutcomeWithWarnings(warningCount int) batch.ProjectOutcome {
	recorder := report.NewRecorder(nil)
	for warningIndex := 0; warningIndex < warningCount; warningIndex++ {
		recorder.Warning("pinned build constraint dropped", report.EventSite{File: "requirements.txt"})
	}

	return batch.ProjectOutcome{
		ProjectDirectory: testProjectDirectoryConstant,
		Result:           migrate.MigrationResult{FinalState: migrate.StateDone, Report: recorder.Snapshot()},
	}
}

func TestConsoleMigrationEventLoggerEmitsMessages(testInstance *testing.T) {
	testCases := []struct {
		name            string
		invoke          func(logger *ui.ConsoleMigrationEventLogger)
		expectedLevel   zapcore.Level
		expectedMessage string
	}{
		{
			name: "migration_started",
			invoke: func(logger *ui.ConsoleMigrationEventLogger) {
				logger.MigrationStarted(testProjectDirectoryConstant)
			},
			expectedLevel:   zapcore.InfoLevel,
			expectedMessage: testStartMessageExpectationConstant,
		},
		{
			name: "migration_completed_clean",
			invoke: func(logger *ui.ConsoleMigrationEventLogger) {
				logger.MigrationCompleted(buildOutcomeWithWarnings(0))
			},
			expectedLevel:   zapcore.InfoLevel,
			expectedMessage: testSuccessMessageExpectationConstant,
		},
		{
			name: "migration_completed_with_warnings",
			invoke: func(logger *ui.ConsoleMigrationEventLogger) {
				logger.MigrationCompleted(buildOutcomeWithWarnings(2))
			},
			expectedLevel:   zapcore.WarnLevel,
			expectedMessage: testWarningMessageExpectationConstant,
		},
		{
			name: "migration_failed",
			invoke: func(logger *ui.ConsoleMigrationEventLogger) {
				logger.MigrationCompleted(batch.ProjectOutcome{
					ProjectDirectory: testProjectDirectoryConstant,
					Failure:          errors.New(testMigrationFailureReasonConstant),
				})
			},
			expectedLevel:   zapcore.ErrorLevel,
			expectedMessage: testFailureMessageExpectationConstant,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			observerCore, observedLogs := observer.New(zapcore.DebugLevel)
			consoleLogger := zap.New(observerCore)
			eventLogger := ui.NewConsoleMigrationEventLogger(consoleLogger)

			testCase.invoke(eventLogger)

			entries := observedLogs.All()
			require.Len(testInstance, entries, 1)
			require.Equal(testInstance, testCase.expectedLevel, entries[0].Level)
			require.Equal(testInstance, testCase.expectedMessage, entries[0].Message)
		})
	}
}
