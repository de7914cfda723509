package report_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/uvmigrate/uvmigrate/internal/report"
)

func TestRecorderAccumulatesEventsInOrder(testInstance *testing.T) {
	testInstance.Parallel()

	recorder := report.NewRecorder(nil)
	recorder.Info("detected requirements file", report.EventSite{File: "requirements.txt"})
	recorder.Warning("skipped malformed line", report.EventSite{File: "requirements.txt", Line: 7})
	recorder.Error("conflicting requirements", report.EventSite{})
	recorder.RecordWrittenFile("pyproject.toml")

	snapshot := recorder.Snapshot()
	require.Len(testInstance, snapshot.Events, 3)
	require.Equal(testInstance, report.SeverityInfo, snapshot.Events[0].Severity)
	require.Equal(testInstance, report.SeverityWarning, snapshot.Events[1].Severity)
	require.Equal(testInstance, 7, snapshot.Events[1].Line)
	require.Equal(testInstance, report.SeverityError, snapshot.Events[2].Severity)
	require.Equal(testInstance, []string{"pyproject.toml"}, snapshot.WrittenFiles)
	require.Equal(testInstance, 1, recorder.WarningCount())
	require.Equal(testInstance, 1, recorder.ErrorCount())
}

func TestSnapshotIsIndependentOfLaterRecords(testInstance *testing.T) {
	testInstance.Parallel()

	recorder := report.NewRecorder(nil)
	recorder.Info("first", report.EventSite{})

	snapshot := recorder.Snapshot()
	recorder.Info("second", report.EventSite{})
	recorder.RecordWrittenFile("pyproject.toml")

	require.Len(testInstance, snapshot.Events, 1)
	require.Empty(testInstance, snapshot.WrittenFiles)
}

func TestRecorderMirrorsEventsToLogger(testInstance *testing.T) {
	testInstance.Parallel()

	logCore, observedLogs := observer.New(zap.DebugLevel)
	recorder := report.NewRecorder(zap.New(logCore))
	recorder.Warning("skipped directive", report.EventSite{File: "requirements.txt", Line: 2})

	loggedEntries := observedLogs.All()
	require.Len(testInstance, loggedEntries, 1)
	require.Equal(testInstance, zap.WarnLevel, loggedEntries[0].Level)
	require.Equal(testInstance, "skipped directive", loggedEntries[0].Message)
}

func TestRendererRendersEventsFilesAndSummary(testInstance *testing.T) {
	testInstance.Parallel()

	recorder := report.NewRecorder(nil)
	recorder.Info("detected poetry project", report.EventSite{File: "pyproject.toml"})
	recorder.Warning("skipped malformed line", report.EventSite{File: "requirements.txt", Line: 3})
	recorder.RecordWrittenFile("pyproject.toml")

	var renderedOutput strings.Builder
	renderer := report.NewRenderer(report.NewWriterReporter(&renderedOutput))
	renderer.Render(recorder.Snapshot())

	renderedText := renderedOutput.String()
	require.Contains(testInstance, renderedText, "detected poetry project (pyproject.toml)")
	require.Contains(testInstance, renderedText, "skipped malformed line (requirements.txt:3)")
	require.Contains(testInstance, renderedText, "wrote pyproject.toml")
	require.Contains(testInstance, renderedText, "1 warning(s), 0 error(s)")
}
