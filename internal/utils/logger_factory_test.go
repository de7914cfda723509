package utils_test

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uvmigrate/uvmigrate/internal/utils"
)

const (
	factoryTestMessageConstant     = "logger_factory_message"
	factoryFilteredMessageConstant = "below_threshold_message"
	factoryEmittedMessageConstant  = "above_threshold_message"
	factoryUnknownLevelConstant    = "verbose"
	factoryUnknownFormatConstant   = "xml"
	factoryLevelErrorPartConstant  = "unsupported log level"
	factoryFormatErrorPartConstant = "unsupported log format"
)

// captureStandardError redirects process stderr for the duration of action and
// returns everything written there. Logger construction must happen inside
// action because zap resolves its stderr sink at build time.
func captureStandardError(testInstance *testing.T, action func()) string {
	testInstance.Helper()

	pipeReader, pipeWriter, pipeError := os.Pipe()
	require.NoError(testInstance, pipeError)

	originalStandardError := os.Stderr
	os.Stderr = pipeWriter
	defer func() {
		os.Stderr = originalStandardError
	}()

	action()

	require.NoError(testInstance, pipeWriter.Close())
	capturedBytes, readError := io.ReadAll(pipeReader)
	require.NoError(testInstance, readError)
	require.NoError(testInstance, pipeReader.Close())

	return string(capturedBytes)
}

func flushLogger(testInstance *testing.T, logger interface{ Sync() error }) {
	testInstance.Helper()

	syncError := logger.Sync()
	if syncError != nil {
		require.True(testInstance, errors.Is(syncError, syscall.ENOTSUP) || errors.Is(syncError, syscall.EINVAL))
	}
}

func TestLoggerFactoryEncodings(testInstance *testing.T) {
	testCases := []struct {
		name            string
		requestedLevel  utils.LogLevel
		requestedFormat utils.LogFormat
		logThroughDebug bool
		expectJSONLine  bool
	}{
		{
			name:            "json_format_emits_json_lines",
			requestedLevel:  utils.LogLevelInfo,
			requestedFormat: utils.LogFormatJSON,
			expectJSONLine:  true,
		},
		{
			name:            "console_format_emits_plain_lines",
			requestedLevel:  utils.LogLevelInfo,
			requestedFormat: utils.LogFormatConsole,
			expectJSONLine:  false,
		},
		{
			name:            "debug_level_enables_debug_records",
			requestedLevel:  utils.LogLevelDebug,
			requestedFormat: utils.LogFormatJSON,
			logThroughDebug: true,
			expectJSONLine:  true,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			capturedOutput := captureStandardError(testInstance, func() {
				logger, creationError := utils.NewLoggerFactory().CreateLogger(testCase.requestedLevel, testCase.requestedFormat)
				require.NoError(testInstance, creationError)

				if testCase.logThroughDebug {
					logger.Debug(factoryTestMessageConstant)
				} else {
					logger.Info(factoryTestMessageConstant)
				}
				flushLogger(testInstance, logger)
			})

			trimmedOutput := strings.TrimSpace(capturedOutput)
			require.NotEmpty(testInstance, trimmedOutput)
			require.Contains(testInstance, trimmedOutput, factoryTestMessageConstant)
			require.Equal(testInstance, testCase.expectJSONLine, json.Valid([]byte(trimmedOutput)))
		})
	}
}

func TestLoggerFactoryLevelFiltering(testInstance *testing.T) {
	capturedOutput := captureStandardError(testInstance, func() {
		logger, creationError := utils.NewLoggerFactory().CreateLogger(utils.LogLevelWarn, utils.LogFormatConsole)
		require.NoError(testInstance, creationError)

		logger.Info(factoryFilteredMessageConstant)
		logger.Warn(factoryEmittedMessageConstant)
		flushLogger(testInstance, logger)
	})

	require.Contains(testInstance, capturedOutput, factoryEmittedMessageConstant)
	require.NotContains(testInstance, capturedOutput, factoryFilteredMessageConstant)
}

func TestLoggerFactoryRejectsUnknownNames(testInstance *testing.T) {
	testCases := []struct {
		name                 string
		requestedLevel       utils.LogLevel
		requestedFormat      utils.LogFormat
		expectedErrorContent string
	}{
		{
			name:                 "unknown_level_rejected",
			requestedLevel:       utils.LogLevel(factoryUnknownLevelConstant),
			requestedFormat:      utils.LogFormatJSON,
			expectedErrorContent: factoryLevelErrorPartConstant,
		},
		{
			name:                 "unknown_format_rejected",
			requestedLevel:       utils.LogLevelInfo,
			requestedFormat:      utils.LogFormat(factoryUnknownFormatConstant),
			expectedErrorContent: factoryFormatErrorPartConstant,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			logger, creationError := utils.NewLoggerFactory().CreateLogger(testCase.requestedLevel, testCase.requestedFormat)
			require.Error(testInstance, creationError)
			require.Nil(testInstance, logger)
			require.Contains(testInstance, creationError.Error(), testCase.expectedErrorContent)
		})
	}
}

func TestSupportedLogNameListings(testInstance *testing.T) {
	require.Equal(testInstance, []string{"debug", "info", "warn", "error"}, utils.SupportedLogLevelNames())
	require.Equal(testInstance, []string{"console", "json"}, utils.SupportedLogFormatNames())
}
