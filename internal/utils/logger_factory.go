package utils

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatConsoleStringConstant       = "console"
	logFormatJSONStringConstant          = "json"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Log levels accepted on the command line and in configuration files.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// SupportedLogLevelNames lists the accepted log level values in display order.
func SupportedLogLevelNames() []string {
	return []string{logLevelDebugStringConstant, logLevelInfoStringConstant, logLevelWarnStringConstant, logLevelErrorStringConstant}
}

func (level LogLevel) zapLevel() (zapcore.Level, bool) {
	switch level {
	case LogLevelDebug:
		return zapcore.DebugLevel, true
	case LogLevelInfo:
		return zapcore.InfoLevel, true
	case LogLevelWarn:
		return zapcore.WarnLevel, true
	case LogLevelError:
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InvalidLevel, false
	}
}

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Log formats accepted on the command line and in configuration files.
const (
	LogFormatConsole LogFormat = LogFormat(logFormatConsoleStringConstant)
	LogFormatJSON    LogFormat = LogFormat(logFormatJSONStringConstant)
)

// SupportedLogFormatNames lists the accepted log format values in display order.
func SupportedLogFormatNames() []string {
	return []string{logFormatConsoleStringConstant, logFormatJSONStringConstant}
}

// LoggerFactory builds zap.Logger instances from configured level and format
// names.
type LoggerFactory struct{}

// NewLoggerFactory constructs a new logger factory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// CreateLogger produces a zap.Logger honoring the requested log level and
// format. Both encodings write to standard error so report output on standard
// output stays machine readable.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	zapLogLevel, levelSupported := requestedLogLevel.zapLevel()
	if !levelSupported {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}

	var configuration zap.Config
	switch requestedLogFormat {
	case LogFormatConsole:
		configuration = zap.NewDevelopmentConfig()
	case LogFormatJSON:
		configuration = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}
	configuration.Level = zap.NewAtomicLevelAt(zapLogLevel)

	return configuration.Build()
}
