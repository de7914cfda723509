// Package ui provides helpers for formatting human-readable console output.
//
// The helpers translate batch migration events into concise messages so that
// progress feedback remains actionable for CLI users while detailed telemetry
// continues to flow through structured loggers.
package ui
