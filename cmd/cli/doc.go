// Package cli constructs the uvmigrate command-line interface, wiring the
// Cobra command hierarchy, configuration loader, and structured logging
// primitives. It exposes helpers to build reusable application instances and
// to map execution errors onto process exit codes.
package cli
