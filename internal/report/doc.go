// Package report collects migration events and renders the final migration
// report.
package report
