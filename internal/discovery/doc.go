// Package discovery locates directories carrying migratable Python project
// definitions beneath one or more filesystem roots.
package discovery
