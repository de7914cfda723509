// Package version models Python package versions and version specifiers as
// ordered comparator sets with parsing, comparison, intersection, and
// canonical rendering.
package version
