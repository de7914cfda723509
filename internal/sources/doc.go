// Package sources detects legacy Python project definitions and reads each
// supported format into raw, format-tagged dependency entries.
package sources
