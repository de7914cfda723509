// Package normalize converts raw source entries into canonical dependencies
// and merges per-source project metadata into a single model.
package normalize
