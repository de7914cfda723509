// Package migrate orchestrates a single project migration: it detects the
// applicable legacy definition formats, reads and normalizes them, resolves
// duplicate declarations, and publishes the rendered uv manifest atomically.
package migrate
