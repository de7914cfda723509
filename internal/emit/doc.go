// Package emit renders the resolved project model as a uv-style manifest and
// publishes it atomically next to the legacy files it replaces.
package emit
