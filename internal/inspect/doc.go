// Package inspect reports which migratable definition formats a project
// carries without writing any output.
package inspect
