// Package batch migrates every project discovered beneath one or more
// filesystem roots, running the single-project pipeline concurrently.
package batch
