// Package resolve merges normalized dependency declarations per package and
// group, applying the merge policy and surfacing blocking conflicts.
package resolve
