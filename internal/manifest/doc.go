// Package manifest defines the format-independent dependency and project
// model shared by source readers, the resolver, and the emitter.
package manifest
