// Package pipeline wires the resolver, builder and publisher into the
// sequential publishing run behind the CLI binaries.
package pipeline
