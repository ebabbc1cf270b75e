// Package packformat maintains the mapping from game versions to resource
// pack format codes. The mapping is a hand-maintained step function with a
// nearest-lower fallback, overridable from a YAML file for new game releases.
package packformat
