// Package resolver computes the work queue of a publishing run: the stable
// game versions known upstream but absent from the destination project,
// ordered ascending and paired with their pack format codes.
package resolver
