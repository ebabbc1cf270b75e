// Package publisher uploads built pack archives to the destination platform
// with bounded retries and per-version failure isolation.
package publisher
