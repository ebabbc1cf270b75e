// Package version exposes build metadata injected via ldflags and a helper
// to attach a standard `version` subcommand to cobra roots.
package version
