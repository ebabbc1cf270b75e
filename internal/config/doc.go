// Package config loads, validates and persists the YAML settings shared by
// the pack publishing binaries. Secrets (the API token) are only accepted
// from the environment and are never written to disk.
package config
