// Package mojang implements a read-only client for the Mojang version
// manifest API, the upstream catalog of game releases.
package mojang
