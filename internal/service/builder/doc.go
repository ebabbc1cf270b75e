// Package builder produces the uploadable archive for one game version:
// the static asset tree plus a pack.mcmeta stamped with the resolved pack
// format. Archives are reproducible for identical inputs.
package builder
