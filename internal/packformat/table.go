package packformat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/pack-publisher/internal/domain/release"
)

// DefaultFormat is used for versions older than every table entry.
// The earliest resource pack format ever shipped is 1, so it is the only
// sensible floor.
const DefaultFormat = 1

// Entry maps a game version to the pack format introduced with it.
// The mapping is a step function: the entry applies to every version from
// Entry.Version up to (but excluding) the next listed version.
type Entry struct {
	// Version is the first game version the format applies to.
	Version string `yaml:"version"`
	// Format is the pack format code.
	Format int `yaml:"format"`
}

// Table resolves pack formats for game versions.
// Entries are kept sorted ascending by version so lookups walk a step function.
type Table struct {
	entries []Entry
}

var (
	// errEmptyTable is returned when a table is constructed without entries.
	errEmptyTable = errors.New("format table has no entries")
	// errBadFormat is returned for non-positive format codes.
	errBadFormat = errors.New("format code must be positive")
)

// Builtin returns the maintained version to pack-format table.
// Reference: https://minecraft.wiki/w/Pack_format
func Builtin() *Table {
	table, err := New([]Entry{
		{Version: "1.0", Format: 1},
		{Version: "1.9", Format: 2},
		{Version: "1.11", Format: 3},
		{Version: "1.13", Format: 4},
		{Version: "1.15", Format: 5},
		{Version: "1.16", Format: 6},
		{Version: "1.18", Format: 7},
		{Version: "1.19", Format: 8},
		{Version: "1.20", Format: 12},
		{Version: "1.21", Format: 12},
	})
	if err != nil {
		// The built-in table is static; a construction error is a programming bug.
		panic(err)
	}

	return table
}

// New builds a table from the provided entries, sorting them by version.
func New(entries []Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, errEmptyTable
	}

	for _, entry := range entries {
		if entry.Format <= 0 {
			return nil, fmt.Errorf("version %s: %w", entry.Version, errBadFormat)
		}
	}

	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return release.Compare(sorted[i].Version, sorted[j].Version) < 0
	})

	return &Table{entries: sorted}, nil
}

// LoadFile reads a maintainer-editable YAML table from disk.
func LoadFile(path string) (*Table, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read format table: %w", err)
	}

	var entries []Entry
	if err = yaml.Unmarshal(contents, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal format table: %w", err)
	}

	return New(entries)
}

// Resolve returns the pack format for a game version: the format of the
// greatest listed version not newer than the target, or DefaultFormat when
// the target predates every entry. An exact match is just a special case of
// the step lookup, so resolution is monotonic in the version order.
func (t *Table) Resolve(version string) (format int, exact bool) {
	format = DefaultFormat

	for _, entry := range t.entries {
		cmp := release.Compare(entry.Version, version)
		if cmp > 0 {
			break
		}

		format = entry.Format

		if cmp == 0 {
			exact = true
		}
	}

	return format, exact
}

// Entries returns a copy of the sorted table entries.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}
