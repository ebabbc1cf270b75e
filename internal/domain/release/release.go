package release

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// Type partitions upstream catalog entries by release channel.
type Type string

const (
	// TypeRelease marks a stable game release.
	TypeRelease Type = "release"
	// TypeSnapshot marks a pre-release or development snapshot.
	TypeSnapshot Type = "snapshot"
)

// Release is a single entry of the upstream game version catalog.
type Release struct {
	// ID is the game version identifier, e.g. "1.20.1".
	ID string
	// Type tells stable releases apart from snapshots.
	Type Type
	// ReleasedAt is the upstream publication timestamp.
	ReleasedAt time.Time
}

// IsStable reports whether the release belongs to the stable channel.
func (r Release) IsStable() bool {
	return r.Type == TypeRelease
}

// Candidate is a game version missing from the destination platform,
// paired with the pack format its artifact must be stamped with.
type Candidate struct {
	// Version is the game version identifier.
	Version string `json:"version"`
	// PackFormat is the resolved packaging format code.
	PackFormat int `json:"pack_format"`
}

// Status classifies the outcome of one upload attempt.
type Status string

const (
	// StatusUploaded means the destination accepted the artifact.
	StatusUploaded Status = "uploaded"
	// StatusSkipped means the destination already had the version.
	StatusSkipped Status = "skipped"
	// StatusFailed means the upload was rejected or exhausted its retries.
	StatusFailed Status = "failed"
)

// UploadResult records the per-version outcome of a publish attempt.
type UploadResult struct {
	// Version is the game version the attempt was made for.
	Version string
	// Status is the outcome class.
	Status Status
	// Err carries the failure cause for StatusFailed results.
	Err error
}

// Report aggregates the upload results of a single run.
type Report struct {
	// Results holds one entry per attempted version, in processing order.
	Results []UploadResult
}

// Add appends a result to the report.
func (r *Report) Add(result UploadResult) {
	r.Results = append(r.Results, result)
}

// Counts returns the number of uploaded, skipped and failed versions.
func (r *Report) Counts() (uploaded, skipped, failed int) {
	for _, result := range r.Results {
		switch result.Status {
		case StatusUploaded:
			uploaded++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}

	return uploaded, skipped, failed
}

// Versions returns the versions that ended up with the given status.
func (r *Report) Versions(status Status) []string {
	var versions []string

	for _, result := range r.Results {
		if result.Status == status {
			versions = append(versions, result.Version)
		}
	}

	return versions
}

// String renders a one-line human-readable run summary.
func (r *Report) String() string {
	uploaded, skipped, failed := r.Counts()

	var builder strings.Builder

	fmt.Fprintf(&builder, "%d uploaded, %d skipped, %d failed", uploaded, skipped, failed)

	if failed > 0 {
		fmt.Fprintf(&builder, " (failed: %s)", strings.Join(r.Versions(StatusFailed), ", "))
	}

	return builder.String()
}

// Canonical converts a game version like "1.20.1" into the "v"-prefixed form
// understood by the semver package. Game versions omit the patch component
// for ".0" releases ("1.20" means 1.20.0), which semver canonicalization
// already handles.
func Canonical(version string) string {
	return "v" + strings.TrimPrefix(version, "v")
}

// Compare orders two game versions. It returns -1, 0 or +1 like semver.Compare.
// Versions that do not parse as semver sort before valid ones, which keeps
// the ordering total and deterministic.
func Compare(a, b string) int {
	ca, cb := Canonical(a), Canonical(b)

	validA, validB := semver.IsValid(ca), semver.IsValid(cb)

	switch {
	case validA && validB:
		return semver.Compare(ca, cb)
	case validA:
		return 1
	case validB:
		return -1
	default:
		return strings.Compare(a, b)
	}
}
