package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/pack-publisher/internal/client/modrinth"
	"github.com/oshokin/pack-publisher/internal/domain/release"
	"github.com/oshokin/pack-publisher/internal/packformat"
	"github.com/oshokin/pack-publisher/internal/retry"
)

var errTestFetch = errors.New("test fetch error")

// catalogStub is a minimal CatalogClient implementation for tests.
type catalogStub struct {
	releases []release.Release
	err      error
	calls    int
}

func (c *catalogStub) Releases(context.Context) ([]release.Release, error) {
	c.calls++
	return c.releases, c.err
}

// publishedStub is a minimal PublishedClient implementation for tests.
type publishedStub struct {
	published map[string]struct{}
	err       error
}

func (p *publishedStub) GameVersions(context.Context, string) (map[string]struct{}, error) {
	return p.published, p.err
}

// fastPolicy keeps test retries quick.
func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}
}

// stableTable builds the table used by the documented scenario.
func stableTable(t *testing.T) *packformat.Table {
	t.Helper()

	table, err := packformat.New([]packformat.Entry{{Version: "1.20", Format: 15}})
	require.NoError(t, err)

	return table
}

// TestResolve_SpecScenario reproduces the documented example:
// stable {1.20, 1.20.1, 1.21}, published {1.20}, table {1.20: 15}.
func TestResolve_SpecScenario(t *testing.T) {
	t.Parallel()

	upstream := &catalogStub{releases: []release.Release{
		// Upstream lists newest first; the resolver must reorder ascending.
		{ID: "1.21", Type: release.TypeRelease},
		{ID: "23w31a", Type: release.TypeSnapshot},
		{ID: "1.20.1", Type: release.TypeRelease},
		{ID: "1.20", Type: release.TypeRelease},
	}}
	destination := &publishedStub{published: map[string]struct{}{"1.20": {}}}

	service := New(upstream, destination, stableTable(t), fastPolicy(), Options{ProjectID: "classic-panorama"})

	candidates, err := service.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, []release.Candidate{
		{Version: "1.20.1", PackFormat: 15},
		{Version: "1.21", PackFormat: 15},
	}, candidates)
}

// TestResolve_SetDifference checks both directions of the difference property.
func TestResolve_SetDifference(t *testing.T) {
	t.Parallel()

	stable := []release.Release{
		{ID: "1.19.4", Type: release.TypeRelease},
		{ID: "1.20", Type: release.TypeRelease},
		{ID: "1.20.1", Type: release.TypeRelease},
	}
	published := map[string]struct{}{"1.19.4": {}, "1.20.1": {}}

	service := New(
		&catalogStub{releases: stable},
		&publishedStub{published: published},
		packformat.Builtin(),
		fastPolicy(),
		Options{ProjectID: "classic-panorama"},
	)

	candidates, err := service.Resolve(context.Background())
	require.NoError(t, err)

	missing := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		missing[candidate.Version] = struct{}{}
	}

	for _, rel := range stable {
		_, wasPublished := published[rel.ID]
		_, isMissing := missing[rel.ID]
		require.Equal(t, !wasPublished, isMissing, "version %s", rel.ID)
	}
}

// TestResolve_SnapshotsExcludedByDefault keeps pre-releases out unless configured.
func TestResolve_SnapshotsExcludedByDefault(t *testing.T) {
	t.Parallel()

	upstream := &catalogStub{releases: []release.Release{
		{ID: "24w33a", Type: release.TypeSnapshot},
		{ID: "1.21", Type: release.TypeRelease},
	}}

	service := New(upstream, &publishedStub{published: map[string]struct{}{}},
		packformat.Builtin(), fastPolicy(), Options{ProjectID: "p"})

	candidates, err := service.Resolve(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "1.21", candidates[0].Version)

	// Opt-in includes the snapshot.
	service = New(upstream, &publishedStub{published: map[string]struct{}{}},
		packformat.Builtin(), fastPolicy(), Options{ProjectID: "p", IncludeSnapshots: true})

	candidates, err = service.Resolve(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)
}

// TestResolve_UpstreamUnavailable retries and then fails the run.
func TestResolve_UpstreamUnavailable(t *testing.T) {
	t.Parallel()

	upstream := &catalogStub{err: errTestFetch}

	service := New(upstream, &publishedStub{}, packformat.Builtin(), fastPolicy(), Options{ProjectID: "p"})

	_, err := service.Resolve(context.Background())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.Equal(t, 2, upstream.calls)
}

// TestResolve_DestinationUnavailable fails the run on persistent list errors.
func TestResolve_DestinationUnavailable(t *testing.T) {
	t.Parallel()

	destination := &publishedStub{err: fmt.Errorf("list project versions: %w", errTestFetch)}

	service := New(
		&catalogStub{releases: []release.Release{{ID: "1.21", Type: release.TypeRelease}}},
		destination, packformat.Builtin(), fastPolicy(), Options{ProjectID: "p"},
	)

	_, err := service.Resolve(context.Background())
	require.ErrorIs(t, err, ErrDestinationUnavailable)
}

// TestResolve_ProjectNotFoundBootstraps treats a missing project as empty.
func TestResolve_ProjectNotFoundBootstraps(t *testing.T) {
	t.Parallel()

	destination := &publishedStub{err: fmt.Errorf("project p: %w", modrinth.ErrProjectNotFound)}

	service := New(
		&catalogStub{releases: []release.Release{{ID: "1.21", Type: release.TypeRelease}}},
		destination, packformat.Builtin(), fastPolicy(), Options{ProjectID: "p"},
	)

	candidates, err := service.Resolve(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
}
