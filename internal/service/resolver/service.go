package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/oshokin/pack-publisher/internal/client/modrinth"
	"github.com/oshokin/pack-publisher/internal/domain/release"
	"github.com/oshokin/pack-publisher/internal/logger"
	"github.com/oshokin/pack-publisher/internal/packformat"
	"github.com/oshokin/pack-publisher/internal/retry"
)

var (
	// ErrUpstreamUnavailable means the release catalog could not be fetched
	// within the retry budget. It is fatal for the whole run.
	ErrUpstreamUnavailable = errors.New("upstream release catalog unavailable")

	// ErrDestinationUnavailable means the published-version list could not be
	// fetched within the retry budget. It is fatal for the whole run.
	ErrDestinationUnavailable = errors.New("destination version list unavailable")
)

type (
	// CatalogClient fetches the upstream game release catalog.
	CatalogClient interface {
		Releases(ctx context.Context) ([]release.Release, error)
	}

	// PublishedClient fetches the set of game versions a project already covers.
	PublishedClient interface {
		GameVersions(ctx context.Context, projectID string) (map[string]struct{}, error)
	}

	// Options carries the run configuration the resolver needs.
	Options struct {
		// ProjectID is the destination project to diff against.
		ProjectID string
		// IncludeSnapshots makes pre-release versions eligible.
		IncludeSnapshots bool
	}

	// Service computes the ordered set of versions that still need publishing.
	Service struct {
		upstream    CatalogClient
		destination PublishedClient
		table       *packformat.Table
		policy      retry.Policy
		opts        Options
	}
)

// New wires a resolver from its explicit dependencies.
func New(
	upstream CatalogClient,
	destination PublishedClient,
	table *packformat.Table,
	policy retry.Policy,
	opts Options,
) *Service {
	return &Service{
		upstream:    upstream,
		destination: destination,
		table:       table,
		policy:      policy,
		opts:        opts,
	}
}

// Resolve fetches both catalogs and returns the missing versions in ascending
// version order, each paired with its pack format. It performs no side
// effects beyond the two reads.
func (s *Service) Resolve(ctx context.Context) ([]release.Candidate, error) {
	eligible, err := s.fetchEligibleReleases(ctx)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Fetched upstream release catalog", "eligible", len(eligible))

	published, err := s.fetchPublishedSet(ctx)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Fetched published versions",
		"project_id", s.opts.ProjectID, "published", len(published))

	candidates := s.missing(ctx, eligible, published)

	sort.SliceStable(candidates, func(i, j int) bool {
		return release.Compare(candidates[i].Version, candidates[j].Version) < 0
	})

	return candidates, nil
}

// fetchEligibleReleases pulls the upstream catalog and filters it to the
// configured release channels.
func (s *Service) fetchEligibleReleases(ctx context.Context) ([]release.Release, error) {
	var catalog []release.Release

	err := s.policy.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			logger.WarnKV(ctx, "Retrying upstream catalog fetch", "attempt", attempt)
		}

		var fetchErr error
		catalog, fetchErr = s.upstream.Releases(ctx)

		return fetchErr
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, err)
	}

	eligible := make([]release.Release, 0, len(catalog))

	for _, rel := range catalog {
		if rel.IsStable() || (s.opts.IncludeSnapshots && rel.Type == release.TypeSnapshot) {
			eligible = append(eligible, rel)
		}
	}

	return eligible, nil
}

// fetchPublishedSet pulls the destination's version list. A project that does
// not exist yet is treated as having published nothing, matching the
// first-run bootstrap of a fresh project.
func (s *Service) fetchPublishedSet(ctx context.Context) (map[string]struct{}, error) {
	var published map[string]struct{}

	err := s.policy.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			logger.WarnKV(ctx, "Retrying published-version fetch", "attempt", attempt)
		}

		var fetchErr error
		published, fetchErr = s.destination.GameVersions(ctx, s.opts.ProjectID)

		return fetchErr
	}, modrinth.IsRetryable)

	switch {
	case err == nil:
		return published, nil
	case errors.Is(err, modrinth.ErrProjectNotFound):
		logger.WarnKV(ctx, "Project not found on destination, assuming no published versions",
			"project_id", s.opts.ProjectID)

		return map[string]struct{}{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrDestinationUnavailable, err)
	}
}

// missing computes the set difference and resolves pack formats.
func (s *Service) missing(
	ctx context.Context,
	eligible []release.Release,
	published map[string]struct{},
) []release.Candidate {
	candidates := make([]release.Candidate, 0, len(eligible))

	for _, rel := range eligible {
		if _, exists := published[rel.ID]; exists {
			continue
		}

		format, exact := s.table.Resolve(rel.ID)
		if !exact {
			logger.WarnKV(ctx, "No exact pack format entry, using nearest lower version",
				"version", rel.ID, "format", format)
		}

		candidates = append(candidates, release.Candidate{
			Version:    rel.ID,
			PackFormat: format,
		})
	}

	return candidates
}
