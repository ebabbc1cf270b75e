package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/oshokin/pack-publisher/internal/client/modrinth"
	"github.com/oshokin/pack-publisher/internal/client/mojang"
	"github.com/oshokin/pack-publisher/internal/config"
	"github.com/oshokin/pack-publisher/internal/domain/release"
	"github.com/oshokin/pack-publisher/internal/logger"
	"github.com/oshokin/pack-publisher/internal/packformat"
	"github.com/oshokin/pack-publisher/internal/retry"
	"github.com/oshokin/pack-publisher/internal/service/builder"
	"github.com/oshokin/pack-publisher/internal/service/publisher"
	"github.com/oshokin/pack-publisher/internal/service/resolver"
)

// Options contains inputs for the publishing pipeline entry points.
type Options struct {
	// ConfigPath is an optional path to the settings YAML file.
	ConfigPath string
	// ProjectID overrides the configured destination project identifier.
	ProjectID string
	// AssetsRoot overrides the configured resource pack directory.
	AssetsRoot string
	// DryRun stops after resolution, reporting what would be uploaded.
	DryRun bool
}

var (
	// errProjectIDRequired is returned when no project identifier is available.
	errProjectIDRequired = errors.New("project identifier must be provided")
	// errTokenRequired is returned when uploads are requested without a token.
	errTokenRequired = errors.New("API token must be provided via MODRINTH_TOKEN")
)

// run holds the wired dependencies of a single pipeline execution.
// It is unexported; callers use Run or Resolve.
type run struct {
	cfg       *config.Config
	resolver  *resolver.Service
	builder   *builder.Service
	publisher *publisher.Service
}

// Run executes the full pipeline: resolve missing versions, then build and
// upload an artifact for each, sequentially. Per-version upload failures are
// reported but do not fail the run; resolution and build configuration
// errors do.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "pack-publisher")

	r, err := newRun(ctx, opts, !opts.DryRun)
	if err != nil {
		return err
	}

	candidates, err := r.resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve versions: %w", err)
	}

	if len(candidates) == 0 {
		logger.Info(ctx, "All stable versions are already published, nothing to do")
		return nil
	}

	logger.InfoKV(ctx, "Resolved missing versions",
		"count", len(candidates), "versions", candidateVersions(candidates))

	if opts.DryRun {
		logger.Info(ctx, "Dry run requested, skipping build and upload")
		return nil
	}

	report := new(release.Report)

	for _, candidate := range candidates {
		result, processErr := r.processVersion(ctx, candidate)
		if processErr != nil {
			// Build errors are configuration problems: every later version
			// would fail the same way, so stop the run.
			return processErr
		}

		report.Add(result)
	}

	logger.InfoKV(ctx, "Run complete", "summary", report.String())

	if uploaded := report.Versions(release.StatusUploaded); len(uploaded) > 0 {
		logger.InfoKV(ctx, "Uploaded versions", "versions", strings.Join(uploaded, ", "))
	}

	for _, result := range report.Results {
		if result.Status == release.StatusFailed {
			logger.ErrorKV(ctx, "Version failed", "version", result.Version, "error", result.Err)
		}
	}

	return nil
}

// Resolve computes and returns the missing versions without side effects,
// backing the resolver binary's JSON report.
func Resolve(ctx context.Context, opts *Options) ([]release.Candidate, error) {
	ctx = logger.WithName(ctx, "pack-resolver")

	r, err := newRun(ctx, opts, false)
	if err != nil {
		return nil, err
	}

	return r.resolver.Resolve(ctx)
}

// BuildArtifact builds a single version's archive to an explicit path,
// resolving the pack format from the table unless an override is given.
func BuildArtifact(
	ctx context.Context,
	opts *Options,
	gameVersion string,
	formatOverride int,
	outputPath string,
) (*builder.Artifact, error) {
	ctx = logger.WithName(ctx, "pack-builder")

	r, err := newRun(ctx, opts, false)
	if err != nil {
		return nil, err
	}

	format := formatOverride
	if format <= 0 {
		table, tableErr := loadTable(r.cfg)
		if tableErr != nil {
			return nil, tableErr
		}

		var exact bool

		format, exact = table.Resolve(gameVersion)
		if !exact {
			logger.WarnKV(ctx, "No exact pack format entry, using nearest lower version",
				"version", gameVersion, "format", format)
		}
	}

	logger.InfoKV(ctx, "Building artifact",
		"version", gameVersion, "format", format, "output", outputPath)

	return r.builder.BuildTo(ctx, gameVersion, format, outputPath)
}

// newRun loads configuration and wires the services for one execution.
func newRun(ctx context.Context, opts *Options, requireToken bool) (*run, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if opts.ProjectID != "" {
		cfg.ProjectID = opts.ProjectID
	}

	if opts.AssetsRoot != "" {
		cfg.AssetsRoot = opts.AssetsRoot
	}

	if cfg.ProjectID == "" {
		return nil, errProjectIDRequired
	}

	if requireToken && cfg.Token == "" {
		return nil, errTokenRequired
	}

	table, err := loadTable(cfg)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	policy := retry.Policy{MaxAttempts: cfg.MaxAttempts, BaseDelay: cfg.RetryBaseDelay}

	upstream := mojang.NewClient(cfg.UpstreamURL, mojang.WithHTTPClient(httpClient))
	destination := modrinth.NewClient(cfg.DestinationURL, cfg.Token, modrinth.WithHTTPClient(httpClient))

	logger.DebugKV(ctx, "Pipeline configured",
		"project_id", cfg.ProjectID, "assets_root", cfg.AssetsRoot,
		"max_attempts", cfg.MaxAttempts, "include_snapshots", cfg.IncludeSnapshots)

	return &run{
		cfg: cfg,
		resolver: resolver.New(upstream, destination, table, policy, resolver.Options{
			ProjectID:        cfg.ProjectID,
			IncludeSnapshots: cfg.IncludeSnapshots,
		}),
		builder: builder.New(cfg.AssetsRoot),
		publisher: publisher.New(destination, policy, publisher.Options{
			ProjectID: cfg.ProjectID,
			Changelog: cfg.Changelog,
		}),
	}, nil
}

// processVersion builds and uploads one version, always discarding the
// artifact afterwards. Upload outcomes are returned as results; build
// failures are returned as errors because they abort the run.
func (r *run) processVersion(ctx context.Context, candidate release.Candidate) (release.UploadResult, error) {
	logger.InfoKV(ctx, "Processing version",
		"version", candidate.Version, "format", candidate.PackFormat)

	artifact, err := r.builder.Build(ctx, candidate.Version, candidate.PackFormat)
	if err != nil {
		return release.UploadResult{}, fmt.Errorf("build artifact for %s: %w", candidate.Version, err)
	}

	defer func() {
		_ = artifact.Close()
	}()

	return r.publisher.Publish(ctx, candidate, artifact), nil
}

// loadTable picks the maintainer override when configured, else the builtin.
func loadTable(cfg *config.Config) (*packformat.Table, error) {
	if cfg.FormatTableFile == "" {
		return packformat.Builtin(), nil
	}

	table, err := packformat.LoadFile(cfg.FormatTableFile)
	if err != nil {
		return nil, fmt.Errorf("load format table: %w", err)
	}

	return table, nil
}

// candidateVersions renders the version list for logs.
func candidateVersions(candidates []release.Candidate) string {
	versions := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		versions = append(versions, candidate.Version)
	}

	return strings.Join(versions, ", ")
}
