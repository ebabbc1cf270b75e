package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/oshokin/pack-publisher/internal/client/modrinth"
	"github.com/oshokin/pack-publisher/internal/domain/release"
	"github.com/oshokin/pack-publisher/internal/logger"
	"github.com/oshokin/pack-publisher/internal/retry"
	"github.com/oshokin/pack-publisher/internal/service/builder"
)

var (
	// ErrRejectedByDestination marks a client-side rejection (4xx other than
	// the already-exists conflict). It fails the version, not the run.
	ErrRejectedByDestination = errors.New("upload rejected by destination")

	// ErrUploadFailed marks a transient failure that survived the whole retry
	// budget. It fails the version, not the run.
	ErrUploadFailed = errors.New("upload failed")
)

type (
	// UploadClient creates new versions on the destination platform.
	UploadClient interface {
		CreateVersion(ctx context.Context, request *modrinth.CreateVersionRequest, fileName string, file io.Reader) error
	}

	// Options carries the per-project publishing configuration.
	Options struct {
		// ProjectID is the destination project identifier.
		ProjectID string
		// Changelog is the base description text; empty means a default.
		Changelog string
	}

	// Service uploads built artifacts, one version at a time.
	Service struct {
		client UploadClient
		policy retry.Policy
		opts   Options
	}
)

// New wires a publisher with an injected retry policy.
func New(client UploadClient, policy retry.Policy, opts Options) *Service {
	return &Service{
		client: client,
		policy: policy,
		opts:   opts,
	}
}

// Publish submits one artifact and classifies the outcome. It never returns
// an error: every outcome is an UploadResult so a single version's failure
// cannot abort the processing of later versions.
func (s *Service) Publish(
	ctx context.Context,
	candidate release.Candidate,
	artifact *builder.Artifact,
) release.UploadResult {
	request := &modrinth.CreateVersionRequest{
		ProjectID:     s.opts.ProjectID,
		Name:          "Minecraft " + candidate.Version,
		VersionNumber: candidate.Version,
		Changelog:     s.changelogFor(candidate.Version),
		GameVersions:  []string{candidate.Version},
	}

	fileName := fmt.Sprintf("pack-%s.zip", candidate.Version)

	err := s.policy.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			logger.WarnKV(ctx, "Retrying upload", "version", candidate.Version, "attempt", attempt)
		}

		// The request body is consumed per attempt, so reopen the artifact.
		file, openErr := artifact.Open()
		if openErr != nil {
			return openErr
		}

		defer func() {
			_ = file.Close()
		}()

		return s.client.CreateVersion(ctx, request, fileName, file)
	}, modrinth.IsRetryable)

	switch {
	case err == nil:
		logger.InfoKV(ctx, "Uploaded version",
			"version", candidate.Version, "size", artifact.Size, "file", fileName)

		return release.UploadResult{Version: candidate.Version, Status: release.StatusUploaded}
	case modrinth.IsConflict(err):
		logger.InfoKV(ctx, "Version already exists on destination, skipping",
			"version", candidate.Version)

		return release.UploadResult{Version: candidate.Version, Status: release.StatusSkipped}
	case modrinth.IsRetryable(err):
		return release.UploadResult{
			Version: candidate.Version,
			Status:  release.StatusFailed,
			Err:     fmt.Errorf("%w: %s", ErrUploadFailed, err),
		}
	default:
		return release.UploadResult{
			Version: candidate.Version,
			Status:  release.StatusFailed,
			Err:     fmt.Errorf("%w: %s", ErrRejectedByDestination, err),
		}
	}
}

// changelogFor combines the configured base text with the version.
func (s *Service) changelogFor(gameVersion string) string {
	base := s.opts.Changelog
	if base == "" {
		base = "Automated resource pack build"
	}

	return fmt.Sprintf("%s for Minecraft %s", base, gameVersion)
}
