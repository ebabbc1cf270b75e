package mojang

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oshokin/pack-publisher/internal/domain/release"
	"github.com/oshokin/pack-publisher/internal/version"
)

const (
	// manifestPath is the version manifest resource on the upstream host.
	manifestPath = "/mc/game/version_manifest.json"

	// maxResponseBytes caps manifest reads (10 MB). The manifest is well
	// under 1 MB; the cap guards against malformed responses.
	maxResponseBytes = 10 << 20
)

// ErrBadStatus is returned when the upstream answers with a non-200 code.
var ErrBadStatus = errors.New("unexpected http status")

type (
	// Client queries the Mojang version manifest API for the game release catalog.
	Client struct {
		httpClient *http.Client
		baseURL    string
		userAgent  string
	}

	// Option configures a Client during construction.
	Option func(*Client)

	// manifestResponse is the JSON wire format of the version manifest.
	manifestResponse struct {
		Versions []manifestVersion `json:"versions"`
	}

	// manifestVersion is a single manifest entry.
	manifestVersion struct {
		ID          string    `json:"id"`
		Type        string    `json:"type"`
		ReleaseTime time.Time `json:"releaseTime"`
	}
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Client) {
		m.httpClient = c
	}
}

// WithUserAgent overrides the User-Agent header value.
func WithUserAgent(agent string) Option {
	return func(m *Client) {
		m.userAgent = agent
	}
}

// NewClient creates a manifest client against the provided base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		httpClient: http.DefaultClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  "pack-publisher/" + version.Short(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Releases fetches the full game version catalog.
// Entries with types other than release or snapshot (old_beta, old_alpha)
// are mapped to the snapshot channel: they are never publish targets.
func (c *Client) Releases(ctx context.Context) ([]release.Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+manifestPath, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build manifest request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch version manifest: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w", resp.Status, ErrBadStatus)
	}

	var manifest manifestResponse

	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	if err = decoder.Decode(&manifest); err != nil {
		return nil, fmt.Errorf("decode version manifest: %w", err)
	}

	releases := make([]release.Release, 0, len(manifest.Versions))
	for _, entry := range manifest.Versions {
		channel := release.TypeSnapshot
		if entry.Type == string(release.TypeRelease) {
			channel = release.TypeRelease
		}

		releases = append(releases, release.Release{
			ID:         entry.ID,
			Type:       channel,
			ReleasedAt: entry.ReleaseTime,
		})
	}

	return releases, nil
}
