package modrinth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/oshokin/pack-publisher/internal/version"
)

const (
	// versionsPathFormat lists existing versions of a project.
	versionsPathFormat = "/v2/project/%s/version"

	// createVersionPath accepts multipart version uploads.
	createVersionPath = "/v2/version"

	// maxResponseBytes caps API response reads (10 MB).
	maxResponseBytes = 10 << 20

	// maxErrorBodyBytes caps how much of an error body is kept for messages.
	maxErrorBodyBytes = 2 << 10

	// filePartName is the multipart field carrying the artifact.
	filePartName = "file"

	// dataPartName is the multipart field carrying the version metadata JSON.
	dataPartName = "data"
)

// ErrProjectNotFound is returned when the project does not exist on the platform.
var ErrProjectNotFound = errors.New("project not found")

type (
	// Client talks to the Modrinth REST API for one authenticated account.
	Client struct {
		httpClient *http.Client
		baseURL    string
		token      string
		userAgent  string
	}

	// Option configures a Client during construction.
	Option func(*Client)

	// StatusError is an API answer outside the 2xx range.
	StatusError struct {
		// Code is the HTTP status code.
		Code int
		// Body is a truncated copy of the response body for diagnostics.
		Body string
	}

	// CreateVersionRequest describes one version upload.
	CreateVersionRequest struct {
		// ProjectID is the destination project (slug or UUID).
		ProjectID string
		// Name is the human-readable version title.
		Name string
		// VersionNumber is the version label, here the game version itself.
		VersionNumber string
		// Changelog is the release description text.
		Changelog string
		// GameVersions lists compatible game versions.
		GameVersions []string
		// Featured marks the version as featured on the project page.
		Featured bool
	}

	// projectVersion is the wire format of one listed project version.
	projectVersion struct {
		GameVersions []string `json:"game_versions"`
	}

	// createVersionPayload is the wire format of the `data` multipart field.
	createVersionPayload struct {
		Name          string   `json:"name"`
		VersionNumber string   `json:"version_number"`
		Changelog     string   `json:"changelog"`
		Dependencies  []any    `json:"dependencies"`
		GameVersions  []string `json:"game_versions"`
		VersionType   string   `json:"version_type"`
		Loaders       []string `json:"loaders"`
		Featured      bool     `json:"featured"`
		ProjectID     string   `json:"project_id"`
		FileParts     []string `json:"file_parts"`
	}
)

// Error formats the status error for logs.
func (e *StatusError) Error() string {
	return fmt.Sprintf("modrinth api status %d: %s", e.Code, e.Body)
}

// IsConflict reports whether the error means the version already exists.
// The platform answers 409 for duplicate version numbers; older API builds
// answered 400 with an "already exists" message, so the body is checked too.
func IsConflict(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}

	if statusErr.Code == http.StatusConflict {
		return true
	}

	return strings.Contains(strings.ToLower(statusErr.Body), "already exists")
}

// IsRetryable reports whether the error is worth another attempt:
// server-side failures and transport errors are transient, client-side
// rejections are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError
	}

	// Transport-level failure (timeout, refused connection, reset).
	return !errors.Is(err, ErrProjectNotFound)
}

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

// NewClient creates an API client. The token may be empty for read-only use.
func NewClient(baseURL, token string, opts ...Option) *Client {
	client := &Client{
		httpClient: http.DefaultClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		userAgent:  "pack-publisher/" + version.Short(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// GameVersions returns the set of game versions already covered by the
// project's published versions. A missing project yields ErrProjectNotFound
// so the caller can decide whether that is fatal.
func (c *Client) GameVersions(ctx context.Context, projectID string) (map[string]struct{}, error) {
	endpoint := c.baseURL + fmt.Sprintf(versionsPathFormat, projectID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build version list request: %w", err)
	}

	c.setCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list project versions: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrProjectNotFound)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var versions []projectVersion

	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	if err = decoder.Decode(&versions); err != nil {
		return nil, fmt.Errorf("decode project versions: %w", err)
	}

	published := make(map[string]struct{})

	for _, projectVer := range versions {
		for _, gameVersion := range projectVer.GameVersions {
			published[gameVersion] = struct{}{}
		}
	}

	return published, nil
}

// CreateVersion uploads a new version with the artifact as its single file.
// Any non-2xx answer is returned as a *StatusError.
func (c *Client) CreateVersion(
	ctx context.Context,
	request *CreateVersionRequest,
	fileName string,
	file io.Reader,
) error {
	payload := &createVersionPayload{
		Name:          request.Name,
		VersionNumber: request.VersionNumber,
		Changelog:     request.Changelog,
		Dependencies:  []any{},
		GameVersions:  request.GameVersions,
		VersionType:   "release",
		Loaders:       []string{"minecraft"},
		Featured:      request.Featured,
		ProjectID:     request.ProjectID,
		FileParts:     []string{filePartName},
	}

	body, contentType, err := encodeMultipart(payload, fileName, file)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createVersionPath, body)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}

	c.setCommonHeaders(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload version: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.statusError(resp)
	}

	return nil
}

// encodeMultipart assembles the `data` JSON part and the zip `file` part.
func encodeMultipart(payload *createVersionPayload, fileName string, file io.Reader) (io.Reader, string, error) {
	buffer := new(bytes.Buffer)
	writer := multipart.NewWriter(buffer)

	metadata, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("marshal version metadata: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, dataPartName))
	header.Set("Content-Type", "application/json")

	dataPart, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create metadata part: %w", err)
	}

	if _, err = dataPart.Write(metadata); err != nil {
		return nil, "", fmt.Errorf("write metadata part: %w", err)
	}

	filePart, err := writer.CreateFormFile(filePartName, fileName)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}

	if _, err = io.Copy(filePart, file); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}

	if err = writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finish multipart body: %w", err)
	}

	return buffer, writer.FormDataContentType(), nil
}

// setCommonHeaders applies authentication and identification headers.
func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)

	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}
}

// statusError drains a truncated body and wraps the status for the caller.
func (c *Client) statusError(resp *http.Response) error {
	// Best-effort diagnostics; a read failure just yields an empty body.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	return &StatusError{
		Code: resp.StatusCode,
		Body: strings.TrimSpace(string(body)),
	}
}
