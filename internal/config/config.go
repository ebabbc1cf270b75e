package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds settings shared by the pack publishing binaries.
type Config struct {
	// ProjectID is the destination platform project identifier (slug or UUID).
	ProjectID string `yaml:"project_id"`
	// AssetsRoot is the directory holding the resource pack tree
	// (the assets/ subtree plus the pack.mcmeta template).
	AssetsRoot string `yaml:"assets_root"`
	// FormatTableFile optionally points to a YAML file overriding the
	// built-in version to pack-format table.
	FormatTableFile string `yaml:"format_table"`
	// UpstreamURL is the base URL of the Mojang version manifest API.
	UpstreamURL string `yaml:"upstream_url"`
	// DestinationURL is the base URL of the Modrinth API.
	DestinationURL string `yaml:"destination_url"`
	// Timeout is the per-request ceiling for HTTP calls.
	Timeout time.Duration `yaml:"timeout"`
	// MaxAttempts bounds retries for transient HTTP failures.
	MaxAttempts int `yaml:"max_attempts"`
	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	// IncludeSnapshots makes pre-release game versions eligible for publishing.
	IncludeSnapshots bool `yaml:"include_snapshots"`
	// Changelog is the base text attached to every published version.
	Changelog string `yaml:"changelog"`
	// Token is the destination platform API token. It is supplied via the
	// MODRINTH_TOKEN environment variable and never persisted to YAML.
	Token string `yaml:"-"`
}

const (
	// DefaultConfigFilename is the default filename for publisher settings.
	DefaultConfigFilename = "pack-publisher-settings.yaml"

	// DefaultUpstreamURL is the Mojang version manifest endpoint.
	DefaultUpstreamURL = "https://piston-meta.mojang.com"

	// DefaultDestinationURL is the Modrinth API endpoint.
	DefaultDestinationURL = "https://api.modrinth.com"

	// DefaultTimeout is the default ceiling for a single HTTP call.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxAttempts is the default retry budget for transient failures.
	DefaultMaxAttempts = 3

	// DefaultRetryBaseDelay is the default initial backoff delay.
	DefaultRetryBaseDelay = time.Second

	// DefaultAssetsRoot is the default resource pack directory.
	DefaultAssetsRoot = "."

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// tokenEnvVar supplies the API token.
	tokenEnvVar = "MODRINTH_TOKEN"

	// projectEnvVar optionally overrides the project identifier.
	projectEnvVar = "MODRINTH_PROJECT_ID"
)

// errConfigIsNotSet is returned when a nil configuration is provided.
var errConfigIsNotSet = errors.New("configuration is not set")

// Default returns a configuration populated with built-in defaults.
// Environment overrides are not applied; use Load for that.
func Default() *Config {
	return &Config{
		AssetsRoot:     DefaultAssetsRoot,
		UpstreamURL:    DefaultUpstreamURL,
		DestinationURL: DefaultDestinationURL,
		Timeout:        DefaultTimeout,
		MaxAttempts:    DefaultMaxAttempts,
		RetryBaseDelay: DefaultRetryBaseDelay,
	}
}

// Load reads configuration from the provided path, applies environment
// overrides and validates essential fields. A missing file at the default
// path is not an error: the built-in defaults are used instead, so a config
// file is only needed when the defaults are not enough.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultConfigFilename:
		// Defaults only.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	applyEnvironment(cfg)

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions: the file sits next to CI secrets.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// applying defaults for unset optional values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.UpstreamURL == "" {
		cfg.UpstreamURL = DefaultUpstreamURL
	}

	if cfg.DestinationURL == "" {
		cfg.DestinationURL = DefaultDestinationURL
	}

	for _, endpoint := range []string{cfg.UpstreamURL, cfg.DestinationURL} {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return fmt.Errorf("invalid endpoint URL %q: %w", endpoint, err)
		}
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}

	if cfg.AssetsRoot == "" {
		cfg.AssetsRoot = DefaultAssetsRoot
	}

	return nil
}

// applyEnvironment merges secrets and overrides from the process environment.
func applyEnvironment(cfg *Config) {
	if token := os.Getenv(tokenEnvVar); token != "" {
		cfg.Token = token
	}

	if projectID := os.Getenv(projectEnvVar); projectID != "" {
		cfg.ProjectID = projectID
	}
}
