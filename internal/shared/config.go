package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// MaxCatalogBatch is the largest number of track ids the catalog accepts in a single lookup.
const MaxCatalogBatch = 50

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Import      ImportConfig      `toml:"import"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify Web API client credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenURL     string `toml:"token_url"`
	BaseURL      string `toml:"base_url"`
}

// CatalogConfig tunes how the catalog is queried during enrichment.
type CatalogConfig struct {
	BatchSize             int     `toml:"batch_size"`
	Concurrency           int     `toml:"concurrency"`
	RateLimit             float64 `toml:"rate_limit"`
	TimeoutSeconds        int     `toml:"timeout_seconds"`
	BreakerFailureRatio   float64 `toml:"breaker_failure_ratio"`
	BreakerMinRequests    uint32  `toml:"breaker_min_requests"`
	BreakerTimeoutSeconds int     `toml:"breaker_timeout_seconds"`
}

// Timeout returns the per-request HTTP timeout.
func (c CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BreakerTimeout returns how long the breaker stays open before probing again.
func (c CatalogConfig) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutSeconds) * time.Second
}

// EffectiveBatchSize clamps the configured batch size to 1..[MaxCatalogBatch].
func (c CatalogConfig) EffectiveBatchSize() int {
	switch {
	case c.BatchSize <= 0 || c.BatchSize > MaxCatalogBatch:
		return MaxCatalogBatch
	default:
		return c.BatchSize
	}
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path          string `toml:"path"`
	MaxOpenConns  int    `toml:"max_open_conns"`
	MaxIdleConns  int    `toml:"max_idle_conns"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host                   string `toml:"host"`
	Port                   int    `toml:"port"`
	APIKey                 string `toml:"api_key"`
	RateLimitRequests      int    `toml:"rate_limit_requests"`
	RateLimitWindowSeconds int    `toml:"rate_limit_window_seconds"`
	MaxUploadMB            int64  `toml:"max_upload_mb"`
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RateLimitWindow returns the window for the import endpoint rate limit.
func (s ServerConfig) RateLimitWindow() time.Duration {
	return time.Duration(s.RateLimitWindowSeconds) * time.Second
}

// MaxUploadBytes returns the request body limit in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

// ImportConfig contains defaults applied to import runs.
type ImportConfig struct {
	DefaultUser     string `toml:"default_user"`
	PlaceholderName string `toml:"placeholder_name"`
}

// LoadConfig reads a TOML configuration file from the specified path.
// Keys missing from the file keep the embedded defaults and environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyEnv(os.LookupEnv)
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overrides secrets and the database path from the environment.
// lookup has the signature of [os.LookupEnv] so tests can supply their own.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	overrides := map[string]*string{
		"API_KEY":               &c.Server.APIKey,
		"SPOTIFY_CLIENT_ID":     &c.Credentials.Spotify.ClientID,
		"SPOTIFY_CLIENT_SECRET": &c.Credentials.Spotify.ClientSecret,
		"LISTENLOG_DB_PATH":     &c.Database.Path,
	}
	for key, field := range overrides {
		if v, ok := lookup(key); ok && v != "" {
			*field = v
		}
	}
}

// Validate reports [ErrInvalidConfig] for values the application cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Database.Path == "":
		return fmt.Errorf("%w: database.path is empty", ErrInvalidConfig)
	case c.Catalog.Concurrency < 1:
		return fmt.Errorf("%w: catalog.concurrency must be at least 1", ErrInvalidConfig)
	case c.Catalog.RateLimit <= 0:
		return fmt.Errorf("%w: catalog.rate_limit must be positive", ErrInvalidConfig)
	case c.Catalog.BreakerFailureRatio <= 0 || c.Catalog.BreakerFailureRatio > 1:
		return fmt.Errorf("%w: catalog.breaker_failure_ratio must be in (0, 1]", ErrInvalidConfig)
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	case c.Import.DefaultUser == "":
		return fmt.Errorf("%w: import.default_user is empty", ErrInvalidConfig)
	}
	return nil
}

// HasSpotifyCredentials reports whether non-placeholder client credentials are configured.
func (c *Config) HasSpotifyCredentials() bool {
	s := c.Credentials.Spotify
	return s.ClientID != "" && s.ClientSecret != "" &&
		s.ClientID != "your_spotify_client_id" && s.ClientSecret != "your_spotify_client_secret"
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
