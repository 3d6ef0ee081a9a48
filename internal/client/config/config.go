package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/tillapos/internal/logging"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	RefreshSingleFlight = "singleflight"
	RefreshPerRequest   = "per-request"

	defaultBaseURL     = "https://api.tillapos.dev"
	defaultTimeout     = 10 * time.Second
	defaultEnvironment = EnvDevelopment
	defaultLogLevel    = logging.LevelInfo
	defaultLogFormat   = logging.FormatText
	defaultRefreshMode = RefreshSingleFlight
	defaultDBName      = "tillapos.db"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds runtime settings for the TillaPos CLI.
type Config struct {
	// Base URL of the TillaPos REST API, without trailing slash
	BaseURL string

	// Per-request timeout, shared by the refresh exchange and the replay
	Timeout time.Duration

	Environment string
	LogLevel    string
	LogFormat   string

	// Local SQLite database holding credentials and the device id
	DBPath string

	RefreshMode string

	// Requests per second; 0 disables rate limiting
	RateLimit int
}

func NewConfig() *Config {
	return &Config{
		BaseURL:     defaultBaseURL,
		Timeout:     defaultTimeout,
		Environment: defaultEnvironment,
		LogLevel:    defaultLogLevel,
		LogFormat:   defaultLogFormat,
		DBPath:      DefaultDBPath(),
		RefreshMode: defaultRefreshMode,
	}
}

// DefaultDBPath places the database under the user config dir, falling back
// to the working directory.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return defaultDBName
	}
	return filepath.Join(dir, "tillapos", defaultDBName)
}

// LoadConfig applies every source in order and validates the result.
func LoadConfig(args []string, getenv func(string) string, getwd func() (string, error)) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.LoadDotEnv(getwd); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.LoadEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.LoadJSON(args); err != nil {
		return nil, err
	}
	if err := cfg.ParseFlags(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base url %q must be an absolute http(s) url", ErrInvalidConfig, c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, c.Timeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidConfig)
	}
	if c.RefreshMode != RefreshSingleFlight && c.RefreshMode != RefreshPerRequest {
		return fmt.Errorf("%w: unknown refresh mode %q", ErrInvalidConfig, c.RefreshMode)
	}
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("%w: unknown environment %q", ErrInvalidConfig, c.Environment)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: database path is empty", ErrInvalidConfig)
	}
	return nil
}
