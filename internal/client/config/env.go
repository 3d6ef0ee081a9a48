package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads .env from the working directory. A missing file is not an
// error.
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

// LoadEnv overlays every non-empty variable.
func (c *Config) LoadEnv(getenv func(string) string) error {
	setString := func(o *string) func(string) error {
		return func(value string) error {
			*o = value
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"API_BASE_URL": func(value string) error {
			c.BaseURL = strings.TrimRight(value, "/")
			return nil
		},
		"API_TIMEOUT": func(value string) error {
			ms, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			c.Timeout = time.Duration(ms) * time.Millisecond
			return nil
		},
		"APP_ENV":      setString(&c.Environment),
		"LOG_LEVEL":    setString(&c.LogLevel),
		"LOG_FORMAT":   setString(&c.LogFormat),
		"DB_PATH":      setString(&c.DBPath),
		"REFRESH_MODE": setString(&c.RefreshMode),
		"RATE_LIMIT": func(value string) error {
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			c.RateLimit = n
			return nil
		},
	}

	for key, parseFn := range envMap {
		value := getenv(key)
		if value == "" {
			continue
		}
		if err := parseFn(value); err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, key, value, err)
		}
	}

	return nil
}
