package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/tillapos/internal/flagx"
	"github.com/dmitrijs2005/tillapos/internal/timex"
)

// JSONConfig is a DTO used only for unmarshalling; empty fields leave the
// current value alone.
type JSONConfig struct {
	BaseURL     string         `json:"base_url"`
	Timeout     timex.Duration `json:"timeout"`
	Environment string         `json:"environment"`
	LogLevel    string         `json:"log_level"`
	LogFormat   string         `json:"log_format"`
	DBPath      string         `json:"db_path"`
	RefreshMode string         `json:"refresh_mode"`
	RateLimit   *int           `json:"rate_limit"`
}

// LoadJSON overlays values from the file named by -c/--config in args.
func (c *Config) LoadJSON(args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	overlay(&c.BaseURL, strings.TrimRight(jc.BaseURL, "/"))
	overlay(&c.Environment, jc.Environment)
	overlay(&c.LogLevel, jc.LogLevel)
	overlay(&c.LogFormat, jc.LogFormat)
	overlay(&c.DBPath, jc.DBPath)
	overlay(&c.RefreshMode, jc.RefreshMode)

	if jc.Timeout.Duration != 0 {
		c.Timeout = jc.Timeout.Duration
	}
	if jc.RateLimit != nil {
		c.RateLimit = *jc.RateLimit
	}

	return nil
}
