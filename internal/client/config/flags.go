package config

import (
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/dmitrijs2005/tillapos/internal/flagx"
)

var knownFlags = []string{
	"-u", "--base-url",
	"-t", "--timeout",
	"-e", "--env",
	"-l", "--log-level",
	"--log-format",
	"-d", "--db",
	"--refresh-mode",
	"--rate-limit",
}

// ParseFlags overlays command-line flags. Arguments it does not own (such as
// -c/--config) are filtered out first.
//
//	-u, --base-url string     API base URL
//	-t, --timeout duration    request timeout (e.g. 10s)
//	-e, --env string          development | production
//	-l, --log-level string    debug | info | warn | error
//	    --log-format string   text | json
//	-d, --db string           local database path
//	    --refresh-mode string singleflight | per-request
//	    --rate-limit int      requests per second, 0 disables
func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("tillapos", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVarP(&c.BaseURL, "base-url", "u", c.BaseURL, "API base URL")
	fs.DurationVarP(&c.Timeout, "timeout", "t", c.Timeout, "Request timeout")
	fs.StringVarP(&c.Environment, "env", "e", c.Environment, "Environment (development, production)")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format (text, json)")
	fs.StringVarP(&c.DBPath, "db", "d", c.DBPath, "Local database path")
	fs.StringVar(&c.RefreshMode, "refresh-mode", c.RefreshMode, "Token refresh mode (singleflight, per-request)")
	fs.IntVar(&c.RateLimit, "rate-limit", c.RateLimit, "Requests per second, 0 disables")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}
