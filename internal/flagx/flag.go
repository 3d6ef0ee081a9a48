// Package flagx holds helpers for parsing a subset of command-line flags
// without tripping over flags owned by other parsers.
package flagx

import (
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// FilterArgs keeps only the flags listed in allowed together with their values.
//
// Both "-f value" and "--flag=value" forms are recognised. A token that starts
// with '-' is never consumed as a value.
func FilterArgs(args []string, allowed []string) []string {
	known := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		known[name] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, found := known[name]; found {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, found := known[arg]; !found {
			continue
		}

		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigFileFlag extracts the JSON config path given with -c or --config.
// Returns "" when neither is present.
func ConfigFileFlag(args []string) string {
	var path string

	fs := pflag.NewFlagSet("config-file", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVarP(&path, "config", "c", "", "Path to JSON config file")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "--config"}))

	return path
}
