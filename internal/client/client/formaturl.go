package client

import (
	"net/url"
	"strings"
)

// FormatURL replaces the scheme and host of raw with those of base, keeping
// path and query. Values that are empty, already under base, or not absolute
// http(s) URLs are returned unchanged.
func FormatURL(raw, base string) string {
	if raw == "" || strings.HasPrefix(raw, base) {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil || !isHTTP(u) {
		return raw
	}
	b, err := url.Parse(base)
	if err != nil || !isHTTP(b) {
		return raw
	}

	u.Scheme = b.Scheme
	u.Host = b.Host
	return u.String()
}

func isHTTP(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
