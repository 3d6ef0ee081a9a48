// Package common contains shared constants and small helpers used across
// TillaPos client components.
package common

const (
	// AuthorizationHeaderName carries the bearer access token on outbound requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "

	// RequestIDHeaderName tags every logical API call; a replay reuses the id.
	RequestIDHeaderName = "X-Request-ID"
)
