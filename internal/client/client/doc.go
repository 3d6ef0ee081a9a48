// Package client is the authenticated TillaPos API client.
//
// # Overview
//
// HTTPClient executes API calls through a fixed pipeline:
//
//  1. the request interceptor reads the access token from the credential
//     store and attaches it as "Authorization: Bearer <token>";
//  2. the request is sent on the transport (an *http.Client by default);
//  3. on a first 401 the response interceptor exchanges the stored refresh
//     token at POST /auth/refresh, persists the new pair and replays the
//     original request exactly once with the new token;
//  4. when no refresh token is stored or the exchange fails, the session is
//     invalidated: the store is cleared and the session notifier is told.
//
// The replay outcome is returned as-is, a 401 on the replay is not retried.
// Concurrent first-401s share one refresh exchange unless RefreshPerRequest
// is selected.
//
// # Error Handling
//
// Non-2xx responses become *APIError carrying the server message. A failed
// refresh exchange is returned as *RefreshError. Transport failures wrap
// ErrUnavailable; credential store read failures wrap ErrCredentialStore.
//
// The package also bootstraps the local SQLite database (InitDatabase).
package client
