package apitest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, s *Server, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, s.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck

	var env map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func TestServer_SignInAndRefreshRotates(t *testing.T) {
	t.Parallel()

	s := NewServer()
	defer s.Close()

	_, err := s.AddUser("ann", "ann@example.com", "secret")
	require.NoError(t, err)

	resp, env := post(t, s, "/auth/sign-in", "", map[string]string{"email": "ann@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := env["data"].(map[string]any)
	refresh := data["refreshToken"].(string)
	require.NotEmpty(t, data["accessToken"])

	resp, _ = post(t, s, "/auth/refresh", "", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = post(t, s, "/auth/refresh", "", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid refresh token", env["message"])
	assert.Equal(t, 2, s.Calls(RouteRefresh))
}

func TestServer_WrongPassword(t *testing.T) {
	t.Parallel()

	s := NewServer()
	defer s.Close()

	_, err := s.AddUser("ann", "ann@example.com", "secret")
	require.NoError(t, err)

	resp, env := post(t, s, "/auth/sign-in", "", map[string]string{"email": "ann@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", env["message"])
}

func TestServer_ValidationMessagesAreAList(t *testing.T) {
	t.Parallel()

	s := NewServer()
	defer s.Close()

	resp, env := post(t, s, "/auth/signup", "", map[string]string{"email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	msgs, ok := env["message"].([]any)
	require.True(t, ok)
	assert.Contains(t, msgs, "username should not be empty")
	assert.Contains(t, msgs, "email must be an email")
}

func TestServer_RevokedAccessTokenIsRejected(t *testing.T) {
	t.Parallel()

	s := NewServer()
	defer s.Close()

	_, err := s.AddUser("ann", "ann@example.com", "secret")
	require.NoError(t, err)
	cred, err := s.IssueTokens("ann@example.com")
	require.NoError(t, err)

	resp, _ := post(t, s, "/auth/logout", cred.AccessToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = post(t, s, "/auth/logout", cred.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	calls := s.Recorded(RouteLogout)
	require.Len(t, calls, 2)
	assert.Equal(t, "Bearer "+cred.AccessToken, calls[0].Authorization)
}

func TestServer_OTPChallenge(t *testing.T) {
	t.Parallel()

	s := NewServer()
	defer s.Close()

	_, err := s.AddUser("ann", "ann@example.com", "secret")
	require.NoError(t, err)
	s.RequireOTP("ann@example.com")

	_, env := post(t, s, "/auth/sign-in", "", map[string]string{"email": "ann@example.com", "password": "secret"})
	assert.Equal(t, map[string]any{"needsOtp": true}, env["data"])

	code := s.OTPCode("ann@example.com")
	require.Len(t, code, 6)

	resp, env := post(t, s, "/auth/otp-verify", "", map[string]string{"email": "ann@example.com", "code": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, env["data"].(map[string]any)["accessToken"])
	assert.Empty(t, s.OTPCode("ann@example.com"))
}
