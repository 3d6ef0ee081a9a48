package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/tillapos/internal/client/credentials"
	"github.com/dmitrijs2005/tillapos/internal/client/models"
	"github.com/dmitrijs2005/tillapos/internal/client/session"
	"github.com/dmitrijs2005/tillapos/internal/common"
	"github.com/dmitrijs2005/tillapos/internal/logging"
)

const (
	DefaultTimeout = 10 * time.Second

	PathRefresh = "/auth/refresh"
)

// Client is the contract the operation services depend on.
type Client interface {
	// Do runs r through the authenticated pipeline and decodes the envelope
	// data into out (nil to discard).
	Do(ctx context.Context, r *Request, out any) error
}

// Doer is the transport primitive. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type RefreshMode string

const (
	// RefreshSingleFlight lets concurrent first-401s share one exchange.
	RefreshSingleFlight RefreshMode = "singleflight"
	// RefreshPerRequest lets every first-401 run its own exchange.
	RefreshPerRequest RefreshMode = "per-request"
)

// attempt is the retry marker of one logical call.
type attempt int

const (
	attemptOriginal attempt = iota
	attemptReplay
)

var errNoRefreshToken = errors.New("no refresh token stored")

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type HTTPClient struct {
	baseURL     string
	store       credentials.Store
	httpClient  *http.Client
	doer        Doer
	logger      logging.Logger
	limiter     *rate.Limiter
	notifier    session.Notifier
	invalidator *session.Invalidator
	refreshMode RefreshMode
	refreshes   singleflight.Group
}

type Option func(*HTTPClient)

// WithDoer replaces the transport. WithTimeout has no effect on a custom Doer.
func WithDoer(d Doer) Option {
	return func(c *HTTPClient) {
		c.doer = d
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = timeout
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logger.With("component", "api")
	}
}

// WithRateLimit caps outgoing calls per second; rps <= 0 disables the limit.
func WithRateLimit(rps int) Option {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
}

func WithRefreshMode(mode RefreshMode) Option {
	return func(c *HTTPClient) {
		c.refreshMode = mode
	}
}

// WithNotifier sets who learns about session invalidation. When it also
// implements session.Holder it is kept up to date with refreshed tokens.
func WithNotifier(n session.Notifier) Option {
	return func(c *HTTPClient) {
		c.notifier = n
	}
}

func NewHTTPClient(baseURL string, store credentials.Store, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		store:       store,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		logger:      logging.NewNop(),
		limiter:     rate.NewLimiter(rate.Inf, 0),
		notifier:    session.NopNotifier{},
		refreshMode: RefreshSingleFlight,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.doer == nil {
		c.doer = c.httpClient
	}
	c.invalidator = session.NewInvalidator(store, c.notifier, c.logger)

	return c
}

func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// FormatURL rewrites the origin of a server-provided asset URL to the
// configured base URL origin.
func (c *HTTPClient) FormatURL(raw string) string {
	return FormatURL(raw, c.baseURL)
}

func (c *HTTPClient) Do(ctx context.Context, r *Request, out any) error {
	resp, err := c.execute(ctx, r, uuid.NewString(), attemptOriginal, "")
	if err != nil {
		return err
	}
	return decodeResponse(resp, r.Path, out)
}

// execute sends r once and, on a first 401, recovers the session and replays
// it with the fresh token. The replay's response is returned whatever it is.
func (c *HTTPClient) execute(ctx context.Context, r *Request, requestID string, att attempt, token string) (*http.Response, error) {
	if att == attemptOriginal {
		var err error
		if token, err = c.accessToken(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.send(ctx, r, requestID, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || att == attemptReplay {
		return resp, nil
	}

	original := readAPIError(resp, r.Path)
	_ = resp.Body.Close()

	fresh, err := c.recoverSession(ctx, original, token)
	if err != nil {
		return nil, err
	}

	c.logger.Debug(ctx, "replaying request", "method", r.Method, "path", r.Path, "request_id", requestID)
	return c.execute(ctx, r, requestID, attemptReplay, fresh)
}

// accessToken is the request interceptor's read of the store.
func (c *HTTPClient) accessToken(ctx context.Context) (string, error) {
	token, err := c.store.Get(ctx, credentials.KeyAccessToken)
	if err != nil {
		return "", fmt.Errorf("%w: read access token: %w", ErrCredentialStore, err)
	}
	return token, nil
}

func (c *HTTPClient) send(ctx context.Context, r *Request, requestID, token string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.baseURL+r.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, requestID)
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	c.logger.Debug(ctx, "api request", "method", r.Method, "path", r.Path, "request_id", requestID)

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, r.Method, r.Path, err)
	}
	return resp, nil
}

// recoverSession obtains a token to replay with after a first 401. On an
// irrecoverable failure it invalidates the session: a missing refresh token
// returns the original error, a failed exchange returns *RefreshError.
func (c *HTTPClient) recoverSession(ctx context.Context, original *APIError, staleToken string) (string, error) {
	var (
		cred models.Credential
		err  error
	)

	switch c.refreshMode {
	case RefreshPerRequest:
		cred, err = c.refresh(ctx)
	default:
		cred, err = c.sharedRefresh(ctx, staleToken)
	}

	switch {
	case err == nil:
		return cred.AccessToken, nil
	case ctx.Err() != nil:
		// the caller gave up; that says nothing about the session
		return "", err
	case errors.Is(err, errNoRefreshToken):
		c.logger.Warn(ctx, "cannot refresh session", "path", original.Path, "reason", err.Error())
		c.invalidator.Invalidate(ctx)
		return "", original
	case errors.Is(err, ErrCredentialStore):
		return "", err
	default:
		c.logger.Warn(ctx, "session refresh failed", "path", original.Path, "error", err)
		c.invalidator.Invalidate(ctx)
		return "", &RefreshError{Err: err}
	}
}

// sharedRefresh collapses concurrent recoveries for the same stale token into
// one exchange. A caller arriving after a finished exchange finds a newer
// access token in the store and replays with it without exchanging again.
//
// The exchange runs detached from any single caller's cancellation, bounded by
// the transport timeout; each caller stops waiting when its own ctx is done.
func (c *HTTPClient) sharedRefresh(ctx context.Context, staleToken string) (models.Credential, error) {
	flightCtx := context.WithoutCancel(ctx)

	ch := c.refreshes.DoChan(staleToken, func() (any, error) {
		current, err := c.accessToken(flightCtx)
		if err != nil {
			return models.Credential{}, err
		}
		if current != "" && current != staleToken {
			return models.Credential{AccessToken: current}, nil
		}
		return c.refresh(flightCtx)
	})

	select {
	case <-ctx.Done():
		return models.Credential{}, fmt.Errorf("%w: waiting for session refresh: %w", ErrUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return models.Credential{}, res.Err
		}
		return res.Val.(models.Credential), nil
	}
}

func (c *HTTPClient) refresh(ctx context.Context) (models.Credential, error) {
	refreshToken, err := c.store.Get(ctx, credentials.KeyRefreshToken)
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: read refresh token: %w", ErrCredentialStore, err)
	}
	if refreshToken == "" {
		return models.Credential{}, errNoRefreshToken
	}
	return c.exchange(ctx, refreshToken)
}

// exchange calls the refresh endpoint directly on the transport, bypassing
// both interceptors, and persists the new pair.
func (c *HTTPClient) exchange(ctx context.Context, refreshToken string) (models.Credential, error) {
	var cred models.Credential

	r, err := NewJSONRequest(http.MethodPost, PathRefresh, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return cred, err
	}

	c.logger.Info(ctx, "refreshing session")

	resp, err := c.send(ctx, r, uuid.NewString(), "")
	if err != nil {
		return cred, err
	}
	if err := decodeResponse(resp, PathRefresh, &cred); err != nil {
		return cred, err
	}

	if cred.AccessToken == "" {
		return cred, errors.New("refresh response carries no access token")
	}
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}

	if err := credentials.SaveTokens(ctx, c.store, cred); err != nil {
		return cred, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}
	if h, ok := c.notifier.(session.Holder); ok {
		h.SetToken(cred.AccessToken)
	}

	return cred, nil
}
