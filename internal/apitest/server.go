// Package apitest runs an in-process fake of the TillaPos REST API for tests.
//
// The fake issues HS256 JWT access tokens and opaque rotating refresh tokens,
// wraps every response in the API envelope and counts calls per route so
// tests can assert exactly how often the refresh endpoint was hit.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/dmitrijs2005/tillapos/internal/client/models"
	"github.com/dmitrijs2005/tillapos/internal/logging"
)

const (
	RouteSignUp         = "POST /auth/signup"
	RouteSignIn         = "POST /auth/sign-in"
	RouteOTPVerify      = "POST /auth/otp-verify"
	RouteResendOTP      = "POST /auth/resend-otp"
	RouteRefresh        = "POST /auth/refresh"
	RouteLogout         = "POST /auth/logout"
	RouteCreateBusiness = "POST /auth/create-business"
	RouteMe             = "GET /users/me"
	RouteMyBusiness     = "GET /businesses/me"
	RouteBusinessTypes  = "GET /business-types/options"
	RouteCategories     = "GET /categories"
	RouteCategory       = "GET /categories/{id}"
	RouteCreateCategory = "POST /categories"
	RouteUpdateCategory = "PUT /categories/{id}"
	RouteDevices        = "GET /session/devices"

	// AssetHost is the origin the fake uses for uploaded images. It differs
	// from the server origin on purpose so clients have to rewrite it.
	AssetHost = "http://assets.tillapos.internal"
)

type account struct {
	user         models.User
	passwordHash []byte
	requireOTP   bool
}

type refreshToken struct {
	userID   string
	deviceID string
	expires  time.Time
}

// Call is one recorded request.
type Call struct {
	Authorization string
	RequestID     string
	ContentType   string
}

type Server struct {
	*httptest.Server

	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     logging.Logger

	mu            sync.Mutex
	accounts      map[string]*account // by email
	liveAccess    map[string]string   // access token -> user id
	refreshTokens map[string]refreshToken
	otpCodes      map[string]string // email -> code
	businesses    map[string]models.Business
	categories    []category
	devices       map[string][]models.Device // user id -> devices
	calls         map[string][]Call

	refreshStatus int
	refreshDelay  time.Duration
	logoutStatus  int
}

type Option func(*Server)

func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = d
	}
}

func WithRefreshTTL(d time.Duration) Option {
	return func(s *Server) {
		s.refreshTTL = d
	}
}

func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer starts the fake. Callers must Close it.
func NewServer(opts ...Option) *Server {
	s := &Server{
		secret:        []byte("apitest-secret"),
		accessTTL:     15 * time.Minute,
		refreshTTL:    24 * time.Hour,
		logger:        logging.NewNop(),
		accounts:      make(map[string]*account),
		liveAccess:    make(map[string]string),
		refreshTokens: make(map[string]refreshToken),
		otpCodes:      make(map[string]string),
		businesses:    make(map[string]models.Business),
		devices:       make(map[string][]models.Device),
		calls:         make(map[string][]Call),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Server = httptest.NewServer(s.routes())
	return s
}

// Calls returns how many times route (for example RouteRefresh) was hit.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls[route])
}

// Recorded returns the recorded requests for route in arrival order.
func (s *Server) Recorded(route string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls[route]...)
}

// RevokeAccessTokens invalidates every access token issued so far.
func (s *Server) RevokeAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.liveAccess)
}

// ExpireRefreshTokens makes every stored refresh token expired.
func (s *Server) ExpireRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	past := time.Now().Add(-time.Minute)
	for k, rt := range s.refreshTokens {
		rt.expires = past
		s.refreshTokens[k] = rt
	}
}

// FailRefresh makes the refresh endpoint answer with status. Zero restores
// normal behaviour.
func (s *Server) FailRefresh(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshStatus = status
}

// DelayRefresh holds every refresh response for d.
func (s *Server) DelayRefresh(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshDelay = d
}

// FailLogout makes the logout endpoint answer with status.
func (s *Server) FailLogout(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutStatus = status
}

// OTPCode returns the pending one-time code for email.
func (s *Server) OTPCode(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.otpCodes[email]
}

// RequireOTP makes sign-ins of email answer with an OTP challenge.
func (s *Server) RequireOTP(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[email]; ok {
		a.requireOTP = true
	}
}

func (s *Server) record(route string, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[route] = append(s.calls[route], Call{
		Authorization: r.Header.Get("Authorization"),
		RequestID:     r.Header.Get("X-Request-ID"),
		ContentType:   r.Header.Get("Content-Type"),
	})
}

type logWriter struct {
	http.ResponseWriter
	status int
}

func (w *logWriter) WriteHeader(status int) {
	w.ResponseWriter.WriteHeader(status)
	w.status = status
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &logWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lw, r)

		s.logger.Debug(r.Context(), "fake api request",
			"method", r.Method,
			"uri", r.RequestURI,
			"duration", time.Since(start),
			"status", lw.status,
		)
	})
}
