package apitest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/tillapos/internal/client/models"
	"github.com/dmitrijs2005/tillapos/internal/common"
)

var errInvalidToken = errors.New("invalid token")

type claims struct {
	jwt.RegisteredClaims
	DeviceID string `json:"did,omitempty"`
}

type principal struct {
	userID   string
	deviceID string
	token    string
}

type principalKey struct{}

// AddUser registers an account directly, bypassing the signup endpoint.
func (s *Server) AddUser(username, email, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	u := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[email]; ok {
		return models.User{}, fmt.Errorf("user %s already exists", email)
	}
	s.accounts[email] = &account{user: u, passwordHash: hash}
	return u, nil
}

// IssueTokens mints a credential for an existing account as a sign-in would.
func (s *Server) IssueTokens(email string) (models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[email]
	if !ok {
		return models.Credential{}, fmt.Errorf("unknown user %s", email)
	}
	return s.issueLocked(a.user.ID, "")
}

// issueLocked mints an access/refresh pair. s.mu must be held.
func (s *Server) issueLocked(userID, deviceID string) (models.Credential, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		DeviceID: deviceID,
	})
	access, err := token.SignedString(s.secret)
	if err != nil {
		return models.Credential{}, err
	}

	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return models.Credential{}, err
	}

	s.liveAccess[access] = userID
	s.refreshTokens[refresh] = refreshToken{userID: userID, deviceID: deviceID, expires: now.Add(s.refreshTTL)}

	return models.Credential{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL / time.Second),
	}, nil
}

func (s *Server) authenticate(r *http.Request) (principal, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return principal{}, errInvalidToken
	}

	c := &claims{}
	token, err := jwt.ParseWithClaims(raw, c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return principal{}, errInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, live := s.liveAccess[raw]; !live {
		return principal{}, errInvalidToken
	}
	return principal{userID: c.Subject, deviceID: c.DeviceID, token: raw}, nil
}

// requireAuth rejects requests without a live bearer token.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.authenticate(r)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	}
}

func principalFrom(ctx context.Context) principal {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}
