// Package credentials is the client's credential store: durable persistence of
// the access/refresh token pair and its metadata.
//
// Every component reads tokens through a Store; nothing keeps an
// authoritative in-memory copy.
package credentials

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/tillapos/internal/client/models"
)

const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyTokenType    = "tokenType"
	KeyExpiresIn    = "expiresIn"
)

// Keys lists every key owned by the store; Clear removes them as a set.
var Keys = []string{KeyAccessToken, KeyRefreshToken, KeyTokenType, KeyExpiresIn}

type Store interface {
	// Get returns "" with a nil error when key is not stored.
	Get(ctx context.Context, key string) (string, error)
	// Set writes all values in one step.
	Set(ctx context.Context, values map[string]string) error
	// Clear removes every credential key.
	Clear(ctx context.Context) error
}

// Load reads the full Credential. Missing keys yield zero values.
func Load(ctx context.Context, s Store) (models.Credential, error) {
	var c models.Credential

	values := make(map[string]string, len(Keys))
	for _, k := range Keys {
		v, err := s.Get(ctx, k)
		if err != nil {
			return c, err
		}
		values[k] = v
	}

	c.AccessToken = values[KeyAccessToken]
	c.RefreshToken = values[KeyRefreshToken]
	c.TokenType = values[KeyTokenType]
	if raw := values[KeyExpiresIn]; raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c, fmt.Errorf("malformed %s %q: %w", KeyExpiresIn, raw, err)
		}
		c.ExpiresIn = n
	}

	return c, nil
}

// Save writes all four credential keys.
func Save(ctx context.Context, s Store, c models.Credential) error {
	return s.Set(ctx, map[string]string{
		KeyAccessToken:  c.AccessToken,
		KeyRefreshToken: c.RefreshToken,
		KeyTokenType:    c.TokenType,
		KeyExpiresIn:    strconv.FormatInt(c.ExpiresIn, 10),
	})
}

// SaveTokens overwrites the token pair after a refresh exchange. Token type
// and lifetime are only written when the server returned them.
func SaveTokens(ctx context.Context, s Store, c models.Credential) error {
	values := map[string]string{
		KeyAccessToken:  c.AccessToken,
		KeyRefreshToken: c.RefreshToken,
	}
	if c.TokenType != "" {
		values[KeyTokenType] = c.TokenType
	}
	if c.ExpiresIn > 0 {
		values[KeyExpiresIn] = strconv.FormatInt(c.ExpiresIn, 10)
	}
	return s.Set(ctx, values)
}
