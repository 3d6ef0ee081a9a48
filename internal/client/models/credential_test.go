package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCredential_DecodeFromAPI(t *testing.T) {
	var c Credential
	err := json.Unmarshal([]byte(`{"accessToken":"a1","refreshToken":"r1","tokenType":"Bearer","expiresIn":3600}`), &c)
	require.NoError(t, err)
	require.Equal(t, Credential{AccessToken: "a1", RefreshToken: "r1", TokenType: "Bearer", ExpiresIn: 3600}, c)
	require.False(t, c.Empty())
	require.True(t, Credential{}.Empty())
}
