// Package models defines the client-side data models exchanged with the
// TillaPos API.
package models

// Credential is the token set issued by sign-in, OTP verification and refresh.
type Credential struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Empty reports whether no access token is present.
func (c Credential) Empty() bool {
	return c.AccessToken == ""
}
