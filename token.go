package matrixctl

import (
	"context"
	"time"
)

// Token is an OAuth token set as persisted in the token cache.
// ExpiresAt is an absolute unix timestamp in seconds; zero means the token
// does not expire.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Valid reports whether the access token can be used at now without
// contacting the identity provider.
func (t *Token) Valid(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return t.ExpiresAt == 0 || now.Unix() < t.ExpiresAt
}

// CanRefresh reports whether a refresh grant can be attempted.
func (t *Token) CanRefresh() bool {
	return t != nil && t.RefreshToken != ""
}

// TokenSource supplies the bearer token for admin API requests.
type TokenSource interface {
	// AccessToken returns a usable access token, refreshing or running an
	// interactive flow when needed.
	AccessToken(ctx context.Context) (string, error)
}

// StaticTokenSource serves a literal bearer token that never expires.
type StaticTokenSource string

// AccessToken returns the literal token.
func (s StaticTokenSource) AccessToken(ctx context.Context) (string, error) {
	if s == "" {
		return "", Errorf(EAUTH, "no API token configured")
	}
	return string(s), nil
}

// TokenCache persists tokens keyed by a profile tag.
type TokenCache interface {
	// Load returns the cached token for tag, or nil when none is stored.
	Load(tag string) (*Token, error)

	// Save stores the token for tag, replacing any previous one.
	Save(tag string, token *Token) error
}
