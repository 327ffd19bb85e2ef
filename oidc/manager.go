// Package oidc acquires admin API tokens from an OpenID Connect provider
// and keeps them in the token cache.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/matrixctl"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Authorization code flow settings. The redirect URI must be registered
// with the provider, so the port is fixed.
const (
	DefaultCallbackAddr = "127.0.0.1:8298"
	CallbackPath        = "/callback"
	State               = "active"
	DefaultLoginTimeout = 300 * time.Second
)

// ProfileTag returns the cache key of a server profile. Two OIDC clients
// configured for the same server never share tokens.
func ProfileTag(server, tokenEndpoint, clientID string) string {
	return fmt.Sprintf("%s-%016x", server, xxhash.Sum64String(tokenEndpoint+"\x00"+clientID))
}

// Ensure Manager implements matrixctl.TokenSource at compile time.
var _ matrixctl.TokenSource = (*Manager)(nil)

// Manager serves access tokens for one server profile. It returns a valid
// token from memory or the cache, refreshes an expired one, and falls back
// to the configured grant when neither works. Calls are serialized.
type Manager struct {
	Server string
	Config matrixctl.OIDCConfig
	Cache  matrixctl.TokenCache
	Logger zerolog.Logger

	// HTTPClient is used for discovery and token requests.
	HTTPClient *http.Client

	// OpenBrowser opens the authorization URL. Defaults to the desktop
	// browser.
	OpenBrowser func(url string) error

	// Prompt receives the authorization URL for manual use.
	Prompt io.Writer

	CallbackAddr string
	LoginTimeout time.Duration
	Now          func() time.Time

	mu        sync.Mutex
	token     *matrixctl.Token
	endpoints *Endpoints
}

// NewManager creates a Manager with the default callback settings.
func NewManager(server string, cfg matrixctl.OIDCConfig, cache matrixctl.TokenCache, logger zerolog.Logger) *Manager {
	if cfg.Flow == "" {
		cfg.Flow = matrixctl.FlowAuthorizationCode
	}
	return &Manager{
		Server:       server,
		Config:       cfg,
		Cache:        cache,
		Logger:       logger,
		OpenBrowser:  OpenBrowser,
		Prompt:       io.Discard,
		CallbackAddr: DefaultCallbackAddr,
		LoginTimeout: DefaultLoginTimeout,
		Now:          time.Now,
	}
}

// AccessToken returns a usable access token.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	tok, err := m.Token(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// Token returns a usable token set.
func (m *Manager) Token(ctx context.Context) (*matrixctl.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token.Valid(m.Now()) {
		return m.token, nil
	}

	if m.endpoints == nil {
		ep, err := discover(ctx, m.HTTPClient, m.Config)
		if err != nil {
			return nil, err
		}
		m.endpoints = ep
	}
	tag := ProfileTag(m.Server, m.endpoints.Token, m.Config.ClientID)

	cached := m.token
	if cached == nil && m.Cache != nil {
		var err error
		cached, err = m.Cache.Load(tag)
		if err != nil {
			m.Logger.Warn().Err(err).Msg("ignoring token cache")
			cached = nil
		}
	}
	if cached.Valid(m.Now()) {
		m.Logger.Debug().Str("profile", tag).Msg("using cached token")
		m.token = cached
		return cached, nil
	}

	var tok *matrixctl.Token
	if cached.CanRefresh() {
		refreshed, err := m.refresh(ctx, cached)
		if err != nil {
			m.Logger.Warn().Err(err).Msg("token refresh failed, starting a new login")
		} else {
			tok = refreshed
		}
	}
	if tok == nil {
		var err error
		switch m.Config.Flow {
		case matrixctl.FlowClientCredentials:
			tok, err = m.clientCredentials(ctx)
		default:
			tok, err = m.authorizationCode(ctx)
		}
		if err != nil {
			return nil, err
		}
	}

	m.logIDToken(tok.IDToken)
	if m.Cache != nil {
		if err := m.Cache.Save(tag, tok); err != nil {
			m.Logger.Warn().Err(err).Msg("cannot write token cache")
		}
	}
	m.token = tok
	return tok, nil
}

func (m *Manager) oauth2Config(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     m.Config.ClientID,
		ClientSecret: m.Config.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  m.endpoints.Auth,
			TokenURL: m.endpoints.Token,
		},
		RedirectURL: redirectURL,
		Scopes:      m.Config.Claims,
	}
}

func (m *Manager) context(ctx context.Context) context.Context {
	if m.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, m.HTTPClient)
	}
	return ctx
}

func (m *Manager) refresh(ctx context.Context, old *matrixctl.Token) (*matrixctl.Token, error) {
	m.Logger.Debug().Msg("refreshing token")
	src := m.oauth2Config("").TokenSource(m.context(ctx), &oauth2.Token{
		RefreshToken: old.RefreshToken,
		Expiry:       time.Unix(1, 0),
	})
	tok, err := src.Token()
	if err != nil {
		return nil, tokenError("refresh", err)
	}
	out := fromOAuth2(tok)
	if out.RefreshToken == "" {
		out.RefreshToken = old.RefreshToken
	}
	if out.IDToken == "" {
		out.IDToken = old.IDToken
	}
	return out, nil
}

func (m *Manager) clientCredentials(ctx context.Context) (*matrixctl.Token, error) {
	m.Logger.Debug().Msg("requesting token with client credentials")
	cfg := clientcredentials.Config{
		ClientID:     m.Config.ClientID,
		ClientSecret: m.Config.ClientSecret,
		TokenURL:     m.endpoints.Token,
		Scopes:       m.Config.Claims,
	}
	tok, err := cfg.Token(m.context(ctx))
	if err != nil {
		return nil, tokenError("client credentials grant", err)
	}
	return fromOAuth2(tok), nil
}

// authorizationCode runs the browser login: it serves the loopback
// callback, opens the authorization URL with a PKCE challenge, waits for
// the code and exchanges it together with the verifier.
func (m *Manager) authorizationCode(ctx context.Context) (*matrixctl.Token, error) {
	if m.endpoints.Auth == "" {
		return nil, matrixctl.Errorf(matrixctl.ECONFIG, "no authorization endpoint configured for the %s flow", matrixctl.FlowAuthorizationCode)
	}

	verifier, err := NewVerifier()
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", m.CallbackAddr)
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.EAUTH, "cannot listen for the login callback on %s: %v", m.CallbackAddr, err)
	}
	redirectURL := "http://" + ln.Addr().String() + CallbackPath

	codes := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, callbackHandler(codes))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	cfg := m.oauth2Config(redirectURL)
	authURL := cfg.AuthCodeURL(State, oauth2.S256ChallengeOption(verifier))
	fmt.Fprintf(m.Prompt, "Open this URL in your browser to log in:\n\n  %s\n\n", authURL)
	if m.OpenBrowser != nil {
		if err := m.OpenBrowser(authURL); err != nil {
			m.Logger.Debug().Err(err).Msg("cannot open browser")
		}
	}

	timeout := time.NewTimer(m.LoginTimeout)
	defer timeout.Stop()

	var res callbackResult
	select {
	case res = <-codes:
	case <-timeout.C:
		return nil, matrixctl.Errorf(matrixctl.EAUTH, "login timed out after %s", m.LoginTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := cfg.Exchange(m.context(ctx), res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, tokenError("authorization code exchange", err)
	}
	return fromOAuth2(tok), nil
}

type callbackResult struct {
	code string
	err  error
}

func callbackHandler(results chan<- callbackResult) http.HandlerFunc {
	var once sync.Once
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = matrixctl.Errorf(matrixctl.EAUTH, "login failed: %s %s", q.Get("error"), q.Get("error_description"))
		case q.Get("state") != State:
			res.err = matrixctl.Errorf(matrixctl.EAUTH, "login callback carried an unexpected state")
		case q.Get("code") == "":
			res.err = matrixctl.Errorf(matrixctl.EAUTH, "login callback carried no code")
		default:
			res.code = q.Get("code")
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if res.err != nil {
			_, _ = io.WriteString(w, "Login failed. Return to the terminal for details.\n")
		} else {
			_, _ = io.WriteString(w, "Login complete. You can close this window.\n")
		}
		once.Do(func() { results <- res })
	}
}

// NewVerifier returns a PKCE code verifier: 64 random bytes encoded as
// unpadded URL-safe base64.
func NewVerifier() (string, error) {
	b := make([]byte, 64)
	if _, err := rand.Read(b); err != nil {
		return "", matrixctl.Errorf(matrixctl.EINTERNAL, "cannot generate PKCE verifier: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func fromOAuth2(tok *oauth2.Token) *matrixctl.Token {
	out := &matrixctl.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if id, ok := tok.Extra("id_token").(string); ok {
		out.IDToken = id
	}
	if !tok.Expiry.IsZero() {
		out.ExpiresAt = tok.Expiry.Unix()
	}
	return out
}

func tokenError(what string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		desc := re.ErrorCode
		if re.ErrorDescription != "" {
			desc += ": " + re.ErrorDescription
		}
		return matrixctl.Errorf(matrixctl.EAUTH, "%s failed with HTTP %d %s", what, re.Response.StatusCode, desc)
	}
	return matrixctl.Errorf(matrixctl.EAUTH, "%s failed: %v", what, err)
}

func (m *Manager) logIDToken(raw string) {
	if raw == "" {
		return
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		m.Logger.Debug().Err(err).Msg("cannot parse id_token")
		return
	}
	sub, _ := claims.GetSubject()
	ev := m.Logger.Debug().Str("sub", sub)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ev = ev.Time("exp", exp.Time)
	}
	ev.Msg("id_token")
}
