package oidc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/fwojciec/matrixctl"
)

// Endpoints are the provider URLs used by the token manager.
type Endpoints struct {
	Auth     string `json:"authorization_endpoint"`
	Token    string `json:"token_endpoint"`
	Userinfo string `json:"userinfo_endpoint"`
	JWKS     string `json:"jwks_uri"`
}

// discover resolves the provider endpoints. Configured endpoints are used
// as-is; a discovery URL is either an issuer, resolved through go-oidc, or
// the full URL of a discovery document, which is fetched directly.
func discover(ctx context.Context, client *http.Client, cfg matrixctl.OIDCConfig) (*Endpoints, error) {
	if cfg.DiscoveryEndpoint == "" {
		return &Endpoints{
			Auth:     cfg.AuthEndpoint,
			Token:    cfg.TokenEndpoint,
			Userinfo: cfg.UserinfoEndpoint,
			JWKS:     cfg.JWKSEndpoint,
		}, nil
	}

	if strings.Contains(cfg.DiscoveryEndpoint, "/.well-known/") {
		return fetchDocument(ctx, client, cfg.DiscoveryEndpoint)
	}

	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}
	provider, err := oidc.NewProvider(ctx, strings.TrimSuffix(cfg.DiscoveryEndpoint, "/"))
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.EAUTH, "OIDC discovery at %s failed: %v", cfg.DiscoveryEndpoint, err)
	}
	var claims struct {
		JWKS string `json:"jwks_uri"`
	}
	_ = provider.Claims(&claims)

	ep := provider.Endpoint()
	return &Endpoints{
		Auth:     ep.AuthURL,
		Token:    ep.TokenURL,
		Userinfo: provider.UserInfoEndpoint(),
		JWKS:     claims.JWKS,
	}, nil
}

func fetchDocument(ctx context.Context, client *http.Client, url string) (*Endpoints, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.ECONFIG, "invalid OIDC discovery URL %s: %v", url, err)
	}
	req.Header.Set("User-Agent", matrixctl.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.EAUTH, "OIDC discovery at %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.EAUTH, "OIDC discovery at %s failed: %v", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, matrixctl.Errorf(matrixctl.EAUTH, "OIDC discovery at %s returned HTTP %d", url, resp.StatusCode)
	}

	var ep Endpoints
	if err := json.Unmarshal(body, &ep); err != nil {
		return nil, matrixctl.Errorf(matrixctl.EAUTH, "cannot decode OIDC discovery document %s: %v", url, err)
	}
	if ep.Token == "" {
		return nil, matrixctl.Errorf(matrixctl.EAUTH, "OIDC discovery document %s has no token_endpoint", url)
	}
	return &ep, nil
}
