// Package executor provides HTTP clients for the external statistical test
// suites and the OAuth token supplier their calls authenticate with.
package executor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSupplier yields bearer tokens for executor calls.
type TokenSupplier interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSupplier returns a fixed token. Useful for dev setups and tests.
type StaticTokenSupplier string

// Token implements TokenSupplier.
func (s StaticTokenSupplier) Token(context.Context) (string, error) {
	return string(s), nil
}

// OAuthTokenConfig configures the client-credentials token supplier.
type OAuthTokenConfig struct {
	// IssuerURL enables endpoint discovery; when set, TokenURL is taken from
	// the issuer's discovery document.
	IssuerURL string
	// TokenURL is used directly when discovery is not configured.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	HTTPClient   *http.Client
}

// OAuthTokenSupplier obtains tokens via the OAuth2 client-credentials grant.
// The underlying oauth2 TokenSource caches and refreshes transparently.
type OAuthTokenSupplier struct {
	source oauth2.TokenSource
}

// NewOAuthTokenSupplier resolves the token endpoint (through OIDC discovery
// when an issuer is configured) and builds a reusable token source.
func NewOAuthTokenSupplier(ctx context.Context, cfg OAuthTokenConfig) (*OAuthTokenSupplier, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)

	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if issuer := strings.TrimSpace(cfg.IssuerURL); issuer != "" {
		issuer = strings.TrimSuffix(issuer, "/")
		issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
		provider, err := gooidc.NewProvider(ctx, issuer)
		if err != nil {
			return nil, fmt.Errorf("oidc discovery: %w", err)
		}
		tokenURL = provider.Endpoint().TokenURL
	}
	if tokenURL == "" {
		return nil, errors.New("either issuer URL or token URL is required")
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       cfg.Scopes,
	}

	return &OAuthTokenSupplier{source: cc.TokenSource(ctx)}, nil
}

// Token implements TokenSupplier.
func (s *OAuthTokenSupplier) Token(context.Context) (string, error) {
	tok, err := s.source.Token()
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	return tok.AccessToken, nil
}
