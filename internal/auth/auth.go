package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/billingops/azure-billing-export/internal/clock"
	"github.com/billingops/azure-billing-export/internal/config"
)

// managementScope is the OAuth2 scope for the Azure management plane.
const managementScope = "https://management.azure.com/.default"

// expiryMargin is subtracted from a token's expiry so a token is never
// presented right at the edge of its validity window.
const expiryMargin = 2 * time.Minute

// Error reports a token issuance failure.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return "authentication failed: " + e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TokenProvider supplies bearer tokens for Cost Management API requests.
type TokenProvider interface {
	// Token returns a token valid at call time, issuing a new one only if
	// no valid cached token exists.
	Token(ctx context.Context) (string, error)

	// Refresh discards any cached token and issues a fresh one.
	Refresh(ctx context.Context) (string, error)
}

// NewProvider builds the TokenProvider matching the configured auth type.
func NewProvider(cfg *config.Config) (TokenProvider, error) {
	switch cfg.AuthType {
	case config.AuthTypeBearerToken:
		return NewStaticProvider(cfg.BearerToken), nil
	case config.AuthTypeClientCredentials:
		return NewClientCredentialsProvider(cfg.TenantID, cfg.ClientID, cfg.ClientSecret)
	default:
		return nil, &Error{Reason: fmt.Sprintf("unsupported auth type %q", cfg.AuthType)}
	}
}

// StaticProvider passes a caller-supplied bearer token through unchanged.
type StaticProvider struct {
	token string
}

// NewStaticProvider creates a provider returning the given token.
func NewStaticProvider(token string) *StaticProvider {
	return &StaticProvider{token: token}
}

// Token returns the configured token.
func (p *StaticProvider) Token(_ context.Context) (string, error) {
	if p.token == "" {
		return "", &Error{Reason: "no bearer token configured"}
	}
	return p.token, nil
}

// Refresh returns the same token; a static token cannot be re-issued, so a
// second rejection by the API becomes fatal.
func (p *StaticProvider) Refresh(ctx context.Context) (string, error) {
	return p.Token(ctx)
}

// ClientCredentialsProvider obtains tokens from Azure AD using the OAuth2
// client credentials grant and caches them for their validity window.
type ClientCredentialsProvider struct {
	cred   azcore.TokenCredential
	clock  clock.Clock
	cached azcore.AccessToken
}

// NewClientCredentialsProvider creates a provider for the given service
// principal.
func NewClientCredentialsProvider(tenantID, clientID, clientSecret string) (*ClientCredentialsProvider, error) {
	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	if err != nil {
		return nil, &Error{Reason: "invalid client credentials", Err: err}
	}
	return &ClientCredentialsProvider{cred: cred, clock: clock.RealClock{}}, nil
}

// Token returns the cached token while it is still valid and re-issues the
// client credentials exchange once it has expired or is absent.
func (p *ClientCredentialsProvider) Token(ctx context.Context) (string, error) {
	if p.cached.Token != "" && p.clock.Now().Before(p.cached.ExpiresOn.Add(-expiryMargin)) {
		return p.cached.Token, nil
	}
	return p.Refresh(ctx)
}

// Refresh performs the client credentials exchange and replaces the cache.
func (p *ClientCredentialsProvider) Refresh(ctx context.Context) (string, error) {
	tok, err := p.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{managementScope}})
	if err != nil {
		return "", &Error{Reason: "client credentials token request failed", Err: err}
	}
	p.cached = tok
	return tok.Token, nil
}
