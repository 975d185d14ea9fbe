package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNoCredentials is returned when neither a service key nor a client
// credentials grant is configured
var ErrNoCredentials = errors.New("no service credentials configured")

// ServiceCredentials holds the credentials injected into backend requests.
// A static ServiceKey takes precedence over the OAuth2 client credentials
// grant.
type ServiceCredentials struct {
	ServiceKey   string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// Validate checks that one credential kind is fully configured
func (c ServiceCredentials) Validate() error {
	if strings.TrimSpace(c.ServiceKey) != "" {
		return nil
	}
	if c.ClientID == "" && c.ClientSecret == "" && c.TokenURL == "" {
		return ErrNoCredentials
	}
	if c.ClientID == "" || c.ClientSecret == "" || c.TokenURL == "" {
		return fmt.Errorf("client credentials require client ID, secret and token URL")
	}
	return nil
}

// TokenSource returns the OAuth2 token source for the client credentials
// grant. Tokens are cached and refreshed on expiry.
func (c ServiceCredentials) TokenSource(ctx context.Context) oauth2.TokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
	return cfg.TokenSource(ctx)
}

// Transport wraps base so every request carries the service credentials
func (c ServiceCredentials) Transport(ctx context.Context, base http.RoundTripper) (http.RoundTripper, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if base == nil {
		base = http.DefaultTransport
	}
	if key := strings.TrimSpace(c.ServiceKey); key != "" {
		return &keyTransport{key: key, base: base}, nil
	}
	return &oauth2.Transport{Source: c.TokenSource(ctx), Base: base}, nil
}

// keyTransport injects a static service key the way the managed
// database platform expects it
type keyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *keyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("apikey", t.key)
	r.Header.Set("Authorization", "Bearer "+t.key)
	return t.base.RoundTrip(r)
}
