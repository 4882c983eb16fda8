package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

const (
	DefaultAuthURL  = "https://auth.sitecorecloud.io/oauth/token"
	DefaultAudience = "https://api.sitecorecloud.io"
	tokenSkew       = 30 * time.Second
)

var ErrCredentialsRequired = errors.New("remote: client id and secret are required")

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

var _ interfaces.TokenSource = StaticToken("")

func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// ClientCredentialsConfig configures ClientCredentials.
type ClientCredentialsConfig struct {
	URL          string
	ClientID     string
	ClientSecret string
	Audience     string
	Client       *http.Client
	Now          func() time.Time
}

// ClientCredentials fetches OAuth tokens with the client_credentials grant and
// caches them until shortly before they expire.
type ClientCredentials struct {
	cfg ClientCredentialsConfig

	mu      sync.Mutex
	token   string
	expires time.Time
}

var _ interfaces.TokenSource = (*ClientCredentials)(nil)

// NewClientCredentials builds a token source from cfg.
func NewClientCredentials(cfg ClientCredentialsConfig) (*ClientCredentials, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, ErrCredentialsRequired
	}
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultAuthURL
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		cfg.Audience = DefaultAudience
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ClientCredentials{cfg: cfg}, nil
}

// Token returns the cached token or requests a new one.
func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.cfg.Now().Before(c.expires) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("audience", c.cfg.Audience)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("remote: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.cfg.Client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", networkError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp.StatusCode, body)
	}

	parsed := gjson.ParseBytes(body)
	token := parsed.Get("access_token").String()
	if token == "" {
		return "", rejectedError([]string{"token response has no access_token"})
	}
	lifetime := time.Duration(parsed.Get("expires_in").Int()) * time.Second
	c.token = token
	c.expires = c.cfg.Now().Add(lifetime - tokenSkew)
	return token, nil
}
