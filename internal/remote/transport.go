package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/goliatone/go-cms-sync/internal/logging"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

// AuthoringPath is appended to the authoring host to reach the GraphQL endpoint.
const AuthoringPath = "/sitecore/api/authoring/graphql/v1"

var ErrEndpointRequired = errors.New("remote: endpoint is required")

// AuthoringEndpoint joins host and AuthoringPath.
func AuthoringEndpoint(host string) string {
	return strings.TrimRight(strings.TrimSpace(host), "/") + AuthoringPath
}

// HTTPTransportConfig configures HTTPTransport.
type HTTPTransportConfig struct {
	Endpoint string
	Tokens   interfaces.TokenSource
	Client   *http.Client
	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	Logger            interfaces.Logger
}

// HTTPTransport posts JSON payloads with a bearer token.
type HTTPTransport struct {
	endpoint string
	tokens   interfaces.TokenSource
	client   *http.Client
	limiter  *rate.Limiter
	logger   interfaces.Logger
}

var _ interfaces.TransportClient = (*HTTPTransport)(nil)

// NewHTTPTransport validates cfg and builds the transport.
func NewHTTPTransport(cfg HTTPTransportConfig) (*HTTPTransport, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	t := &HTTPTransport{
		endpoint: endpoint,
		tokens:   cfg.Tokens,
		client:   client,
		logger:   cfg.Logger,
	}
	if t.logger == nil {
		t.logger = logging.NoOp()
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return t, nil
}

// Send posts payload and returns the response body. Non-2xx statuses are
// returned as errors; 429 and 5xx are marked retryable.
func (t *HTTPTransport) Send(ctx context.Context, payload []byte) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.tokens != nil {
		token, err := t.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(err)
	}
	t.logger.Trace("remote.request.completed",
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(started),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}
