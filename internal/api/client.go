package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wavecast/wavecast/internal/events"
	"github.com/wavecast/wavecast/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds each REST call unless overridden per client.
const DefaultTimeout = 10 * time.Second

// codeUnauthorized is the envelope code the backend uses for rejected tokens.
const codeUnauthorized = "UNAUTHORIZED"

// TokenSource yields the current bearer token. Satisfied by *session.Store.
type TokenSource interface {
	Token() (string, error)
}

// envelope is the uniform response wrapper every platform endpoint returns.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

// Client wraps the platform's REST endpoints. Transport failures and
// non-success envelopes are translated into sentinel-wrapped errors so
// callers never branch on transport-specific exception types.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	tokens     TokenSource
	bus        *events.Bus
	logger     *log.Logger
}

// ClientOpts contains configuration options for creating a Client.
type ClientOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Bus        *events.Bus
	Logger     *log.Logger
	Timeout    time.Duration // defaults to DefaultTimeout
	RateLimit  float64       // requests per second, defaults to 5
}

// NewClient creates a new platform REST client.
func NewClient(opts ClientOpts) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		timeout:    opts.Timeout,
		tokens:     opts.Tokens,
		bus:        opts.Bus,
		logger:     opts.Logger,
	}
}

// do performs one REST call. A nil body sends no payload; a non-nil out
// receives the unmarshaled envelope data. authed calls carry the bearer token
// and fail fast with ErrNotAuthenticated when no valid token exists.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if authed {
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("%w: no valid token", shared.ErrNotAuthenticated)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: %s %s", shared.ErrTimeout, method, path)
		}
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("%w: status %d, non-envelope body", shared.ErrAPIRequest, resp.StatusCode)
	}

	if env.Code == codeUnauthorized {
		c.logger.Warn("backend returned UNAUTHORIZED")
		if c.bus != nil {
			c.bus.Publish(events.EventUnauthorized, path)
		}
		return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, env.Message)
	}

	if !env.Success {
		return &APIError{Code: env.Code, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}

	return nil
}

// APIError is a non-success envelope surfaced to the caller. It unwraps to
// shared.ErrAPIRequest so errors.Is branching still works.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed: %s (%s)", e.Message, e.Code)
}

func (e *APIError) Unwrap() error {
	return shared.ErrAPIRequest
}
