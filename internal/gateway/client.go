// Package gateway performs authenticated JSON calls against the Dimetrics
// REST API. It knows nothing about entries or filters; callers hand it a
// method, a path, an optional query and an optional body.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://app.dimetrics.io/api"
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 16 << 20
	maxErrorBody   = 4 << 10
	userAgent      = "dimetrics-mcp-server/v1"
)

// Encoder renders a query string. Both url.Values and query.Params satisfy it.
type Encoder interface {
	Encode() string
}

// Request describes one backend call.
type Request struct {
	Method string
	// Path is relative to the base URL and should end in a slash.
	Path  string
	Query Encoder
	// Body is JSON-encoded when non-nil.
	Body any
}

// Config holds the settings for creating a Client.
type Config struct {
	BaseURL string
	// APIKey is sent as "Authorization: Token <key>" and wins over SessionCookie.
	APIKey string
	// SessionCookie is sent verbatim as the Cookie header.
	SessionCookie string
	Timeout       time.Duration
	// RateLimit caps outgoing requests per second. Zero disables the limit.
	RateLimit float64
}

// Client is safe for concurrent use. Construct it once at startup and share it.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
	baseURL    string
	authHeader string
	authValue  string
	limiter    *rate.Limiter // nil when unlimited
}

// New creates a Client. Returns an error if the base URL is invalid.
func New(logger *zap.Logger, cfg Config) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base URL must include a host")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		logger:  logger.Named("gateway"),
		baseURL: base,
	}

	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate limit must not be negative, got %g", cfg.RateLimit)
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit)))
	}

	switch {
	case cfg.APIKey != "":
		c.authHeader, c.authValue = "Authorization", "Token "+cfg.APIKey
	case cfg.SessionCookie != "":
		c.authHeader, c.authValue = "Cookie", cfg.SessionCookie
	default:
		c.logger.Warn("No API key or session cookie configured, requests are unauthenticated",
			zap.String("base_url", RedactURL(base)))
	}

	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Authenticated reports whether an auth header is attached to requests.
func (c *Client) Authenticated() bool { return c.authHeader != "" }

// Do performs the request and returns the raw JSON body. A 2xx response
// with an empty body returns nil. Non-2xx responses return *StatusError;
// transport failures return *TransportError. Nothing is retried.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if req.Query != nil {
		if q := req.Query.Encode(); q != "" {
			target += "?" + q
		}
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.authHeader != "" {
		httpReq.Header.Set(c.authHeader, c.authValue)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Method: method, Path: req.Path, Err: fmt.Errorf("rate limit: %w", err)}
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		observe(method, "error", duration)
		c.logger.Debug("Backend request failed",
			zap.String("method", method),
			zap.String("url", RedactURL(target)),
			zap.Error(err))
		return nil, &TransportError{Method: method, Path: req.Path, Err: err}
	}
	defer func() {
		// Drain and close body to reuse connections.
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	observe(method, strconv.Itoa(resp.StatusCode), duration)
	c.logger.Debug("Backend request",
		zap.String("method", method),
		zap.String("url", RedactURL(target)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Method: method, Path: req.Path, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := string(data)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody] + "..."
		}
		return nil, &StatusError{Method: method, Path: req.Path, StatusCode: resp.StatusCode, Body: text}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, &TransportError{Method: method, Path: req.Path, Err: fmt.Errorf("response is not valid JSON")}
	}
	return json.RawMessage(data), nil
}

// Ping checks that the backend is reachable and accepts the configured
// credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   "/apps/",
		Query:  url.Values{"page_size": []string{"1"}},
	})
	return err
}

// RedactURL masks credentials in a URL for safe logging.
// It redacts userinfo passwords and query parameter values.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	redacted := u.Redacted()
	if u.RawQuery == "" {
		return redacted
	}
	q := u.Query()
	for key := range q {
		q.Set(key, "REDACTED")
	}
	r, err := url.Parse(redacted)
	if err != nil {
		return redacted
	}
	r.RawQuery = q.Encode()
	return r.String()
}
