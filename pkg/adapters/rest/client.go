// Package rest is the JSON-over-HTTP plumbing shared by the backend drivers.
// It authenticates requests and maps transport outcomes onto core error kinds.
package rest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/sprintboard/pkg/core"
)

const maxBody = 32 << 20

// Auth decorates a request with credentials.
type Auth interface {
	Apply(req *http.Request)
}

// BasicAuth sends "Authorization: Basic base64(user:password)".
type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) Apply(req *http.Request) {
	token := base64.StdEncoding.EncodeToString([]byte(a.Username + ":" + a.Password))
	req.Header.Set("Authorization", "Basic "+token)
}

// BearerToken sends "Authorization: Bearer <token>".
type BearerToken string

func (t BearerToken) Apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+string(t))
}

// Client issues authenticated JSON requests against one base URL.
type Client struct {
	backend string
	base    *url.URL
	auth    Auth
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a client for baseURL. A base URL that is not absolute http(s)
// is reported as a NotFound error: the instance cannot be resolved.
func New(backend, baseURL string, auth Auth, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &core.Error{
			Kind:    core.KindNotFound,
			Op:      "resolve instance",
			Backend: backend,
			Err:     fmt.Errorf("invalid instance URL %q", baseURL),
		}
	}
	c := &Client{
		backend: backend,
		base:    u,
		auth:    auth,
		http:    &http.Client{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint joins already-escaped path elements onto the base URL.
func (c *Client) Endpoint(query url.Values, elems ...string) *url.URL {
	u := c.base.JoinPath(elems...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u
}

// Base returns the base URL as a string.
func (c *Client) Base() string {
	return c.base.String()
}

// GetJSON fetches u and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, op string, u *url.URL, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return c.fail(core.KindNotFound, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.auth != nil {
		c.auth.Apply(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	c.logger.Debug("http request",
		"backend", c.backend,
		"method", req.Method,
		"url", redact(u),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	if err != nil {
		return c.transportError(ctx, op, err)
	}

	if kind, failed := classify(resp.StatusCode); failed {
		return c.fail(kind, op, fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(core.KindBackendResponse, op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func (c *Client) fail(kind core.Kind, op string, err error) error {
	return &core.Error{Kind: kind, Op: op, Backend: c.backend, Err: err}
}

func (c *Client) transportError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return c.fail(core.KindTransient, op, ctx.Err())
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return c.fail(core.KindNotFound, op, err)
	}
	return c.fail(core.KindTransient, op, err)
}

// classify maps an HTTP status to an error kind. Azure DevOps answers a bad
// token with 203 and a sign-in page, so 203 counts as an auth failure.
func classify(status int) (core.Kind, bool) {
	switch {
	case status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusNonAuthoritativeInfo:
		return core.KindAuthentication, true
	case status == http.StatusNotFound:
		return core.KindNotFound, true
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= 500:
		return core.KindTransient, true
	case status < 200 || status > 299:
		return core.KindBackendResponse, true
	}
	return "", false
}

func snippet(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		s = "empty body"
	}
	return s
}

func redact(u *url.URL) string {
	cp := *u
	cp.User = nil
	return cp.String()
}
