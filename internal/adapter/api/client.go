// Package api is the HTTP client for the DocNexus REST and streaming API.
package api

import (
	"bytes"
	"context"
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

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/trace"

	"docnexus/internal/domain"
	"docnexus/internal/infra/config"
	"docnexus/internal/infra/tracer"
)

// maxResponseBody is the maximum JSON response body size we read.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// maxErrorBody bounds how much of an error response is read for its detail.
const maxErrorBody = 64 * 1024

// TokenSource supplies the bearer token for each request. An empty token
// means the request is sent without Authorization.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Client talks to the DocNexus API. It is safe for concurrent use.
type Client struct {
	baseURL        string
	http           *http.Client
	breaker        *gobreaker.CircuitBreaker[*http.Response]
	tokens         TokenSource
	requestTimeout time.Duration
	logger         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// Compile-time interface checks.
var (
	_ domain.AuthAPI = (*Client)(nil)
	_ domain.ChatAPI = (*Client)(nil)
	_ domain.FileAPI = (*Client)(nil)
)

// New creates a client for cfg.BaseURL.
func New(cfg config.APIConfig, logger *slog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, domain.NewDomainError("api.new", domain.ErrInvalidInput,
			fmt.Sprintf("base url %q is not absolute", cfg.BaseURL))
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")

	c := &Client{
		baseURL:        strings.TrimRight(u.String(), "/"),
		tokens:         StaticToken(""),
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
		breaker:        newBreaker(cfg.Breaker, logger),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = NewHTTPClient(cfg)
	}
	return c, nil
}

// BreakerState reports the circuit breaker state for status displays.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

type request struct {
	method        string
	path          string // relative to the base URL, already escaped
	body          io.Reader
	contentType   string
	contentLength int64
}

// send executes r through the circuit breaker and returns a 2xx response.
// Only connection setup and response headers are protected; the caller
// owns the body.
func (c *Client) send(ctx context.Context, op string, r request) (*http.Response, error) {
	ctx, span := tracer.StartSpan(ctx, "api.request",
		trace.WithAttributes(
			tracer.StringAttr("http.method", r.method),
			tracer.StringAttr("http.path", r.path),
		))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+"/"+r.path, r.body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.contentLength > 0 {
		req.ContentLength = r.contentLength
	}
	req.Header.Set("Accept", "application/json")
	if token, err := c.tokens.Token(ctx); err != nil {
		c.logger.Debug("token unavailable, sending anonymously", "error", err)
	} else if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, transportError(ctx, op, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return nil, mapHTTPError(op, resp.StatusCode, body)
		}
		return resp, nil
	})
	if err != nil {
		err = mapBreakerError(op, err)
		tracer.RecordError(span, err)
		c.logger.Debug("api request failed", "op", op, "path", r.path, "error", err)
		return nil, err
	}

	span.SetAttributes(tracer.IntAttr("http.status_code", resp.StatusCode))
	tracer.SetOK(span)
	c.logger.Debug("api request",
		"op", op,
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, nil
}

func transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return domain.NewDomainError(op, domain.ErrTimeout, "request deadline exceeded")
		}
		return ctxErr
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.NewDomainError(op, domain.ErrTimeout, err.Error())
	}
	return domain.NewDomainError(op, domain.ErrUnavailable, err.Error())
}

// call performs a request with the per-request deadline and decodes a JSON
// response into out, which may be nil.
func (c *Client) call(ctx context.Context, op string, r request, out any) error {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	resp, err := c.send(ctx, op, r)
	if err != nil {
		return err
	}
	return decodeBody(ctx, op, resp, out)
}

// decodeBody reads a JSON response body, bounded by maxResponseBody, and
// closes it.
func decodeBody(ctx context.Context, op string, resp *http.Response, out any) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return transportError(ctx, op, err)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.NewDomainError(op, domain.ErrProviderError, "decode response: "+err.Error())
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	return c.call(ctx, op, request{method: http.MethodGet, path: path}, out)
}

func (c *Client) postJSON(ctx context.Context, op, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", op, err)
	}
	return c.call(ctx, op, request{
		method:      http.MethodPost,
		path:        path,
		body:        bytes.NewReader(body),
		contentType: "application/json",
	}, out)
}
