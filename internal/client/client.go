// Package client is a typed Go client for the grants API.
//
// Every call returns an envelope.Result: either the decoded payload or an
// *envelope.Error with a closed Code. Transport failures and responses that
// cannot be decoded are reported as NETWORK_ERROR. The client never retries
// and never panics on a failed call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const defaultTimeout = 30 * time.Second

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 8 << 20

// Client talks to one API base URL on behalf of one session.
type Client struct {
	baseURL   string
	token     string
	http      *http.Client
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for baseURL (e.g. "http://localhost:8080/api") that
// authenticates every request with token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: "grants-client",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call performs one request and decodes the envelope's data into T.
func call[T any](ctx context.Context, c *Client, method, path string, body any) envelope.Result[T] {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return envelope.Failure[T](envelope.Network(fmt.Errorf("encode request: %w", err)))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return envelope.Failure[T](envelope.Network(err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return envelope.Failure[T](envelope.Network(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return envelope.Failure[T](envelope.Network(fmt.Errorf("read response: %w", err)))
	}

	var env envelope.Raw
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope.Failure[T](envelope.Network(fmt.Errorf("unexpected response (status %d)", resp.StatusCode)))
	}
	if env.Error != nil {
		return envelope.Failure[T](env.Error)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return envelope.Failure[T](envelope.Network(fmt.Errorf("unexpected status %d without error body", resp.StatusCode)))
	}

	var data T
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return envelope.Failure[T](envelope.Network(fmt.Errorf("decode response: %w", err)))
		}
	}
	return envelope.Success(data)
}

// path joins escaped segments onto a route, e.g. path("projects", id).
func path(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
