// Package transport delivers outbound envelopes to the orchestrator over
// HTTP. One Send is one attempt; retrying is left to the participant.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kingrea/bargain/internal/envelope"
)

// DefaultTimeout bounds a single delivery when none is configured.
const DefaultTimeout = 10 * time.Second

const maxErrorBody = 1024

// Logger matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

// StatusError reports a non-2xx answer from the orchestrator.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("transport: orchestrator answered %d", e.StatusCode)
	}
	return fmt.Sprintf("transport: orchestrator answered %d: %s", e.StatusCode, e.Body)
}

// Client posts envelopes to {base}/participants/{sender}/messages.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each Send.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger records every delivery attempt.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New validates baseURL and returns a client.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("transport: parse orchestrator url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("transport: orchestrator url must be http(s), got %q", baseURL)
	}
	c := &Client{
		base:    parsed,
		http:    &http.Client{},
		timeout: DefaultTimeout,
		logger:  nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Endpoint returns the delivery URL for a sender.
func (c *Client) Endpoint(senderID string) string {
	return c.base.String() + "/participants/" + url.PathEscape(senderID) + "/messages"
}

// Send checks the envelope contract and posts its wire form. Any network
// failure, timeout or non-2xx status is returned as an error.
func (c *Client) Send(ctx context.Context, env envelope.Envelope) error {
	if err := envelope.Check(env); err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("transport: encode %s: %w", env.Action(), err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.Endpoint(env.SenderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", env.MessageID)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Printf("transport: %s %s timed out after %s", env.Action(), env.MessageID, c.timeout)
		} else {
			c.logger.Printf("transport: %s %s failed: %v", env.Action(), env.MessageID, err)
		}
		return fmt.Errorf("transport: post %s: %w", env.Action(), err)
	}
	defer func() { _ = resp.Body.Close() }()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Printf("transport: %s %s rejected with %d", env.Action(), env.MessageID, resp.StatusCode)
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	c.logger.Printf("transport: delivered %s %s in %s", env.Action(), env.MessageID, time.Since(started).Round(time.Millisecond))
	return nil
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
