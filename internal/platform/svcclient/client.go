// Package svcclient talks to the service of record over HTTP.
//
// Every response is an envelope {success, result|data, message|error}. A
// failed call is never retried; its message is surfaced verbatim.
package svcclient

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

	"github.com/rs/zerolog"

	"github.com/ehr/orders/pkg/apperr"
)

// Client is a JSON client for the service boundary.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     zerolog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger attaches a logger for failed calls.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for baseURL. A zero timeout leaves the deadline to the
// caller's context and the transport.
func New(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Envelope is the response record of every boundary call.
type Envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Payload returns result, or data when result is absent.
func (e *Envelope) Payload() json.RawMessage {
	if len(e.Result) > 0 && string(e.Result) != "null" {
		return e.Result
	}
	return e.Data
}

// Reason returns message, or error when message is absent.
func (e *Envelope) Reason() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// Do issues one call. body, when non-nil, is sent as JSON. On success the
// payload is decoded into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("service call failed")
		return apperr.Boundary(err)
	}
	defer resp.Body.Close()

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("empty response (status %d)", resp.StatusCode)
		}
		return apperr.Boundary(fmt.Errorf("%s %s: %w", method, path, err))
	}

	if !env.Success {
		reason := env.Reason()
		if reason == "" {
			reason = fmt.Sprintf("%s %s failed with status %d", method, path, resp.StatusCode)
		}
		c.logger.Warn().Str("method", method).Str("path", path).
			Int("status", resp.StatusCode).Str("reason", reason).Msg("service rejected call")
		if resp.StatusCode == http.StatusNotFound {
			return &apperr.Error{Kind: apperr.KindNotFound, Message: reason}
		}
		return apperr.Boundary(errors.New(reason))
	}

	if out == nil {
		return nil
	}
	payload := env.Payload()
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return apperr.Boundary(fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}
