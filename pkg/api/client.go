// Package api implements the HTTP client for the flashcard battle backend.
// Every call carries a request id and a timeout, unwraps the {data, message}
// response envelope and reports failures as *NetworkError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/logging"
)

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

// maxErrorBody limits how much of a failed response is read for a message
const maxErrorBody = 64 << 10

// Client talks to the backend REST API
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Timeout is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client for the configured backend
func New(cfg data.APIConfig, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     logging.OrNop(logger).Named("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the standard response wrapper
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// call describes a single request
type call struct {
	op          string
	method      string
	path        string
	body        any
	rawBody     io.Reader
	contentType string
	unwrapped   bool // response is not wrapped in {data: ...}
}

// do executes the call and decodes the result into out (which may be nil)
func (c *Client) do(ctx context.Context, cl call, out any) error {
	payload, _, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	if !cl.unwrapped {
		var env envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return c.decodeError(cl, err)
		}
		payload = env.Data
		if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
			return nil
		}
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return c.decodeError(cl, err)
	}
	return nil
}

// send performs the HTTP exchange and returns the raw success body
func (c *Client) send(ctx context.Context, cl call) ([]byte, http.Header, error) {
	reqID := uuid.NewString()
	log := c.log.With(
		zap.String("op", cl.op),
		zap.String("method", cl.method),
		zap.String("path", cl.path),
		zap.String("request_id", reqID),
	)

	var body io.Reader
	contentType := cl.contentType
	switch {
	case cl.rawBody != nil:
		body = cl.rawBody
	case cl.body != nil:
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode %s request: %w", cl.op, err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build %s request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		nerr := &NetworkError{
			Op:      cl.op,
			Method:  cl.method,
			Path:    cl.path,
			Message: transportMessage(err),
			Timeout: isTimeout(err),
			Err:     err,
		}
		log.Warn("request failed", zap.Duration("latency", time.Since(start)), zap.Bool("timeout", nerr.Timeout), zap.Error(err))
		return nil, nil, nerr
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := messageFromBody(raw)
		if msg == "" {
			msg = fmt.Sprintf("Request failed with status code %d", resp.StatusCode)
		}
		nerr := &NetworkError{
			Op:         cl.op,
			Method:     cl.method,
			Path:       cl.path,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
		log.Warn("request rejected",
			zap.Int("status", resp.StatusCode),
			zap.Duration("latency", time.Since(start)),
			zap.String("message", msg))
		return nil, nil, nerr
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		nerr := &NetworkError{
			Op:         cl.op,
			Method:     cl.method,
			Path:       cl.path,
			StatusCode: resp.StatusCode,
			Message:    transportMessage(err),
			Timeout:    isTimeout(err),
			Err:        err,
		}
		log.Warn("failed to read response", zap.Error(err))
		return nil, nil, nerr
	}

	log.Debug("request completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.Int("bytes", len(raw)))
	return raw, resp.Header, nil
}

func (c *Client) decodeError(cl call, err error) error {
	c.log.Warn("malformed response", zap.String("op", cl.op), zap.String("path", cl.path), zap.Error(err))
	return &NetworkError{
		Op:      cl.op,
		Method:  cl.method,
		Path:    cl.path,
		Message: fmt.Sprintf("malformed response from server: %v", err),
		Err:     err,
	}
}

// transportMessage prefers the innermost readable error text
func transportMessage(err error) string {
	if isTimeout(err) {
		return "Request timed out"
	}
	inner := err
	for u := errors.Unwrap(inner); u != nil; u = errors.Unwrap(inner) {
		inner = u
	}
	if msg := inner.Error(); msg != "" {
		return msg
	}
	return UnknownErrorMessage
}
