// Package remote is the client's HTTP access to the REIGN API: JSON in and
// out, bearer authentication, typed failures.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"reign/internal/logging"
)

const (
	DefaultTimeout  = 30 * time.Second
	beaconTimeout   = 10 * time.Second
	maxErrorBody    = 64 << 10
	genericFailure  = "Request failed"
	contentTypeJSON = "application/json"
)

// RequestFailedError is a response outside 2xx. Message is the server's
// error text when it sent one.
type RequestFailedError struct {
	StatusCode int
	Message    string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// NetworkError means no response was received at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

func IsRequestFailed(err error) bool {
	var rf *RequestFailedError
	return errors.As(err, &rf)
}

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var rf *RequestFailedError
	if errors.As(err, &rf) {
		return rf.StatusCode
	}
	return 0
}

// TokenSource supplies the current bearer token; "" means anonymous.
type TokenSource interface {
	Token() string
}

type Options struct {
	Method  string
	Body    any
	Headers http.Header
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *zap.Logger

	beacons sync.WaitGroup
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }
func WithTimeout(d time.Duration) Option  { return func(c *Client) { c.http.Timeout = d } }
func WithLogger(l *zap.Logger) Option     { return func(c *Client) { c.logger = logging.OrNop(l) } }

func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		tokens:  tokens,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("remote")
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Request performs one call. out may be nil to discard the body.
func (c *Client) Request(ctx context.Context, endpoint string, opts Options, out any) error {
	req, err := c.newRequest(ctx, endpoint, opts)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request did not complete", zap.String("endpoint", endpoint), zap.Error(err))
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RequestFailedError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	return c.Request(ctx, endpoint, Options{Method: http.MethodGet}, out)
}

func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.Request(ctx, endpoint, Options{Method: http.MethodPost, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, endpoint string, body, out any) error {
	return c.Request(ctx, endpoint, Options{Method: http.MethodPut, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, endpoint string, out any) error {
	return c.Request(ctx, endpoint, Options{Method: http.MethodDelete}, out)
}

// Beacon posts body to endpoint without waiting for, or reading, the
// response. It never retries and its outcome is only logged. It reports
// whether the send was started.
func (c *Client) Beacon(endpoint string, body any) bool {
	ctx, cancel := context.WithTimeout(context.Background(), beaconTimeout)
	req, err := c.newRequest(ctx, endpoint, Options{Method: http.MethodPost, Body: body})
	if err != nil {
		cancel()
		c.logger.Warn("beacon not sent", zap.String("endpoint", endpoint), zap.Error(err))
		return false
	}

	c.beacons.Add(1)
	go func() {
		defer c.beacons.Done()
		defer cancel()

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Debug("beacon lost", zap.String("endpoint", endpoint), zap.Error(err))
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	return true
}

// WaitBeacons blocks until in-flight beacons finish or ctx ends. A process
// that exits right after unloading calls it to give them a chance to land.
func (c *Client) WaitBeacons(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		c.beacons.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (c *Client) newRequest(ctx context.Context, endpoint string, opts Options) (*http.Request, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		b, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", endpoint, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	for k, vs := range opts.Headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return genericFailure
}
