// Package client talks to a running appraisal service: it posts property
// requests to /doc, optionally exports the reports through /excel, and
// drives batches of those calls from a JSON input file.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/appraisal/internal/domain/model"
	"github.com/okian/appraisal/pkg/logger"
)

const (
	defaultBaseURL  = "http://localhost:3000"
	defaultTimeout  = 90 * time.Second
	requestIDHeader = "X-Request-ID"
	maxResponseBody = 8 << 20
)

// Client is a thin HTTP client for the appraisal API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
	newID      func() string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the service root, e.g. http://localhost:3000.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.Nop(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks that the service answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Valuate runs one valuation and returns the service's result.
func (c *Client) Valuate(ctx context.Context, attrs model.PropertyAttributes) (model.ValuationResult, string, error) {
	var out model.ValuationResult
	id, err := c.post(ctx, "/doc", attrs, &out)
	return out, id, err
}

// Export uploads a report and returns the public download link.
func (c *Client) Export(ctx context.Context, r model.ValuationReport) (string, error) {
	var out struct {
		Link string `json:"link"`
	}
	if _, err := c.post(ctx, "/excel", r, &out); err != nil {
		return "", err
	}
	return out.Link, nil
}

// post sends body as JSON and decodes a 200 answer into out. The request id
// it generated is returned so callers can correlate with server logs.
func (c *Client) post(ctx context.Context, path string, body, out any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal %s request: %w", path, err)
	}

	id := c.newID()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return id, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, id)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return id, fmt.Errorf("post %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return id, fmt.Errorf("read %s response: %w", path, err)
	}
	c.logger.Debug(ctx, "api call",
		logger.String("path", path),
		logger.String("request_id", id),
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		apiErr.Status = resp.StatusCode
		return id, apiErr
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return id, fmt.Errorf("decode %s response: %w", path, err)
	}
	return id, nil
}
