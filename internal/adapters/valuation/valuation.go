// Package valuation is the client for the automated valuation provider:
// a credential exchange for a bearer token, the value range estimate (avm)
// and the comparable listings (bros).
package valuation

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

	"github.com/okian/appraisal/internal/domain/model"
	"github.com/okian/appraisal/pkg/logger"
)

const (
	defaultBaseURL  = "https://datazap-gateway.zap.com.br"
	loginPath       = "/login"
	estimatePath    = "/rdr/avm"
	comparablesPath = "/rdr/bros"
	defaultTimeout  = 20 * time.Second
	maxBodyBytes    = 4 << 20

	opLogin       = "login"
	opEstimate    = "avm"
	opComparables = "bros"
)

// Token is an opaque bearer token issued by the provider.
type Token string

// Client talks to the valuation provider. It holds only read-only settings
// and is safe for concurrent use; tokens are never stored on it.
type Client struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client
	logger     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the provider base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithCredentials sets the service account used for the token exchange.
func WithCredentials(email, password string) Option {
	return func(c *Client) {
		c.email = email
		c.password = password
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a valuation client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticate exchanges the service account credentials for a token.
// The provider answers with the token as the raw body.
func (c *Client) Authenticate(ctx context.Context) (Token, error) {
	resp, err := c.post(ctx, loginPath, "", credentials{Email: c.email, Password: c.password})
	if err != nil {
		return "", &ValuationError{Kind: KindUnavailable, Op: opLogin, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &ValuationError{Kind: KindUnavailable, Op: opLogin, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ValuationError{Kind: KindUnavailable, Op: opLogin, Status: resp.StatusCode, Err: fmt.Errorf("HTTP error status: %d", resp.StatusCode)}
	}

	// The provider reports some login failures as a 200 with a JSON error object.
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		reason := "error payload instead of a token"
		if detail, ok := errorDetail(trimmed, "erro", "detail"); ok {
			reason += ": " + detail
		}
		return "", &ValuationError{Kind: KindUnavailable, Op: opLogin, Status: resp.StatusCode, Err: errors.New(reason)}
	}

	token := Token(strings.Trim(strings.TrimSpace(string(raw)), `"`))
	if token == "" {
		return "", &ValuationError{Kind: KindUnavailable, Op: opLogin, Status: resp.StatusCode, Err: errors.New("empty token")}
	}
	return token, nil
}

// Estimate requests the unit price range for the property.
func (c *Client) Estimate(ctx context.Context, token Token, in model.ValuationInput) (model.ValuationRange, error) {
	if token == "" {
		return model.ValuationRange{}, &ValuationError{Kind: KindUnavailable, Op: opEstimate, Err: errors.New("no token")}
	}

	resp, err := c.post(ctx, estimatePath, token, in)
	if err != nil {
		return model.ValuationRange{}, &ValuationError{Kind: KindUpstream, Op: opEstimate, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return model.ValuationRange{}, &ValuationError{Kind: KindUpstream, Op: opEstimate, Status: resp.StatusCode, Err: fmt.Errorf("HTTP error status: %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return model.ValuationRange{}, &ValuationError{Kind: KindUpstream, Op: opEstimate, Status: resp.StatusCode, Err: err}
	}
	if detail, ok := errorDetail(raw, "detail", "erro"); ok {
		return model.ValuationRange{}, &ValuationError{Kind: KindUpstream, Op: opEstimate, Status: resp.StatusCode, Err: fmt.Errorf("provider error: %s", detail)}
	}

	var body estimateResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return model.ValuationRange{}, &ValuationError{Kind: KindUpstream, Op: opEstimate, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if body.Min == nil || body.Central == nil || body.Max == nil {
		return model.ValuationRange{}, &ValuationError{Kind: KindUpstream, Op: opEstimate, Status: resp.StatusCode, Err: errors.New("response is missing min, central or max")}
	}
	return model.ValuationRange{Min: *body.Min, Central: *body.Central, Max: *body.Max, Neighbors: body.Neighbors}, nil
}

// estimateResponse keeps the range values as pointers so an absent value is
// not read as zero.
type estimateResponse struct {
	Min       *float64 `json:"min"`
	Central   *float64 `json:"central"`
	Max       *float64 `json:"max"`
	Neighbors int      `json:"num_vizinhos"`
}

// Comparables requests similar listings near the property. A response that
// carries a "detail" field means the provider found none; that yields an
// empty slice and no error.
func (c *Client) Comparables(ctx context.Context, token Token, in model.ValuationInput) ([]model.ComparableListing, error) {
	if token == "" {
		return nil, &ValuationError{Kind: KindUnavailable, Op: opComparables, Err: errors.New("no token")}
	}

	resp, err := c.post(ctx, comparablesPath, token, in)
	if err != nil {
		return nil, &ValuationError{Kind: KindUpstream, Op: opComparables, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &ValuationError{Kind: KindUpstream, Op: opComparables, Status: resp.StatusCode, Err: err}
	}

	// The detail check comes before the status check: the provider reports
	// "nothing found" with an error status and a detail message.
	if detail, ok := errorDetail(raw, "detail"); ok {
		c.logger.Debug(ctx, "no comparables available",
			logger.Int("status", resp.StatusCode),
			logger.String("detail", detail),
		)
		return []model.ComparableListing{}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ValuationError{Kind: KindUpstream, Op: opComparables, Status: resp.StatusCode, Err: fmt.Errorf("HTTP error status: %d", resp.StatusCode)}
	}

	var listings []model.ComparableListing
	if err := json.Unmarshal(raw, &listings); err != nil {
		return nil, &ValuationError{Kind: KindUpstream, Op: opComparables, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if listings == nil {
		listings = []model.ComparableListing{}
	}
	return listings, nil
}

// errorDetail reports whether raw is a JSON object carrying a non-empty
// value under one of keys, checked in order.
func errorDetail(raw []byte, keys ...string) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return "", false
	}
	for _, key := range keys {
		detail := strings.TrimSpace(string(fields[key]))
		switch detail {
		case "", "null", `""`, "false", "[]", "{}":
			continue
		}
		return detail, true
	}
	return "", false
}

func (c *Client) post(ctx context.Context, path string, token Token, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+string(token))
	}
	return c.httpClient.Do(req)
}
