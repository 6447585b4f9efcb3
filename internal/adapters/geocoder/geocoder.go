// Package geocoder resolves structured addresses to coordinates using the
// Google Maps geocoding API.
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/appraisal/internal/domain/model"
	"github.com/okian/appraisal/pkg/logger"
)

const (
	defaultBaseURL = "https://maps.googleapis.com"
	geocodePath    = "/maps/api/geocode/json"
	defaultTimeout = 20 * time.Second
	maxBodyBytes   = 1 << 20
	zeroResults    = "ZERO_RESULTS"
	statusOK       = "OK"
)

// Client talks to the geocoding provider. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	referer    string
	httpClient *http.Client
	logger     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the provider base URL (scheme and host).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithReferer sets the Referer header the key is restricted to.
func WithReferer(referer string) Option {
	return func(c *Client) { c.referer = referer }
}

// WithHTTPClient sets the HTTP client used for lookups.
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

// New creates a geocoding client.
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

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

// Geocode resolves addr with a single lookup and returns the first result.
// Multiple results are not disambiguated.
func (c *Client) Geocode(ctx context.Context, addr model.Address) (model.Coordinates, error) {
	line := addr.Line()
	endpoint := c.baseURL + geocodePath + "?address=" + url.QueryEscape(line) + "&key=" + url.QueryEscape(c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return model.Coordinates{}, &GeocodeError{Kind: KindUpstream, Address: line, Err: err}
	}
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Coordinates{}, &GeocodeError{Kind: KindUpstream, Address: line, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return model.Coordinates{}, &GeocodeError{
			Kind:    KindUpstream,
			Address: line,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("HTTP error status: %d", resp.StatusCode),
		}
	}

	var body geocodeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return model.Coordinates{}, &GeocodeError{Kind: KindUpstream, Address: line, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	// REQUEST_DENIED, OVER_QUERY_LIMIT and friends are provider failures, not
	// an unknown address.
	if body.Status != "" && body.Status != statusOK && body.Status != zeroResults {
		reason := strings.TrimSpace("provider status " + body.Status + " " + body.ErrorMessage)
		return model.Coordinates{}, &GeocodeError{Kind: KindUpstream, Address: line, Status: resp.StatusCode, Err: errors.New(reason)}
	}

	if len(body.Results) == 0 {
		return model.Coordinates{}, &GeocodeError{Kind: KindNotFound, Address: line, Status: resp.StatusCode, Err: errors.New("no results found")}
	}

	loc := body.Results[0].Geometry.Location
	c.logger.Debug(ctx, "address geocoded",
		logger.String("address", line),
		logger.Int("results", len(body.Results)),
		logger.Float64("lat", loc.Lat),
		logger.Float64("lng", loc.Lng),
	)
	return model.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
