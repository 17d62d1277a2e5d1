// Package blackmarble provides a client for the Black Marble mosaic
// point-sampling API, which serves per-coordinate radiance values from the
// latest VIIRS nighttime composite.
package blackmarble

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nocturna-project/nocturna/internal/measurement"
	"github.com/nocturna-project/nocturna/internal/resilience"
)

const (
	// DefaultBaseURL is the base URL for the mosaic sampling API.
	DefaultBaseURL = "https://blackmarble.gsfc.nasa.gov/api/v1"

	// ProviderName identifies this provider.
	ProviderName = "blackmarble"
)

// ClientConfig holds configuration for the Black Marble client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// APIKey is the bearer token for authenticated access. Optional; the
	// public mosaic endpoints accept unauthenticated requests at a lower
	// rate limit.
	APIKey string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a Black Marble point-sampling client. It implements
// measurement.Sampler.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
}

// NewClient creates a new Black Marble client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

// API response types (from the mosaic sampling API).

type pointResponse struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Radiance   float64 `json:"radiance"`
	AcquiredAt string  `json:"acquired_at"`
	QAFlag     int     `json:"qa_flag"`
}

// Sample fetches the latest mosaic radiance at the given location. A nil
// pixel with nil error means the mosaic has no coverage there (open ocean,
// polar gaps, unprocessed tiles).
func (c *Client) Sample(ctx context.Context, loc measurement.Location) (*measurement.SatellitePixel, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(loc.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(loc.Lon, 'f', 6, 64))

	reqURL := fmt.Sprintf("%s/point?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sample mosaic point: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected status %d from point endpoint", resp.StatusCode)
	}

	var result pointResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode point response: %w", err)
	}

	return c.toPixel(&result), nil
}

// toPixel converts an API point response to a domain SatellitePixel.
func (c *Client) toPixel(p *pointResponse) *measurement.SatellitePixel {
	acquiredAt, err := time.Parse(time.RFC3339, p.AcquiredAt)
	if err != nil {
		acquiredAt = time.Now().UTC()
	}

	return &measurement.SatellitePixel{
		Location:   measurement.Location{Lat: p.Latitude, Lon: p.Longitude},
		Radiance:   p.Radiance,
		AcquiredAt: acquiredAt,
	}
}
