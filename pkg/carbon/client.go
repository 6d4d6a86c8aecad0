// Package carbon fetches grid carbon-intensity data (gCO2/kWh) from the
// Electricity Maps API. An unreachable provider must never block or fail
// a measurement, so every failure path degrades to DefaultIntensity.
package carbon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultIntensity is the global-average fallback in gCO2/kWh, used
// whenever no API key is configured or the lookup fails.
const DefaultIntensity = 400.0

// DefaultZone is the electricity zone queried when none is given.
const DefaultZone = "DE"

const (
	defaultBaseURL = "https://api.electricitymap.org/v3"
	requestTimeout = 10 * time.Second
)

var errNoIntensity = errors.New("carbon: response has no carbonIntensity field")

// Client queries the carbon-intensity API for a zone. Intensity values
// are scoped to a single measurement; the client caches nothing.
type Client struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
	log     zerolog.Logger
}

// NewClient returns a Client using the given API key. An empty key
// disables network access entirely: Intensity then always returns
// DefaultIntensity.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return newClient(apiKey, defaultBaseURL, log)
}

func newClient(apiKey, baseURL string, log zerolog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: requestTimeout},
		log:     log,
	}
}

// Intensity returns the carbon intensity for zone in gCO2/kWh. It never
// fails: any transport error, non-200 status, timeout, or malformed
// body is logged and degrades to DefaultIntensity.
func (c *Client) Intensity(ctx context.Context, zone string) float64 {
	if c.apiKey == "" {
		c.log.Warn().Msg("no Electricity Maps API key configured, using default carbon intensity")
		return DefaultIntensity
	}
	if zone == "" {
		zone = DefaultZone
	}

	v, err := c.fetch(ctx, zone)
	if err != nil {
		c.log.Warn().Err(err).Str("zone", zone).
			Msg("carbon intensity lookup failed, using default")
		return DefaultIntensity
	}
	return v
}

// fetch performs the actual lookup and reports failures in-band; the
// fallback decision stays with the caller.
func (c *Client) fetch(ctx context.Context, zone string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/carbon-intensity/latest", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("auth-token", c.apiKey)
	q := req.URL.Query()
	q.Set("zone", zone)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("carbon: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		CarbonIntensity *float64 `json:"carbonIntensity"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return 0, fmt.Errorf("carbon: decode response: %w", err)
	}
	if body.CarbonIntensity == nil {
		return 0, errNoIntensity
	}
	return *body.CarbonIntensity, nil
}
