package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultNominatimURL is the public OpenStreetMap Nominatim endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// nominatimResponse is the subset of the jsonv2 reverse response we read.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// NominatimOption configures a NominatimClient.
type NominatimOption func(*NominatimClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) NominatimOption {
	return func(c *NominatimClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) NominatimOption {
	return func(c *NominatimClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second. Nominatim's usage policy allows one.
func WithRateLimit(perSecond float64) NominatimOption {
	return func(c *NominatimClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NominatimClient is a Lookup backed by the Nominatim reverse API.
type NominatimClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewNominatimClient creates a client. userAgent identifies the application
// as required by the Nominatim usage policy.
func NewNominatimClient(userAgent string, opts ...NominatimOption) *NominatimClient {
	c := &NominatimClient{
		baseURL:   DefaultNominatimURL,
		userAgent: userAgent,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Reverse implements Lookup.
func (c *NominatimClient) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "geocode: nominatim rate limit")
	}

	params := url.Values{
		"format": {"jsonv2"},
		"lat":    {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(lon, 'f', -1, 64)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return "", eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "geocode: nominatim request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "geocode: nominatim read body")
	}

	var out nominatimResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", eris.Wrap(err, "geocode: nominatim parse response")
	}
	if out.Error != "" {
		zap.L().Debug("reverse geocode: no result",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.String("reason", out.Error),
		)
		return "", eris.Errorf("geocode: nominatim %s", out.Error)
	}

	return out.DisplayName, nil
}
