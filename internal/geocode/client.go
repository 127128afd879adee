// Package geocode resolves free-text addresses into coordinates through a
// Nominatim-compatible geocoding service.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Rainelz/booko/internal/common/apperrors"
	"github.com/Rainelz/booko/internal/common/httpclient"
	"github.com/Rainelz/booko/internal/common/logger"
	"github.com/Rainelz/booko/internal/geo"
)

// Place is one geocoding candidate as returned by the service. Nominatim
// serialises coordinates as strings.
type Place struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Result is a resolved address. Ambiguous is set when the service returned
// more than one candidate; the first one is used in that case.
type Result struct {
	Coordinate  geo.Coordinate
	DisplayName string
	Ambiguous   bool
}

type Client struct {
	baseURL   string
	userAgent string
	http      *httpclient.Client
	logger    logger.Logger
}

func NewClient(baseURL, userAgent string, http *httpclient.Client, log logger.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      http,
		logger:    log.WithFields(map[string]interface{}{"component": "geocode"}),
	}
}

// Resolve geocodes a free-text address. Zero candidates yields an
// ADDRESS_NOT_FOUND error.
func (c *Client) Resolve(ctx context.Context, address string) (*Result, error) {
	u, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("q", address)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("geocoder returned status %d: %s", resp.StatusCode, string(body))
	}

	var places []Place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("failed to parse geocoder response: %w", err)
	}

	if len(places) == 0 {
		return nil, apperrors.NewAddressNotFound(address)
	}

	first := places[0]
	coord, err := placeCoordinate(first)
	if err != nil {
		return nil, fmt.Errorf("failed to parse geocoder coordinate: %w", err)
	}

	result := &Result{
		Coordinate:  coord,
		DisplayName: first.DisplayName,
		Ambiguous:   len(places) > 1,
	}

	if result.Ambiguous {
		c.logger.Warn("address is ambiguous, using first match", map[string]interface{}{
			"query":   address,
			"matches": len(places),
			"picked":  first.DisplayName,
		})
	}

	return result, nil
}

func placeCoordinate(p Place) (geo.Coordinate, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("lon %q: %w", p.Lon, err)
	}
	return geo.Coordinate{Lat: lat, Lon: lon}, nil
}
