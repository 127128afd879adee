// Package playtomic is the client for the venue directory and availability
// endpoints of the Playtomic public API.
package playtomic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Rainelz/booko/internal/common/httpclient"
	"github.com/Rainelz/booko/internal/common/logger"
	"github.com/Rainelz/booko/internal/geo"
)

// Config carries the directory query constants: which sport to search,
// the directory-side radius cap (independent of the user's distance
// filter) and the page size.
type Config struct {
	BaseURL      string
	SportID      string
	RadiusMeters int
	PageSize     int
}

type Client struct {
	cfg    Config
	http   *httpclient.Client
	logger logger.Logger
}

func NewClient(cfg Config, http *httpclient.Client, log logger.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   http,
		logger: log.WithFields(map[string]interface{}{"component": "playtomic"}),
	}
}

// Tenants lists active venues around origin within the service's own
// radius cap. Distance filtering against the user's limit happens in the
// discovery layer, not here.
func (c *Client) Tenants(ctx context.Context, origin geo.Coordinate) ([]Tenant, error) {
	u, err := url.Parse(c.cfg.BaseURL + "/v1/tenants")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("user_id", "me")
	q.Set("playtomic_status", "ACTIVE")
	q.Set("with_properties", "ALLOWS_CASH_PAYMENT")
	q.Set("coordinate", fmt.Sprintf("%f,%f", origin.Lat, origin.Lon))
	q.Set("sport_id", c.cfg.SportID)
	q.Set("radius", strconv.Itoa(c.cfg.RadiusMeters))
	q.Set("size", strconv.Itoa(c.cfg.PageSize))
	u.RawQuery = q.Encode()

	var tenants []Tenant
	if err := c.getJSON(ctx, u.String(), &tenants); err != nil {
		return nil, fmt.Errorf("tenants query failed: %w", err)
	}

	return tenants, nil
}

// Availability fetches the free slots of one tenant for one date, from
// earliestHour:00 local time to the end of the day.
func (c *Client) Availability(ctx context.Context, tenantID string, date time.Time, earliestHour int) ([]AvailabilityResource, error) {
	u, err := url.Parse(c.cfg.BaseURL + "/v1/availability")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	day := date.Format("2006-01-02")

	q := u.Query()
	q.Set("user_id", "me")
	q.Set("tenant_id", tenantID)
	q.Set("sport_id", c.cfg.SportID)
	q.Set("local_start_min", fmt.Sprintf("%sT%02d:00:00", day, earliestHour))
	q.Set("local_start_max", day+"T23:59:59")
	u.RawQuery = q.Encode()

	var fields []AvailabilityResource
	if err := c.getJSON(ctx, u.String(), &fields); err != nil {
		return nil, fmt.Errorf("availability query failed: %w", err)
	}

	return fields, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("service returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
