// Package search implements the field discovery pipeline: venue discovery
// around an origin, fan-out availability fetching, slot filtering and
// aggregation into a per-date result set.
package search

import (
	"fmt"
	"time"

	"github.com/Rainelz/booko/internal/geo"
)

// Filter is the complete set of user-chosen constraints driving one
// search. It is assembled incrementally by the conversation layer and
// treated as read-only once the pipeline starts.
type Filter struct {
	Origin        geo.Coordinate `json:"origin"`
	NameKeywords  []string       `json:"name_keywords,omitempty"`
	MaxDistanceKm float64        `json:"max_distance_km"`
	MaxPriceUnits float64        `json:"max_price_units"`
	EarliestHour  int            `json:"earliest_hour"`
	Dates         []time.Time    `json:"dates"`
}

// Validate checks the invariants the pipeline relies on.
func (f Filter) Validate() error {
	if f.MaxDistanceKm <= 0 {
		return fmt.Errorf("max distance must be positive, got %v", f.MaxDistanceKm)
	}
	if f.MaxPriceUnits < 0 {
		return fmt.Errorf("max price must not be negative, got %v", f.MaxPriceUnits)
	}
	if f.EarliestHour < 0 || f.EarliestHour > 23 {
		return fmt.Errorf("earliest hour must be in [0,23], got %d", f.EarliestHour)
	}
	if len(f.Dates) == 0 {
		return fmt.Errorf("at least one date is required")
	}
	return nil
}

// Resource is a bookable field belonging to a tenant.
type Resource struct {
	ID           string
	Name         string
	ResourceType string
}

// Tenant is a discovered venue. DistanceKm is computed during discovery,
// never supplied by the directory.
type Tenant struct {
	ID         string
	Name       string
	Coordinate geo.Coordinate
	DistanceKm float64
	Resources  []Resource
}

// Resource returns the tenant resource with the given id, if any.
func (t Tenant) Resource(id string) (Resource, bool) {
	for _, r := range t.Resources {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}

// Slot is a bookable interval that survived the price filter. StartTime
// is the raw HH:MM:SS local wall time from the availability service.
type Slot struct {
	StartTime       string
	DurationMinutes int
	PriceUnits      float64
	PriceCurrency   string
}

// RawField carries the filtered slots of one resource id, before the
// join against tenant resource metadata.
type RawField struct {
	ResourceID string
	Slots      []Slot
}

// FieldResult is one field of a tenant with its surviving slots.
type FieldResult struct {
	Resource Resource
	Slots    []Slot
}

// TenantResult groups the matching fields of one tenant for one date.
type TenantResult struct {
	TenantID   string
	TenantName string
	Coordinate geo.Coordinate
	DistanceKm float64
	Fields     []FieldResult
}

// DayResult holds the tenants that had at least one match for one date,
// ordered by ascending distance.
type DayResult struct {
	Date    time.Time
	Tenants []TenantResult
}

// Result is the aggregated outcome of one search. Days follows the
// requested date order and only contains dates with at least one tenant.
type Result struct {
	Days []DayResult
}

// Empty reports whether the search matched nothing at all.
func (r *Result) Empty() bool {
	return r == nil || len(r.Days) == 0
}

// Day returns the result for the given date, if present.
func (r *Result) Day(date time.Time) (DayResult, bool) {
	for _, d := range r.Days {
		if d.Date.Equal(date) {
			return d, true
		}
	}
	return DayResult{}, false
}
