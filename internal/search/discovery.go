package search

import (
	"context"
	"sort"
	"strings"

	"github.com/Rainelz/booko/internal/common/apperrors"
	"github.com/Rainelz/booko/internal/common/logger"
	"github.com/Rainelz/booko/internal/geo"
	"github.com/Rainelz/booko/internal/playtomic"
)

// DirectoryClient lists candidate venues around an origin.
type DirectoryClient interface {
	Tenants(ctx context.Context, origin geo.Coordinate) ([]playtomic.Tenant, error)
}

// Discoverer turns directory candidates into distance-ranked tenants.
type Discoverer struct {
	directory DirectoryClient
	logger    logger.Logger
}

func NewDiscoverer(directory DirectoryClient, log logger.Logger) *Discoverer {
	return &Discoverer{
		directory: directory,
		logger:    log.WithFields(map[string]interface{}{"component": "discovery"}),
	}
}

// Discover queries the directory once, keeps candidates matching the name
// keywords (any case-insensitive substring) and within maxDistanceKm of
// origin, and returns them sorted by ascending distance. A directory
// failure is fatal to the whole search and surfaces as
// DIRECTORY_UNAVAILABLE.
func (d *Discoverer) Discover(ctx context.Context, origin geo.Coordinate, nameKeywords []string, maxDistanceKm float64) ([]Tenant, error) {
	candidates, err := d.directory.Tenants(ctx, origin)
	if err != nil {
		return nil, apperrors.NewDirectoryUnavailable(err)
	}

	tenants := make([]Tenant, 0, len(candidates))
	for _, c := range candidates {
		if !matchesKeywords(c.TenantName, nameKeywords) {
			continue
		}

		coord := geo.Coordinate{Lat: c.Address.Coord.Lat, Lon: c.Address.Coord.Lon}
		distance := geo.DistanceKm(coord, origin)
		if distance > maxDistanceKm {
			continue
		}

		tenants = append(tenants, Tenant{
			ID:         c.TenantID,
			Name:       c.TenantName,
			Coordinate: coord,
			DistanceKm: distance,
			Resources:  toResources(c.Resources),
		})
	}

	// Stable sort keeps directory order for equidistant venues.
	sort.SliceStable(tenants, func(i, j int) bool {
		return tenants[i].DistanceKm < tenants[j].DistanceKm
	})

	d.logger.Debug("discovery finished", map[string]interface{}{
		"candidates": len(candidates),
		"kept":       len(tenants),
	})

	return tenants, nil
}

func matchesKeywords(name string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}

	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func toResources(in []playtomic.Resource) []Resource {
	out := make([]Resource, 0, len(in))
	for _, r := range in {
		out = append(out, Resource{
			ID:           r.ResourceID,
			Name:         r.Name,
			ResourceType: r.Properties.ResourceType,
		})
	}
	return out
}
