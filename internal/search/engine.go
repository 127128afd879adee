package search

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rainelz/booko/internal/common/apperrors"
	"github.com/Rainelz/booko/internal/common/logger"
	"github.com/Rainelz/booko/internal/common/metrics"
	"github.com/Rainelz/booko/internal/playtomic"
)

// AvailabilityClient fetches the free slots of one tenant for one date.
type AvailabilityClient interface {
	Availability(ctx context.Context, tenantID string, date time.Time, earliestHour int) ([]playtomic.AvailabilityResource, error)
}

// Engine runs the full discovery pipeline: one directory call, then one
// availability call per (tenant, date) pair on a bounded worker pool,
// then filtering and aggregation.
type Engine struct {
	discoverer   *Discoverer
	availability AvailabilityClient
	workers      int
	fetchTimeout time.Duration
	logger       logger.Logger
}

func NewEngine(discoverer *Discoverer, availability AvailabilityClient, workers int, fetchTimeout time.Duration, log logger.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		discoverer:   discoverer,
		availability: availability,
		workers:      workers,
		fetchTimeout: fetchTimeout,
		logger:       log.WithFields(map[string]interface{}{"component": "engine"}),
	}
}

type fetchTask struct {
	dateIdx   int
	tenantIdx int
}

// Search executes one search. A directory failure aborts the search; a
// failed availability fetch only empties its own (tenant, date) pair.
// Cancelling ctx abandons all in-flight fetches.
func (e *Engine) Search(ctx context.Context, filter Filter) (*Result, error) {
	if err := filter.Validate(); err != nil {
		return nil, apperrors.NewInvalidInput(err.Error())
	}

	searchID := uuid.NewString()
	log := e.logger.WithFields(map[string]interface{}{"searchId": searchID})
	started := time.Now()

	tenants, err := e.discoverer.Discover(ctx, filter.Origin, filter.NameKeywords, filter.MaxDistanceKm)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("directory_error").Inc()
		return nil, err
	}

	log.Info("tenants discovered", map[string]interface{}{
		"tenants": len(tenants),
		"dates":   len(filter.Dates),
	})

	grid := e.fetchAll(ctx, log, tenants, filter)
	if ctx.Err() != nil {
		metrics.SearchesTotal.WithLabelValues("cancelled").Inc()
		return nil, ctx.Err()
	}

	result := aggregate(log, tenants, filter.Dates, grid)

	metrics.SearchDuration.Observe(time.Since(started).Seconds())
	if result.Empty() {
		metrics.SearchesTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.SearchesTotal.WithLabelValues("ok").Inc()
	}

	return result, nil
}

// fetchAll runs the tenant-by-date availability calls on a fixed pool of
// workers. Each cell of the returned grid is written by exactly one task,
// so no locking is needed around it.
func (e *Engine) fetchAll(ctx context.Context, log logger.Logger, tenants []Tenant, filter Filter) [][][]RawField {
	grid := make([][][]RawField, len(filter.Dates))
	for i := range grid {
		grid[i] = make([][]RawField, len(tenants))
	}

	tasks := make(chan fetchTask)
	var wg sync.WaitGroup

	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				if ctx.Err() != nil {
					continue
				}
				grid[task.dateIdx][task.tenantIdx] = e.fetchPair(ctx, log, tenants[task.tenantIdx], filter, filter.Dates[task.dateIdx])
			}
		}()
	}

	for di := range filter.Dates {
		for ti := range tenants {
			tasks <- fetchTask{dateIdx: di, tenantIdx: ti}
		}
	}
	close(tasks)
	wg.Wait()

	return grid
}

// fetchPair runs one availability call with its own timeout. Failures are
// logged and contribute an empty pair; one unreachable venue must never
// abort the whole search.
func (e *Engine) fetchPair(ctx context.Context, log logger.Logger, tenant Tenant, filter Filter, date time.Time) []RawField {
	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	started := time.Now()
	fields, err := e.availability.Availability(fetchCtx, tenant.ID, date, filter.EarliestHour)
	metrics.AvailabilityFetchDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		metrics.AvailabilityFetches.WithLabelValues("error").Inc()
		fetchErr := apperrors.NewAvailabilityFetchFailed(tenant.ID, date.Format("2006-01-02"), err)
		log.Warn("availability fetch failed, skipping pair", map[string]interface{}{
			"tenantId": tenant.ID,
			"tenant":   tenant.Name,
			"date":     date.Format("2006-01-02"),
			"error":    fetchErr.Details,
		})
		return nil
	}

	metrics.AvailabilityFetches.WithLabelValues("ok").Inc()
	return FilterFields(fields, filter.MaxPriceUnits)
}

// aggregate folds the fetch grid into the final result: dates in request
// order, tenants in discovery (ascending distance) order, fields joined
// back to tenant resource metadata by resource id. A field whose resource
// id is unknown to its tenant is inconsistent directory data; it is
// skipped, the rest of the tenant survives.
func aggregate(log logger.Logger, tenants []Tenant, dates []time.Time, grid [][][]RawField) *Result {
	result := &Result{}

	for di, date := range dates {
		day := DayResult{Date: date}

		for ti, tenant := range tenants {
			rawFields := grid[di][ti]
			if len(rawFields) == 0 {
				continue
			}

			tr := TenantResult{
				TenantID:   tenant.ID,
				TenantName: tenant.Name,
				Coordinate: tenant.Coordinate,
				DistanceKm: tenant.DistanceKm,
			}

			for _, rf := range rawFields {
				resource, ok := tenant.Resource(rf.ResourceID)
				if !ok {
					log.Warn("availability references unknown resource, skipping field", map[string]interface{}{
						"tenantId":   tenant.ID,
						"resourceId": rf.ResourceID,
					})
					continue
				}
				tr.Fields = append(tr.Fields, FieldResult{Resource: resource, Slots: rf.Slots})
			}

			if len(tr.Fields) > 0 {
				day.Tenants = append(day.Tenants, tr)
			}
		}

		if len(day.Tenants) > 0 {
			result.Days = append(result.Days, day)
		}
	}

	return result
}
