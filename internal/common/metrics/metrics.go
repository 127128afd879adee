package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booko_searches_total",
			Help: "Total number of searches run, by outcome",
		},
		[]string{"outcome"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "booko_search_duration_seconds",
			Help: "Duration of a full search pipeline run in seconds",
		},
	)

	AvailabilityFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booko_availability_fetches_total",
			Help: "Total availability calls per (tenant, date) pair, by outcome",
		},
		[]string{"outcome"},
	)

	AvailabilityFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "booko_availability_fetch_duration_seconds",
			Help: "Duration of a single availability call in seconds",
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "booko_sessions_active",
			Help: "Number of conversations currently in progress",
		},
	)

	UpdatesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booko_updates_received_total",
			Help: "Telegram updates received, by kind",
		},
		[]string{"kind"},
	)
)
