package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for response resolution.
type Metrics struct {
	Resolutions        *prometheus.CounterVec
	ProviderFailures   *prometheus.CounterVec
	ResolutionDuration prometheus.Histogram
	CacheEntries       prometheus.Gauge
	SearchRequests     *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aiclone_resolutions_total",
			Help: "Resolved chat messages by answering tier",
		}, []string{"source"}),

		ProviderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aiclone_provider_failures_total",
			Help: "Failed LLM provider calls",
		}, []string{"provider"}),

		ResolutionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aiclone_resolution_duration_seconds",
			Help:    "Time to resolve a chat message",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		CacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aiclone_cache_entries",
			Help: "Entries currently held by the response cache",
		}),

		SearchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aiclone_search_requests_total",
			Help: "Web search attempts by outcome",
		}, []string{"outcome"}),
	}
}
