package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors used across the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	cacheLookups   *prometheus.CounterVec
	generation     *prometheus.CounterVec
	pipelineRuns   *prometheus.CounterVec
	taskDuration   *prometheus.HistogramVec
	listingRefresh *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "narrator_cache_lookups_total",
			Help: "Cache lookups by cache and result (hit, miss, error).",
		}, []string{"cache", "result"}),
		generation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "narrator_generation_requests_total",
			Help: "Text generation calls by provider and status.",
		}, []string{"provider", "status"}),
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "narrator_pipeline_runs_total",
			Help: "Narration pipeline runs by status.",
		}, []string{"status"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "narrator_pipeline_task_seconds",
			Help:    "Duration of individual pipeline tasks.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"task"}),
		listingRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "narrator_listing_refresh_total",
			Help: "Listing refresh attempts by result (success, failure, stale_fallback).",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.cacheLookups, m.generation, m.pipelineRuns, m.taskDuration, m.listingRefresh)
	}
	return m
}

func (m *Metrics) CacheLookup(cache, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) Generation(provider string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.generation.WithLabelValues(provider, status).Inc()
}

func (m *Metrics) PipelineRun(err error) {
	if m == nil {
		return
	}
	status := "completed"
	if err != nil {
		status = "failed"
	}
	m.pipelineRuns.WithLabelValues(status).Inc()
}

func (m *Metrics) TaskDuration(task string, d time.Duration) {
	if m == nil {
		return
	}
	m.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (m *Metrics) ListingRefresh(result string) {
	if m == nil {
		return
	}
	m.listingRefresh.WithLabelValues(result).Inc()
}
