// Package metrics exposes sync run metrics for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mfenderov/docsync/internal/events"
)

const namespace = "docsync"

// Collector holds the sync metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	SchemeRuns     *prometheus.CounterVec
	DocumentsAdded *prometheus.CounterVec
	ChunksIndexed  *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry, including the
// Go runtime and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		SchemeRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheme_runs_total",
				Help:      "Total number of scheme sync runs",
			},
			[]string{"scheme", "status"},
		),
		DocumentsAdded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_added_total",
				Help:      "Total number of documents added to the manifest",
			},
			[]string{"scheme"},
		),
		ChunksIndexed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_indexed_total",
				Help:      "Total number of full-content chunks produced",
			},
			[]string{"scheme"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scheme_run_duration_seconds",
				Help:      "Scheme sync duration in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"scheme"},
		),
	}

	c.registry.MustRegister(
		c.SchemeRuns,
		c.DocumentsAdded,
		c.ChunksIndexed,
		c.RunDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// OnSchemeCompleted records one scheme run.
func (c *Collector) OnSchemeCompleted(e events.SchemeCompleted) {
	status := "success"
	if !e.Succeeded() {
		status = "error"
	}
	c.SchemeRuns.WithLabelValues(e.Scheme, status).Inc()
	c.DocumentsAdded.WithLabelValues(e.Scheme).Add(float64(e.DocumentsAdded))
	c.ChunksIndexed.WithLabelValues(e.Scheme).Add(float64(e.ChunkCount))
	c.RunDuration.WithLabelValues(e.Scheme).Observe(e.Duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
