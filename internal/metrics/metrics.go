// Package metrics exposes scan pipeline instrumentation on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arbfinder"

// Recorder collects scan metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	scansTotal      *prometheus.CounterVec
	fetchFailures   *prometheus.CounterVec
	scanDuration    prometheus.Histogram
	opportunities   prometheus.Gauge
	trackedProducts prometheus.Gauge
	webhooksTotal   *prometheus.CounterVec
}

// New builds a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "scans_total",
			Help:      "Completed scans by final state",
		}, []string{"state"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "fetch_failures_total",
			Help:      "Price fetches that produced no observation",
		}, []string{"marketplace"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "scan_duration_seconds",
			Help:      "Wall time of a scan from fetch to reconcile",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		opportunities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "opportunities",
			Help:      "Live arbitrage opportunities",
		}),
		trackedProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "tracked_products",
			Help:      "Products currently tracked",
		}),
		webhooksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhooks",
			Name:      "events_total",
			Help:      "Monitor webhook events by outcome",
		}, []string{"status"}),
	}

	r.registry.MustRegister(
		r.scansTotal,
		r.fetchFailures,
		r.scanDuration,
		r.opportunities,
		r.trackedProducts,
		r.webhooksTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveScan records a finished scan.
func (r *Recorder) ObserveScan(state string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.scansTotal.WithLabelValues(state).Inc()
	r.scanDuration.Observe(elapsed.Seconds())
}

// FetchFailed counts a failed fetch for marketplace.
func (r *Recorder) FetchFailed(marketplace string) {
	if r == nil {
		return
	}
	r.fetchFailures.WithLabelValues(marketplace).Inc()
}

// SetOpportunities updates the live opportunity gauge.
func (r *Recorder) SetOpportunities(n int) {
	if r == nil {
		return
	}
	r.opportunities.Set(float64(n))
}

// SetTrackedProducts updates the tracked product gauge.
func (r *Recorder) SetTrackedProducts(n int) {
	if r == nil {
		return
	}
	r.trackedProducts.Set(float64(n))
}

// Webhook counts a webhook event by status.
func (r *Recorder) Webhook(status string) {
	if r == nil {
		return
	}
	r.webhooksTotal.WithLabelValues(status).Inc()
}
