// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	IngestionCycles     *prometheus.CounterVec
	IngestionDuration   prometheus.Histogram
	ObservationsFetched *prometheus.CounterVec
	ObservationsStored  prometheus.Counter
	PriceChanges        *prometheus.CounterVec
	SourceErrors        *prometheus.CounterVec
	FeedQuotesReceived  prometheus.Counter
	FeedReconnects      prometheus.Gauge
	StationsTracked     prometheus.Gauge

	// Aggregation metrics
	ChartRequests *prometheus.CounterVec
	ChartDuration *prometheus.HistogramVec
	TracesSkipped *prometheus.CounterVec
	CacheLookups  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg. A nil reg uses
// the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "fuel_price_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		IngestionCycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "cycles_total",
			Help:      "Total number of ingestion cycles by status",
		}, []string{"status"}),
		IngestionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "cycle_duration_seconds",
			Help:      "Ingestion cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		ObservationsFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_fetched_total",
			Help:      "Total number of price observations fetched by fuel type",
		}, []string{"fuel"}),
		ObservationsStored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_stored_total",
			Help:      "Total number of price observations stored to database",
		}),
		PriceChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "price_changes_total",
			Help:      "Observations whose price differs from the previous one, by direction",
		}, []string{"direction"}),
		SourceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "source_errors_total",
			Help:      "Total number of price source errors by source",
		}, []string{"source"}),
		FeedQuotesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "quotes_received_total",
			Help:      "Total number of live quotes received from the feed",
		}),
		FeedReconnects: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects",
			Help:      "Number of feed reconnects since start",
		}),
		StationsTracked: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "stations_tracked",
			Help:      "Number of stations polled by the last cycle",
		}),

		ChartRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "chart_requests_total",
			Help:      "Total number of chart requests by transform and status",
		}, []string{"transform", "status"}),
		ChartDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "chart_duration_seconds",
			Help:      "Chart aggregation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transform"}),
		TracesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "traces_skipped_total",
			Help:      "Series left out of a chart for lack of data, by transform",
		}, []string{"transform"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Chart cache lookups by result",
		}, []string{"result"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"operation"}),

		LastSuccessfulIngestion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordCycle records one ingestion cycle.
func (m *Metrics) RecordCycle(status string, seconds float64) {
	m.IngestionCycles.WithLabelValues(status).Inc()
	m.IngestionDuration.Observe(seconds)
}

// RecordPriceChange counts an observation that moved the price up or down.
func (m *Metrics) RecordPriceChange(prev, cur float32) {
	switch {
	case cur > prev:
		m.PriceChanges.WithLabelValues("up").Inc()
	case cur < prev:
		m.PriceChanges.WithLabelValues("down").Inc()
	}
}

// RecordChart records a chart request.
func (m *Metrics) RecordChart(transform, status string, seconds float64, skipped int) {
	m.ChartRequests.WithLabelValues(transform, status).Inc()
	m.ChartDuration.WithLabelValues(transform).Observe(seconds)
	if skipped > 0 {
		m.TracesSkipped.WithLabelValues(transform).Add(float64(skipped))
	}
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(operation).Inc()
	}
}
