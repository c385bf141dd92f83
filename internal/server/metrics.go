package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyeh/lossreport/internal/model"
	"github.com/gyeh/lossreport/internal/report"
)

// Metrics holds the service's Prometheus collectors on a private registry,
// so several servers (tests) can coexist in one process.
type Metrics struct {
	registry       *prometheus.Registry
	rowsIngested   *prometheus.CounterVec
	rowsDropped    *prometheus.CounterVec
	ingestFailures *prometheus.CounterVec
	storeRows      *prometheus.GaugeVec
	reportDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rowsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lossreport",
			Name:      "rows_ingested_total",
			Help:      "Rows accepted into the store, by feed.",
		}, []string{"feed"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lossreport",
			Name:      "rows_dropped_total",
			Help:      "Rows dropped during ingestion, by feed and reason.",
		}, []string{"feed", "reason"}),
		ingestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lossreport",
			Name:      "ingest_failures_total",
			Help:      "Ingestions rejected without replacing the store, by feed.",
		}, []string{"feed"}),
		storeRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lossreport",
			Name:      "store_rows",
			Help:      "Rows in the current snapshot, by feed.",
		}, []string{"feed"}),
		reportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lossreport",
			Name:      "report_duration_seconds",
			Help:      "Time spent building reports.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"report", "outcome"}),
	}
	m.registry.MustRegister(m.rowsIngested, m.rowsDropped, m.ingestFailures, m.storeRows, m.reportDuration)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordIngest counts one ingestion attempt, from an upload or a reload.
func (m *Metrics) RecordIngest(kind model.FeedKind, sum *model.IngestSummary, err error) {
	feed := string(kind)
	if err != nil {
		m.ingestFailures.WithLabelValues(feed).Inc()
		return
	}
	m.rowsIngested.WithLabelValues(feed).Add(float64(sum.RowsAccepted))
	m.rowsDropped.WithLabelValues(feed, "no_client").Add(float64(sum.DroppedNoClient))
	m.rowsDropped.WithLabelValues(feed, "bad_period").Add(float64(sum.DroppedBadPeriod))
	m.storeRows.WithLabelValues(feed).Set(float64(sum.RowsAccepted))
}

func (m *Metrics) observeReport(name string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, report.ErrClientRequired) {
			outcome = "bad_request"
		}
	}
	m.reportDuration.WithLabelValues(name, outcome).Observe(time.Since(start).Seconds())
}
