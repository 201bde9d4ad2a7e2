// Package observability provides Prometheus metrics for uploads and the relay.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	ParsesTotal     *prometheus.CounterVec
	RecordsParsed   *prometheus.CounterVec
	RowErrors       *prometheus.CounterVec
	ParseDuration   *prometheus.HistogramVec
	Reconciliations prometheus.Counter
	LedgerSeeded    prometheus.Counter
	RelayDeliveries *prometheus.CounterVec
}

// NewMetrics registers every metric on a private registry so several
// instances can coexist in tests.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "amazon_ppc_etl"
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ParsesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_parses_total",
			Help:      "Report parses by kind and outcome.",
		}, []string{"kind", "outcome"}),
		RecordsParsed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_parsed_total",
			Help:      "Records produced by report parsers.",
		}, []string{"kind"}),
		RowErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Row and file level errors reported by parsers.",
		}, []string{"kind"}),
		ParseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing a report file.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		Reconciliations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "date_reconciliations_total",
			Help:      "Times business records were spread across search term dates.",
		}),
		LedgerSeeded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_seeded_total",
			Help:      "Zero-valued cost entries created for newly seen SKUs.",
		}),
		RelayDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_deliveries_total",
			Help:      "Raw upload forwards by outcome.",
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RelayObserver counts relay delivery outcomes.
func (m *Metrics) RelayObserver(outcome string) {
	m.RelayDeliveries.WithLabelValues(outcome).Inc()
}
