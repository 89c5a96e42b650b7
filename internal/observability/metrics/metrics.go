package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes application-level instruments for the distribution engine.
type Metrics struct {
	distributionOutcomes *prometheus.CounterVec
	distributionDuration prometheus.Histogram
	budgetMovements      *prometheus.CounterVec
	sweepRuns            prometheus.Counter
	sweepProcessed       prometheus.Counter
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer builds instruments against a caller-supplied registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		distributionOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadflow_distribution_outcomes_total",
			Help: "Distribution attempts by terminal outcome.",
		}, []string{"outcome", "method"}),
		distributionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadflow_distribution_duration_seconds",
			Help:    "End-to-end duration of a distribution attempt.",
			Buckets: prometheus.DefBuckets,
		}),
		budgetMovements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadflow_budget_movements_total",
			Help: "Budget ledger movements by transaction type.",
		}, []string{"type"}),
		sweepRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadflow_sweep_runs_total",
			Help: "Completed sweep iterations over the fallback queue.",
		}),
		sweepProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadflow_sweep_leads_processed_total",
			Help: "Leads picked up by the sweep.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadflow_http_requests_total",
			Help: "HTTP requests by route and status class.",
		}, []string{"route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leadflow_http_request_duration_seconds",
			Help:    "HTTP request duration by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) RecordOutcome(outcome, method string, seconds float64) {
	if m == nil {
		return
	}
	m.distributionOutcomes.WithLabelValues(normalize(outcome), normalize(method)).Inc()
	m.distributionDuration.Observe(seconds)
}

func (m *Metrics) RecordBudgetMovement(txType string) {
	if m == nil {
		return
	}
	m.budgetMovements.WithLabelValues(normalize(txType)).Inc()
}

func (m *Metrics) RecordSweep(processed int) {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
	m.sweepProcessed.Add(float64(processed))
}

func (m *Metrics) RecordHTTP(route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(normalize(route), normalize(status)).Inc()
	m.httpDuration.WithLabelValues(normalize(route)).Observe(seconds)
}

func normalize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
