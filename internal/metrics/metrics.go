// Package metrics exposes Prometheus collectors for the agenda engine and
// the live feed on a dedicated registry.
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lmsales/sales-hub/internal/agenda"
	"github.com/lmsales/sales-hub/internal/feed"
	"github.com/lmsales/sales-hub/internal/ingest"
	"github.com/lmsales/sales-hub/internal/prospect"
)

const namespace = "hub"

// Metrics holds every collector the hub exports.
type Metrics struct {
	Registry *prometheus.Registry

	PlansBuilt      prometheus.Counter
	PlanEntries     prometheus.Histogram
	OverdueAccounts prometheus.Gauge
	StaleAccounts   prometheus.Gauge
	Prospects       *prometheus.GaugeVec
	FeedRefreshes   prometheus.Counter
	FeedErrors      prometheus.Counter
	IngestRejected  *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		PlansBuilt: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agenda",
			Name:      "plans_built_total",
			Help:      "Total daily plans built.",
		}),
		PlanEntries: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "agenda",
			Name:      "plan_entries",
			Help:      "Number of visits selected per daily plan.",
			Buckets:   prometheus.LinearBuckets(0, 2, 8),
		}),
		OverdueAccounts: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "overdue",
			Help:      "Accounts past their visit frequency deadline.",
		}),
		StaleAccounts: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "stale",
			Help:      "Accounts without any visit in the trailing week.",
		}),
		Prospects: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "prospects",
			Name:      "by_state",
			Help:      "Prospects per lifecycle state.",
		}, []string{"state"}),
		FeedRefreshes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "refreshes_total",
			Help:      "Snapshots published by the live feed.",
		}),
		FeedErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Snapshot loads that failed.",
		}),
		IngestRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rejected_total",
			Help:      "Import records rejected at the schema boundary.",
		}, []string{"kind"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "code"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObservePlan records a built plan.
func (m *Metrics) ObservePlan(p agenda.Plan) {
	m.PlansBuilt.Inc()
	m.PlanEntries.Observe(float64(len(p.Entries)))
}

// ObserveRejections counts rejected import records.
func (m *Metrics) ObserveRejections(rejected []ingest.Rejection) {
	for _, r := range rejected {
		m.IngestRejected.WithLabelValues(string(r.Kind)).Inc()
	}
}

// ObserveSnapshot updates the account and prospect gauges from a snapshot.
func (m *Metrics) ObserveSnapshot(s feed.Snapshot, now time.Time, logger *slog.Logger) {
	st := agenda.BuildState(s.Accounts, s.Visits, now, logger)
	m.OverdueAccounts.Set(float64(len(st.Overdue)))
	m.StaleAccounts.Set(float64(len(st.Stale)))

	sum := prospect.Summarize(prospect.Board(s.Accounts, s.Visits, now))
	m.Prospects.WithLabelValues(string(prospect.Active)).Set(float64(sum.Active))
	m.Prospects.WithLabelValues(string(prospect.AtRisk)).Set(float64(sum.AtRisk))
	m.Prospects.WithLabelValues(string(prospect.Lost)).Set(float64(sum.Lost))
}

// Track subscribes to f and keeps the feed and account metrics current.
// now supplies the evaluation instant for each snapshot.
func (m *Metrics) Track(f *feed.Feed, now func() time.Time, logger *slog.Logger) (unsubscribe func()) {
	return f.Subscribe(
		func(s feed.Snapshot) {
			m.FeedRefreshes.Inc()
			m.ObserveSnapshot(s, now(), logger)
		},
		func(error) { m.FeedErrors.Inc() },
	)
}
