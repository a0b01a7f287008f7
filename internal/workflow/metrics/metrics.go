package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the request workflow engine.
type Metrics struct {
	// Submissions by request kind
	Submissions *prometheus.CounterVec

	// Decision outcomes by kind and resulting status
	DecisionOutcome *prometheus.CounterVec

	// Approvals flipped to rejections because the parcel owner changed
	ConflictAutoRejects prometheus.Counter

	// Full decision latency including side effects
	DecideLatency prometheus.Histogram
}

// New creates a new Metrics instance with all workflow metrics registered.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_workflow_submissions_total",
			Help: "Total request submissions by kind",
		}, []string{"kind"}), // kind: "registration", "transfer"

		DecisionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_workflow_decisions_total",
			Help: "Total request decisions by kind and resulting status",
		}, []string{"kind", "status"}),

		ConflictAutoRejects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registry_workflow_conflict_auto_rejects_total",
			Help: "Approvals converted to rejections because the seller no longer owned the parcel",
		}),

		DecideLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "registry_workflow_decide_duration_seconds",
			Help:    "Duration of a full decision including ledger side effects",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementSubmission records a request submission.
func (m *Metrics) IncrementSubmission(kind string) {
	if m != nil {
		m.Submissions.WithLabelValues(kind).Inc()
	}
}

// IncrementDecision records a decision outcome.
func (m *Metrics) IncrementDecision(kind, status string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(kind, status).Inc()
	}
}

// IncrementConflictAutoReject records an approval lost to a stale owner.
func (m *Metrics) IncrementConflictAutoReject() {
	if m != nil {
		m.ConflictAutoRejects.Inc()
	}
}

// ObserveDecideLatency records the duration of a decision.
func (m *Metrics) ObserveDecideLatency(d time.Duration) {
	if m != nil {
		m.DecideLatency.Observe(d.Seconds())
	}
}
