package accession

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts remote calls and submissions. A nil *Metrics records
// nothing.
type Metrics struct {
	remoteCalls *prometheus.CounterVec
	submissions *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewMetrics builds the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accession_remote_calls_total",
			Help: "Lab API call attempts by operation and result.",
		}, []string{"operation", "result"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accession_submissions_total",
			Help: "Finished submission attempts by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "accession_submission_duration_seconds",
			Help:    "Wall time of submission attempts, backoff included.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.remoteCalls, m.submissions, m.duration)
	}
	return m
}

func (m *Metrics) remoteCall(op string, kind CallKind) {
	if m == nil {
		return
	}
	m.remoteCalls.WithLabelValues(op, kind.String()).Inc()
}

func (m *Metrics) observeSubmission(out Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcomeLabel(out)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func outcomeLabel(out Outcome) string {
	if out.Failure != nil {
		return "failed_" + string(out.Failure.Kind)
	}
	return "succeeded"
}
