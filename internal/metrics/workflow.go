package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/edvin/eventrelay/internal/model"
)

// Workflow holds the collectors for one provisioning run.
type Workflow struct {
	pollAttempts  *prometheus.CounterVec
	tokenRefresh  prometheus.Counter
	stepFailures  *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	workflowState *prometheus.GaugeVec
}

// NewWorkflow registers the workflow collectors with reg.
func NewWorkflow(reg prometheus.Registerer) *Workflow {
	f := promauto.With(reg)
	return &Workflow{
		pollAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_poll_attempts_total",
			Help: "Poll attempts by loop (feedback, event_source)",
		}, []string{"loop"}),
		tokenRefresh: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_token_refreshes_total",
			Help: "Access token refreshes after a 401 from Salesforce",
		}),
		stepFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_step_failures_total",
			Help: "Failed workflow steps",
		}, []string{"step"}),
		stepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_step_duration_seconds",
			Help:    "Duration of each workflow step",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		}, []string{"step"}),
		workflowState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "relay_workflow_state",
			Help: "1 for the state the workflow is currently in, 0 otherwise",
		}, []string{"state"}),
	}
}

func (w *Workflow) PollAttempt(loop string) {
	w.pollAttempts.WithLabelValues(loop).Inc()
}

func (w *Workflow) TokenRefreshed() {
	w.tokenRefresh.Inc()
}

// ObserveStep records how long a step took and whether it failed.
func (w *Workflow) ObserveStep(step string, d time.Duration, err error) {
	w.stepDuration.WithLabelValues(step).Observe(d.Seconds())
	if err != nil {
		w.stepFailures.WithLabelValues(step).Inc()
	}
}

// SetState marks s as the current state.
func (w *Workflow) SetState(s model.State) {
	for _, st := range model.AllStates {
		v := 0.0
		if st == s {
			v = 1
		}
		w.workflowState.WithLabelValues(string(st)).Set(v)
	}
}
