package report

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/eventrelay/internal/model"
)

// StateEntry is one visited workflow state.
type StateEntry struct {
	State model.State `json:"state"`
	At    time.Time   `json:"at"`
}

// Report is the record of a single provisioning run. Nothing created by the
// run is rolled back on failure, so the identifiers here are what an operator
// has to clean up before re-running.
type Report struct {
	RunID       string    `json:"run_id"`
	Environment string    `json:"environment"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`

	States []StateEntry `json:"states"`

	NamedCredentialID string             `json:"named_credential_id,omitempty"`
	EventRelayID      string             `json:"event_relay_id,omitempty"`
	AWS               model.AWSResources `json:"aws"`

	FeedbackAttempts int `json:"feedback_attempts"`
	SourceAttempts   int `json:"source_attempts"`
	TokenRefreshes   int `json:"token_refreshes"`

	PlatformEventID string           `json:"platform_event_id,omitempty"`
	Sent            *model.TestEvent `json:"sent,omitempty"`
	Observed        *model.TestEvent `json:"observed,omitempty"`

	Outcome model.State `json:"outcome"`
	Error   string      `json:"error,omitempty"`
}

func New(runID, environment string, now time.Time) *Report {
	return &Report{RunID: runID, Environment: environment, StartedAt: now}
}

// Enter appends a state transition.
func (r *Report) Enter(s model.State, at time.Time) {
	r.States = append(r.States, StateEntry{State: s, At: at})
}

// Finish records the terminal state.
func (r *Report) Finish(outcome model.State, err error, at time.Time) {
	r.Outcome = outcome
	r.FinishedAt = at
	if err != nil {
		r.Error = err.Error()
	}
}

// Passed reports whether the run validated end to end.
func (r *Report) Passed() bool {
	return r.Outcome == model.StatePassed
}

// Log writes the report summary. Failed runs are logged at error level with
// the resources left behind.
func Log(logger zerolog.Logger, r *Report) {
	ev := logger.Info()
	if !r.Passed() {
		ev = logger.Error()
	}

	ev.Str("run_id", r.RunID).
		Str("outcome", string(r.Outcome)).
		Str("named_credential_id", r.NamedCredentialID).
		Str("event_relay_id", r.EventRelayID).
		Str("event_source", r.AWS.EventSourceName).
		Str("event_bus_arn", r.AWS.EventBusARN).
		Str("discoverer_id", r.AWS.DiscovererID).
		Str("rule_arn", r.AWS.RuleARN).
		Strs("target_ids", r.AWS.TargetIDs).
		Int("feedback_attempts", r.FeedbackAttempts).
		Int("source_attempts", r.SourceAttempts).
		Int("token_refreshes", r.TokenRefreshes).
		Dur("elapsed", r.FinishedAt.Sub(r.StartedAt))
	if r.Error != "" {
		ev = ev.Str("error", r.Error)
	}
	ev.Msg("event relay run finished")
}
