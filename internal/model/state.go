package model

// State is a step of the provisioning workflow.
type State string

const (
	StateInit               State = "INIT"
	StateCredBound          State = "CRED_BOUND"
	StateRelayCreated       State = "RELAY_CREATED"
	StateRelayRunning       State = "RELAY_RUNNING"
	StateAwaitingSFFeedback State = "AWAITING_SF_FEEDBACK"
	StateAwaitingAWSSource  State = "AWAITING_AWS_SOURCE"
	StateAWSProvisioned     State = "AWS_PROVISIONED"
	StateValidating         State = "VALIDATING"
	StatePassed             State = "PASSED"
	StateFailed             State = "FAILED"
)

// AllStates lists the workflow states in transition order.
var AllStates = []State{
	StateInit,
	StateCredBound,
	StateRelayCreated,
	StateRelayRunning,
	StateAwaitingSFFeedback,
	StateAwaitingAWSSource,
	StateAWSProvisioned,
	StateValidating,
	StatePassed,
	StateFailed,
}

// Terminal reports whether the workflow stops in this state.
func (s State) Terminal() bool {
	return s == StatePassed || s == StateFailed
}
