package model

import (
	"fmt"
	"net/http"
	"strings"
)

// LookupError means a query returned no matching record.
type LookupError struct {
	Resource string
	Query    string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s not found for %q", e.Resource, e.Query)
}

// CreationError means a create call succeeded at the HTTP level but returned
// no identifier.
type CreationError struct {
	Resource string
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("%s created without an id in the response", e.Resource)
}

// HTTPStatusError is a non-2xx response from the Salesforce API.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// AuthExpiredError is a 401 from Salesforce. It is the only error the
// workflow recovers from locally, by refreshing the access token.
type AuthExpiredError struct {
	Operation string
	Err       *HTTPStatusError
}

func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("%s: access token expired", e.Operation)
}

func (e *AuthExpiredError) Unwrap() error { return e.Err }

// NewStatusError returns an AuthExpiredError for 401 and an HTTPStatusError
// for every other non-2xx status.
func NewStatusError(operation string, status int, body string) error {
	se := &HTTPStatusError{Operation: operation, StatusCode: status, Body: body}
	if status == http.StatusUnauthorized {
		return &AuthExpiredError{Operation: operation, Err: se}
	}
	return se
}

// AuthRefreshError means the refresh-token grant did not yield an access
// token.
type AuthRefreshError struct {
	Cause error
}

func (e *AuthRefreshError) Error() string {
	if e.Cause == nil {
		return "refresh access token: no access token returned"
	}
	return fmt.Sprintf("refresh access token: %v", e.Cause)
}

func (e *AuthRefreshError) Unwrap() error { return e.Cause }

// Poll loops bounded by RetryBoundExceededError.
const (
	LoopFeedback    = "feedback"
	LoopEventSource = "event_source"
)

// RetryBoundExceededError means a polling loop ran out of attempts.
type RetryBoundExceededError struct {
	Loop     string
	Attempts int
	Target   string
}

func (e *RetryBoundExceededError) Error() string {
	switch e.Loop {
	case LoopFeedback:
		return fmt.Sprintf("max iterations reached: no remote resource on relay %s after %d attempts", e.Target, e.Attempts)
	case LoopEventSource:
		return fmt.Sprintf("event source %s not found in AWS after %d attempts", e.Target, e.Attempts)
	default:
		return fmt.Sprintf("%s: gave up after %d attempts", e.Loop, e.Attempts)
	}
}

// FieldMismatch is one differing field between the sent and observed event.
type FieldMismatch struct {
	Field    string
	Sent     string
	Observed string
}

// ValidationMismatchError means the event observed in CloudWatch Logs does
// not match the event sent to Salesforce.
type ValidationMismatchError struct {
	Fields []FieldMismatch
}

func (e *ValidationMismatchError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: sent %q, observed %q", f.Field, f.Sent, f.Observed))
	}
	return "messages do not match: " + strings.Join(parts, "; ")
}

// LogEmptyError means the log group has no streams (Stream empty) or the
// stream has no events yet.
type LogEmptyError struct {
	LogGroup string
	Stream   string
}

func (e *LogEmptyError) Error() string {
	if e.Stream == "" {
		return fmt.Sprintf("log group %s has no log streams", e.LogGroup)
	}
	return fmt.Sprintf("log stream %s in %s has no events", e.Stream, e.LogGroup)
}

// ProvisioningError wraps a failed AWS call with the operation that failed.
type ProvisioningError struct {
	Operation string
	Code      string
	Cause     error
}

func (e *ProvisioningError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s: %v", e.Operation, e.Code, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *ProvisioningError) Unwrap() error { return e.Cause }
