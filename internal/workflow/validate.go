package workflow

import (
	"errors"

	"github.com/tidwall/gjson"

	"github.com/edvin/eventrelay/internal/model"
)

// ErrPayloadNotFound means the log record is not a relayed platform event.
var ErrPayloadNotFound = errors.New("payload not found in log stream event")

// ParseObservedEvent extracts the platform event fields from an EventBridge
// record as written to CloudWatch Logs. The fields live under detail.payload.
func ParseObservedEvent(message string) (model.TestEvent, error) {
	if !gjson.Valid(message) {
		return model.TestEvent{}, errors.New("log stream event is not valid JSON")
	}
	payload := gjson.Get(message, "detail.payload")
	if !payload.IsObject() {
		return model.TestEvent{}, ErrPayloadNotFound
	}
	return model.TestEvent{
		Type:    payload.Get("Type__c").String(),
		Payload: payload.Get("Payload__c").String(),
		Source:  payload.Get("Source__c").String(),
		Version: payload.Get("Version__c").String(),
	}, nil
}

// CompareEvents lists every field where observed differs from sent. Values
// must match exactly.
func CompareEvents(sent, observed model.TestEvent) []model.FieldMismatch {
	pairs := []struct {
		field          string
		sent, observed string
	}{
		{"Type__c", sent.Type, observed.Type},
		{"Payload__c", sent.Payload, observed.Payload},
		{"Source__c", sent.Source, observed.Source},
		{"Version__c", sent.Version, observed.Version},
	}

	var diffs []model.FieldMismatch
	for _, p := range pairs {
		if p.sent != p.observed {
			diffs = append(diffs, model.FieldMismatch{Field: p.field, Sent: p.sent, Observed: p.observed})
		}
	}
	return diffs
}
