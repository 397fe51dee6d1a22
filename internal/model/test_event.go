package model

// TestEvent is the synthetic platform event sent through the relay. The JSON
// names are the custom fields of the platform event object.
type TestEvent struct {
	Type    string `json:"Type__c"`
	Payload string `json:"Payload__c"`
	Source  string `json:"Source__c"`
	Version string `json:"Version__c"`
}

// Defaults for the synthetic validation event.
const (
	TestEventType    = "AssetRefreshRequest"
	TestEventPayload = "{'EID': 'TESTEID01'}"
	TestEventVersion = "1.0"
)

// NewTestEvent builds the validation event for the given source.
func NewTestEvent(source string) TestEvent {
	return TestEvent{
		Type:    TestEventType,
		Payload: TestEventPayload,
		Source:  source,
		Version: TestEventVersion,
	}
}
