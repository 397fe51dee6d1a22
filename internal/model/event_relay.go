package model

// RelayState is the lifecycle state of an EventRelayConfig.
type RelayState string

const (
	RelayStateCreated RelayState = "CREATED"
	RelayStateRun     RelayState = "RUN"
)

// ReplayRecoveryLatest starts relaying from the latest event on activation.
const ReplayRecoveryLatest = `{"ReplayRecovery":"LATEST"}`

// EventRelayMetadata is the tooling-API metadata for creating a relay.
type EventRelayMetadata struct {
	EventChannel            string `json:"eventChannel"`
	DestinationResourceName string `json:"destinationResourceName"`
	Label                   string `json:"label"`
	RelayOption             string `json:"relayOption"`
}

// EventRelayFeedback is populated asynchronously by Salesforce once the AWS
// partner event source exists. RemoteResource stays empty until then.
type EventRelayFeedback struct {
	ID                 string `json:"Id"`
	EventRelayConfigID string `json:"EventRelayConfigId"`
	RemoteResource     string `json:"RemoteResource"`
}
