package model

// PartnerSourcePrefix is the EventBridge source prefix of events relayed
// from Salesforce.
const PartnerSourcePrefix = "aws.partner/salesforce.com"

// Tags applied to every AWS resource this tool creates.
const (
	TagRelay       = "salesforce-event-relay"
	TagRelayValue  = "salesforce event relay"
	TagEnvironment = "environment"
	TagRunID       = "relay-run-id"
)

// Target is a delivery target registered on the relay rule.
type Target struct {
	ID  string `json:"id" yaml:"id" validate:"required"`
	ARN string `json:"arn" yaml:"arn" validate:"required"`
}

// RuleSpec describes the EventBridge rule that routes relayed events.
type RuleSpec struct {
	Name        string
	DetailType  string
	Description string
}

// AWSResources records what was created on the AWS side. Nothing is rolled
// back on failure, so this is also the cleanup inventory.
type AWSResources struct {
	EventSourceName string   `json:"event_source_name,omitempty"`
	EventBusARN     string   `json:"event_bus_arn,omitempty"`
	DiscovererID    string   `json:"discoverer_id,omitempty"`
	RuleARN         string   `json:"rule_arn,omitempty"`
	TargetIDs       []string `json:"target_ids,omitempty"`
}
