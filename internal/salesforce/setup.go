package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/edvin/eventrelay/internal/model"
)

// LocateNamedCredential finds the named credential with the given label.
func (c *Client) LocateNamedCredential(ctx context.Context, accessToken, label string) (model.NamedCredential, error) {
	soql := "SELECT Id,DeveloperName FROM NamedCredential WHERE MasterLabel = " + quote(label)
	body, err := c.do(ctx, "locate named credential", http.MethodGet, queryPath(c.dataPath("tooling/query/"), soql), accessToken, nil)
	if err != nil {
		return model.NamedCredential{}, err
	}

	var result queryResult[model.NamedCredential]
	if err := json.Unmarshal(body, &result); err != nil {
		return model.NamedCredential{}, fmt.Errorf("locate named credential: decode response: %w", err)
	}
	if len(result.Records) == 0 || result.Records[0].ID == "" {
		return model.NamedCredential{}, &model.LookupError{Resource: "named credential", Query: label}
	}

	nc := result.Records[0]
	nc.Label = label
	c.logger.Info().Str("named_credential_id", nc.ID).Str("developer_name", nc.DeveloperName).Msg("located named credential")
	return nc, nil
}

type toolingUpdate[T any] struct {
	FullName string `json:"FullName,omitempty"`
	Metadata T      `json:"Metadata"`
}

// BindNamedCredential points the named credential at the AWS account with
// no callout authentication.
func (c *Client) BindNamedCredential(ctx context.Context, accessToken, id, fullName string, meta model.NamedCredentialMetadata) error {
	path := c.dataPath("tooling/sobjects/NamedCredential/" + id)
	payload := toolingUpdate[model.NamedCredentialMetadata]{FullName: fullName, Metadata: meta}
	if _, err := c.do(ctx, "bind named credential", http.MethodPatch, path, accessToken, payload); err != nil {
		return err
	}
	c.logger.Info().Str("named_credential_id", id).Str("endpoint", meta.Endpoint).Msg("named credential patched")
	return nil
}

// CreateEventRelayConfig creates the relay in CREATED state and returns its id.
func (c *Client) CreateEventRelayConfig(ctx context.Context, accessToken, fullName string, meta model.EventRelayMetadata) (string, error) {
	payload := toolingUpdate[model.EventRelayMetadata]{FullName: fullName, Metadata: meta}
	body, err := c.do(ctx, "create event relay", http.MethodPost, c.dataPath("tooling/sobjects/EventRelayConfig/"), accessToken, payload)
	if err != nil {
		return "", err
	}

	var result createResult
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("create event relay: decode response: %w", err)
	}
	if result.ID == "" {
		return "", &model.CreationError{Resource: "event relay config"}
	}

	c.logger.Info().Str("event_relay_id", result.ID).Str("event_relay", fullName).Msg("created event relay")
	return result.ID, nil
}

type relayStatePatch struct {
	State model.RelayState `json:"state"`
}

// ActivateEventRelayConfig moves the relay to RUN.
func (c *Client) ActivateEventRelayConfig(ctx context.Context, accessToken, id string) error {
	path := c.dataPath("tooling/sobjects/EventRelayConfig/" + id)
	payload := toolingUpdate[relayStatePatch]{Metadata: relayStatePatch{State: model.RelayStateRun}}
	if _, err := c.do(ctx, "activate event relay", http.MethodPatch, path, accessToken, payload); err != nil {
		return err
	}
	c.logger.Info().Str("event_relay_id", id).Msg("event relay state patched to RUN")
	return nil
}

// PollFeedback queries the relay feedback once. ready is false while
// Salesforce has not yet populated the remote resource.
func (c *Client) PollFeedback(ctx context.Context, accessToken, configID string) (remoteResource string, ready bool, err error) {
	soql := "SELECT Id, EventRelayConfigId, RemoteResource FROM EventRelayFeedback WHERE EventRelayConfigId=" + quote(configID)
	body, err := c.do(ctx, "poll event relay feedback", http.MethodGet, queryPath(c.dataPath("query/"), soql), accessToken, nil)
	if err != nil {
		return "", false, err
	}

	var result queryResult[model.EventRelayFeedback]
	if err := json.Unmarshal(body, &result); err != nil {
		return "", false, fmt.Errorf("poll event relay feedback: decode response: %w", err)
	}
	if len(result.Records) == 0 || result.Records[0].RemoteResource == "" {
		return "", false, nil
	}
	return result.Records[0].RemoteResource, true, nil
}

// SendPlatformEvent publishes a platform event and returns its id.
func (c *Client) SendPlatformEvent(ctx context.Context, accessToken, eventName string, event any) (string, error) {
	body, err := c.do(ctx, "send platform event", http.MethodPost, c.dataPath("sobjects/"+eventName), accessToken, event)
	if err != nil {
		return "", err
	}

	var result createResult
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("send platform event: decode response: %w", err)
	}
	if result.ID != "" {
		c.logger.Info().Str("event_id", result.ID).Str("event", eventName).Msg("platform event published")
	}
	return result.ID, nil
}
