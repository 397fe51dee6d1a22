package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/eventrelay/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(zerolog.Nop(), srv.URL+"/", "v60.0", 5*time.Second)
}

func assertBearer(t *testing.T, r *http.Request, token string) {
	t.Helper()
	assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
}

// ---------- LocateNamedCredential ----------

func TestClient_LocateNamedCredential_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/services/data/v60.0/tooling/query/", r.URL.Path)
		assert.Equal(t, "SELECT Id,DeveloperName FROM NamedCredential WHERE MasterLabel = 'AWS Relay'", r.URL.Query().Get("q"))
		assertBearer(t, r, "tok")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"totalSize":1,"done":true,"records":[{"Id":"0XA000000000001","DeveloperName":"AWS_Relay"}]}`))
	})

	nc, err := client.LocateNamedCredential(context.Background(), "tok", "AWS Relay")
	require.NoError(t, err)
	assert.Equal(t, "0XA000000000001", nc.ID)
	assert.Equal(t, "AWS_Relay", nc.DeveloperName)
	assert.Equal(t, "AWS Relay", nc.Label)
}

func TestClient_LocateNamedCredential_EscapesLabel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `SELECT Id,DeveloperName FROM NamedCredential WHERE MasterLabel = 'O\'Brien'`, r.URL.Query().Get("q"))
		w.Write([]byte(`{"records":[{"Id":"0XA1"}]}`))
	})

	_, err := client.LocateNamedCredential(context.Background(), "tok", "O'Brien")
	require.NoError(t, err)
}

func TestClient_LocateNamedCredential_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalSize":0,"done":true,"records":[]}`))
	})

	_, err := client.LocateNamedCredential(context.Background(), "tok", "Missing")
	require.Error(t, err)
	var lookupErr *model.LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, "Missing", lookupErr.Query)
}

func TestClient_LocateNamedCredential_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`[{"message":"Session expired or invalid","errorCode":"INVALID_SESSION_ID"}]`))
	})

	_, err := client.LocateNamedCredential(context.Background(), "tok", "AWS Relay")
	var authErr *model.AuthExpiredError
	require.True(t, errors.As(err, &authErr))
}

// ---------- BindNamedCredential ----------

func TestClient_BindNamedCredential_Payload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/services/data/v60.0/tooling/sobjects/NamedCredential/0XA1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assertBearer(t, r, "tok")

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "AWS_Relay", payload["FullName"])
		assert.Equal(t, map[string]any{
			"label":         "AWS Relay",
			"endpoint":      "arn:aws:us-east-1:123456789012",
			"principalType": "Anonymous",
			"protocol":      "NoAuthentication",
		}, payload["Metadata"])

		w.WriteHeader(http.StatusNoContent)
	})

	err := client.BindNamedCredential(context.Background(), "tok", "0XA1", "AWS_Relay", model.NamedCredentialMetadata{
		Label:         "AWS Relay",
		Endpoint:      "arn:aws:us-east-1:123456789012",
		PrincipalType: model.PrincipalTypeAnonymous,
		Protocol:      model.ProtocolNoAuth,
	})
	require.NoError(t, err)
}

func TestClient_BindNamedCredential_Error(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("malformed metadata"))
	})

	err := client.BindNamedCredential(context.Background(), "tok", "0XA1", "AWS_Relay", model.NamedCredentialMetadata{})
	require.Error(t, err)
	var statusErr *model.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "malformed metadata")
}

// ---------- CreateEventRelayConfig ----------

func TestClient_CreateEventRelayConfig_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/services/data/v60.0/tooling/sobjects/EventRelayConfig/", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Asset_Relay", payload["FullName"])
		meta := payload["Metadata"].(map[string]any)
		assert.Equal(t, "/event/Asset_Refresh__e", meta["eventChannel"])
		assert.Equal(t, "callout:AWS_Relay", meta["destinationResourceName"])
		assert.Equal(t, `{"ReplayRecovery":"LATEST"}`, meta["relayOption"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"0k8000000000001","success":true,"errors":[]}`))
	})

	id, err := client.CreateEventRelayConfig(context.Background(), "tok", "Asset_Relay", model.EventRelayMetadata{
		EventChannel:            "/event/Asset_Refresh__e",
		DestinationResourceName: "callout:AWS_Relay",
		Label:                   "Asset Relay",
		RelayOption:             model.ReplayRecoveryLatest,
	})
	require.NoError(t, err)
	assert.Equal(t, "0k8000000000001", id)
}

func TestClient_CreateEventRelayConfig_NoID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	})

	_, err := client.CreateEventRelayConfig(context.Background(), "tok", "Asset_Relay", model.EventRelayMetadata{})
	var creationErr *model.CreationError
	require.True(t, errors.As(err, &creationErr))
}

// ---------- ActivateEventRelayConfig ----------

func TestClient_ActivateEventRelayConfig(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/services/data/v60.0/tooling/sobjects/EventRelayConfig/0k81", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.NotContains(t, payload, "FullName")
		assert.Equal(t, map[string]any{"state": "RUN"}, payload["Metadata"])
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.ActivateEventRelayConfig(context.Background(), "tok", "0k81"))
}

// ---------- PollFeedback ----------

func TestClient_PollFeedback(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantName string
		wantOK   bool
	}{
		{"no records", `{"records":[]}`, "", false},
		{"empty remote resource", `{"records":[{"Id":"1","EventRelayConfigId":"0k81","RemoteResource":null}]}`, "", false},
		{"populated", `{"records":[{"Id":"1","EventRelayConfigId":"0k81","RemoteResource":"aws.partner/salesforce.com/00D/0YL"}]}`, "aws.partner/salesforce.com/00D/0YL", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/services/data/v60.0/query/", r.URL.Path)
				assert.Equal(t, "SELECT Id, EventRelayConfigId, RemoteResource FROM EventRelayFeedback WHERE EventRelayConfigId='0k81'", r.URL.Query().Get("q"))
				w.Write([]byte(tt.body))
			})

			name, ok, err := client.PollFeedback(context.Background(), "tok", "0k81")
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestClient_PollFeedback_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, _, err := client.PollFeedback(context.Background(), "expired", "0k81")
	var authErr *model.AuthExpiredError
	require.True(t, errors.As(err, &authErr))
}

// ---------- SendPlatformEvent ----------

func TestClient_SendPlatformEvent_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/services/data/v60.0/sobjects/Asset_Refresh__e", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, map[string]string{
			"Type__c":    "AssetRefreshRequest",
			"Payload__c": "{'EID': 'TESTEID01'}",
			"Source__c":  "salesforce.dev.ecrmd.event-relay",
			"Version__c": "1.0",
		}, payload)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"e00xx0000000001","success":true}`))
	})

	id, err := client.SendPlatformEvent(context.Background(), "tok", "Asset_Refresh__e", model.NewTestEvent("salesforce.dev.ecrmd.event-relay"))
	require.NoError(t, err)
	assert.Equal(t, "e00xx0000000001", id)
}

func TestClient_SendPlatformEvent_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})

	_, err := client.SendPlatformEvent(context.Background(), "tok", "Asset_Refresh__e", model.TestEvent{})
	var statusErr *model.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "status 500")
}
