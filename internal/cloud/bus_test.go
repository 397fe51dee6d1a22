package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/schemas"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/eventrelay/internal/model"
)

const (
	sourceName = "aws.partner/salesforce.com/00D000000000001/0YL000000000001"
	busARN     = "arn:aws:events:us-east-1:123456789012:event-bus/" + sourceName
)

var testTags = map[string]string{
	model.TagRelay:       model.TagRelayValue,
	model.TagEnvironment: "dev",
}

func newGateway() (*BusGateway, *mockEventBridge, *mockSchemas) {
	eb := &mockEventBridge{}
	sc := &mockSchemas{}
	return NewBusGateway(zerolog.Nop(), eb, sc, testTags), eb, sc
}

// ---------- EventSourceExists ----------

func TestEventSourceExists(t *testing.T) {
	tests := []struct {
		name    string
		sources []ebtypes.EventSource
		want    bool
	}{
		{"no sources", nil, false},
		{"exact match", []ebtypes.EventSource{{Name: aws.String(sourceName)}}, true},
		{"prefix of a longer name", []ebtypes.EventSource{{Name: aws.String(sourceName + "-other")}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, eb, _ := newGateway()
			eb.On("ListEventSources", mock.Anything, mock.MatchedBy(func(in *eventbridge.ListEventSourcesInput) bool {
				return aws.ToString(in.NamePrefix) == sourceName
			})).Return(&eventbridge.ListEventSourcesOutput{EventSources: tt.sources}, nil)

			got, err := g.EventSourceExists(context.Background(), sourceName)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEventSourceExists_Error(t *testing.T) {
	g, eb, _ := newGateway()
	eb.On("ListEventSources", mock.Anything, mock.Anything).
		Return(nil, &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "denied"})

	_, err := g.EventSourceExists(context.Background(), sourceName)
	var pe *model.ProvisioningError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "list event sources", pe.Operation)
	assert.Equal(t, "AccessDeniedException", pe.Code)
}

// ---------- CreateBus ----------

func TestCreateBus(t *testing.T) {
	g, eb, _ := newGateway()
	eb.On("CreateEventBus", mock.Anything, mock.MatchedBy(func(in *eventbridge.CreateEventBusInput) bool {
		return aws.ToString(in.Name) == sourceName &&
			aws.ToString(in.EventSourceName) == sourceName &&
			len(in.Tags) == 2 &&
			aws.ToString(in.Tags[0].Key) == model.TagEnvironment &&
			aws.ToString(in.Tags[1].Key) == model.TagRelay
	})).Return(&eventbridge.CreateEventBusOutput{EventBusArn: aws.String(busARN)}, nil)

	arn, err := g.CreateBus(context.Background(), sourceName)
	require.NoError(t, err)
	assert.Equal(t, busARN, arn)
	eb.AssertExpectations(t)
}

func TestCreateBus_Error(t *testing.T) {
	g, eb, _ := newGateway()
	eb.On("CreateEventBus", mock.Anything, mock.Anything).Return(nil, errors.New("ResourceAlreadyExistsException"))

	_, err := g.CreateBus(context.Background(), sourceName)
	var pe *model.ProvisioningError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "create event bus", pe.Operation)
	assert.Empty(t, pe.Code)
}

// ---------- CreateDiscoverer ----------

func TestCreateDiscoverer(t *testing.T) {
	g, _, sc := newGateway()
	sc.On("CreateDiscoverer", mock.Anything, mock.MatchedBy(func(in *schemas.CreateDiscovererInput) bool {
		return aws.ToString(in.SourceArn) == busARN &&
			aws.ToString(in.Description) == "Salesforce Event Relay Discoverer" &&
			in.Tags[model.TagRelay] == model.TagRelayValue
	})).Return(&schemas.CreateDiscovererOutput{DiscovererId: aws.String("events-event-bus-1")}, nil)

	id, err := g.CreateDiscoverer(context.Background(), busARN)
	require.NoError(t, err)
	assert.Equal(t, "events-event-bus-1", id)
}

// ---------- CreateRoutingRule ----------

func TestRulePattern(t *testing.T) {
	pattern, err := RulePattern("Asset_Refresh__e")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(pattern), &got))
	assert.Equal(t, []any{map[string]any{"prefix": "aws.partner/salesforce.com"}}, got["source"])
	assert.Equal(t, []any{"Asset_Refresh__e"}, got["detail-type"])
}

func TestCreateRoutingRule(t *testing.T) {
	g, eb, _ := newGateway()
	eb.On("PutRule", mock.Anything, mock.MatchedBy(func(in *eventbridge.PutRuleInput) bool {
		return aws.ToString(in.Name) == "dev-EventRelay-Rule" &&
			aws.ToString(in.EventBusName) == busARN &&
			in.State == ebtypes.RuleStateEnabled &&
			aws.ToString(in.Description) == "Salesforce Event Relay Rule"
	})).Return(&eventbridge.PutRuleOutput{RuleArn: aws.String("arn:aws:events:us-east-1:123456789012:rule/dev-EventRelay-Rule")}, nil)

	arn, err := g.CreateRoutingRule(context.Background(), busARN, model.RuleSpec{
		Name:        "dev-EventRelay-Rule",
		DetailType:  "Asset_Refresh__e",
		Description: "Salesforce Event Relay Rule",
	})
	require.NoError(t, err)
	assert.Contains(t, arn, "rule/dev-EventRelay-Rule")
}

// ---------- AttachTargets ----------

func TestAttachTargets(t *testing.T) {
	g, eb, _ := newGateway()
	targets := []model.Target{
		{ID: "queue", ARN: "arn:aws:sqs:us-east-1:123456789012:queue"},
		{ID: "logs", ARN: "arn:aws:logs:us-east-1:123456789012:log-group:/aws/events/relay"},
	}
	eb.On("PutTargets", mock.Anything, mock.MatchedBy(func(in *eventbridge.PutTargetsInput) bool {
		return aws.ToString(in.Rule) == "dev-EventRelay-Rule" &&
			aws.ToString(in.EventBusName) == busARN &&
			len(in.Targets) == 2 &&
			aws.ToString(in.Targets[0].Id) == "queue" &&
			aws.ToString(in.Targets[1].Arn) == targets[1].ARN
	})).Return(&eventbridge.PutTargetsOutput{}, nil)

	require.NoError(t, g.AttachTargets(context.Background(), busARN, "dev-EventRelay-Rule", targets))
	eb.AssertExpectations(t)
}

func TestAttachTargets_PartialFailure(t *testing.T) {
	g, eb, _ := newGateway()
	eb.On("PutTargets", mock.Anything, mock.Anything).Return(&eventbridge.PutTargetsOutput{
		FailedEntryCount: 1,
		FailedEntries: []ebtypes.PutTargetsResultEntry{{
			TargetId:     aws.String("queue"),
			ErrorCode:    aws.String("AccessDenied"),
			ErrorMessage: aws.String("no permission"),
		}},
	}, nil)

	err := g.AttachTargets(context.Background(), busARN, "dev-EventRelay-Rule", []model.Target{{ID: "queue", ARN: "arn"}})
	var pe *model.ProvisioningError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "create targets", pe.Operation)
	assert.Contains(t, err.Error(), "queue (AccessDenied: no permission)")
}
