package cloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/schemas"
	"github.com/stretchr/testify/mock"
)

// ---------- Mock EventBridge ----------

type mockEventBridge struct {
	mock.Mock
}

func (m *mockEventBridge) ListEventSources(ctx context.Context, in *eventbridge.ListEventSourcesInput, _ ...func(*eventbridge.Options)) (*eventbridge.ListEventSourcesOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventbridge.ListEventSourcesOutput), args.Error(1)
}

func (m *mockEventBridge) CreateEventBus(ctx context.Context, in *eventbridge.CreateEventBusInput, _ ...func(*eventbridge.Options)) (*eventbridge.CreateEventBusOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventbridge.CreateEventBusOutput), args.Error(1)
}

func (m *mockEventBridge) PutRule(ctx context.Context, in *eventbridge.PutRuleInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutRuleOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventbridge.PutRuleOutput), args.Error(1)
}

func (m *mockEventBridge) PutTargets(ctx context.Context, in *eventbridge.PutTargetsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutTargetsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventbridge.PutTargetsOutput), args.Error(1)
}

// ---------- Mock Schemas ----------

type mockSchemas struct {
	mock.Mock
}

func (m *mockSchemas) CreateDiscoverer(ctx context.Context, in *schemas.CreateDiscovererInput, _ ...func(*schemas.Options)) (*schemas.CreateDiscovererOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.CreateDiscovererOutput), args.Error(1)
}

// ---------- Mock CloudWatch Logs ----------

type mockLogs struct {
	mock.Mock
}

func (m *mockLogs) DescribeLogStreams(ctx context.Context, in *cloudwatchlogs.DescribeLogStreamsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cloudwatchlogs.DescribeLogStreamsOutput), args.Error(1)
}

func (m *mockLogs) GetLogEvents(ctx context.Context, in *cloudwatchlogs.GetLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetLogEventsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cloudwatchlogs.GetLogEventsOutput), args.Error(1)
}
