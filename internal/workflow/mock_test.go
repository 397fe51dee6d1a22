package workflow

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/eventrelay/internal/model"
)

type mockCRM struct{ mock.Mock }

func (m *mockCRM) LocateNamedCredential(ctx context.Context, accessToken, label string) (model.NamedCredential, error) {
	args := m.Called(ctx, accessToken, label)
	return args.Get(0).(model.NamedCredential), args.Error(1)
}

func (m *mockCRM) BindNamedCredential(ctx context.Context, accessToken, id, fullName string, meta model.NamedCredentialMetadata) error {
	return m.Called(ctx, accessToken, id, fullName, meta).Error(0)
}

func (m *mockCRM) CreateEventRelayConfig(ctx context.Context, accessToken, fullName string, meta model.EventRelayMetadata) (string, error) {
	args := m.Called(ctx, accessToken, fullName, meta)
	return args.String(0), args.Error(1)
}

func (m *mockCRM) ActivateEventRelayConfig(ctx context.Context, accessToken, id string) error {
	return m.Called(ctx, accessToken, id).Error(0)
}

func (m *mockCRM) PollFeedback(ctx context.Context, accessToken, configID string) (string, bool, error) {
	args := m.Called(ctx, accessToken, configID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockCRM) SendPlatformEvent(ctx context.Context, accessToken, eventName string, event any) (string, error) {
	args := m.Called(ctx, accessToken, eventName, event)
	return args.String(0), args.Error(1)
}

type mockRefresher struct{ mock.Mock }

func (m *mockRefresher) Refresh(ctx context.Context, refreshToken string) (model.CredentialPair, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(model.CredentialPair), args.Error(1)
}

type mockBus struct{ mock.Mock }

func (m *mockBus) EventSourceExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *mockBus) CreateBus(ctx context.Context, sourceName string) (string, error) {
	args := m.Called(ctx, sourceName)
	return args.String(0), args.Error(1)
}

func (m *mockBus) CreateDiscoverer(ctx context.Context, busARN string) (string, error) {
	args := m.Called(ctx, busARN)
	return args.String(0), args.Error(1)
}

func (m *mockBus) CreateRoutingRule(ctx context.Context, busARN string, spec model.RuleSpec) (string, error) {
	args := m.Called(ctx, busARN, spec)
	return args.String(0), args.Error(1)
}

func (m *mockBus) AttachTargets(ctx context.Context, busARN, ruleName string, targets []model.Target) error {
	return m.Called(ctx, busARN, ruleName, targets).Error(0)
}

type mockLogs struct{ mock.Mock }

func (m *mockLogs) MostRecentLogStream(ctx context.Context, logGroup string) (string, error) {
	args := m.Called(ctx, logGroup)
	return args.String(0), args.Error(1)
}

func (m *mockLogs) MostRecentLogEvent(ctx context.Context, stream, logGroup string) (string, error) {
	args := m.Called(ctx, stream, logGroup)
	return args.String(0), args.Error(1)
}

// fakeClock advances only when slept on and records every sleep.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}
