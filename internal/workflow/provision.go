package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/edvin/eventrelay/internal/config"
	"github.com/edvin/eventrelay/internal/metrics"
	"github.com/edvin/eventrelay/internal/model"
	"github.com/edvin/eventrelay/internal/report"
)

// CRM is the Salesforce setup and messaging surface the workflow drives.
type CRM interface {
	LocateNamedCredential(ctx context.Context, accessToken, label string) (model.NamedCredential, error)
	BindNamedCredential(ctx context.Context, accessToken, id, fullName string, meta model.NamedCredentialMetadata) error
	CreateEventRelayConfig(ctx context.Context, accessToken, fullName string, meta model.EventRelayMetadata) (string, error)
	ActivateEventRelayConfig(ctx context.Context, accessToken, id string) error
	PollFeedback(ctx context.Context, accessToken, configID string) (string, bool, error)
	SendPlatformEvent(ctx context.Context, accessToken, eventName string, event any) (string, error)
}

// TokenRefresher mints a new access token from a refresh token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (model.CredentialPair, error)
}

// Bus provisions the AWS side of the relay.
type Bus interface {
	EventSourceExists(ctx context.Context, name string) (bool, error)
	CreateBus(ctx context.Context, sourceName string) (string, error)
	CreateDiscoverer(ctx context.Context, busARN string) (string, error)
	CreateRoutingRule(ctx context.Context, busARN string, spec model.RuleSpec) (string, error)
	AttachTargets(ctx context.Context, busARN, ruleName string, targets []model.Target) error
}

// Logs reads back what the relay delivered.
type Logs interface {
	MostRecentLogStream(ctx context.Context, logGroup string) (string, error)
	MostRecentLogEvent(ctx context.Context, stream, logGroup string) (string, error)
}

// Settings are the run parameters taken from config.
type Settings struct {
	Environment string

	NamedCredName     string
	NamedCredLabel    string
	NamedCredEndpoint string
	EventRelayName    string
	EventRelayLabel   string
	EventChannelName  string
	PlatformEventName string

	RuleName     string
	EventSource  string
	Targets      []model.Target
	LogGroupName string

	FeedbackPollInterval time.Duration
	FeedbackMaxAttempts  int
	SourcePollInterval   time.Duration
	SourceMaxRetries     int
	LogSettleDelay       time.Duration
}

func NewSettings(cfg *config.Config) Settings {
	return Settings{
		Environment:          cfg.Environment,
		NamedCredName:        cfg.NamedCredName,
		NamedCredLabel:       cfg.NamedCredLabel,
		NamedCredEndpoint:    cfg.NamedCredentialEndpoint(),
		EventRelayName:       cfg.EventRelayName,
		EventRelayLabel:      cfg.EventRelayLabel,
		EventChannelName:     cfg.EventChannelName,
		PlatformEventName:    cfg.PlatformEventName,
		RuleName:             cfg.RuleName(),
		EventSource:          cfg.EventSource(),
		Targets:              cfg.Targets,
		LogGroupName:         cfg.LogGroupName,
		FeedbackPollInterval: cfg.FeedbackPollInterval,
		FeedbackMaxAttempts:  cfg.FeedbackMaxAttempts,
		SourcePollInterval:   cfg.SourcePollInterval,
		SourceMaxRetries:     cfg.SourceMaxRetries,
		LogSettleDelay:       cfg.LogSettleDelay,
	}
}

// Deps are the collaborators of a Provisioner.
type Deps struct {
	CRM       CRM
	Refresher TokenRefresher
	Bus       Bus
	Logs      Logs
	Metrics   *metrics.Workflow
	Clock     Clock
}

// Provisioner runs one provisioning-and-verification pass. It is not safe
// for concurrent use and refuses to run a second time.
type Provisioner struct {
	deps     Deps
	settings Settings
	logger   zerolog.Logger

	creds  model.CredentialPair
	state  model.State
	report *report.Report
}

func NewProvisioner(logger zerolog.Logger, deps Deps, settings Settings, runID string, creds model.CredentialPair) *Provisioner {
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewWorkflow(prometheus.NewRegistry())
	}
	return &Provisioner{
		deps:     deps,
		settings: settings,
		logger:   logger.With().Str("component", "provisioner").Str("run_id", runID).Logger(),
		creds:    creds,
		report:   report.New(runID, settings.Environment, deps.Clock.Now()),
	}
}

// State is the current workflow state.
func (p *Provisioner) State() model.State { return p.state }

// Credentials returns the current token pair, including any refresh.
func (p *Provisioner) Credentials() model.CredentialPair { return p.creds }

// Run drives the workflow from INIT to PASSED or FAILED. The returned report
// is always non-nil; the error is nil only when the run PASSED.
func (p *Provisioner) Run(ctx context.Context) (*report.Report, error) {
	if p.state.Terminal() {
		return p.report, errors.New("provisioner already ran")
	}
	p.enter(model.StateInit)

	err := p.run(ctx)
	if err != nil {
		p.logger.Error().Err(err).Str("state", string(p.state)).Msg("event relay workflow failed")
		p.enter(model.StateFailed)
		p.report.Finish(model.StateFailed, err, p.deps.Clock.Now())
		return p.report, err
	}

	p.enter(model.StatePassed)
	p.report.Finish(model.StatePassed, nil, p.deps.Clock.Now())
	p.logger.Info().Msg("event relay validated end to end")
	return p.report, nil
}

func (p *Provisioner) run(ctx context.Context) error {
	if err := p.bindCredential(ctx); err != nil {
		return err
	}
	p.enter(model.StateCredBound)

	relayID, err := p.createRelay(ctx)
	if err != nil {
		return err
	}
	p.enter(model.StateRelayCreated)

	if err := p.step("activate_relay", func() error {
		return p.deps.CRM.ActivateEventRelayConfig(ctx, p.creds.AccessToken, relayID)
	}); err != nil {
		return fmt.Errorf("activate event relay: %w", err)
	}
	p.logger.Info().Str("event_relay_id", relayID).Msg("event relay state set to RUN")
	p.enter(model.StateRelayRunning)

	p.enter(model.StateAwaitingSFFeedback)
	var sourceName string
	if err := p.step("await_feedback", func() error {
		var err error
		sourceName, err = p.awaitFeedback(ctx, relayID)
		return err
	}); err != nil {
		return err
	}
	p.report.AWS.EventSourceName = sourceName

	p.enter(model.StateAwaitingAWSSource)
	if err := p.step("await_event_source", func() error {
		return p.awaitEventSource(ctx, sourceName)
	}); err != nil {
		return err
	}

	if err := p.provisionBus(ctx, sourceName); err != nil {
		return err
	}
	p.enter(model.StateAWSProvisioned)

	p.enter(model.StateValidating)
	return p.step("validate", func() error {
		return p.validate(ctx)
	})
}

func (p *Provisioner) bindCredential(ctx context.Context) error {
	var cred model.NamedCredential
	if err := p.step("locate_named_credential", func() error {
		var err error
		cred, err = p.deps.CRM.LocateNamedCredential(ctx, p.creds.AccessToken, p.settings.NamedCredLabel)
		return err
	}); err != nil {
		return fmt.Errorf("locate named credential: %w", err)
	}
	p.report.NamedCredentialID = cred.ID
	p.logger.Info().Str("named_credential_id", cred.ID).Str("developer_name", cred.DeveloperName).Msg("found named credential")

	meta := model.NamedCredentialMetadata{
		Label:         p.settings.NamedCredLabel,
		Endpoint:      p.settings.NamedCredEndpoint,
		PrincipalType: model.PrincipalTypeAnonymous,
		Protocol:      model.ProtocolNoAuth,
	}
	if err := p.step("bind_named_credential", func() error {
		return p.deps.CRM.BindNamedCredential(ctx, p.creds.AccessToken, cred.ID, p.settings.NamedCredName, meta)
	}); err != nil {
		return fmt.Errorf("bind named credential: %w", err)
	}
	p.logger.Info().Str("endpoint", meta.Endpoint).Msg("named credential bound to AWS account")
	return nil
}

func (p *Provisioner) createRelay(ctx context.Context) (string, error) {
	meta := model.EventRelayMetadata{
		EventChannel:            p.settings.EventChannelName,
		DestinationResourceName: "callout:" + p.settings.NamedCredName,
		Label:                   p.settings.EventRelayLabel,
		RelayOption:             model.ReplayRecoveryLatest,
	}
	var id string
	if err := p.step("create_relay", func() error {
		var err error
		id, err = p.deps.CRM.CreateEventRelayConfig(ctx, p.creds.AccessToken, p.settings.EventRelayName, meta)
		return err
	}); err != nil {
		return "", fmt.Errorf("create event relay: %w", err)
	}
	p.report.EventRelayID = id
	p.logger.Info().Str("event_relay_id", id).Str("event_relay", p.settings.EventRelayName).Msg("created event relay")
	return id, nil
}

// awaitFeedback polls the relay feedback until Salesforce reports the AWS
// partner event source name. Every query counts against the bound, including
// one answered with 401; after a 401 the token is refreshed and the query is
// retried without waiting.
func (p *Provisioner) awaitFeedback(ctx context.Context, configID string) (string, error) {
	limit := p.settings.FeedbackMaxAttempts
	for attempt := 1; attempt <= limit; attempt++ {
		p.deps.Metrics.PollAttempt(model.LoopFeedback)
		p.report.FeedbackAttempts = attempt

		name, ready, err := p.deps.CRM.PollFeedback(ctx, p.creds.AccessToken, configID)
		var expired *model.AuthExpiredError
		switch {
		case errors.As(err, &expired):
			p.logger.Warn().Int("attempt", attempt).Msg("access token expired while polling relay feedback")
			if err := p.refreshToken(ctx); err != nil {
				return "", err
			}
			continue
		case err != nil:
			return "", fmt.Errorf("poll relay feedback: %w", err)
		case ready:
			p.logger.Info().Str("event_source", name).Int("attempt", attempt).Msg("remote resource populated in Salesforce")
			return name, nil
		}

		p.logger.Info().Int("attempt", attempt).Int("max_attempts", limit).Msg("remote resource not populated yet")
		if attempt < limit {
			if err := p.deps.Clock.Sleep(ctx, p.settings.FeedbackPollInterval); err != nil {
				return "", err
			}
		}
	}
	return "", &model.RetryBoundExceededError{Loop: model.LoopFeedback, Attempts: limit, Target: configID}
}

func (p *Provisioner) refreshToken(ctx context.Context) error {
	pair, err := p.deps.Refresher.Refresh(ctx, p.creds.RefreshToken)
	if err != nil {
		return err
	}
	p.creds = pair
	p.report.TokenRefreshes++
	p.deps.Metrics.TokenRefreshed()
	p.logger.Info().Msg("access token refreshed")
	return nil
}

// awaitEventSource checks once, then retries up to SourceMaxRetries times.
// It fails only when the source is still missing after the last check.
func (p *Provisioner) awaitEventSource(ctx context.Context, name string) error {
	retries := p.settings.SourceMaxRetries
	for attempt := 0; ; attempt++ {
		p.deps.Metrics.PollAttempt(model.LoopEventSource)
		p.report.SourceAttempts = attempt + 1

		found, err := p.deps.Bus.EventSourceExists(ctx, name)
		if err != nil {
			return err
		}
		if found {
			p.logger.Info().Str("event_source", name).Msg("partner event source visible in AWS")
			return nil
		}
		if attempt >= retries {
			return &model.RetryBoundExceededError{Loop: model.LoopEventSource, Attempts: attempt + 1, Target: name}
		}

		p.logger.Info().Str("event_source", name).Int("retry", attempt+1).Msg("partner event source not visible yet")
		if err := p.deps.Clock.Sleep(ctx, p.settings.SourcePollInterval); err != nil {
			return err
		}
	}
}

// provisionBus creates the bus, discoverer, rule and targets in that order.
// Each step needs the previous one, so the first failure stops the rest.
func (p *Provisioner) provisionBus(ctx context.Context, sourceName string) error {
	res := &p.report.AWS

	if err := p.step("create_bus", func() error {
		var err error
		res.EventBusARN, err = p.deps.Bus.CreateBus(ctx, sourceName)
		return err
	}); err != nil {
		return err
	}

	if err := p.step("create_discoverer", func() error {
		var err error
		res.DiscovererID, err = p.deps.Bus.CreateDiscoverer(ctx, res.EventBusARN)
		return err
	}); err != nil {
		return err
	}

	spec := model.RuleSpec{
		Name:        p.settings.RuleName,
		DetailType:  p.settings.PlatformEventName,
		Description: "Salesforce Event Relay Rule",
	}
	if err := p.step("create_rule", func() error {
		var err error
		res.RuleARN, err = p.deps.Bus.CreateRoutingRule(ctx, res.EventBusARN, spec)
		return err
	}); err != nil {
		return err
	}

	if err := p.step("create_targets", func() error {
		return p.deps.Bus.AttachTargets(ctx, res.EventBusARN, spec.Name, p.settings.Targets)
	}); err != nil {
		return err
	}
	for _, t := range p.settings.Targets {
		res.TargetIDs = append(res.TargetIDs, t.ID)
	}
	return nil
}

// validate sends the synthetic event through the relay and compares it with
// the newest event in the target log group.
func (p *Provisioner) validate(ctx context.Context) error {
	sent := model.NewTestEvent(p.settings.EventSource)
	p.report.Sent = &sent

	id, err := p.deps.CRM.SendPlatformEvent(ctx, p.creds.AccessToken, p.settings.PlatformEventName, sent)
	if err != nil {
		return fmt.Errorf("send platform event: %w", err)
	}
	p.report.PlatformEventID = id
	p.logger.Info().Str("platform_event_id", id).Dur("settle", p.settings.LogSettleDelay).Msg("sent test event")

	if err := p.deps.Clock.Sleep(ctx, p.settings.LogSettleDelay); err != nil {
		return err
	}

	stream, err := p.deps.Logs.MostRecentLogStream(ctx, p.settings.LogGroupName)
	if err != nil {
		return err
	}
	message, err := p.deps.Logs.MostRecentLogEvent(ctx, stream, p.settings.LogGroupName)
	if err != nil {
		return err
	}

	observed, err := ParseObservedEvent(message)
	if err != nil {
		return err
	}
	p.report.Observed = &observed

	if diffs := CompareEvents(sent, observed); len(diffs) > 0 {
		return &model.ValidationMismatchError{Fields: diffs}
	}
	return nil
}

func (p *Provisioner) step(name string, fn func() error) error {
	start := p.deps.Clock.Now()
	err := fn()
	p.deps.Metrics.ObserveStep(name, p.deps.Clock.Now().Sub(start), err)
	return err
}

func (p *Provisioner) enter(s model.State) {
	p.state = s
	p.report.Enter(s, p.deps.Clock.Now())
	p.deps.Metrics.SetState(s)
	p.logger.Debug().Str("state", string(s)).Msg("workflow state")
}
