package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/schemas"
	"github.com/rs/zerolog"

	"github.com/edvin/eventrelay/internal/model"
)

// BusGateway provisions the partner event bus and its routing. Each method
// is a single remote call; retries belong to the caller.
type BusGateway struct {
	eventBridge EventBridgeAPI
	schemas     SchemasAPI
	tags        map[string]string
	logger      zerolog.Logger
}

// NewBusGateway creates a BusGateway. tags are applied to every resource it
// creates.
func NewBusGateway(logger zerolog.Logger, eb EventBridgeAPI, sc SchemasAPI, tags map[string]string) *BusGateway {
	return &BusGateway{
		eventBridge: eb,
		schemas:     sc,
		tags:        tags,
		logger:      logger.With().Str("component", "bus-gateway").Logger(),
	}
}

// EventSourceExists reports whether the partner event source is visible.
// Only an exact name match counts; a longer name sharing the prefix does not.
func (g *BusGateway) EventSourceExists(ctx context.Context, name string) (bool, error) {
	out, err := g.eventBridge.ListEventSources(ctx, &eventbridge.ListEventSourcesInput{
		NamePrefix: aws.String(name),
	})
	if err != nil {
		return false, wrapErr("list event sources", err)
	}
	if len(out.EventSources) == 0 {
		return false, nil
	}
	return aws.ToString(out.EventSources[0].Name) == name, nil
}

// CreateBus creates an event bus bound to the partner event source and
// returns its ARN.
func (g *BusGateway) CreateBus(ctx context.Context, sourceName string) (string, error) {
	out, err := g.eventBridge.CreateEventBus(ctx, &eventbridge.CreateEventBusInput{
		Name:            aws.String(sourceName),
		EventSourceName: aws.String(sourceName),
		Tags:            g.eventBridgeTags(),
	})
	if err != nil {
		return "", wrapErr("create event bus", err)
	}

	arn := aws.ToString(out.EventBusArn)
	g.logger.Info().Str("event_bus_arn", arn).Msg("created event bus")
	return arn, nil
}

// CreateDiscoverer registers schema discovery on the bus and returns the
// discoverer id.
func (g *BusGateway) CreateDiscoverer(ctx context.Context, busARN string) (string, error) {
	out, err := g.schemas.CreateDiscoverer(ctx, &schemas.CreateDiscovererInput{
		Description: aws.String("Salesforce Event Relay Discoverer"),
		SourceArn:   aws.String(busARN),
		Tags:        g.tags,
	})
	if err != nil {
		return "", wrapErr("create discoverer", err)
	}

	id := aws.ToString(out.DiscovererId)
	g.logger.Info().Str("discoverer_id", id).Str("event_bus_arn", busARN).Msg("created discoverer")
	return id, nil
}

// RulePattern is the event pattern matching relayed Salesforce events of one
// platform event type.
func RulePattern(detailType string) (string, error) {
	pattern := map[string]any{
		"source":      []map[string]string{{"prefix": model.PartnerSourcePrefix}},
		"detail-type": []string{detailType},
	}
	b, err := json.Marshal(pattern)
	if err != nil {
		return "", fmt.Errorf("marshal event pattern: %w", err)
	}
	return string(b), nil
}

// CreateRoutingRule creates an enabled rule on the bus and returns its ARN.
func (g *BusGateway) CreateRoutingRule(ctx context.Context, busARN string, spec model.RuleSpec) (string, error) {
	pattern, err := RulePattern(spec.DetailType)
	if err != nil {
		return "", err
	}

	out, err := g.eventBridge.PutRule(ctx, &eventbridge.PutRuleInput{
		Name:         aws.String(spec.Name),
		EventBusName: aws.String(busARN),
		EventPattern: aws.String(pattern),
		State:        ebtypes.RuleStateEnabled,
		Description:  aws.String(spec.Description),
		Tags:         g.eventBridgeTags(),
	})
	if err != nil {
		return "", wrapErr("create rule", err)
	}

	arn := aws.ToString(out.RuleArn)
	g.logger.Info().Str("rule_arn", arn).Str("rule", spec.Name).Msg("created rule")
	return arn, nil
}

// AttachTargets registers the delivery targets on the rule. A partial
// failure reported by EventBridge is an error.
func (g *BusGateway) AttachTargets(ctx context.Context, busARN, ruleName string, targets []model.Target) error {
	in := &eventbridge.PutTargetsInput{
		Rule:         aws.String(ruleName),
		EventBusName: aws.String(busARN),
		Targets:      make([]ebtypes.Target, 0, len(targets)),
	}
	for _, t := range targets {
		in.Targets = append(in.Targets, ebtypes.Target{Id: aws.String(t.ID), Arn: aws.String(t.ARN)})
	}

	out, err := g.eventBridge.PutTargets(ctx, in)
	if err != nil {
		return wrapErr("create targets", err)
	}
	if out.FailedEntryCount > 0 {
		failed := make([]string, 0, len(out.FailedEntries))
		for _, e := range out.FailedEntries {
			failed = append(failed, fmt.Sprintf("%s (%s: %s)",
				aws.ToString(e.TargetId), aws.ToString(e.ErrorCode), aws.ToString(e.ErrorMessage)))
		}
		return wrapErr("create targets", fmt.Errorf("%d targets rejected: %s", out.FailedEntryCount, strings.Join(failed, ", ")))
	}

	g.logger.Info().Int("targets", len(targets)).Str("rule", ruleName).Msg("created rule targets")
	return nil
}

func (g *BusGateway) eventBridgeTags() []ebtypes.Tag {
	keys := make([]string, 0, len(g.tags))
	for k := range g.tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tags := make([]ebtypes.Tag, 0, len(keys))
	for _, k := range keys {
		tags = append(tags, ebtypes.Tag{Key: aws.String(k), Value: aws.String(g.tags[k])})
	}
	return tags
}
