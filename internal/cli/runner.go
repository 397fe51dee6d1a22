package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/edvin/eventrelay/internal/cloud"
	"github.com/edvin/eventrelay/internal/config"
	"github.com/edvin/eventrelay/internal/metrics"
	"github.com/edvin/eventrelay/internal/model"
	"github.com/edvin/eventrelay/internal/oauth"
	"github.com/edvin/eventrelay/internal/report"
	"github.com/edvin/eventrelay/internal/salesforce"
	"github.com/edvin/eventrelay/internal/workflow"
)

// runner is everything one run needs, wired from config.
type runner struct {
	cfg      *config.Config
	logger   zerolog.Logger
	runID    string
	oauth    *oauth2.Config
	deps     workflow.Deps
	archiver *report.S3Archiver
}

func newRuntime(ctx context.Context, cfg *config.Config, logger zerolog.Logger, runID string, reg prometheus.Registerer) (*runner, error) {
	clients, err := cloud.NewClients(ctx, cfg)
	if err != nil {
		return nil, err
	}

	oc := oauth.NewConfig(cfg)
	tags := map[string]string{
		model.TagRelay:       model.TagRelayValue,
		model.TagEnvironment: cfg.Environment,
		model.TagRunID:       runID,
	}

	rt := &runner{
		cfg:    cfg,
		logger: logger,
		runID:  runID,
		oauth:  oc,
		deps: workflow.Deps{
			CRM:       salesforce.NewClient(logger, cfg.BaseURL, cfg.APIVersion, cfg.HTTPTimeout),
			Refresher: oauth.NewRefresher(logger, oc, cfg.HTTPTimeout),
			Bus:       cloud.NewBusGateway(logger, clients.EventBridge, clients.Schemas, tags),
			Logs:      cloud.NewLogInspector(logger, clients.Logs),
			Metrics:   metrics.NewWorkflow(reg),
			Clock:     workflow.RealClock{},
		},
	}
	if cfg.ReportBucket != "" {
		rt.archiver = report.NewS3Archiver(logger, clients.S3, cfg.ReportBucket, cfg.ReportPrefix)
	}
	return rt, nil
}

// run executes the workflow with creds and reports the outcome. The error is
// nil only when the relay validated end to end.
func (rt *runner) run(ctx context.Context, creds model.CredentialPair) error {
	p := workflow.NewProvisioner(rt.logger, rt.deps, workflow.NewSettings(rt.cfg), rt.runID, creds)
	rep, err := p.Run(ctx)

	report.Log(rt.logger, rep)
	if rt.archiver != nil {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rt.cfg.HTTPTimeout)
		if aerr := rt.archiver.Archive(actx, rep); aerr != nil {
			rt.logger.Warn().Err(aerr).Msg("failed to archive run report")
		}
		cancel()
	}

	if err != nil {
		return fmt.Errorf("event relay run %s: %w", rt.runID, err)
	}
	return nil
}
