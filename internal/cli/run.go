package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/eventrelay/internal/logging"
	"github.com/edvin/eventrelay/internal/metrics"
	"github.com/edvin/eventrelay/internal/model"
	"github.com/edvin/eventrelay/internal/platform"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	AccessToken  string
	RefreshToken string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the workflow with an existing token pair",
		Long: `Run the provisioning workflow directly, skipping the browser login.

Tokens come from the flags or from SF_ACCESS_TOKEN and SF_REFRESH_TOKEN.

Example:
  relayctl run --access-token "$TOKEN" --refresh-token "$REFRESH"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDirect(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.AccessToken, "access-token", "", "Salesforce access token (default $SF_ACCESS_TOKEN)")
	cmd.Flags().StringVar(&opts.RefreshToken, "refresh-token", "", "Salesforce refresh token (default $SF_REFRESH_TOKEN)")

	return cmd
}

func runDirect(ctx context.Context, opts *RunOptions) error {
	cfg, err := loadConfig(opts.RootOptions, "run")
	if err != nil {
		return err
	}
	creds, err := opts.credentials()
	if err != nil {
		return err
	}

	runID := platform.NewID()
	logger := logging.NewLogger(cfg).With().Str("run_id", runID).Logger()
	reg := prometheus.NewRegistry()

	rt, err := newRuntime(ctx, cfg, logger, runID, reg)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr == "" {
		return rt.run(ctx, creds)
	}

	metricsServer := metrics.NewServer(cfg.MetricsAddr, reg)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer shutdown(metricsServer, logger)
		return rt.run(gctx, creds)
	})
	return g.Wait()
}

// credentials resolves the token pair from flags, then the environment.
func (o *RunOptions) credentials() (model.CredentialPair, error) {
	pair := model.CredentialPair{AccessToken: o.AccessToken, RefreshToken: o.RefreshToken}
	if pair.AccessToken == "" {
		pair.AccessToken = os.Getenv("SF_ACCESS_TOKEN")
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = os.Getenv("SF_REFRESH_TOKEN")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return model.CredentialPair{}, errors.New("run needs both --access-token and --refresh-token (or SF_ACCESS_TOKEN and SF_REFRESH_TOKEN)")
	}
	return pair, nil
}
