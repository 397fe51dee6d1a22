package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/eventrelay/internal/api"
	"github.com/edvin/eventrelay/internal/api/handler"
	"github.com/edvin/eventrelay/internal/logging"
	"github.com/edvin/eventrelay/internal/model"
	"github.com/edvin/eventrelay/internal/oauth"
	"github.com/edvin/eventrelay/internal/platform"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Obtain tokens through the browser login, then run the workflow",
		Long: `Start the local OAuth bootstrap server. Open /login in a browser and
authenticate with Salesforce; the first successful callback starts the
provisioning workflow. The server shuts down once the workflow finishes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), rootOpts)
		},
	}
}

func serve(ctx context.Context, opts *RootOptions) error {
	cfg, err := loadConfig(opts, "serve")
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

	creds := make(chan model.CredentialPair, 1)
	auth := handler.NewAuth(logger, oauth.NewBootstrap(rt.oauth, cfg.HTTPTimeout), creds)
	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      api.NewServer(logger, auth, reg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * cfg.HTTPTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", cfg.HTTPListenAddr).
			Str("login_url", loginURL(cfg.HTTPListenAddr)).
			Msg("authenticate to start the event relay workflow")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer shutdown(httpServer, logger)
		select {
		case <-gctx.Done():
			return gctx.Err()
		case pair := <-creds:
			return rt.run(gctx, pair)
		}
	})
	return g.Wait()
}

func shutdown(srv *http.Server, logger zerolog.Logger) {
	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("server shutdown")
	}
}

// loginURL is the local address a person opens to start the OAuth flow.
func loginURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/login"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/login"
}
