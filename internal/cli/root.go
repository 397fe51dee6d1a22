package cli

import (
	"github.com/spf13/cobra"

	"github.com/edvin/eventrelay/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFiles []string
}

// NewRootCommand creates the root command for relayctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "relayctl",
		Short: "Provision and verify a Salesforce Event Relay into AWS EventBridge",
		Long: `relayctl wires a Salesforce Event Relay to an AWS EventBridge partner event
bus and proves it works by sending a test platform event end to end.

Resources are created per run and are not rolled back on failure. The run
report lists everything that was created.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", []string{".env"}, "env files to load (existing environment wins)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// loadConfig seeds the environment from the env files, then loads and
// validates the config for role.
func loadConfig(opts *RootOptions, role string) (*config.Config, error) {
	if err := config.LoadEnvFiles(opts.EnvFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(role); err != nil {
		return nil, err
	}
	return cfg, nil
}
