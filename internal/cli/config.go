package cli

import (
	"fmt"
	"reflect"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/edvin/eventrelay/internal/config"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(rootOpts, role)
			if err != nil {
				return err
			}
			out, err := renderConfig(cfg.Redacted())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&role, "for", "run", "validate for this command (run|serve)")

	return cmd
}

// renderConfig prints the config as YAML keyed by environment variable name,
// in declaration order.
func renderConfig(cfg config.Config) ([]byte, error) {
	v := reflect.ValueOf(cfg)
	t := v.Type()

	doc := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Name == "Role" {
			continue
		}
		key := f.Tag.Get("env")
		if key == "" {
			key = f.Name
		}

		val := &yaml.Node{}
		if err := val.Encode(v.Field(i).Interface()); err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, val)
	}
	return yaml.Marshal(doc)
}
