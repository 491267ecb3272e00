package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openadr-ven/client/ven"
)

// NewConfigCmd builds a "config" subcommand that prints the resolved VEN
// configuration as YAML, so operators can verify what a run of venclient
// would actually use before starting it. resolve is called at Run time so
// it sees flags/env/config-file merging performed by the root command's
// PersistentPreRunE.
func NewConfigCmd(resolve func(cmd *cobra.Command) (ven.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolve(cmd)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("formatting config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
