package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize doireg storage",
		Long:  "Create the configuration and data directories, then initialize the storage backend.",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, detach, err := a.attachStore()
			if err != nil {
				return fmt.Errorf("initialize storage: %w", err)
			}
			if err := detach(); err != nil {
				return fmt.Errorf("finalize storage: %w", err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"config_dir": a.configDir,
					"data_dir":   a.cfg.DataDir,
					"backend":    a.cfg.Backend,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "doireg initialized (%s backend, data in %s)\n", a.cfg.Backend, a.cfg.DataDir)
			return nil
		},
	}
}
