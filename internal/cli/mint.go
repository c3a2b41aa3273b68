package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/doireg/internal/doi"
)

func newMintCmd(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:         "mint PREFIX",
		Short:       "Generate random identifiers under a registrant prefix",
		Long:        "Mint prints identifiers with a random, check-digited suffix. Nothing is stored.",
		Args:        exactArgs(1),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return usageError{fmt.Errorf("--count must be at least 1, got %d", count)}
			}
			ids := make([]string, 0, count)
			for range count {
				id, err := doi.Mint(args[0])
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), ids)
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 1, "number of identifiers to generate")
	return cmd
}
