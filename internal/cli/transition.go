package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/doireg/internal/registry"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

// newTransitionCmd builds register, publish and update. Each takes an
// identifier and an optional metadata file. An update of an unknown
// identifier creates a draft.
func newTransitionCmd(a *app, event types.Event, short string) *cobra.Command {
	var (
		url         string
		contentType string
	)
	cmd := &cobra.Command{
		Use:   string(event) + " ID [FILE]",
		Short: short,
		Args:  rangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := types.TransitionRequest{Identifier: args[0], Event: event, URL: url}
			return a.withRegistry(func(reg *registry.Registry) error {
				if len(args) == 2 {
					n, err := normalize(cmd, reg, args[1], contentType)
					if err != nil {
						return err
					}
					req.Metadata = n
				}
				return a.transition(cmd, reg, req)
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "target URL the identifier resolves to")
	cmd.Flags().StringVar(&contentType, "content-type", "", "declared content type or format name of FILE")
	return cmd
}

func newHideCmd(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "hide ID",
		Short: "Take a findable identifier out of the public index",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := types.TransitionRequest{Identifier: args[0], Event: types.EventHide, Reason: reason}
			return a.withRegistry(func(reg *registry.Registry) error {
				return a.transition(cmd, reg, req)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "suppression reason recorded on the identifier")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a draft identifier",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := types.TransitionRequest{Identifier: args[0], Event: types.EventDelete}
			return a.withRegistry(func(reg *registry.Registry) error {
				return a.transition(cmd, reg, req)
			})
		},
	}
}

// normalize parses a metadata file for a transition. Field problems are
// not fatal here: a draft keeps them and stricter events reject them.
func normalize(cmd *cobra.Command, reg *registry.Registry, path, contentType string) (*types.Normalized, error) {
	raw, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	n, err := reg.Validate(cmd.Context(), contentType, raw)
	if n != nil && (err == nil || errors.Is(err, types.ErrValidation)) {
		return n, nil
	}
	return nil, err
}

func (a *app) transition(cmd *cobra.Command, reg *registry.Registry, req types.TransitionRequest) error {
	res, err := reg.Transition(cmd.Context(), req)
	if err != nil {
		if problems := types.FieldErrors(err); len(problems) > 0 && !a.flags.jsonMode {
			fmt.Fprintln(cmd.ErrOrStderr(), "field problems:")
			printProblems(cmd.ErrOrStderr(), problems)
		}
		return err
	}
	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), res)
	}

	w := cmd.OutOrStdout()
	switch {
	case res.Deleted:
		fmt.Fprintf(w, "%s deleted\n", res.Identifier)
	case res.Unchanged:
		fmt.Fprintf(w, "%s unchanged (%s)\n", res.Identifier, res.State)
	case res.Created:
		fmt.Fprintf(w, "%s created (%s, version %s)\n", res.Identifier, res.State, res.SnapshotID)
	default:
		fmt.Fprintf(w, "%s %s (version %s)\n", res.Identifier, res.State, res.SnapshotID)
	}
	if len(res.Problems) > 0 {
		fmt.Fprintf(w, "stored with %d field problem(s):\n", len(res.Problems))
		printProblems(w, res.Problems)
	}
	return nil
}
