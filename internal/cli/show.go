package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/doireg/internal/doi"
	"github.com/mesh-intelligence/doireg/internal/history"
	"github.com/mesh-intelligence/doireg/internal/lifecycle"
	"github.com/mesh-intelligence/doireg/internal/registry"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

// recordView is the show output without --format.
type recordView struct {
	*types.Record
	Resolvable bool   `json:"is_resolvable"`
	Resolver   string `json:"resolver_url"`
	// Events are the lifecycle events the record accepts next.
	Events           []types.Event `json:"allowed_events"`
	UpdateValidation string        `json:"update_validation"`
}

func newRecordView(rec *types.Record) recordView {
	v := recordView{
		Record:           rec,
		Resolvable:       rec.IsResolvable(),
		Resolver:         doi.URL(rec.Identifier),
		UpdateValidation: lifecycle.StrictnessOf(rec.State).String(),
	}
	for _, e := range lifecycle.Edges(rec.State) {
		v.Events = append(v.Events, e.Event)
	}
	return v
}

func newShowCmd(a *app) *cobra.Command {
	var (
		format  string
		version string
		opts    types.RenderOptions
	)
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show an identifier's record, or render its metadata with --format",
		Long: "Without --format, show prints the identifier's lifecycle record. With\n" +
			"--format, it renders the current snapshot (or --version) in that format.\n" +
			"Run \"doireg formats\" for the list of format names.",
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRegistry(func(reg *registry.Registry) error {
				if format == "" {
					return a.showRecord(cmd, reg, args[0])
				}
				kind, err := types.ParseFormatKind(format)
				if err != nil {
					return usageError{err}
				}
				out, err := reg.Render(cmd.Context(), args[0], version, kind, opts)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&format, "format", "", "render the metadata in this format")
	f.StringVar(&version, "version", history.Current, "snapshot version id to render")
	f.StringVar(&opts.Style, "style", "", "citation style (citation format only)")
	f.StringVar(&opts.Locale, "locale", "", "citation locale (citation format only)")
	return cmd
}

func (a *app) showRecord(cmd *cobra.Command, reg *registry.Registry, id string) error {
	rec, err := reg.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	view := newRecordView(rec)
	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), view)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "identifier\t%s\n", rec.Identifier)
	fmt.Fprintf(tw, "state\t%s\n", rec.State)
	fmt.Fprintf(tw, "resolvable\t%t\n", view.Resolvable)
	fmt.Fprintf(tw, "url\t%s\n", rec.URL)
	if rec.SuppressionReason != "" {
		fmt.Fprintf(tw, "suppression reason\t%s\n", rec.SuppressionReason)
	}
	fmt.Fprintf(tw, "version\t%s\n", rec.CurrentVersionID)
	fmt.Fprintf(tw, "events\t%s\n", joinEvents(view.Events))
	fmt.Fprintf(tw, "update validation\t%s\n", view.UpdateValidation)
	if rec.Flagged {
		fmt.Fprintf(tw, "flagged\tyes\n")
	}
	fmt.Fprintf(tw, "created\t%s\n", rec.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "updated\t%s\n", rec.UpdatedAt.Format(time.RFC3339))
	return tw.Flush()
}

func joinEvents(events []types.Event) string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = string(e)
	}
	return strings.Join(names, ", ")
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history ID",
		Short: "List every metadata version of an identifier, oldest first",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRegistry(func(reg *registry.Registry) error {
				snaps, err := reg.History(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), snaps)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SEQ\tVERSION\tCREATED\tSOURCE\tPROBLEMS\tREVERTED FROM")
				for _, s := range snaps {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", s.Sequence, s.VersionID,
						s.CreatedAt.Format(time.RFC3339), s.SourceFormat, len(s.Problems), s.RevertedFrom)
				}
				return tw.Flush()
			})
		},
	}
}

func newRevertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revert ID VERSION",
		Short: "Make an earlier metadata version current again",
		Long: "Revert appends a copy of VERSION's metadata as the newest version. The\n" +
			"identifier's state does not change, so the copy must satisfy it.",
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRegistry(func(reg *registry.Registry) error {
				newID, err := reg.Revert(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]string{
						"identifier":    doi.Normalize(args[0]),
						"version_id":    newID,
						"reverted_from": args[1],
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s reverted to %s (version %s)\n", doi.Normalize(args[0]), args[1], newID)
				return nil
			})
		},
	}
}
