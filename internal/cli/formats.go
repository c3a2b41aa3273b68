package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/doireg/internal/sniff"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

type formatInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Parse       bool   `json:"parse"`
	Render      bool   `json:"render"`
}

func newFormatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "formats",
		Short:       "List the metadata formats doireg reads and writes",
		Args:        exactArgs(0),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var infos []formatInfo
			for _, f := range types.AllFormats() {
				infos = append(infos, formatInfo{f.String(), f.ContentType(), f.Parsable(), true})
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), infos)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCONTENT TYPE\tPARSE\tRENDER")
			for _, i := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", i.Name, i.ContentType, yesNo(i.Parse), yesNo(i.Render))
			}
			return tw.Flush()
		},
	}
}

func newSniffCmd(a *app) *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:         "sniff FILE",
		Short:       "Detect the metadata format of FILE (- for stdin)",
		Args:        exactArgs(1),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			kind, err := sniff.Format(contentType, raw)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), formatInfo{kind.String(), kind.ContentType(), kind.Parsable(), true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), kind)
			return nil
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "declared content type or format name")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
