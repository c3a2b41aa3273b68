package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/doireg/internal/codec/check"
	"github.com/mesh-intelligence/doireg/internal/registry"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

type validateResult struct {
	File       string             `json:"file"`
	Format     string             `json:"format,omitempty"`
	Identifier string             `json:"identifier,omitempty"`
	Valid      bool               `json:"valid"`
	Error      string             `json:"error,omitempty"`
	Problems   []types.FieldError `json:"problems,omitempty"`
}

func newValidateCmd(a *app) *cobra.Command {
	var (
		contentType string
		full        bool
	)
	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Parse and check metadata files without storing them",
		Long: "Validate sniffs each file's format, parses it into the canonical model and\n" +
			"reports every field problem. With --full it also reports the properties\n" +
			"publishing requires. The exit code is 1 if any file is invalid.",
		Args:        wrapArgs(cobra.MinimumNArgs(1)),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			payloads := make([]registry.Payload, len(args))
			for i, path := range args {
				raw, err := readInput(cmd, path)
				if err != nil {
					return err
				}
				payloads[i] = registry.Payload{ContentType: contentType, Raw: raw}
			}

			results, err := registry.New(nil).ValidateBatch(cmd.Context(), payloads)
			if err != nil {
				return err
			}

			out := make([]validateResult, len(results))
			var firstErr error
			for i, r := range results {
				if full {
					r.Err = withCompleteness(r)
				}
				out[i] = validateResult{File: args[i], Valid: r.Err == nil}
				if n := r.Normalized; n != nil {
					out[i].Format = n.Format.String()
					if n.Metadata != nil {
						out[i].Identifier = n.Metadata.Identifier
					}
				}
				if r.Err != nil {
					out[i].Error = r.Err.Error()
					out[i].Problems = types.FieldErrors(r.Err)
					if firstErr == nil {
						firstErr = fmt.Errorf("%s: %w", args[i], r.Err)
					}
				}
			}

			if a.flags.jsonMode {
				if err := printJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
				return firstErr
			}
			w := cmd.OutOrStdout()
			for _, r := range out {
				if r.Valid {
					fmt.Fprintf(w, "ok      %s (%s %s)\n", r.File, r.Format, r.Identifier)
					continue
				}
				fmt.Fprintf(w, "invalid %s\n", r.File)
				if len(r.Problems) == 0 {
					fmt.Fprintf(w, "  %s\n", r.Error)
				}
				printProblems(w, r.Problems)
			}
			return firstErr
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "declared content type or format name for every file")
	cmd.Flags().BoolVar(&full, "full", false, "also require every property needed to publish")
	return cmd
}

// withCompleteness adds the missing publish requirements to a readable
// result's field problems.
func withCompleteness(r registry.Validated) error {
	n := r.Normalized
	if n == nil || n.Metadata == nil {
		return r.Err
	}
	if r.Err != nil && types.FieldErrors(r.Err) == nil {
		return r.Err
	}
	problems := append(append([]types.FieldError(nil), types.FieldErrors(r.Err)...), check.Complete(n.Metadata)...)
	return types.NewValidationError(n.Metadata.Identifier, problems)
}
