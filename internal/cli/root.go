// Package cli implements the doireg command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/doireg/internal/paths"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// skipConfig marks commands that run without loading config.yaml.
const skipConfig = "skip-config"

// rootFlags holds global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app is the state shared by one invocation's commands.
type app struct {
	flags     rootFlags
	configDir string
	cfg       types.Config
}

// usageError marks bad arguments or flags.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// NewRootCmd creates the "doireg" command with global flags and every
// subcommand registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "doireg",
		Short: "A persistent-identifier metadata registry",
		Long: "doireg validates, stores and renders metadata for DOI-style identifiers,\n" +
			"moving each identifier through the draft, registered and findable states.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			return a.load()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: .doireg-db)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newFormatsCmd(a),
		newMintCmd(a),
		newInitCmd(a),
		newSniffCmd(a),
		newValidateCmd(a),
		newTransitionCmd(a, types.EventRegister, "Register an identifier (not yet resolvable)"),
		newTransitionCmd(a, types.EventPublish, "Make an identifier findable"),
		newTransitionCmd(a, types.EventUpdate, "Replace an identifier's metadata or URL"),
		newHideCmd(a),
		newDeleteCmd(a),
		newShowCmd(a),
		newHistoryCmd(a),
		newRevertCmd(a),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintf(stderr, "Error: %s\n", err)
	return exitCode(err)
}

// exitCode maps an error to 1 for caller mistakes and 2 for everything else.
func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ue),
		errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrInvalidTransition),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrMethodNotAllowed),
		errors.Is(err, types.ErrInvalidIdentifier),
		errors.Is(err, types.ErrInvalidEvent),
		errors.Is(err, types.ErrFormatUnknown),
		errors.Is(err, types.ErrUnsupportedSchemaVersion):
		return exitUserError
	case strings.HasPrefix(err.Error(), "unknown command"):
		return exitUserError
	}
	return exitSysError
}

// load resolves directories and reads config.yaml.
func (a *app) load() error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	cfg, err := decodeConfig(v)
	if err != nil {
		return err
	}
	cfg.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", configPath(configDir), err)
	}
	a.configDir = configDir
	a.cfg = cfg
	return nil
}

// exactArgs wraps cobra.ExactArgs so arity mistakes exit as user errors.
func exactArgs(n int) cobra.PositionalArgs {
	return wrapArgs(cobra.ExactArgs(n))
}

func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return wrapArgs(cobra.RangeArgs(lo, hi))
}

func wrapArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
