package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/doireg/internal/logging"
	"github.com/mesh-intelligence/doireg/internal/postgres"
	"github.com/mesh-intelligence/doireg/internal/registry"
	"github.com/mesh-intelligence/doireg/pkg/sqlite"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

// newStore returns an unattached store for the configured backend.
func newStore(cfg types.Config) (types.Store, error) {
	switch cfg.Backend {
	case types.BackendSQLite:
		return sqlite.NewBackend(), nil
	case types.BackendPostgres:
		return postgres.NewStore(), nil
	}
	return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, cfg.Backend)
}

// attachStore attaches the configured backend. The returned func detaches
// it.
func (a *app) attachStore() (types.Store, func() error, error) {
	store, err := newStore(a.cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Attach(a.cfg); err != nil {
		return nil, nil, fmt.Errorf("attach %s store: %w", a.cfg.Backend, err)
	}
	return store, store.Detach, nil
}

// openRegistry attaches the store and builds a registry over it. The
// returned func detaches the store and flushes the logger.
func (a *app) openRegistry() (*registry.Registry, func() error, error) {
	logger, err := a.logger()
	if err != nil {
		return nil, nil, err
	}
	store, detach, err := a.attachStore()
	if err != nil {
		return nil, nil, err
	}
	reg := registry.New(store,
		registry.WithLogger(logger),
		registry.WithCitationDefaults(a.cfg.Citation),
	)
	return reg, func() error {
		defer logger.Sync()
		return detach()
	}, nil
}

// withRegistry runs fn against an open registry and detaches afterwards.
func (a *app) withRegistry(fn func(*registry.Registry) error) (err error) {
	reg, closeFn, err := a.openRegistry()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeFn())
	}()
	return fn(reg)
}

func (a *app) logger() (*logging.Logger, error) {
	l, err := logging.New(a.cfg.Log.Mode, a.cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// readInput reads a payload from path, or from stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, usageError{fmt.Errorf("read %s: %w", path, err)}
	}
	return b, nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// printProblems lists field errors one per line.
func printProblems(w io.Writer, problems []types.FieldError) {
	for _, p := range problems {
		fmt.Fprintf(w, "  %s [%s]\n", p, p.Code)
	}
}
