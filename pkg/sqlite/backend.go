// Package sqlite exposes the SQLite store to programs that embed the
// registry. The implementation stays internal.
package sqlite

import (
	"github.com/mesh-intelligence/doireg/internal/sqlite"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

// NewBackend returns an unattached SQLite store. Attach it with a Config
// whose Backend is types.BackendSQLite:
//
//	store := sqlite.NewBackend()
//	err := store.Attach(types.Config{Backend: types.BackendSQLite, DataDir: ".doireg-db"})
//	defer store.Detach()
func NewBackend() types.Store {
	return sqlite.NewBackend()
}
