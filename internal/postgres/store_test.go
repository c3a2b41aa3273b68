package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/doireg/internal/storetest"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

const envURL = "DOIREG_TEST_POSTGRES_URL"

func attach(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv(envURL)
	if url == "" {
		t.Skipf("%s not set", envURL)
	}
	s := NewStore()
	require.NoError(t, s.Attach(types.Config{Backend: types.BackendPostgres, PostgresURL: url}))
	t.Cleanup(func() { _ = s.Detach() })
	return s
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) types.Store { return attach(t) })
}

func TestStore_AttachTwice(t *testing.T) {
	s := attach(t)
	err := s.Attach(types.Config{Backend: types.BackendPostgres, PostgresURL: os.Getenv(envURL)})
	assert.ErrorIs(t, err, types.ErrAlreadyAttached)
}

func TestStore_Detached(t *testing.T) {
	s := NewStore()
	_, err := s.Record(context.Background(), "10.5061/A")
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	assert.ErrorIs(t, s.Commit(context.Background(), types.Commit{Record: storetest.Record("10.5061/A", 1, "")}), types.ErrStoreDetached)
	assert.NoError(t, s.Detach())
}

func TestStore_AttachNeedsURL(t *testing.T) {
	err := NewStore().Attach(types.Config{Backend: types.BackendPostgres})
	assert.ErrorIs(t, err, types.ErrPostgresURLEmpty)
}

func TestStoreError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		conflict  bool
		retryable bool
	}{
		{"unique violation", &pgconn.PgError{Code: pgUniqueViolation}, true, true},
		{"serialization", &pgconn.PgError{Code: pgSerializationFailure}, true, true},
		{"deadlock", &pgconn.PgError{Code: pgDeadlockDetected}, true, true},
		{"syntax", &pgconn.PgError{Code: "42601"}, false, true},
		{"connection", errors.New("connection reset"), false, true},
		{"cancelled", context.Canceled, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storeError("commit", tt.err)
			assert.Equal(t, tt.conflict, errors.Is(err, types.ErrConflict))
			assert.Equal(t, tt.retryable, types.IsRetryable(err))
		})
	}
}
