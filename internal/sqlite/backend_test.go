package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/doireg/internal/storetest"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

func attach(t *testing.T, dir, strategy string) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir, SyncStrategy: strategy}))
	t.Cleanup(func() { _ = b.Detach() })
	return b
}

func TestBackend_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) types.Store {
		return attach(t, t.TempDir(), "")
	})
}

func TestBackend_Attach(t *testing.T) {
	dir := t.TempDir()
	b := attach(t, dir, "")

	_, err := os.Stat(filepath.Join(dir, dbFile))
	assert.NoError(t, err)
	for _, name := range []string{identifiersJSONL, snapshotsJSONL} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Zero(t, info.Size(), name)
	}
	assert.ErrorIs(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}), types.ErrAlreadyAttached)
}

func TestBackend_AttachRejectsBadConfig(t *testing.T) {
	err := NewBackend().Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir(), SyncStrategy: "batch"})
	assert.ErrorIs(t, err, types.ErrSyncStrategyUnknown)
}

func TestBackend_Detached(t *testing.T) {
	b := NewBackend()
	ctx := context.Background()
	_, err := b.Record(ctx, "10.5061/A")
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = b.Snapshots(ctx, "10.5061/A")
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	assert.ErrorIs(t, b.Commit(ctx, types.Commit{Record: storetest.Record("10.5061/A", 1, "")}), types.ErrStoreDetached)
	assert.ErrorIs(t, b.Delete(ctx, "10.5061/A", 1), types.ErrStoreDetached)
	assert.NoError(t, b.Detach())
	assert.NoError(t, b.Detach())
	assert.False(t, types.IsRetryable(types.ErrStoreDetached))
}

func TestBackend_ReattachRestoresFromJSONL(t *testing.T) {
	for _, strategy := range []string{types.SyncImmediate, types.SyncOnClose} {
		t.Run(strategy, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			b := NewBackend()
			require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir, SyncStrategy: strategy}))

			id := storetest.Identifier()
			s1 := storetest.Snapshot(id, 1, "one")
			require.NoError(t, b.Commit(ctx, types.Commit{Record: storetest.Record(id, 1, s1.VersionID), Snapshot: s1}))
			s2 := storetest.Snapshot(id, 2, "two")
			s2.RevertedFrom = s1.VersionID
			rec := storetest.Record(id, 2, s2.VersionID)
			rec.State = types.StateFindable
			rec.SuppressionReason = "withdrawn"
			require.NoError(t, b.Commit(ctx, types.Commit{Record: rec, Expected: 1, Snapshot: s2}))

			if strategy == types.SyncOnClose {
				raw, err := os.ReadFile(filepath.Join(dir, identifiersJSONL))
				require.NoError(t, err)
				assert.Empty(t, raw, "on_close must not write before Detach")
			}
			require.NoError(t, b.Detach())

			b2 := attach(t, dir, strategy)
			got, err := b2.Record(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, types.StateFindable, got.State)
			assert.Equal(t, "withdrawn", got.SuppressionReason)
			assert.Equal(t, int64(2), got.Revision)
			assert.Equal(t, s2.VersionID, got.CurrentVersionID)

			snaps, err := b2.Snapshots(ctx, id)
			require.NoError(t, err)
			require.Len(t, snaps, 2)
			assert.Equal(t, "two", snaps[1].Metadata.MainTitle())
			assert.Equal(t, s1.VersionID, snaps[1].RevertedFrom)
			assert.True(t, s2.CreatedAt.Equal(snaps[1].CreatedAt))
		})
	}
}

func TestBackend_SnapshotsAppendedToJSONL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := attach(t, dir, types.SyncImmediate)

	id := storetest.Identifier()
	var prev int64
	for i := 1; i <= 3; i++ {
		s := storetest.Snapshot(id, i, "t")
		require.NoError(t, b.Commit(ctx, types.Commit{Record: storetest.Record(id, prev+1, s.VersionID), Expected: prev, Snapshot: s}))
		prev++
	}

	raw, err := os.ReadFile(filepath.Join(dir, snapshotsJSONL))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(raw)), "\n"), 3)

	raw, err = os.ReadFile(filepath.Join(dir, identifiersJSONL))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(raw)), "\n"), 1)
	assert.Contains(t, string(raw), `"revision":3`)

	require.NoError(t, b.Delete(ctx, id, 3))
	raw, err = os.ReadFile(filepath.Join(dir, snapshotsJSONL))
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(string(raw)))
}

func TestBackend_CommitShape(t *testing.T) {
	b := attach(t, t.TempDir(), "")
	ctx := context.Background()

	err := b.Commit(ctx, types.Commit{Record: storetest.Record("10.5061/A", 3, "")})
	assert.Error(t, err)
	assert.False(t, types.IsRetryable(err))

	s := storetest.Snapshot("10.5061/A", 1, "x")
	err = b.Commit(ctx, types.Commit{Record: storetest.Record("10.5061/A", 1, "another"), Snapshot: s})
	assert.ErrorIs(t, err, types.ErrSnapshotMismatch)

	err = b.Commit(ctx, types.Commit{Record: storetest.Record("", 1, "")})
	assert.ErrorIs(t, err, types.ErrInvalidIdentifier)
}
