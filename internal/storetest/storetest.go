// Package storetest holds the behaviour every types.Store must share. Store
// packages call Run from their own tests with a constructor that returns an
// attached, empty store.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

// Run exercises newStore against the types.Store contract.
func Run(t *testing.T, newStore func(t *testing.T) types.Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s types.Store)
	}{
		{"CommitCreatesRecordAndSnapshot", testCommitCreates},
		{"CommitWithoutSnapshot", testCommitWithoutSnapshot},
		{"RevisionConflict", testRevisionConflict},
		{"SnapshotsOrdered", testSnapshotsOrdered},
		{"ForeignVersionNotFound", testForeignVersion},
		{"Delete", testDelete},
		{"SnapshotMismatch", testSnapshotMismatch},
		{"ConcurrentCreate", testConcurrentCreate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// Identifier returns a fresh identifier so tests against a shared database
// do not collide.
func Identifier() string {
	return "10.5061/TEST-" + uuid.NewString()[:8]
}

// Record builds the record for revision rev pointing at version.
func Record(identifier string, rev int64, version string) types.Record {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return types.Record{
		Identifier:       identifier,
		State:            types.StateDraft,
		CurrentVersionID: version,
		Revision:         rev,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Snapshot builds snapshot seq of identifier titled title.
func Snapshot(identifier string, seq int, title string) *types.Snapshot {
	return &types.Snapshot{
		VersionID:     uuid.Must(uuid.NewV7()).String(),
		Identifier:    identifier,
		Sequence:      seq,
		CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
		Metadata:      &types.Metadata{Identifier: identifier, Titles: []types.Title{{Title: title}}},
		SourceFormat:  types.FormatDataCiteXML,
		RawDigest:     fmt.Sprintf("raw-%d", seq),
		ContentDigest: fmt.Sprintf("content-%d", seq),
	}
}

func testCommitCreates(t *testing.T, s types.Store) {
	ctx := context.Background()
	id := Identifier()
	snap := Snapshot(id, 1, "first")
	snap.Problems = []types.FieldError{{Field: "language", Code: types.CodeFormat, Message: "bad"}}
	rec := Record(id, 1, snap.VersionID)
	rec.Flagged = true
	rec.URL = "https://example.org/a"
	require.NoError(t, s.Commit(ctx, types.Commit{Record: rec, Snapshot: snap}))

	got, err := s.Record(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StateDraft, got.State)
	assert.Equal(t, snap.VersionID, got.CurrentVersionID)
	assert.Equal(t, int64(1), got.Revision)
	assert.True(t, got.Flagged)
	assert.Equal(t, "https://example.org/a", got.URL)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	gs, err := s.Snapshot(ctx, id, snap.VersionID)
	require.NoError(t, err)
	assert.Equal(t, "first", gs.Metadata.MainTitle())
	assert.Equal(t, types.FormatDataCiteXML, gs.SourceFormat)
	assert.Equal(t, snap.Problems, gs.Problems)
	assert.Equal(t, "raw-1", gs.RawDigest)
}

func testCommitWithoutSnapshot(t *testing.T, s types.Store) {
	ctx := context.Background()
	id := Identifier()
	require.NoError(t, s.Commit(ctx, types.Commit{Record: Record(id, 1, "")}))

	next := Record(id, 2, "")
	next.State = types.StateRegistered
	require.NoError(t, s.Commit(ctx, types.Commit{Record: next, Expected: 1}))

	got, err := s.Record(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StateRegistered, got.State)
	assert.Empty(t, got.CurrentVersionID)

	snaps, err := s.Snapshots(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func testRevisionConflict(t *testing.T, s types.Store) {
	ctx := context.Background()
	id := Identifier()
	require.NoError(t, s.Commit(ctx, types.Commit{Record: Record(id, 1, "")}))

	err := s.Commit(ctx, types.Commit{Record: Record(id, 1, "")})
	assert.ErrorIs(t, err, types.ErrConflict)

	snap := Snapshot(id, 1, "late")
	err = s.Commit(ctx, types.Commit{Record: Record(id, 6, snap.VersionID), Expected: 5, Snapshot: snap})
	assert.ErrorIs(t, err, types.ErrConflict)

	// The losing commit must leave no snapshot behind.
	snaps, err := s.Snapshots(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func testSnapshotsOrdered(t *testing.T, s types.Store) {
	ctx := context.Background()
	id := Identifier()
	var prev int64
	for i := 1; i <= 3; i++ {
		snap := Snapshot(id, i, fmt.Sprintf("v%d", i))
		require.NoError(t, s.Commit(ctx, types.Commit{Record: Record(id, prev+1, snap.VersionID), Expected: prev, Snapshot: snap}))
		prev++
	}
	snaps, err := s.Snapshots(ctx, id)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	for i, snap := range snaps {
		assert.Equal(t, i+1, snap.Sequence)
		assert.Equal(t, fmt.Sprintf("v%d", i+1), snap.Metadata.MainTitle())
	}
}

func testForeignVersion(t *testing.T, s types.Store) {
	ctx := context.Background()
	a, b := Identifier(), Identifier()
	snap := Snapshot(a, 1, "a")
	require.NoError(t, s.Commit(ctx, types.Commit{Record: Record(a, 1, snap.VersionID), Snapshot: snap}))
	require.NoError(t, s.Commit(ctx, types.Commit{Record: Record(b, 1, "")}))

	_, err := s.Snapshot(ctx, b, snap.VersionID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = s.Snapshot(ctx, a, uuid.NewString())
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = s.Record(ctx, Identifier())
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func testDelete(t *testing.T, s types.Store) {
	ctx := context.Background()
	id := Identifier()
	snap := Snapshot(id, 1, "gone")
	require.NoError(t, s.Commit(ctx, types.Commit{Record: Record(id, 1, snap.VersionID), Snapshot: snap}))

	assert.ErrorIs(t, s.Delete(ctx, id, 7), types.ErrConflict)
	require.NoError(t, s.Delete(ctx, id, 1))

	_, err := s.Record(ctx, id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	snaps, err := s.Snapshots(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, snaps)
	assert.ErrorIs(t, s.Delete(ctx, id, 1), types.ErrNotFound)
}

func testSnapshotMismatch(t *testing.T, s types.Store) {
	ctx := context.Background()
	id := Identifier()
	snap := Snapshot(Identifier(), 1, "other")
	err := s.Commit(ctx, types.Commit{Record: Record(id, 1, snap.VersionID), Snapshot: snap})
	assert.ErrorIs(t, err, types.ErrSnapshotMismatch)
	_, err = s.Record(ctx, id)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func testConcurrentCreate(t *testing.T, s types.Store) {
	ctx := context.Background()
	id := Identifier()
	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := Snapshot(id, 1, fmt.Sprintf("w%d", i))
			errs[i] = s.Commit(ctx, types.Commit{Record: Record(id, 1, snap.VersionID), Snapshot: snap})
		}()
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.True(t, types.IsRetryable(err), "%v", err)
	}
	assert.Equal(t, 1, won)
	snaps, err := s.Snapshots(ctx, id)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}
