// Package history builds immutable metadata snapshots and reads them back.
// Snapshots are only ever appended; a revert appends a copy of an older
// snapshot's metadata as the newest version.
package history

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

// Current names the active snapshot in version lookups.
const Current = "current"

// Digest returns the hex BLAKE3-256 digest of b.
func Digest(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ContentDigest digests the canonical JSON encoding of md. Two metadata
// values with equal content digests render identically in every format.
func ContentDigest(md *types.Metadata) (string, error) {
	b, err := json.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	return Digest(b), nil
}

// Log reads snapshots from a store and builds new ones.
type Log struct {
	store types.Store
	now   func() time.Time
}

// NewLog returns a Log over store.
func NewLog(store types.Store) *Log {
	return &Log{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Version returns the snapshot version of rec names. "current" or an empty
// version is the record's active snapshot. Versions of other identifiers
// are ErrNotFound.
func (l *Log) Version(ctx context.Context, rec *types.Record, version string) (*types.Snapshot, error) {
	if version == "" || version == Current {
		if rec.CurrentVersionID == "" {
			return nil, fmt.Errorf("%s has no metadata: %w", rec.Identifier, types.ErrNotFound)
		}
		version = rec.CurrentVersionID
	}
	s, err := l.store.Snapshot(ctx, rec.Identifier, version)
	if err != nil {
		return nil, err
	}
	if s.Identifier != rec.Identifier {
		return nil, fmt.Errorf("version %s of %s: %w", version, rec.Identifier, types.ErrNotFound)
	}
	return s, nil
}

// Head returns the active snapshot of rec, or nil when it has none.
func (l *Log) Head(ctx context.Context, rec *types.Record) (*types.Snapshot, error) {
	if rec == nil || rec.CurrentVersionID == "" {
		return nil, nil
	}
	return l.Version(ctx, rec, Current)
}

// List returns every snapshot of identifier, oldest first.
func (l *Log) List(ctx context.Context, identifier string) ([]*types.Snapshot, error) {
	return l.store.Snapshots(ctx, identifier)
}

// Unchanged reports whether n carries nothing new compared to head: the raw
// bytes or the resulting metadata are identical.
func Unchanged(head *types.Snapshot, n *types.Normalized, contentDigest string) bool {
	if head == nil {
		return false
	}
	if n.RawDigest != "" && n.RawDigest == head.RawDigest {
		return true
	}
	return contentDigest == head.ContentDigest
}

// Append builds the snapshot that follows head for n.
func (l *Log) Append(identifier string, head *types.Snapshot, n *types.Normalized, problems []types.FieldError) (*types.Snapshot, error) {
	digest, err := ContentDigest(n.Metadata)
	if err != nil {
		return nil, err
	}
	return l.build(identifier, head, n.Metadata, n.Format, n.RawDigest, digest, problems, "")
}

// Revert builds the snapshot that makes target's metadata current again.
// target must belong to identifier.
func (l *Log) Revert(identifier string, head, target *types.Snapshot, problems []types.FieldError) (*types.Snapshot, error) {
	if target.Identifier != identifier {
		return nil, fmt.Errorf("revert %s to %s: %w", identifier, target.VersionID, types.ErrSnapshotMismatch)
	}
	md, err := clone(target.Metadata)
	if err != nil {
		return nil, err
	}
	return l.build(identifier, head, md, target.SourceFormat, target.RawDigest, target.ContentDigest, problems, target.VersionID)
}

func (l *Log) build(identifier string, head *types.Snapshot, md *types.Metadata, format types.FormatKind,
	rawDigest, contentDigest string, problems []types.FieldError, revertedFrom string) (*types.Snapshot, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating version id: %w", err)
	}
	seq := 1
	if head != nil {
		seq = head.Sequence + 1
	}
	return &types.Snapshot{
		VersionID:     id.String(),
		Identifier:    identifier,
		Sequence:      seq,
		CreatedAt:     l.now(),
		Metadata:      md,
		SourceFormat:  format,
		RawDigest:     rawDigest,
		ContentDigest: contentDigest,
		Problems:      problems,
		RevertedFrom:  revertedFrom,
	}, nil
}

// clone deep-copies md so a new snapshot shares nothing with an old one.
func clone(md *types.Metadata) (*types.Metadata, error) {
	if md == nil {
		return nil, nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("copying metadata: %w", err)
	}
	var out types.Metadata
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("copying metadata: %w", err)
	}
	return &out, nil
}
