package types

import "context"

// Store persists identifier records and their append-only snapshot
// history. Implementations must apply a Commit atomically: the record
// update and the snapshot append either both become visible or neither does.
type Store interface {
	// Attach connects the store to the backend described by config.
	// Returns ErrAlreadyAttached if called while attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent.
	Detach() error

	// Record returns the record for identifier or ErrNotFound.
	Record(ctx context.Context, identifier string) (*Record, error)

	// Snapshot returns one snapshot of identifier. A version that does not
	// exist or belongs to another identifier yields ErrNotFound.
	Snapshot(ctx context.Context, identifier, versionID string) (*Snapshot, error)

	// Snapshots returns the full history of identifier, oldest first.
	Snapshots(ctx context.Context, identifier string) ([]*Snapshot, error)

	// Commit writes c atomically. It returns ErrConflict when the stored
	// revision differs from c.Expected.
	Commit(ctx context.Context, c Commit) error

	// Delete removes the record and its snapshots if the stored revision
	// equals revision. Returns ErrNotFound or ErrConflict otherwise.
	Delete(ctx context.Context, identifier string, revision int64) error
}

// Commit is one atomic write: the new record head and, optionally, the
// snapshot it now points to.
type Commit struct {
	// Record is the record as it should be stored. Record.Revision must be
	// Expected+1.
	Record Record

	// Expected is the revision the write was computed from. Zero means the
	// record must not exist yet.
	Expected int64

	// Snapshot is appended in the same transaction when non-nil.
	Snapshot *Snapshot
}
