// Package postgres implements types.Store on PostgreSQL through a pgx
// connection pool. Concurrent writers in other processes are detected by
// the revision check and by unique constraints, both reported as
// ErrConflict.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

const connectTimeout = 10 * time.Second

// Store is the PostgreSQL store.
type Store struct {
	mu   sync.RWMutex
	pool *pgxpool.Pool
}

// NewStore returns a detached store; call Attach before use.
func NewStore() *Store {
	return &Store{}
}

// Attach connects to config.PostgresURL and creates the schema if needed.
func (s *Store) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.PostgresURL == "" {
		return types.ErrPostgresURLEmpty
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	pool, err := pgxpool.New(ctx, config.PostgresURL)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	for _, ddl := range schemaDDL {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			pool.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	s.pool = pool
	return nil
}

// Detach closes the pool. Detach is idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

func (s *Store) conn() (*pgxpool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return nil, types.ErrStoreDetached
	}
	return s.pool, nil
}

// Record returns the record of identifier.
func (s *Store) Record(ctx context.Context, identifier string) (*types.Record, error) {
	pool, err := s.conn()
	if err != nil {
		return nil, err
	}
	var r types.Record
	var state string
	err = pool.QueryRow(ctx, `SELECT identifier, state, url, suppression_reason, current_version_id,
        flagged, revision, created_at, updated_at FROM identifiers WHERE identifier = $1`, identifier).
		Scan(&r.Identifier, &state, &r.URL, &r.SuppressionReason, &r.CurrentVersionID,
			&r.Flagged, &r.Revision, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("identifier %s: %w", identifier, types.ErrNotFound)
	}
	if err != nil {
		return nil, storeError("record", err)
	}
	r.State = types.State(state)
	r.CreatedAt, r.UpdatedAt = r.CreatedAt.UTC(), r.UpdatedAt.UTC()
	return &r, nil
}

const selectSnapshot = `SELECT version_id, identifier, sequence, created_at, metadata, source_format,
    raw_input_digest, content_digest, problems, reverted_from FROM snapshots`

// Snapshot returns version versionID of identifier.
func (s *Store) Snapshot(ctx context.Context, identifier, versionID string) (*types.Snapshot, error) {
	pool, err := s.conn()
	if err != nil {
		return nil, err
	}
	snap, err := scanSnapshot(pool.QueryRow(ctx, selectSnapshot+` WHERE identifier = $1 AND version_id = $2`, identifier, versionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("version %s of %s: %w", versionID, identifier, types.ErrNotFound)
	}
	if err != nil {
		return nil, storeError("snapshot", err)
	}
	return snap, nil
}

// Snapshots returns the history of identifier, oldest first.
func (s *Store) Snapshots(ctx context.Context, identifier string) ([]*types.Snapshot, error) {
	pool, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, selectSnapshot+` WHERE identifier = $1 ORDER BY sequence`, identifier)
	if err != nil {
		return nil, storeError("snapshots", err)
	}
	defer rows.Close()

	var out []*types.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, storeError("snapshots", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("snapshots", err)
	}
	return out, nil
}

// Commit writes the record and the optional snapshot in one transaction.
// The stored row is locked while its revision is compared.
func (s *Store) Commit(ctx context.Context, c types.Commit) error {
	if err := validateCommit(c); err != nil {
		return err
	}
	pool, err := s.conn()
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		r := c.Record
		stored, err := lockRevision(ctx, tx, r.Identifier)
		if err != nil {
			return storeError("commit", err)
		}
		if stored != c.Expected {
			return fmt.Errorf("identifier %s at revision %d, expected %d: %w", r.Identifier, stored, c.Expected, types.ErrConflict)
		}

		if c.Expected == 0 {
			_, err = tx.Exec(ctx, `INSERT INTO identifiers (identifier, state, url, suppression_reason,
                current_version_id, flagged, revision, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				r.Identifier, string(r.State), r.URL, r.SuppressionReason, r.CurrentVersionID,
				r.Flagged, r.Revision, r.CreatedAt, r.UpdatedAt)
		} else {
			_, err = tx.Exec(ctx, `UPDATE identifiers SET state = $2, url = $3, suppression_reason = $4,
                current_version_id = $5, flagged = $6, revision = $7, updated_at = $8 WHERE identifier = $1`,
				r.Identifier, string(r.State), r.URL, r.SuppressionReason, r.CurrentVersionID,
				r.Flagged, r.Revision, r.UpdatedAt)
		}
		if err != nil {
			return storeError("commit", err)
		}

		if snap := c.Snapshot; snap != nil {
			md, err := json.Marshal(snap.Metadata)
			if err != nil {
				return fmt.Errorf("encoding metadata of %s: %w", snap.VersionID, err)
			}
			var problems []byte
			if len(snap.Problems) > 0 {
				if problems, err = json.Marshal(snap.Problems); err != nil {
					return fmt.Errorf("encoding problems of %s: %w", snap.VersionID, err)
				}
			}
			_, err = tx.Exec(ctx, `INSERT INTO snapshots (version_id, identifier, sequence, created_at, metadata,
                source_format, raw_input_digest, content_digest, problems, reverted_from)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				snap.VersionID, snap.Identifier, snap.Sequence, snap.CreatedAt, md,
				snap.SourceFormat.String(), snap.RawDigest, snap.ContentDigest, problems, snap.RevertedFrom)
			if err != nil {
				return storeError("commit", err)
			}
		}
		return nil
	})
}

// Delete removes identifier and, by cascade, its snapshots.
func (s *Store) Delete(ctx context.Context, identifier string, rev int64) error {
	pool, err := s.conn()
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		stored, err := lockRevision(ctx, tx, identifier)
		if err != nil {
			return storeError("delete", err)
		}
		if stored == 0 {
			return fmt.Errorf("identifier %s: %w", identifier, types.ErrNotFound)
		}
		if stored != rev {
			return fmt.Errorf("identifier %s at revision %d, expected %d: %w", identifier, stored, rev, types.ErrConflict)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM identifiers WHERE identifier = $1`, identifier); err != nil {
			return storeError("delete", err)
		}
		return nil
	})
}

func validateCommit(c types.Commit) error {
	r := c.Record
	if r.Identifier == "" {
		return fmt.Errorf("commit without identifier: %w", types.ErrInvalidIdentifier)
	}
	if r.Revision != c.Expected+1 {
		return fmt.Errorf("commit revision %d does not follow %d", r.Revision, c.Expected)
	}
	if snap := c.Snapshot; snap != nil && (snap.Identifier != r.Identifier || snap.VersionID != r.CurrentVersionID) {
		return fmt.Errorf("commit %s with version %s of %s: %w", r.Identifier, snap.VersionID, snap.Identifier, types.ErrSnapshotMismatch)
	}
	return nil
}

// lockRevision returns the stored revision of identifier, or 0 if absent,
// and holds a row lock until the transaction ends.
func lockRevision(ctx context.Context, tx pgx.Tx, identifier string) (int64, error) {
	var rev int64
	err := tx.QueryRow(ctx, `SELECT revision FROM identifiers WHERE identifier = $1 FOR UPDATE`, identifier).Scan(&rev)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return rev, err
}

func scanSnapshot(row pgx.Row) (*types.Snapshot, error) {
	var (
		snap         types.Snapshot
		format       string
		md, problems []byte
	)
	if err := row.Scan(&snap.VersionID, &snap.Identifier, &snap.Sequence, &snap.CreatedAt, &md, &format,
		&snap.RawDigest, &snap.ContentDigest, &problems, &snap.RevertedFrom); err != nil {
		return nil, err
	}
	snap.CreatedAt = snap.CreatedAt.UTC()
	snap.SourceFormat, _ = types.ParseFormatKind(format)
	if err := json.Unmarshal(md, &snap.Metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata of %s: %w", snap.VersionID, err)
	}
	if len(problems) > 0 {
		if err := json.Unmarshal(problems, &snap.Problems); err != nil {
			return nil, fmt.Errorf("decoding problems of %s: %w", snap.VersionID, err)
		}
	}
	return &snap, nil
}

// PostgreSQL error codes the store maps.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// storeError maps constraint races to ErrConflict and wraps everything
// else as a retryable StoreError, except cancellation.
func storeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%s: %s: %w", op, pgErr.Message, types.ErrConflict)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &types.StoreError{Op: op, Err: err}
}
