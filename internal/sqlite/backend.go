// Package sqlite implements types.Store with SQLite as the query engine and
// JSONL files in DataDir as the source of truth. The database file is
// rebuilt from the JSONL files on every Attach.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

const dbFile = "doireg.db"

// Backend is the SQLite store.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dataDir  string
	db       *sql.DB

	syncStrategy string
	// dirty is set when on_close has writes not yet in the JSONL files.
	dirty bool
}

// NewBackend returns a detached backend; call Attach before use.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach creates DataDir if needed, builds a fresh database and loads the
// JSONL files into it.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	_ = os.Remove(dbPath)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps commits serialized inside the process.
	db.SetMaxOpenConns(1)

	for _, ddl := range append(append([]string(nil), schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.dataDir = dataDir
	b.syncStrategy = config.EffectiveSyncStrategy()
	b.dirty = false
	b.attached = true
	return nil
}

// Detach writes pending changes for on_close and closes the database.
// Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.dirty {
		if err := b.persistAllLocked(context.Background()); err != nil {
			return fmt.Errorf("flush pending writes: %w", err)
		}
		b.dirty = false
	}
	if err := b.db.Close(); err != nil {
		return err
	}
	b.db = nil
	b.attached = false
	return nil
}

// Record returns the record of identifier.
func (b *Backend) Record(ctx context.Context, identifier string) (*types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	row := b.db.QueryRowContext(ctx, `SELECT identifier, state, url, suppression_reason, current_version_id,
        flagged, revision, created_at, updated_at FROM identifiers WHERE identifier = ?`, identifier)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("identifier %s: %w", identifier, types.ErrNotFound)
	}
	if err != nil {
		return nil, &types.StoreError{Op: "record", Err: err}
	}
	return rec, nil
}

// Snapshot returns version versionID of identifier.
func (b *Backend) Snapshot(ctx context.Context, identifier, versionID string) (*types.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	row := b.db.QueryRowContext(ctx, selectSnapshot+` WHERE identifier = ? AND version_id = ?`, identifier, versionID)
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("version %s of %s: %w", versionID, identifier, types.ErrNotFound)
	}
	if err != nil {
		return nil, &types.StoreError{Op: "snapshot", Err: err}
	}
	return s, nil
}

// Snapshots returns the history of identifier, oldest first.
func (b *Backend) Snapshots(ctx context.Context, identifier string) ([]*types.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := b.db.QueryContext(ctx, selectSnapshot+` WHERE identifier = ? ORDER BY sequence`, identifier)
	if err != nil {
		return nil, &types.StoreError{Op: "snapshots", Err: err}
	}
	defer rows.Close()

	var out []*types.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, &types.StoreError{Op: "snapshots", Err: err}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StoreError{Op: "snapshots", Err: err}
	}
	return out, nil
}

// Commit writes the record and the optional snapshot in one transaction
// after checking the stored revision.
func (b *Backend) Commit(ctx context.Context, c types.Commit) error {
	if err := validateCommit(c); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return &types.StoreError{Op: "commit", Err: err}
	}
	defer tx.Rollback()

	stored, err := revision(ctx, tx, c.Record.Identifier)
	if err != nil {
		return &types.StoreError{Op: "commit", Err: err}
	}
	if stored != c.Expected {
		return fmt.Errorf("identifier %s at revision %d, expected %d: %w",
			c.Record.Identifier, stored, c.Expected, types.ErrConflict)
	}

	r := c.Record
	if c.Expected == 0 {
		_, err = tx.ExecContext(ctx, `INSERT INTO identifiers (identifier, state, url, suppression_reason,
            current_version_id, flagged, revision, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Identifier, string(r.State), r.URL, r.SuppressionReason, r.CurrentVersionID,
			boolInt(r.Flagged), r.Revision, formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE identifiers SET state = ?, url = ?, suppression_reason = ?,
            current_version_id = ?, flagged = ?, revision = ?, updated_at = ? WHERE identifier = ?`,
			string(r.State), r.URL, r.SuppressionReason, r.CurrentVersionID,
			boolInt(r.Flagged), r.Revision, formatTime(r.UpdatedAt), r.Identifier)
	}
	if err != nil {
		return &types.StoreError{Op: "commit", Err: err}
	}

	var line json.RawMessage
	if s := c.Snapshot; s != nil {
		sj, err := dehydrateSnapshot(s)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO snapshots (version_id, identifier, sequence, created_at, metadata,
            source_format, raw_input_digest, content_digest, problems, reverted_from)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sj.VersionID, sj.Identifier, sj.Sequence, sj.CreatedAt, string(sj.Metadata),
			sj.SourceFormat, sj.RawDigest, sj.ContentDigest, nullJSON(sj.Problems), sj.RevertedFrom)
		if err != nil {
			return &types.StoreError{Op: "commit", Err: err}
		}
		if line, err = marshalLine(sj); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return &types.StoreError{Op: "commit", Err: err}
	}

	if b.syncStrategy == types.SyncOnClose {
		b.dirty = true
		return nil
	}
	if line != nil {
		if err := appendJSONL(filepath.Join(b.dataDir, snapshotsJSONL), line); err != nil {
			return fmt.Errorf("committed but not persisted to JSONL: %w", err)
		}
	}
	if err := b.persistIdentifiersLocked(ctx); err != nil {
		return fmt.Errorf("committed but not persisted to JSONL: %w", err)
	}
	return nil
}

// Delete removes identifier and its snapshots when the stored revision
// equals rev.
func (b *Backend) Delete(ctx context.Context, identifier string, rev int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return &types.StoreError{Op: "delete", Err: err}
	}
	defer tx.Rollback()

	stored, err := revision(ctx, tx, identifier)
	if err != nil {
		return &types.StoreError{Op: "delete", Err: err}
	}
	if stored == 0 {
		return fmt.Errorf("identifier %s: %w", identifier, types.ErrNotFound)
	}
	if stored != rev {
		return fmt.Errorf("identifier %s at revision %d, expected %d: %w", identifier, stored, rev, types.ErrConflict)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE identifier = ?`, identifier); err != nil {
		return &types.StoreError{Op: "delete", Err: err}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM identifiers WHERE identifier = ?`, identifier); err != nil {
		return &types.StoreError{Op: "delete", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &types.StoreError{Op: "delete", Err: err}
	}

	if b.syncStrategy == types.SyncOnClose {
		b.dirty = true
		return nil
	}
	if err := b.persistAllLocked(ctx); err != nil {
		return fmt.Errorf("committed but not persisted to JSONL: %w", err)
	}
	return nil
}

// validateCommit checks the shape of c before touching the database.
func validateCommit(c types.Commit) error {
	r := c.Record
	if r.Identifier == "" {
		return fmt.Errorf("commit without identifier: %w", types.ErrInvalidIdentifier)
	}
	if r.Revision != c.Expected+1 {
		return fmt.Errorf("commit revision %d does not follow %d", r.Revision, c.Expected)
	}
	if s := c.Snapshot; s != nil {
		if s.Identifier != r.Identifier || s.VersionID != r.CurrentVersionID {
			return fmt.Errorf("commit %s with version %s of %s: %w",
				r.Identifier, s.VersionID, s.Identifier, types.ErrSnapshotMismatch)
		}
	}
	return nil
}

// revision returns the stored revision of identifier, or 0 if absent.
func revision(ctx context.Context, tx *sql.Tx, identifier string) (int64, error) {
	var rev int64
	err := tx.QueryRowContext(ctx, `SELECT revision FROM identifiers WHERE identifier = ?`, identifier).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return rev, err
}

func (b *Backend) persistAllLocked(ctx context.Context) error {
	if err := b.persistIdentifiersLocked(ctx); err != nil {
		return err
	}
	return b.persistSnapshotsLocked(ctx)
}

func (b *Backend) persistIdentifiersLocked(ctx context.Context) error {
	rows, err := b.db.QueryContext(ctx, `SELECT identifier, state, url, suppression_reason, current_version_id,
        flagged, revision, created_at, updated_at FROM identifiers ORDER BY created_at, identifier`)
	if err != nil {
		return fmt.Errorf("reading identifiers for JSONL: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return fmt.Errorf("scanning identifier for JSONL: %w", err)
		}
		line, err := marshalLine(dehydrateRecord(rec))
		if err != nil {
			return err
		}
		records = append(records, line)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(b.dataDir, identifiersJSONL), records)
}

func (b *Backend) persistSnapshotsLocked(ctx context.Context) error {
	rows, err := b.db.QueryContext(ctx, selectSnapshot+` ORDER BY identifier, sequence`)
	if err != nil {
		return fmt.Errorf("reading snapshots for JSONL: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return fmt.Errorf("scanning snapshot for JSONL: %w", err)
		}
		sj, err := dehydrateSnapshot(s)
		if err != nil {
			return err
		}
		line, err := marshalLine(sj)
		if err != nil {
			return err
		}
		records = append(records, line)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(b.dataDir, snapshotsJSONL), records)
}

const selectSnapshot = `SELECT version_id, identifier, sequence, created_at, metadata, source_format,
    raw_input_digest, content_digest, problems, reverted_from FROM snapshots`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*types.Record, error) {
	var (
		r                    types.Record
		state                string
		url, reason, current sql.NullString
		flagged              int64
		createdAt, updatedAt string
	)
	if err := row.Scan(&r.Identifier, &state, &url, &reason, &current, &flagged, &r.Revision, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.State = types.State(state)
	r.URL = url.String
	r.SuppressionReason = reason.String
	r.CurrentVersionID = current.String
	r.Flagged = flagged != 0
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func scanSnapshot(row scanner) (*types.Snapshot, error) {
	var (
		s                                 types.Snapshot
		createdAt, metadata, format       string
		rawDigest, problems, revertedFrom sql.NullString
	)
	if err := row.Scan(&s.VersionID, &s.Identifier, &s.Sequence, &createdAt, &metadata, &format,
		&rawDigest, &s.ContentDigest, &problems, &revertedFrom); err != nil {
		return nil, err
	}
	s.CreatedAt = parseTime(createdAt)
	s.SourceFormat, _ = types.ParseFormatKind(format)
	s.RawDigest = rawDigest.String
	s.RevertedFrom = revertedFrom.String
	if err := json.Unmarshal([]byte(metadata), &s.Metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata of %s: %w", s.VersionID, err)
	}
	if problems.Valid && problems.String != "" {
		if err := json.Unmarshal([]byte(problems.String), &s.Problems); err != nil {
			return nil, fmt.Errorf("decoding problems of %s: %w", s.VersionID, err)
		}
	}
	return &s, nil
}

func dehydrateRecord(r *types.Record) recordJSON {
	return recordJSON{
		Identifier:        r.Identifier,
		State:             string(r.State),
		URL:               r.URL,
		SuppressionReason: r.SuppressionReason,
		CurrentVersionID:  r.CurrentVersionID,
		Flagged:           r.Flagged,
		Revision:          r.Revision,
		CreatedAt:         formatTime(r.CreatedAt),
		UpdatedAt:         formatTime(r.UpdatedAt),
	}
}

func dehydrateSnapshot(s *types.Snapshot) (snapshotJSON, error) {
	md, err := json.Marshal(s.Metadata)
	if err != nil {
		return snapshotJSON{}, fmt.Errorf("encoding metadata of %s: %w", s.VersionID, err)
	}
	sj := snapshotJSON{
		VersionID:     s.VersionID,
		Identifier:    s.Identifier,
		Sequence:      s.Sequence,
		CreatedAt:     formatTime(s.CreatedAt),
		Metadata:      md,
		SourceFormat:  s.SourceFormat.String(),
		RawDigest:     s.RawDigest,
		ContentDigest: s.ContentDigest,
		RevertedFrom:  s.RevertedFrom,
	}
	if len(s.Problems) > 0 {
		if sj.Problems, err = json.Marshal(s.Problems); err != nil {
			return snapshotJSON{}, fmt.Errorf("encoding problems of %s: %w", s.VersionID, err)
		}
	}
	return sj, nil
}

func nullJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
