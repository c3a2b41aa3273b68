package sqlite

// Schema DDL. The database is rebuilt from the JSONL files on every Attach,
// so there are no migrations.
const (
	createIdentifiers = `CREATE TABLE identifiers (
    identifier TEXT PRIMARY KEY,
    state TEXT NOT NULL,
    url TEXT,
    suppression_reason TEXT,
    current_version_id TEXT,
    flagged INTEGER NOT NULL DEFAULT 0,
    revision INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createSnapshots = `CREATE TABLE snapshots (
    version_id TEXT PRIMARY KEY,
    identifier TEXT NOT NULL,
    sequence INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    metadata TEXT NOT NULL,
    source_format TEXT NOT NULL,
    raw_input_digest TEXT,
    content_digest TEXT NOT NULL,
    problems TEXT,
    reverted_from TEXT,
    UNIQUE (identifier, sequence)
);`
)

const (
	idxIdentifiersState  = `CREATE INDEX idx_identifiers_state ON identifiers(state);`
	idxSnapshotsIdentity = `CREATE INDEX idx_snapshots_identifier ON snapshots(identifier, sequence);`
)

var schemaDDL = []string{
	createIdentifiers,
	createSnapshots,
}

var indexDDL = []string{
	idxIdentifiersState,
	idxSnapshotsIdentity,
}
