package postgres

// schemaDDL is applied on every Attach; each statement is idempotent.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS identifiers (
    identifier TEXT PRIMARY KEY,
    state TEXT NOT NULL,
    url TEXT NOT NULL DEFAULT '',
    suppression_reason TEXT NOT NULL DEFAULT '',
    current_version_id TEXT NOT NULL DEFAULT '',
    flagged BOOLEAN NOT NULL DEFAULT FALSE,
    revision BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
    version_id TEXT PRIMARY KEY,
    identifier TEXT NOT NULL REFERENCES identifiers(identifier) ON DELETE CASCADE,
    sequence INTEGER NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    metadata JSONB NOT NULL,
    source_format TEXT NOT NULL,
    raw_input_digest TEXT NOT NULL DEFAULT '',
    content_digest TEXT NOT NULL,
    problems JSONB,
    reverted_from TEXT NOT NULL DEFAULT '',
    UNIQUE (identifier, sequence)
)`,
	`CREATE INDEX IF NOT EXISTS idx_identifiers_state ON identifiers(state)`,
}
