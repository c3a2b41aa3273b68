package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// jsonlTableMapping maps JSONL files to their tables and columns. JSON keys
// equal column names.
var jsonlTableMapping = []struct {
	file    string
	table   string
	columns []string
}{
	{identifiersJSONL, "identifiers", []string{
		"identifier", "state", "url", "suppression_reason", "current_version_id",
		"flagged", "revision", "created_at", "updated_at",
	}},
	{snapshotsJSONL, "snapshots", []string{
		"version_id", "identifier", "sequence", "created_at", "metadata", "source_format",
		"raw_input_digest", "content_digest", "problems", "reverted_from",
	}},
}

// loadAllJSONL reads every JSONL file in dataDir into its table in one
// transaction. Malformed lines, unknown keys and rows that violate a
// constraint are skipped.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range jsonlTableMapping {
		records, err := readJSONL(filepath.Join(dataDir, m.file))
		if err != nil {
			return fmt.Errorf("reading %s: %w", m.file, err)
		}
		if len(records) == 0 {
			continue
		}
		if err := insertRecords(tx, m.table, m.columns, records); err != nil {
			return fmt.Errorf("loading %s into %s: %w", m.file, m.table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// insertRecords inserts JSONL records into table. Object and array values
// are stored as JSON text.
func insertRecords(tx *sql.Tx, table string, columns []string, records []json.RawMessage) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), placeholders))
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}
		args := make([]any, len(columns))
		for i, col := range columns {
			switch v := obj[col].(type) {
			case map[string]any, []any:
				b, err := json.Marshal(v)
				if err != nil {
					continue
				}
				args[i] = string(b)
			case bool:
				if v {
					args[i] = 1
				} else {
					args[i] = 0
				}
			default:
				args[i] = v
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
	}
	return nil
}
