package sqlite

import (
	"encoding/json"
	"fmt"
)

// JSONL file names in DataDir.
const (
	identifiersJSONL = "identifiers.jsonl"
	snapshotsJSONL   = "snapshots.jsonl"
)

// recordJSON is one line of identifiers.jsonl. Keys match the column names
// of the identifiers table.
type recordJSON struct {
	Identifier        string `json:"identifier"`
	State             string `json:"state"`
	URL               string `json:"url,omitempty"`
	SuppressionReason string `json:"suppression_reason,omitempty"`
	CurrentVersionID  string `json:"current_version_id,omitempty"`
	Flagged           bool   `json:"flagged"`
	Revision          int64  `json:"revision"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// snapshotJSON is one line of snapshots.jsonl. Metadata and problems are
// embedded as JSON values, not strings.
type snapshotJSON struct {
	VersionID     string          `json:"version_id"`
	Identifier    string          `json:"identifier"`
	Sequence      int             `json:"sequence"`
	CreatedAt     string          `json:"created_at"`
	Metadata      json.RawMessage `json:"metadata"`
	SourceFormat  string          `json:"source_format"`
	RawDigest     string          `json:"raw_input_digest,omitempty"`
	ContentDigest string          `json:"content_digest"`
	Problems      json.RawMessage `json:"problems,omitempty"`
	RevertedFrom  string          `json:"reverted_from,omitempty"`
}

func marshalLine(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding JSONL record: %w", err)
	}
	return b, nil
}
