package types

import "time"

// Snapshot is an immutable metadata version of an identifier. Snapshots
// are only ever appended; an undo appends a copy of an older snapshot.
type Snapshot struct {
	VersionID     string       `json:"version_id"`
	Identifier    string       `json:"identifier"`
	Sequence      int          `json:"sequence"`
	CreatedAt     time.Time    `json:"created_at"`
	Metadata      *Metadata    `json:"metadata"`
	SourceFormat  FormatKind   `json:"source_format"`
	RawDigest     string       `json:"raw_input_digest,omitempty"`
	ContentDigest string       `json:"content_digest"`
	Problems      []FieldError `json:"problems,omitempty"`
	RevertedFrom  string       `json:"reverted_from,omitempty"`
}

// Normalized is the outcome of parsing one payload: the canonical metadata,
// the format that produced it, the digest of the raw bytes, and any field
// problems found. Problems do not prevent a Draft from being stored.
type Normalized struct {
	Metadata  *Metadata    `json:"metadata"`
	Format    FormatKind   `json:"format"`
	RawDigest string       `json:"raw_input_digest"`
	Problems  []FieldError `json:"problems,omitempty"`
}

// Valid reports whether no field problems were found.
func (n *Normalized) Valid() bool {
	return n != nil && len(n.Problems) == 0
}
