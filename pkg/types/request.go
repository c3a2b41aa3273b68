package types

// TransitionRequest asks for one lifecycle event on an identifier.
type TransitionRequest struct {
	Identifier string `json:"identifier"`
	Event      Event  `json:"event"`
	// Metadata replaces the current metadata when non-nil. It is the
	// result of a validate call.
	Metadata *Normalized `json:"metadata,omitempty"`
	URL      string      `json:"url,omitempty"`
	// Reason is stored as the suppression reason by hide.
	Reason string `json:"reason,omitempty"`
}

// TransitionResult is the record state after an accepted event.
type TransitionResult struct {
	Identifier string `json:"identifier"`
	State      State  `json:"state,omitempty"`
	// SnapshotID is the current snapshot after the event. Empty when the
	// record has no metadata yet or was deleted.
	SnapshotID string `json:"snapshot_id,omitempty"`
	Created    bool   `json:"created,omitempty"`
	Deleted    bool   `json:"deleted,omitempty"`
	// Unchanged is set when the submitted metadata matched the current
	// snapshot and nothing was written.
	Unchanged bool `json:"unchanged,omitempty"`
	// Problems are field problems stored best-effort with a Draft.
	Problems []FieldError `json:"problems,omitempty"`
}
