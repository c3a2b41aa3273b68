package types

import "time"

// State is the lifecycle state of an identifier record.
type State string

// Lifecycle states. A record starts in Draft.
const (
	StateDraft      State = "draft"
	StateRegistered State = "registered"
	StateFindable   State = "findable"
)

// validStates is the set of recognized state values.
var validStates = map[State]bool{
	StateDraft:      true,
	StateRegistered: true,
	StateFindable:   true,
}

// Valid reports whether s is a recognized state.
func (s State) Valid() bool {
	return validStates[s]
}

// Event is a lifecycle event requested by a caller.
type Event string

// Lifecycle events.
const (
	EventRegister Event = "register"
	EventPublish  Event = "publish"
	EventHide     Event = "hide"
	EventUpdate   Event = "update"
	EventDelete   Event = "delete"
)

// ParseEvent resolves an event name. It returns ErrInvalidEvent for
// anything outside the closed set.
func ParseEvent(s string) (Event, error) {
	switch e := Event(s); e {
	case EventRegister, EventPublish, EventHide, EventUpdate, EventDelete:
		return e, nil
	}
	return "", ErrInvalidEvent
}

// Record is the mutable head of an identifier: its lifecycle state and a
// pointer to the active snapshot. Records change only through a committed
// transition.
type Record struct {
	Identifier        string    `json:"identifier"`
	State             State     `json:"state"`
	URL               string    `json:"url,omitempty"`
	SuppressionReason string    `json:"suppression_reason,omitempty"`
	CurrentVersionID  string    `json:"current_version_id,omitempty"`
	Flagged           bool      `json:"flagged,omitempty"`
	Revision          int64     `json:"revision"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsResolvable is true only while the record is Findable.
func (r *Record) IsResolvable() bool {
	return r != nil && r.State == StateFindable
}
