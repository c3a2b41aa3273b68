// Package lifecycle evaluates lifecycle events against an identifier
// record. Evaluation is pure: it reads the record and the metadata that
// would become current, and returns either the outcome to commit or the
// reason the event is refused.
package lifecycle

import (
	"fmt"

	"github.com/mesh-intelligence/doireg/internal/codec/check"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

// Strictness is the level of validation metadata must pass.
type Strictness int

// Validation levels, from most to least tolerant.
const (
	// BestEffort stores metadata even with field problems and flags it.
	BestEffort Strictness = iota
	// FieldChecked rejects metadata with field problems.
	FieldChecked
	// Full additionally requires every property needed for citation.
	Full
)

func (s Strictness) String() string {
	switch s {
	case FieldChecked:
		return "field"
	case Full:
		return "full"
	}
	return "best-effort"
}

// Edge is one allowed event from a state.
type Edge struct {
	Event types.Event
	To    types.State
	// NeedsURL requires a resolvable target URL after the event.
	NeedsURL bool
	// Strictness applies to the metadata that is current after the event.
	Strictness Strictness
	// Remove deletes the record instead of moving it.
	Remove bool
	// NoMetadata refuses metadata submitted with the event.
	NoMetadata bool
}

var transitions = map[types.State][]Edge{
	types.StateDraft: {
		{Event: types.EventRegister, To: types.StateRegistered, NeedsURL: true, Strictness: FieldChecked},
		{Event: types.EventPublish, To: types.StateFindable, NeedsURL: true, Strictness: Full},
		{Event: types.EventUpdate, To: types.StateDraft, Strictness: BestEffort},
		{Event: types.EventDelete, Remove: true},
	},
	types.StateRegistered: {
		{Event: types.EventPublish, To: types.StateFindable, NeedsURL: true, Strictness: Full},
		{Event: types.EventUpdate, To: types.StateRegistered, Strictness: FieldChecked},
	},
	types.StateFindable: {
		{Event: types.EventHide, To: types.StateRegistered, NoMetadata: true},
		{Event: types.EventUpdate, To: types.StateFindable, Strictness: Full},
	},
}

// Edges returns the events allowed from state.
func Edges(from types.State) []Edge {
	return append([]Edge(nil), transitions[from]...)
}

// Lookup returns the edge for event from state.
func Lookup(from types.State, event types.Event) (Edge, bool) {
	for _, e := range transitions[from] {
		if e.Event == event {
			return e, true
		}
	}
	return Edge{}, false
}

// StrictnessOf is the validation level metadata updates get in state.
func StrictnessOf(state types.State) Strictness {
	e, _ := Lookup(state, types.EventUpdate)
	return e.Strictness
}

// Input is everything an event is evaluated against.
type Input struct {
	// Record is the current record, or nil if the identifier is new.
	Record *types.Record
	Event  types.Event
	// URL replaces the record's target URL when non-empty.
	URL    string
	Reason string
	// Metadata is the metadata that will be current after the event: the
	// submitted metadata, or the current snapshot's when none was
	// submitted. Problems are its known field problems.
	Metadata *types.Metadata
	Problems []types.FieldError
	// Submitted is set when Metadata came with the event.
	Submitted bool
}

// Outcome is the record change an accepted event produces.
type Outcome struct {
	From              types.State
	To                types.State
	Created           bool
	Remove            bool
	URL               string
	SuppressionReason string
	// Flagged is set when metadata with problems was stored best-effort.
	Flagged  bool
	Problems []types.FieldError
}

// Evaluate applies the transition table and its guards. It returns
// ErrNotFound for hide or delete on a new identifier, ErrMethodNotAllowed
// for delete outside Draft, a *TransitionError when the table or the URL
// guard refuses the event, and a *ValidationError when the metadata does
// not meet the edge's strictness.
func Evaluate(in Input) (Outcome, error) {
	if _, err := types.ParseEvent(string(in.Event)); err != nil {
		return Outcome{}, fmt.Errorf("%w: %q", err, in.Event)
	}

	out := Outcome{From: types.StateDraft}
	identifier := ""
	if in.Record == nil {
		if in.Event == types.EventHide || in.Event == types.EventDelete {
			return Outcome{}, types.ErrNotFound
		}
		out.Created = true
	} else {
		out.From = in.Record.State
		out.URL = in.Record.URL
		out.SuppressionReason = in.Record.SuppressionReason
		identifier = in.Record.Identifier
	}

	edge, ok := Lookup(out.From, in.Event)
	if !ok {
		if in.Event == types.EventDelete {
			return Outcome{}, fmt.Errorf("%w: delete is only possible in %s, record is %s",
				types.ErrMethodNotAllowed, types.StateDraft, out.From)
		}
		return Outcome{}, &types.TransitionError{Event: in.Event, From: out.From, Reason: "not allowed from this state"}
	}
	if edge.Remove {
		out.Remove = true
		return out, nil
	}
	out.To = edge.To
	if edge.NoMetadata && in.Submitted {
		return Outcome{}, &types.TransitionError{Event: in.Event, From: out.From, Reason: "metadata cannot be changed by this event"}
	}

	if in.URL != "" {
		if !check.URL(in.URL) {
			return Outcome{}, &types.TransitionError{Event: in.Event, From: out.From,
				Reason: fmt.Sprintf("target URL %q is not resolvable", in.URL)}
		}
		out.URL = in.URL
	}
	if edge.NeedsURL && out.URL == "" {
		return Outcome{}, &types.TransitionError{Event: in.Event, From: out.From, Reason: "a resolvable target URL is required"}
	}

	problems := in.Problems
	if edge.Strictness == Full {
		problems = append(append([]types.FieldError(nil), problems...), check.Complete(in.Metadata)...)
	}
	if edge.Strictness > BestEffort && len(problems) > 0 {
		return Outcome{}, types.NewValidationError(identifier, problems)
	}
	out.Flagged = len(problems) > 0
	out.Problems = problems

	switch in.Event {
	case types.EventHide:
		out.SuppressionReason = in.Reason
	case types.EventPublish:
		out.SuppressionReason = ""
	}
	return out, nil
}
