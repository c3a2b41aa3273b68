// Package registry is the core service: it validates submitted metadata,
// applies lifecycle events, renders stored snapshots and reverts metadata
// to earlier versions. Every write for one identifier is a single atomic
// store commit.
package registry

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/doireg/internal/codec"
	"github.com/mesh-intelligence/doireg/internal/codec/check"
	"github.com/mesh-intelligence/doireg/internal/doi"
	"github.com/mesh-intelligence/doireg/internal/history"
	"github.com/mesh-intelligence/doireg/internal/lifecycle"
	"github.com/mesh-intelligence/doireg/internal/logging"
	"github.com/mesh-intelligence/doireg/internal/retry"
	"github.com/mesh-intelligence/doireg/internal/sniff"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

// Registry serves validate, transition, render and revert over a store.
type Registry struct {
	store    types.Store
	history  *history.Log
	logger   *logging.Logger
	locks    *keyedMutex
	backoff  *retry.Backoff
	citation types.CitationConfig
	workers  int
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithBackoff sets how commits that lost a race are retried.
func WithBackoff(b *retry.Backoff) Option {
	return func(r *Registry) { r.backoff = b }
}

// WithCitationDefaults sets the style and locale used when a render
// request names none.
func WithCitationDefaults(c types.CitationConfig) Option {
	return func(r *Registry) { r.citation = c }
}

// WithWorkers bounds ValidateBatch parallelism.
func WithWorkers(n int) Option {
	return func(r *Registry) { r.workers = n }
}

// New returns a Registry over an attached store.
func New(store types.Store, opts ...Option) *Registry {
	r := &Registry{
		store:   store,
		history: history.NewLog(store),
		logger:  logging.Nop(),
		locks:   newKeyedMutex(),
		backoff: retry.NewBackoff(5),
		workers: runtime.GOMAXPROCS(0),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Validate sniffs, parses and checks raw. contentType may be empty.
//
// The returned Normalized is non-nil whenever the payload could be read,
// even if it has field problems: a Draft may still store it. In that case
// the error is a *ValidationError listing the problems. An unreadable
// payload returns a nil Normalized and a *ValidationError. Unknown formats
// and retired schema generations return ErrFormatUnknown and
// *UnsupportedSchemaError.
func (r *Registry) Validate(ctx context.Context, contentType string, raw []byte) (*types.Normalized, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kind, err := sniff.Format(contentType, raw)
	if err != nil {
		return nil, err
	}
	md, problems, err := codec.Parse(kind, raw)
	if err != nil {
		return nil, err
	}
	if md == nil {
		return nil, types.NewValidationError("", problems)
	}
	n := &types.Normalized{
		Metadata:  md,
		Format:    kind,
		RawDigest: history.Digest(raw),
		Problems:  problems,
	}
	return n, types.NewValidationError(md.Identifier, problems)
}

// Payload is one ValidateBatch input.
type Payload struct {
	ContentType string
	Raw         []byte
}

// Validated is one ValidateBatch result, in input order.
type Validated struct {
	Normalized *types.Normalized
	Err        error
}

// ValidateBatch validates payloads in parallel. Per-payload failures are
// reported in the results; the returned error is only set when ctx ends
// first.
func (r *Registry) ValidateBatch(ctx context.Context, payloads []Payload) ([]Validated, error) {
	out := make([]Validated, len(payloads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.workers, 1))
	for i, p := range payloads {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := r.Validate(gctx, p.ContentType, p.Raw)
			out[i] = Validated{Normalized: n, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Transition applies one lifecycle event. Metadata in the request, if any,
// becomes the current snapshot in the same commit that moves the record.
// An update whose metadata matches the current snapshot byte for byte or
// content for content writes nothing.
func (r *Registry) Transition(ctx context.Context, req types.TransitionRequest) (*types.TransitionResult, error) {
	event, err := types.ParseEvent(string(req.Event))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, req.Event)
	}
	identifier := req.Identifier
	if identifier == "" && req.Metadata != nil && req.Metadata.Metadata != nil {
		identifier = req.Metadata.Metadata.Identifier
	}
	identifier = doi.Normalize(identifier)
	if err := doi.Validate(identifier); err != nil {
		return nil, err
	}
	if req.Metadata != nil && req.Metadata.Metadata == nil {
		return nil, types.NewValidationError(identifier, append(req.Metadata.Problems,
			types.FieldError{Code: types.CodeMalformed, Message: "No metadata to store."}))
	}

	unlock := r.locks.Lock(identifier)
	defer unlock()

	log := r.logger.With("identifier", identifier, "event", event)
	var res *types.TransitionResult
	err = retry.Do(ctx, r.backoff, func(ctx context.Context) error {
		var err error
		res, err = r.transition(ctx, identifier, event, req)
		return err
	}, func(attempt int, err error, delay time.Duration) {
		log.Debug("retrying transition", "attempt", attempt+1, "error", err, "delay", delay)
	})
	if err != nil {
		r.logFailure(log, err)
		return nil, err
	}
	return res, nil
}

func (r *Registry) transition(ctx context.Context, identifier string, event types.Event, req types.TransitionRequest) (*types.TransitionResult, error) {
	rec, err := r.record(ctx, identifier)
	if err != nil {
		return nil, err
	}
	head, err := r.history.Head(ctx, rec)
	if err != nil {
		return nil, err
	}

	in := lifecycle.Input{Record: rec, Event: event, URL: req.URL, Reason: req.Reason}
	var submitted *types.Normalized
	switch {
	case req.Metadata != nil:
		submitted = stamp(req.Metadata, identifier)
		in.Metadata, in.Problems, in.Submitted = submitted.Metadata, submitted.Problems, true
	case head != nil:
		in.Metadata, in.Problems = head.Metadata, head.Problems
	}

	out, err := lifecycle.Evaluate(in)
	if err != nil {
		return nil, err
	}
	log := r.logger.With("identifier", identifier, "event", event, "from", out.From)

	if out.Remove {
		if err := r.store.Delete(ctx, identifier, rec.Revision); err != nil {
			return nil, err
		}
		log.Info("identifier deleted")
		return &types.TransitionResult{Identifier: identifier, Deleted: true}, nil
	}

	var snap *types.Snapshot
	unchanged := false
	if submitted != nil {
		digest, err := history.ContentDigest(submitted.Metadata)
		if err != nil {
			return nil, err
		}
		if history.Unchanged(head, submitted, digest) {
			unchanged = true
		} else if snap, err = r.history.Append(identifier, head, submitted, out.Problems); err != nil {
			return nil, err
		}
	}

	next := types.Record{
		Identifier:        identifier,
		State:             out.To,
		URL:               out.URL,
		SuppressionReason: out.SuppressionReason,
		Flagged:           out.Flagged,
		UpdatedAt:         r.now(),
	}
	var expected int64
	if rec != nil {
		expected = rec.Revision
		next.CreatedAt = rec.CreatedAt
		next.CurrentVersionID = rec.CurrentVersionID
	} else {
		next.CreatedAt = next.UpdatedAt
	}
	if snap != nil {
		next.CurrentVersionID = snap.VersionID
	}
	next.Revision = expected + 1

	res := &types.TransitionResult{
		Identifier: identifier,
		State:      next.State,
		SnapshotID: next.CurrentVersionID,
		Created:    out.Created,
		Unchanged:  unchanged,
		Problems:   out.Problems,
	}
	if rec != nil && snap == nil && sameHead(rec, &next) {
		log.Debug("nothing to commit", "state", next.State)
		return res, nil
	}

	if err := r.store.Commit(ctx, types.Commit{Record: next, Expected: expected, Snapshot: snap}); err != nil {
		return nil, err
	}
	log.Info("transition committed", "to", next.State, "version", next.CurrentVersionID, "flagged", next.Flagged)
	return res, nil
}

// Get returns the record of identifier.
func (r *Registry) Get(ctx context.Context, identifier string) (*types.Record, error) {
	identifier = doi.Normalize(identifier)
	rec, err := r.record(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("identifier %s: %w", identifier, types.ErrNotFound)
	}
	return rec, nil
}

// Snapshot returns one snapshot of identifier; version is "current" or a
// version id.
func (r *Registry) Snapshot(ctx context.Context, identifier, version string) (*types.Snapshot, error) {
	rec, err := r.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return r.history.Version(ctx, rec, version)
}

// History lists every snapshot of identifier, oldest first.
func (r *Registry) History(ctx context.Context, identifier string) ([]*types.Snapshot, error) {
	rec, err := r.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return r.history.List(ctx, rec.Identifier)
}

// Render writes a snapshot of identifier in kind. Empty style and locale
// fall back to the configured citation defaults.
func (r *Registry) Render(ctx context.Context, identifier, version string, kind types.FormatKind, opts types.RenderOptions) ([]byte, error) {
	snap, err := r.Snapshot(ctx, identifier, version)
	if err != nil {
		return nil, err
	}
	if opts.Style == "" {
		opts.Style = r.citation.Style
	}
	if opts.Locale == "" {
		opts.Locale = r.citation.Locale
	}
	return codec.Render(kind, snap.Metadata, opts)
}

// Revert makes the metadata of versionID current again by appending a copy
// of it. The record's state does not change, but the copied metadata must
// meet that state's validation level. It returns the new version id.
func (r *Registry) Revert(ctx context.Context, identifier, versionID string) (string, error) {
	identifier = doi.Normalize(identifier)
	unlock := r.locks.Lock(identifier)
	defer unlock()

	log := r.logger.With("identifier", identifier, "event", "revert", "target", versionID)
	var newID string
	err := retry.Do(ctx, r.backoff, func(ctx context.Context) error {
		var err error
		newID, err = r.revert(ctx, identifier, versionID)
		return err
	}, func(attempt int, err error, delay time.Duration) {
		log.Debug("retrying revert", "attempt", attempt+1, "error", err, "delay", delay)
	})
	if err != nil {
		r.logFailure(log, err)
		return "", err
	}
	return newID, nil
}

func (r *Registry) revert(ctx context.Context, identifier, versionID string) (string, error) {
	rec, err := r.Get(ctx, identifier)
	if err != nil {
		return "", err
	}
	target, err := r.history.Version(ctx, rec, versionID)
	if err != nil {
		return "", err
	}
	head, err := r.history.Head(ctx, rec)
	if err != nil {
		return "", err
	}

	// An update without a new URL holds the copied metadata to the level of
	// the current state and never moves the record.
	out, err := lifecycle.Evaluate(lifecycle.Input{
		Record:   rec,
		Event:    types.EventUpdate,
		Metadata: target.Metadata,
		Problems: target.Problems,
	})
	if err != nil {
		return "", err
	}
	snap, err := r.history.Revert(identifier, head, target, out.Problems)
	if err != nil {
		return "", err
	}

	next := *rec
	next.CurrentVersionID = snap.VersionID
	next.Flagged = out.Flagged
	next.Revision = rec.Revision + 1
	next.UpdatedAt = r.now()
	if err := r.store.Commit(ctx, types.Commit{Record: next, Expected: rec.Revision, Snapshot: snap}); err != nil {
		return "", err
	}
	r.logger.Info("metadata reverted", "identifier", identifier, "from", target.VersionID, "version", snap.VersionID)
	return snap.VersionID, nil
}

// record returns the stored record or nil when identifier is unknown.
func (r *Registry) record(ctx context.Context, identifier string) (*types.Record, error) {
	rec, err := r.store.Record(ctx, identifier)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *Registry) logFailure(log *logging.Logger, err error) {
	switch {
	case types.IsRetryable(err), errors.Is(err, types.ErrStoreDetached):
		log.Error("store failure", "error", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Debug("cancelled", "error", err)
	default:
		log.Warn("refused", "error", err)
	}
}

// stamp returns n with its metadata carrying identifier. A different
// identifier inside the payload is recorded as a field problem.
func stamp(n *types.Normalized, identifier string) *types.Normalized {
	out := *n
	md := *n.Metadata
	out.Metadata = &md
	out.Problems = append([]types.FieldError(nil), n.Problems...)
	if fe := check.IdentifierMatches(&md, identifier); fe != nil {
		out.Problems = append(out.Problems, *fe)
	}
	md.Identifier = identifier
	return &out
}

func sameHead(a, b *types.Record) bool {
	return a.State == b.State &&
		a.URL == b.URL &&
		a.SuppressionReason == b.SuppressionReason &&
		a.CurrentVersionID == b.CurrentVersionID &&
		a.Flagged == b.Flagged
}
