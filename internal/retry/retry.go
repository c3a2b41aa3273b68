// Package retry re-runs store operations that lost a concurrency race or
// hit a transient backend failure, waiting an exponentially growing,
// jittered delay between attempts.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

// Backoff computes delays between attempts.
type Backoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	// maxAttempts counts retries after the first attempt.
	maxAttempts int
	// jitter of 0.1 means +/- 10%.
	jitter     float64
	jitterFunc func() float64
}

// Option configures a Backoff.
type Option func(*Backoff)

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(b *Backoff) { b.initialDelay = d }
}

// WithMaxDelay caps the delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(b *Backoff) { b.maxDelay = d }
}

// WithJitter sets the jitter factor in [0, 1].
func WithJitter(j float64) Option {
	return func(b *Backoff) { b.jitter = j }
}

// WithJitterFunc replaces the random source used for jitter.
func WithJitterFunc(f func() float64) Option {
	return func(b *Backoff) { b.jitterFunc = f }
}

// NewBackoff returns a Backoff allowing maxAttempts retries.
func NewBackoff(maxAttempts int, opts ...Option) *Backoff {
	b := &Backoff{
		initialDelay: 5 * time.Millisecond,
		maxDelay:     500 * time.Millisecond,
		multiplier:   2.0,
		maxAttempts:  maxAttempts,
		jitter:       0.2,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NextDelay returns the delay before retry number attempt (zero based).
func (b *Backoff) NextDelay(attempt int) time.Duration {
	delay := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt))
	if delay > float64(b.maxDelay) {
		delay = float64(b.maxDelay)
	}
	if b.jitter > 0 {
		f := b.jitterFunc
		if f == nil {
			f = rand.Float64
		}
		delay *= 1.0 + b.jitter*(f()-0.5)*2.0
	}
	return time.Duration(delay)
}

// MaxAttempts is the number of retries allowed after the first attempt.
func (b *Backoff) MaxAttempts() int {
	return b.maxAttempts
}

// Do runs op until it succeeds, fails with an error that is not retryable,
// the retries are exhausted or ctx is done. onRetry, when non-nil, is
// called before each wait.
func Do(ctx context.Context, b *Backoff, op func(ctx context.Context) error, onRetry func(attempt int, err error, delay time.Duration)) error {
	err := op(ctx)
	for attempt := 0; err != nil && types.IsRetryable(err) && attempt < b.maxAttempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		delay := b.NextDelay(attempt)
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		err = op(ctx)
	}
	return err
}
