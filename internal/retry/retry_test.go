package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

func fixed() float64 { return 0.5 }

func TestNextDelay(t *testing.T) {
	b := NewBackoff(5, WithInitialDelay(10*time.Millisecond), WithMaxDelay(50*time.Millisecond), WithJitterFunc(fixed))
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 10 * time.Millisecond},
		{1, 20 * time.Millisecond},
		{2, 40 * time.Millisecond},
		{3, 50 * time.Millisecond},
		{10, 50 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.want, b.NextDelay(tt.attempt))
		})
	}
}

func TestNextDelay_JitterBounds(t *testing.T) {
	b := NewBackoff(1, WithInitialDelay(100*time.Millisecond), WithJitter(0.1))
	for i := 0; i < 100; i++ {
		d := b.NextDelay(0)
		assert.GreaterOrEqual(t, d, 90*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
	}
}

func TestDo(t *testing.T) {
	fatal := errors.New("fatal")
	tests := []struct {
		name      string
		failures  []error
		max       int
		wantErr   error
		wantCalls int
	}{
		{"first try", nil, 3, nil, 1},
		{"conflict then success", []error{types.ErrConflict}, 3, nil, 2},
		{"store error then success", []error{&types.StoreError{Op: "commit", Err: errors.New("busy")}}, 3, nil, 2},
		{"business error not retried", []error{types.ErrValidation}, 3, types.ErrValidation, 1},
		{"other error not retried", []error{fatal}, 3, fatal, 1},
		{"exhausted", []error{types.ErrConflict, types.ErrConflict, types.ErrConflict}, 2, types.ErrConflict, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			retries := 0
			err := Do(context.Background(), NewBackoff(tt.max, WithInitialDelay(time.Microsecond)), func(context.Context) error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			}, func(int, error, time.Duration) { retries++ })
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, calls-1, retries)
		})
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, NewBackoff(3), func(context.Context) error { return types.ErrConflict }, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
