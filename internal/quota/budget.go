package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrBudgetWait means the wait for the next quota window would exceed the
// configured maximum.
var ErrBudgetWait = errors.New("quota window wait exceeds configured maximum")

// Budget tracks remaining Gmail quota units within a fixed replenish window.
// A single Budget is shared by every provider call in a run; it is safe for
// concurrent use if runs are ever parallelized.
type Budget struct {
	// MaxWait caps how long Reserve may block for the window to reset.
	// Zero means wait as long as it takes.
	MaxWait time.Duration

	// Clock and Sleep exist so tests can drive time.
	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	units    int
	capacity int
	resetAt  time.Time
	period   time.Duration
}

// NewBudget returns a budget holding capacity units per period, starting full.
func NewBudget(capacity int, period time.Duration) *Budget {
	if capacity <= 0 {
		capacity = 1
	}
	if period <= 0 {
		period = time.Minute
	}
	return &Budget{
		units:    capacity,
		capacity: capacity,
		period:   period,
	}
}

// Reserve debits cost units, waiting for the window to reset when the
// remaining budget cannot cover the call. Issuing a call predestined to be
// rejected is never cheaper than waiting.
func (b *Budget) Reserve(ctx context.Context, cost int) error {
	if cost <= 0 {
		return nil
	}
	b.mu.Lock()
	capacity := b.capacity
	b.mu.Unlock()
	if cost > capacity {
		return fmt.Errorf("cost %d exceeds window capacity %d", cost, capacity)
	}
	for {
		b.mu.Lock()
		now := b.now()
		if b.resetAt.IsZero() || !now.Before(b.resetAt) {
			b.units = b.capacity
			b.resetAt = now.Add(b.period)
		}
		if cost <= b.units {
			b.units -= cost
			b.mu.Unlock()
			return nil
		}
		wait := b.resetAt.Sub(now)
		b.mu.Unlock()

		if b.MaxWait > 0 && wait > b.MaxWait {
			return fmt.Errorf("reserve %d units (reset in %s): %w", cost, wait, ErrBudgetWait)
		}
		if err := b.sleep(ctx, wait); err != nil {
			return fmt.Errorf("quota wait canceled: %w", err)
		}
	}
}

// Remaining reports the current units and when the window resets.
func (b *Budget) Remaining() (int, time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.units, b.resetAt
}

func (b *Budget) now() time.Time {
	if b.Clock != nil {
		return b.Clock()
	}
	return time.Now()
}

func (b *Budget) sleep(ctx context.Context, d time.Duration) error {
	if b.Sleep != nil {
		return b.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
