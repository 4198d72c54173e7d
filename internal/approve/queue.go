package approve

import (
	"context"
	"fmt"
	"sync"

	"github.com/joshsymonds/replygate/internal/gmail"
)

// Queue is a resumable Operator: Review parks the preview keyed by message
// id until some front-end calls Submit with a decision. The pipeline
// suspends at its approval point instead of owning a prompt, so decisions
// can arrive from a console, a test, or any other driver.
type Queue struct {
	mu       sync.Mutex
	pending  map[gmail.MessageID]chan Decision
	announce chan Preview
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{
		pending:  make(map[gmail.MessageID]chan Decision),
		announce: make(chan Preview),
	}
}

// Review parks p until a decision is submitted for its message id.
func (q *Queue) Review(ctx context.Context, p Preview) (Decision, error) {
	done := make(chan Decision, 1)
	q.mu.Lock()
	q.pending[p.MessageID] = done
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		delete(q.pending, p.MessageID)
		q.mu.Unlock()
	}()

	select {
	case q.announce <- p:
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
	select {
	case d := <-done:
		return d, nil
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
}

// Next blocks until a preview is awaiting review.
func (q *Queue) Next(ctx context.Context) (Preview, error) {
	select {
	case p := <-q.announce:
		return p, nil
	case <-ctx.Done():
		return Preview{}, ctx.Err()
	}
}

// Submit resolves the parked review for id. The first decision wins;
// submitting for an unknown id is an error.
func (q *Queue) Submit(id gmail.MessageID, d Decision) error {
	q.mu.Lock()
	done, ok := q.pending[id]
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending review for message %s", id)
	}
	select {
	case done <- d:
	default:
	}
	return nil
}

var _ Operator = (*Queue)(nil)
