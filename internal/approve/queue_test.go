package approve

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueueReviewResumesOnSubmit(t *testing.T) {
	q := NewQueue()
	type reviewResult struct {
		d   Decision
		err error
	}
	got := make(chan reviewResult, 1)
	go func() {
		d, err := q.Review(context.Background(), Preview{MessageID: "m1", Body: "hello"})
		got <- reviewResult{d, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p, err := q.Next(ctx)
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if p.MessageID != "m1" {
		t.Fatalf("preview id = %q, want m1", p.MessageID)
	}
	if err := q.Submit("m1", Decision{Outcome: OutcomeSaveDraft}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	select {
	case r := <-got:
		if r.err != nil {
			t.Fatalf("review failed: %v", r.err)
		}
		if r.d.Outcome != OutcomeSaveDraft {
			t.Fatalf("outcome = %v, want save-draft", r.d.Outcome)
		}
	case <-time.After(time.Second):
		t.Fatalf("review did not resume after submit")
	}
}

func TestQueueSubmitUnknownID(t *testing.T) {
	q := NewQueue()
	if err := q.Submit("missing", Decision{Outcome: OutcomeDiscard}); err == nil {
		t.Fatalf("expected error for unknown id")
	}
}

func TestQueueReviewHonorsCancel(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Review(ctx, Preview{MessageID: "m1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestQueueNextHonorsCancel(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := q.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}
