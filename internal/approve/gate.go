// Package approve holds a candidate reply until a human decides its fate.
package approve

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joshsymonds/replygate/internal/gmail"
	"github.com/joshsymonds/replygate/internal/scan"
)

// Outcome is the operator's decision for a presented reply.
type Outcome int

const (
	OutcomeApprove Outcome = iota
	OutcomeEdit
	OutcomeSaveDraft
	OutcomeDiscard
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApprove:
		return "approve"
	case OutcomeEdit:
		return "edit"
	case OutcomeSaveDraft:
		return "save-draft"
	case OutcomeDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// Decision is what the operator returned for one preview. EditedBody is
// only meaningful for OutcomeEdit.
type Decision struct {
	Outcome    Outcome
	EditedBody string
}

// Preview is the human-readable projection of a DraftReply awaiting review.
type Preview struct {
	MessageID gmail.MessageID
	Subject   string
	From      string
	To        string
	Body      string
	Findings  []scan.Mark
}

// Operator supplies decisions for presented previews. Implementations block
// until a decision exists or ctx is done.
type Operator interface {
	Review(ctx context.Context, p Preview) (Decision, error)
}

const defaultMaxEditPasses = 3

// Gate drives the per-message approval state machine: present, loop on
// edits with a fresh scan of each edited body, and terminate on approve,
// save-draft, or discard. Silence never approves: a timeout resolves to
// discard, and so does an exhausted edit budget.
type Gate struct {
	Operator Operator
	// Timeout bounds each wait for an operator decision. Zero waits
	// indefinitely.
	Timeout time.Duration
	// MaxEditPasses caps how many times a blocked body may be re-presented
	// before the gate fails closed.
	MaxEditPasses int
	Logger        *slog.Logger
}

// Decide runs the state machine for one preview and returns the terminal
// decision together with the body it applies to. The returned outcome is
// never OutcomeEdit. An approve decision is only honored when the current
// body scans clean of blocking findings; anything else re-presents.
func (g *Gate) Decide(ctx context.Context, p Preview) (Decision, string, error) {
	maxPasses := g.MaxEditPasses
	if maxPasses <= 0 {
		maxPasses = defaultMaxEditPasses
	}
	body := p.Body
	passes := 0
	for {
		marks := scan.Scan(body)
		current := p
		current.Body = body
		current.Findings = marks

		d, err := g.review(ctx, current)
		if err != nil {
			return Decision{}, body, err
		}

		switch d.Outcome {
		case OutcomeApprove:
			if scan.HasBlocking(marks) {
				// Never let a blocked body through, whatever the operator said.
				g.log(ctx, "approval refused, blocking findings present",
					"message_id", string(p.MessageID), "findings", len(scan.Blocking(marks)))
				passes++
				if passes >= maxPasses {
					return Decision{Outcome: OutcomeDiscard}, body, nil
				}
				continue
			}
			return d, body, nil
		case OutcomeEdit:
			passes++
			if passes >= maxPasses && scan.HasBlocking(scan.Scan(d.EditedBody)) {
				g.log(ctx, "edit budget exhausted, failing closed",
					"message_id", string(p.MessageID), "passes", passes)
				return Decision{Outcome: OutcomeDiscard}, body, nil
			}
			body = d.EditedBody
			continue
		case OutcomeSaveDraft, OutcomeDiscard:
			return d, body, nil
		default:
			return Decision{Outcome: OutcomeDiscard}, body, nil
		}
	}
}

// review presents one preview, translating a gate-imposed timeout into a
// discard decision. Cancellation of the parent context is still an error.
func (g *Gate) review(ctx context.Context, p Preview) (Decision, error) {
	rctx := ctx
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	d, err := g.Operator.Review(rctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return Decision{}, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			g.log(ctx, "approval timed out, discarding", "message_id", string(p.MessageID))
			return Decision{Outcome: OutcomeDiscard}, nil
		}
		return Decision{}, err
	}
	return d, nil
}

func (g *Gate) log(ctx context.Context, msg string, args ...any) {
	if g.Logger == nil {
		return
	}
	g.Logger.InfoContext(ctx, msg, args...)
}
