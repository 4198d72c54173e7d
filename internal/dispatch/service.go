// Package dispatch orchestrates the triage and reply pipeline:
// fetch → filter → draft → scan → approve → send or save-as-draft.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joshsymonds/replygate/internal/approve"
	"github.com/joshsymonds/replygate/internal/compose"
	"github.com/joshsymonds/replygate/internal/draft"
	"github.com/joshsymonds/replygate/internal/filter"
	"github.com/joshsymonds/replygate/internal/gmail"
	"github.com/joshsymonds/replygate/internal/metrics"
	"github.com/joshsymonds/replygate/internal/quota"
	"github.com/joshsymonds/replygate/internal/retry"
	"github.com/joshsymonds/replygate/internal/scan"
)

const defaultRedactionPasses = 3

// Spec configures one pipeline run.
type Spec struct {
	// Query selects candidate messages; already-formed Gmail search syntax.
	Query string
	// PageSize bounds each list call (<=500).
	PageSize int
	// MaxMessages caps how many candidates are processed; 0 means all.
	MaxMessages int
	// RedactionPasses caps scan→redact→rescan loops before failing closed.
	RedactionPasses int
}

// Service is the top-level coordinator. Messages flow through it strictly
// one at a time: the approval gate needs serialized attention from a single
// operator, so no new pipeline starts until the current one is terminal.
type Service struct {
	Transport gmail.Transport
	Drafter   draft.Drafter
	Filter    *filter.Filter
	Gate      *approve.Gate
	Budget    *quota.Budget
	Retry     retry.Policy
	Logger    *slog.Logger
	Metrics   *metrics.Run // optional
	Clock     func() time.Time
}

// NewService constructs a Service with sane defaults.
func NewService(
	transport gmail.Transport,
	drafter draft.Drafter,
	gate *approve.Gate,
	budget *quota.Budget,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{
		Transport: transport,
		Drafter:   drafter,
		Filter:    filter.New(),
		Gate:      gate,
		Budget:    budget,
		Retry:     retry.Default(),
		Logger:    logger,
		Clock:     time.Now,
	}
}

// Run lists candidates once up front, then pipelines each message to a
// terminal state. Cancellation is honored between messages, never in the
// middle of a provider mutation: an issued send cannot be undone.
func (s *Service) Run(ctx context.Context, spec Spec) (Stats, []Result, error) {
	if spec.Query == "" {
		return Stats{}, nil, fmt.Errorf("query must not be empty")
	}
	ids, err := s.listCandidates(ctx, spec)
	if err != nil {
		return Stats{}, nil, err
	}
	if spec.MaxMessages > 0 && len(ids) > spec.MaxMessages {
		ids = ids[:spec.MaxMessages]
	}
	s.Logger.InfoContext(ctx, "run starting", "candidates", len(ids), "query", spec.Query)

	var (
		stats   Stats
		results []Result
	)
	for _, id := range ids {
		if ctx.Err() != nil {
			return stats, results, fmt.Errorf("run canceled: %w", ctx.Err())
		}
		res := s.process(ctx, id, spec)
		results = append(results, res)
		s.record(&stats, res)
	}
	s.Logger.InfoContext(ctx, "run finished",
		"fetched", stats.Fetched,
		"filtered_out", stats.FilteredOut,
		"drafted", stats.Drafted,
		"scan_blocked", stats.ScanBlocked,
		"sent", stats.Sent,
		"draft_saved", stats.DraftSaved,
		"discarded", stats.Discarded,
		"failed", stats.Failed,
	)
	return stats, results, nil
}

func (s *Service) listCandidates(ctx context.Context, spec Spec) ([]gmail.MessageID, error) {
	pageSize := spec.PageSize
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 100
	}
	q := gmail.Query{Raw: spec.Query}
	var (
		ids   []gmail.MessageID
		token string
	)
	for {
		if err := s.reserve(ctx, gmail.CostList); err != nil {
			return nil, fmt.Errorf("list candidates: %w", err)
		}
		page, err := s.Transport.List(ctx, q, token, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list candidates: %w", err)
		}
		ids = append(ids, page.IDs...)
		if page.NextPageToken == "" {
			return ids, nil
		}
		if spec.MaxMessages > 0 && len(ids) >= spec.MaxMessages {
			return ids, nil
		}
		token = page.NextPageToken
	}
}

// process walks one message through the state machine to a terminal state.
func (s *Service) process(ctx context.Context, id gmail.MessageID, spec Spec) Result {
	log := s.Logger.With("message_id", string(id))

	// FETCHED
	if err := s.reserve(ctx, gmail.CostGet); err != nil {
		return Result{MessageID: id, Outcome: OutcomeFailed, Err: fmt.Errorf("fetch: %w", err)}
	}
	msg, err := s.Transport.Get(ctx, id)
	if err != nil {
		log.ErrorContext(ctx, "fetch failed", "error", err, "kind", retry.Classify(err).String())
		return Result{MessageID: id, Outcome: OutcomeFailed, Err: fmt.Errorf("fetch: %w", err)}
	}
	res := s.processFetched(ctx, log, msg, spec)
	res.Fetched = true
	return res
}

// processFetched drives a fetched message through the remaining states.
func (s *Service) processFetched(ctx context.Context, log *slog.Logger, msg gmail.Message, spec Spec) Result {
	id := msg.ID

	// FILTERED: a rejected message ends the run here, recorded but dropped.
	verdict := s.Filter.Evaluate(msg)
	if !verdict.Process {
		log.InfoContext(ctx, "message filtered out", "state", StateFiltered.String(), "reason", verdict.Reason.String())
		return Result{MessageID: id, Outcome: OutcomeSkipped, FilterReason: verdict.Reason}
	}

	// DRAFTED
	body, err := s.Drafter.Draft(ctx, msg)
	if err != nil {
		log.ErrorContext(ctx, "drafting failed", "error", err)
		return Result{MessageID: id, Outcome: OutcomeFailed, Err: fmt.Errorf("draft: %w", err)}
	}
	reply := compose.Reply(msg, body)
	log.InfoContext(ctx, "reply drafted", "state", StateDrafted.String(), "subject", reply.Subject)

	// SCANNED: redact in place until clean or the pass budget runs out.
	marks, blocked, clean := s.redactLoop(ctx, log, &reply, spec)
	if !clean {
		return Result{
			MessageID:   id,
			Outcome:     OutcomeFailed,
			ScanBlocked: blocked,
			Err:         fmt.Errorf("scan: blocking findings survived %d redaction passes", s.redactionPasses(spec)),
		}
	}

	// AWAITING_APPROVAL
	preview := approve.Preview{
		MessageID: msg.ID,
		Subject:   reply.Subject,
		From:      msg.To,
		To:        reply.To,
		Body:      reply.Body,
		Findings:  marks,
	}
	log.InfoContext(ctx, "awaiting approval", "state", StateAwaitingApproval.String())
	decision, finalBody, err := s.Gate.Decide(ctx, preview)
	if err != nil {
		return Result{MessageID: id, Outcome: OutcomeFailed, ScanBlocked: blocked, Err: fmt.Errorf("approval: %w", err)}
	}
	reply.Body = finalBody

	switch decision.Outcome {
	case approve.OutcomeDiscard:
		log.InfoContext(ctx, "reply discarded", "state", StateDone.String())
		return Result{MessageID: id, Outcome: OutcomeDiscarded, ScanBlocked: blocked}
	case approve.OutcomeApprove:
		return s.sendWithFallback(ctx, log, id, reply, blocked)
	case approve.OutcomeSaveDraft:
		return s.saveDraft(ctx, log, id, reply, 0, blocked)
	default:
		// The gate never returns Edit; treat anything unexpected as discard.
		return Result{MessageID: id, Outcome: OutcomeDiscarded, ScanBlocked: blocked}
	}
}

// redactLoop scans the reply body, stripping blocking findings until the
// text comes back clean. It reports the advisory marks that remain, whether
// any pass blocked, and whether the body ended clean.
func (s *Service) redactLoop(ctx context.Context, log *slog.Logger, reply *gmail.DraftReply, spec Spec) ([]scan.Mark, bool, bool) {
	maxPasses := s.redactionPasses(spec)
	blocked := false
	marks := scan.Scan(reply.Body)
	for pass := 0; scan.HasBlocking(marks); pass++ {
		blocked = true
		if pass >= maxPasses {
			log.ErrorContext(ctx, "redaction passes exhausted, failing closed",
				"state", StateScanned.String(), "passes", pass, "findings", len(scan.Blocking(marks)))
			return marks, blocked, false
		}
		log.InfoContext(ctx, "blocking findings redacted",
			"state", StateScanned.String(), "pass", pass, "findings", len(scan.Blocking(marks)))
		reply.Body = scan.Redact(reply.Body, marks)
		marks = scan.Scan(reply.Body)
	}
	return marks, blocked, true
}

// sendWithFallback sends the approved reply through the retry policy. A
// send that still fails after retries is downgraded to a provider-side
// draft: a human-approved reply is never lost. Auth failures are the one
// exception; they surface for re-authentication.
func (s *Service) sendWithFallback(ctx context.Context, log *slog.Logger, id gmail.MessageID, reply gmail.DraftReply, blocked bool) Result {
	log.InfoContext(ctx, "sending reply", "state", StateSending.String())
	attempts, err := s.Retry.Do(ctx, func() error {
		if reserveErr := s.reserve(ctx, gmail.CostSend); reserveErr != nil {
			return reserveErr
		}
		_, sendErr := s.Transport.Send(ctx, reply)
		return sendErr
	})
	if err == nil {
		log.InfoContext(ctx, "reply sent", "state", StateDone.String(), "attempts", attempts)
		return Result{MessageID: id, Outcome: OutcomeSent, Attempts: attempts, ScanBlocked: blocked}
	}
	if retry.Classify(err) == retry.KindAuth {
		log.ErrorContext(ctx, "send failed, credential rejected", "error", err)
		return Result{MessageID: id, Outcome: OutcomeFailed, Attempts: attempts, ScanBlocked: blocked, Err: fmt.Errorf("send: %w", err)}
	}
	log.WarnContext(ctx, "send failed, falling back to draft", "error", err, "attempts", attempts)
	return s.saveDraft(ctx, log, id, reply, attempts, blocked)
}

// saveDraft persists the reply as a draft. Failure here is terminal; there
// is no further fallback. When this is the fallback after a failed send,
// Attempts reports the send attempts, which are what exhausted the retry
// budget.
func (s *Service) saveDraft(ctx context.Context, log *slog.Logger, id gmail.MessageID, reply gmail.DraftReply, sendAttempts int, blocked bool) Result {
	log.InfoContext(ctx, "saving draft", "state", StateSavingDraft.String())
	attempts, err := s.Retry.Do(ctx, func() error {
		if reserveErr := s.reserve(ctx, gmail.CostCreateDraft); reserveErr != nil {
			return reserveErr
		}
		_, draftErr := s.Transport.CreateDraft(ctx, reply)
		return draftErr
	})
	if sendAttempts > 0 {
		attempts = sendAttempts
	}
	if err != nil {
		log.ErrorContext(ctx, "draft save failed", "state", StateFailed.String(), "error", err)
		return Result{
			MessageID:   id,
			Outcome:     OutcomeFailed,
			Attempts:    attempts,
			ScanBlocked: blocked,
			Err:         fmt.Errorf("create draft: %w", err),
		}
	}
	log.InfoContext(ctx, "draft saved", "state", StateDone.String())
	return Result{MessageID: id, Outcome: OutcomeDraftSaved, Attempts: attempts, ScanBlocked: blocked}
}

func (s *Service) redactionPasses(spec Spec) int {
	if spec.RedactionPasses > 0 {
		return spec.RedactionPasses
	}
	return defaultRedactionPasses
}

func (s *Service) reserve(ctx context.Context, cost int) error {
	if s.Budget == nil {
		return nil
	}
	return s.Budget.Reserve(ctx, cost)
}

func (s *Service) record(stats *Stats, res Result) {
	m := s.Metrics
	if res.Fetched {
		stats.Fetched++
		if m != nil {
			m.Fetched.Inc()
		}
	}
	if res.ScanBlocked {
		stats.ScanBlocked++
		if m != nil {
			m.ScanBlocked.Inc()
		}
	}
	switch res.Outcome {
	case OutcomeSkipped:
		stats.FilteredOut++
		if m != nil {
			m.FilteredOut.Inc()
		}
	case OutcomeSent:
		stats.Drafted++
		stats.Sent++
		if m != nil {
			m.Drafted.Inc()
			m.Sent.Inc()
		}
	case OutcomeDraftSaved:
		stats.Drafted++
		stats.DraftSaved++
		if m != nil {
			m.Drafted.Inc()
			m.DraftSaved.Inc()
		}
	case OutcomeDiscarded:
		stats.Drafted++
		stats.Discarded++
		if m != nil {
			m.Drafted.Inc()
			m.Discarded.Inc()
		}
	case OutcomeFailed:
		stats.Failed++
		if m != nil {
			m.Failed.Inc()
		}
	}
}
