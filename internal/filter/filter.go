// Package filter decides whether a fetched message deserves a reply at all.
package filter

import (
	"strings"

	"github.com/joshsymonds/replygate/internal/gmail"
)

// Reason explains an eligibility verdict.
type Reason int

const (
	ReasonOK Reason = iota
	ReasonSpamLabel
	ReasonTrashed
	ReasonAutoSender
)

func (r Reason) String() string {
	switch r {
	case ReasonOK:
		return "ok"
	case ReasonSpamLabel:
		return "spam-label"
	case ReasonTrashed:
		return "trashed"
	case ReasonAutoSender:
		return "auto-sender"
	default:
		return "unknown"
	}
}

// Verdict is the outcome of evaluating one message.
type Verdict struct {
	Process bool
	Reason  Reason
}

// DefaultAutoSenderPatterns match machine-generated senders that must never
// receive a reply. Compared case-insensitively as substrings of the From
// address.
func DefaultAutoSenderPatterns() []string {
	return []string{
		"noreply@",
		"no-reply@",
		"donotreply@",
		"notifications@",
		"mailer-daemon@",
	}
}

// Filter holds the heuristics. The zero value uses the defaults.
type Filter struct {
	AutoSenderPatterns []string
}

// New returns a filter with the default auto-sender patterns.
func New() *Filter {
	return &Filter{AutoSenderPatterns: DefaultAutoSenderPatterns()}
}

// Evaluate applies the rules in order; the first match wins. Pure, no side
// effects.
func (f *Filter) Evaluate(msg gmail.Message) Verdict {
	if msg.HasLabel(gmail.LabelSpam) {
		return Verdict{Process: false, Reason: ReasonSpamLabel}
	}
	if msg.HasLabel(gmail.LabelTrash) {
		return Verdict{Process: false, Reason: ReasonTrashed}
	}
	patterns := f.AutoSenderPatterns
	if patterns == nil {
		patterns = DefaultAutoSenderPatterns()
	}
	sender := strings.ToLower(msg.From)
	for _, p := range patterns {
		if strings.Contains(sender, strings.ToLower(p)) {
			return Verdict{Process: false, Reason: ReasonAutoSender}
		}
	}
	return Verdict{Process: true, Reason: ReasonOK}
}
