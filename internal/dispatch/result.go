package dispatch

import (
	"github.com/joshsymonds/replygate/internal/filter"
	"github.com/joshsymonds/replygate/internal/gmail"
)

// State names a message's position in the pipeline; used for logging.
type State int

const (
	StateFetched State = iota
	StateFiltered
	StateDrafted
	StateScanned
	StateAwaitingApproval
	StateSending
	StateSavingDraft
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFetched:
		return "fetched"
	case StateFiltered:
		return "filtered"
	case StateDrafted:
		return "drafted"
	case StateScanned:
		return "scanned"
	case StateAwaitingApproval:
		return "awaiting-approval"
	case StateSending:
		return "sending"
	case StateSavingDraft:
		return "saving-draft"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal disposition of one message's pipeline run.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeSent
	OutcomeDraftSaved
	OutcomeDiscarded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSent:
		return "sent"
	case OutcomeDraftSaved:
		return "draft-saved"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the terminal record of a pipeline run for one message.
type Result struct {
	MessageID    gmail.MessageID
	Outcome      Outcome
	FilterReason filter.Reason
	Attempts     int
	Err          error
	// Fetched records that Get succeeded; a candidate that failed to fetch
	// never counts as fetched.
	Fetched bool
	// ScanBlocked records that the draft needed at least one redaction pass.
	ScanBlocked bool
}

// Stats counts pipeline activity across a whole run.
type Stats struct {
	Fetched     int
	FilteredOut int
	Drafted     int
	ScanBlocked int
	Sent        int
	DraftSaved  int
	Discarded   int
	Failed      int
}
