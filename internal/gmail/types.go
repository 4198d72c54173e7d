package gmail

// MessageID identifies a Gmail message.
type MessageID string

// ThreadID identifies the conversation a message belongs to.
type ThreadID string

// System labels the pipeline keys decisions off.
const (
	LabelSpam  = "SPAM"
	LabelTrash = "TRASH"
	LabelInbox = "INBOX"
)

// Message is an immutable snapshot of a fetched message. It lives for one
// pipeline pass and is never mutated after Get returns it.
type Message struct {
	ID              MessageID
	Thread          ThreadID
	MessageIDHeader string // RFC 2822 Message-ID of the original
	From            string
	To              string
	Subject         string
	Body            string // plain text part only
	Labels          []string
}

// HasLabel reports whether the message carries the named label.
func (m Message) HasLabel(name string) bool {
	for _, l := range m.Labels {
		if l == name {
			return true
		}
	}
	return false
}

// DraftReply is the reply being shepherded toward dispatch. The body is
// rewritten by redaction and operator edits; the headers are fixed at
// composition time.
type DraftReply struct {
	Thread     ThreadID
	To         string
	Subject    string
	InReplyTo  string
	References string
	Body       string
}

// ListPage is one page of candidate message ids.
type ListPage struct {
	IDs           []MessageID
	NextPageToken string
}

// Query wraps an already-formed Gmail search string
// (e.g. `in:inbox is:unread -in:draft`).
type Query struct {
	Raw string
}

// Per-call quota unit costs, as Gmail bills them.
const (
	CostList        = 5
	CostGet         = 5
	CostSend        = 100
	CostCreateDraft = 10
)
