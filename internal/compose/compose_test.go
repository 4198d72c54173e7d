package compose

import (
	"testing"

	"github.com/joshsymonds/replygate/internal/gmail"
)

func TestReplySubjectPrefix(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    string
	}{
		{name: "plain", subject: "Invoice due", want: "Re: Invoice due"},
		{name: "already-prefixed", subject: "Re: Hello", want: "Re: Hello"},
		{name: "uppercase-prefix", subject: "RE: Hello", want: "RE: Hello"},
		{name: "lowercase-prefix", subject: "re: hi there", want: "re: hi there"},
		{name: "empty", subject: "", want: "Re: "},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			reply := Reply(gmail.Message{Subject: tc.subject}, "body")
			if reply.Subject != tc.want {
				t.Fatalf("subject = %q, want %q", reply.Subject, tc.want)
			}
		})
	}
}

// Composing a reply to a reply never stacks prefixes.
func TestReplySubjectIdempotent(t *testing.T) {
	first := Reply(gmail.Message{Subject: "Quarterly report"}, "a")
	second := Reply(gmail.Message{Subject: first.Subject}, "b")
	if second.Subject != "Re: Quarterly report" {
		t.Fatalf("subject = %q, want %q", second.Subject, "Re: Quarterly report")
	}
}

func TestReplyThreading(t *testing.T) {
	original := gmail.Message{
		ID:              "m1",
		Thread:          "t1",
		MessageIDHeader: "<abc123@mail.example.com>",
		From:            "Alice <alice@example.com>",
		To:              "me@example.com",
		Subject:         "Lunch?",
	}
	reply := Reply(original, "Sounds good.")
	if reply.Thread != original.Thread {
		t.Fatalf("thread = %q, want %q", reply.Thread, original.Thread)
	}
	if reply.InReplyTo != original.MessageIDHeader {
		t.Fatalf("in-reply-to = %q, want %q", reply.InReplyTo, original.MessageIDHeader)
	}
	if reply.References != original.MessageIDHeader {
		t.Fatalf("references = %q, want %q", reply.References, original.MessageIDHeader)
	}
	if reply.To != original.From {
		t.Fatalf("to = %q, want %q", reply.To, original.From)
	}
	if reply.Body != "Sounds good." {
		t.Fatalf("body = %q", reply.Body)
	}
}
