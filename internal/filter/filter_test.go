package filter

import (
	"testing"

	"github.com/joshsymonds/replygate/internal/gmail"
)

func TestEvaluateLabels(t *testing.T) {
	tests := []struct {
		name    string
		labels  []string
		process bool
		reason  Reason
	}{
		{name: "inbox-only", labels: []string{"INBOX"}, process: true, reason: ReasonOK},
		{name: "spam", labels: []string{"SPAM"}, process: false, reason: ReasonSpamLabel},
		{name: "trash", labels: []string{"TRASH"}, process: false, reason: ReasonTrashed},
		{name: "spam-wins-over-trash", labels: []string{"TRASH", "SPAM"}, process: false, reason: ReasonSpamLabel},
		{name: "no-labels", labels: nil, process: true, reason: ReasonOK},
	}
	f := New()
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			v := f.Evaluate(gmail.Message{From: "alice@example.com", Labels: tc.labels})
			if v.Process != tc.process {
				t.Fatalf("process = %v, want %v", v.Process, tc.process)
			}
			if v.Reason != tc.reason {
				t.Fatalf("reason = %v, want %v", v.Reason, tc.reason)
			}
		})
	}
}

// Every label combination containing SPAM or TRASH must reject, regardless
// of what else the message carries.
func TestEvaluateLabelPowerSet(t *testing.T) {
	universe := []string{"SPAM", "TRASH", "INBOX", "IMPORTANT", "STARRED"}
	f := New()
	for mask := 0; mask < 1<<len(universe); mask++ {
		var labels []string
		for i, l := range universe {
			if mask&(1<<i) != 0 {
				labels = append(labels, l)
			}
		}
		v := f.Evaluate(gmail.Message{From: "bob@example.com", Labels: labels})
		hasBad := false
		for _, l := range labels {
			if l == gmail.LabelSpam || l == gmail.LabelTrash {
				hasBad = true
			}
		}
		if hasBad && v.Process {
			t.Fatalf("labels %v accepted, want reject", labels)
		}
		if !hasBad && !v.Process {
			t.Fatalf("labels %v rejected, want accept", labels)
		}
	}
}

func TestEvaluateAutoSenders(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		process bool
	}{
		{name: "plain-human", from: "Carol <carol@example.com>", process: true},
		{name: "noreply", from: "noreply@service.example.com", process: false},
		{name: "no-reply-mixed-case", from: "Build Bot <NO-REPLY@ci.example.com>", process: false},
		{name: "donotreply", from: "donotreply@bank.example.com", process: false},
		{name: "notifications", from: "GitHub <notifications@github.com>", process: false},
		{name: "mailer-daemon", from: "MAILER-DAEMON@mx.example.com", process: false},
		{name: "reply-substring-is-fine", from: "reply@example.com", process: true},
	}
	f := New()
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			v := f.Evaluate(gmail.Message{From: tc.from, Labels: []string{"INBOX"}})
			if v.Process != tc.process {
				t.Fatalf("process = %v, want %v (reason %v)", v.Process, tc.process, v.Reason)
			}
			if !tc.process && v.Reason != ReasonAutoSender {
				t.Fatalf("reason = %v, want %v", v.Reason, ReasonAutoSender)
			}
		})
	}
}

// Label heuristics outrank sender heuristics: a spam-labeled noreply message
// reports the label reason.
func TestEvaluateRuleOrder(t *testing.T) {
	f := New()
	v := f.Evaluate(gmail.Message{From: "noreply@example.com", Labels: []string{"SPAM"}})
	if v.Reason != ReasonSpamLabel {
		t.Fatalf("reason = %v, want %v", v.Reason, ReasonSpamLabel)
	}
}
