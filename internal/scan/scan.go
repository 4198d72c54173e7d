// Package scan flags secrets and PII in draft reply bodies before a human
// ever sees them. Matchers are independent; overlapping findings are all
// reported, never merged. Scanning cannot fail: malformed input yields an
// empty result, not an error.
package scan

import (
	"regexp"
	"sort"
)

// Kind identifies the pattern family behind a finding.
type Kind int

const (
	KindCreditCard Kind = iota
	KindSSN
	KindAPIKey
	KindPassword
	KindPrivateKey
	KindAWSKey
	KindPhone
	KindEmail
)

func (k Kind) String() string {
	switch k {
	case KindCreditCard:
		return "credit-card"
	case KindSSN:
		return "ssn"
	case KindAPIKey:
		return "api-key"
	case KindPassword:
		return "password"
	case KindPrivateKey:
		return "private-key"
	case KindAWSKey:
		return "aws-key"
	case KindPhone:
		return "phone"
	case KindEmail:
		return "email"
	default:
		return "unknown"
	}
}

// Blocking reports whether findings of this kind must be resolved before
// the draft may be surfaced for approval. Phone numbers and email
// addresses are advisory: reply bodies legitimately reference them.
func (k Kind) Blocking() bool {
	switch k {
	case KindPhone, KindEmail:
		return false
	default:
		return true
	}
}

// Mark is a single sensitive-data match. Span offsets are byte positions
// into the scanned text; immutable once created.
type Mark struct {
	Kind  Kind
	Start int
	End   int
}

var matchers = []struct {
	kind Kind
	re   *regexp.Regexp
}{
	{KindCreditCard, regexp.MustCompile(`\b(?:\d{4}[ -]?){3}\d{4}\b`)},
	{KindSSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{KindAPIKey, regexp.MustCompile(`\b[A-Za-z0-9_\-]{40,}\b`)},
	{KindPassword, regexp.MustCompile(`(?i)\bpassword\s*[:=]\s*\S+`)},
	{KindPrivateKey, regexp.MustCompile(`-----BEGIN (?:[A-Z]+ )*PRIVATE KEY-----`)},
	{KindAWSKey, regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`)},
	{KindPhone, regexp.MustCompile(`\b\+?\d{0,2}[ .-]?\(?\d{3}\)?[ .-]\d{3}[ .-]\d{4}\b`)},
	{KindEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)},
}

// Scan runs every matcher independently over text and returns the findings
// ordered by start offset, then by kind.
func Scan(text string) []Mark {
	if text == "" {
		return nil
	}
	var marks []Mark
	for _, m := range matchers {
		for _, loc := range m.re.FindAllStringIndex(text, -1) {
			marks = append(marks, Mark{Kind: m.kind, Start: loc[0], End: loc[1]})
		}
	}
	sort.Slice(marks, func(i, j int) bool {
		if marks[i].Start != marks[j].Start {
			return marks[i].Start < marks[j].Start
		}
		return marks[i].Kind < marks[j].Kind
	})
	return marks
}

// HasBlocking reports whether any mark must block dispatch.
func HasBlocking(marks []Mark) bool {
	for _, m := range marks {
		if m.Kind.Blocking() {
			return true
		}
	}
	return false
}

// Blocking returns only the marks that block dispatch.
func Blocking(marks []Mark) []Mark {
	var out []Mark
	for _, m := range marks {
		if m.Kind.Blocking() {
			out = append(out, m)
		}
	}
	return out
}

const placeholder = "[REDACTED]"

// Redact strips every blocking span from text, collapsing each maximal run
// of blocked bytes into a single placeholder. Advisory marks are left
// untouched. Marks must come from a Scan of this exact text.
func Redact(text string, marks []Mark) string {
	blocked := make([]bool, len(text))
	any := false
	for _, m := range marks {
		if !m.Kind.Blocking() {
			continue
		}
		start, end := m.Start, m.End
		if start < 0 {
			start = 0
		}
		if end > len(text) {
			end = len(text)
		}
		for i := start; i < end; i++ {
			blocked[i] = true
			any = true
		}
	}
	if !any {
		return text
	}
	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); {
		if !blocked[i] {
			out = append(out, text[i])
			i++
			continue
		}
		out = append(out, placeholder...)
		for i < len(text) && blocked[i] {
			i++
		}
	}
	return string(out)
}
