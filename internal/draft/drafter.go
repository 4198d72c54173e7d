// Package draft produces candidate reply bodies for eligible messages.
package draft

import (
	"context"
	"fmt"
	"strings"

	"github.com/joshsymonds/replygate/internal/gmail"
)

// Drafter turns a message into a reply body. Implementations must not
// dispatch anything themselves; the pipeline owns scanning, approval, and
// delivery of whatever comes back.
type Drafter interface {
	Draft(ctx context.Context, msg gmail.Message) (string, error)
}

// Template is an offline Drafter that fills a fixed body. Useful for dry
// runs and tests. {{subject}} and {{sender}} placeholders are substituted.
type Template struct {
	Body string
}

// Draft renders the template for the message.
func (t Template) Draft(_ context.Context, msg gmail.Message) (string, error) {
	body := t.Body
	if strings.TrimSpace(body) == "" {
		body = "Thanks for your message regarding {{subject}}. I'll get back to you shortly."
	}
	body = strings.ReplaceAll(body, "{{subject}}", fmt.Sprintf("%q", msg.Subject))
	body = strings.ReplaceAll(body, "{{sender}}", msg.From)
	return body, nil
}
