// Package compose builds reply headers from an original message's metadata.
package compose

import (
	"strings"

	"github.com/joshsymonds/replygate/internal/gmail"
)

const replyPrefix = "Re: "

// Reply assembles a DraftReply threaded under the original message. The
// subject is prefixed with "Re: " unless it already carries one, so
// repeated composition never stacks prefixes. The reference chain is a
// single entry; this pipeline does not walk full ancestor chains. Total
// and side-effect-free.
func Reply(original gmail.Message, body string) gmail.DraftReply {
	subject := original.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = replyPrefix + subject
	}
	return gmail.DraftReply{
		Thread:     original.Thread,
		To:         original.From,
		Subject:    subject,
		InReplyTo:  original.MessageIDHeader,
		References: original.MessageIDHeader,
		Body:       body,
	}
}
