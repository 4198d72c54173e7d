package runtime

import (
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/api/gmail/v1"

	gc "github.com/joshsymonds/replygate/internal/gmail"
)

// encodeReply renders the RFC 2822 message Gmail expects in the Raw field,
// base64url encoded. The reference chain carries a single entry.
func encodeReply(r gc.DraftReply) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", r.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", r.Subject)
	if r.InReplyTo != "" {
		fmt.Fprintf(&b, "In-Reply-To: %s\r\n", r.InReplyTo)
	}
	if r.References != "" {
		fmt.Fprintf(&b, "References: %s\r\n", r.References)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(r.Body)
	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}

// plainTextBody walks the MIME tree for the first text/plain part.
func plainTextBody(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err == nil {
			return string(data)
		}
	}
	for _, p := range part.Parts {
		mime := strings.ToLower(p.MimeType)
		if strings.HasPrefix(mime, "text/") || strings.HasPrefix(mime, "multipart/") {
			if body := plainTextBody(p); body != "" {
				return body
			}
		}
	}
	return ""
}
