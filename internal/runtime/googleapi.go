// Package runtime adapts the Google API client to the narrow transport
// surface the pipeline consumes, and owns credential acquisition.
package runtime

import (
	"context"

	"google.golang.org/api/gmail/v1"

	gc "github.com/joshsymonds/replygate/internal/gmail"
)

type googleTransport struct{ svc *gmail.Service }

// NewGoogleAPITransport wraps *gmail.Service in the pipeline's Transport.
func NewGoogleAPITransport(svc *gmail.Service) gc.Transport {
	return &googleTransport{svc}
}

func (g *googleTransport) List(ctx context.Context, q gc.Query, pageToken string, pageSize int) (gc.ListPage, error) {
	call := g.svc.Users.Messages.List("me").Q(q.Raw).MaxResults(int64(pageSize))
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return gc.ListPage{}, err
	}
	var ids []gc.MessageID
	for _, m := range res.Messages {
		ids = append(ids, gc.MessageID(m.Id))
	}
	return gc.ListPage{IDs: ids, NextPageToken: res.NextPageToken}, nil
}

func (g *googleTransport) Get(ctx context.Context, id gc.MessageID) (gc.Message, error) {
	msg, err := g.svc.Users.Messages.Get("me", string(id)).Format("full").Context(ctx).Do()
	if err != nil {
		return gc.Message{}, err
	}
	return parseMessage(msg), nil
}

func (g *googleTransport) Send(ctx context.Context, reply gc.DraftReply) (gc.MessageID, error) {
	payload := &gmail.Message{
		Raw:      encodeReply(reply),
		ThreadId: string(reply.Thread),
	}
	sent, err := g.svc.Users.Messages.Send("me", payload).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return gc.MessageID(sent.Id), nil
}

func (g *googleTransport) CreateDraft(ctx context.Context, reply gc.DraftReply) (gc.MessageID, error) {
	payload := &gmail.Draft{
		Message: &gmail.Message{
			Raw:      encodeReply(reply),
			ThreadId: string(reply.Thread),
		},
	}
	created, err := g.svc.Users.Drafts.Create("me", payload).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if created.Message == nil {
		return gc.MessageID(created.Id), nil
	}
	return gc.MessageID(created.Message.Id), nil
}

var _ gc.Transport = (*googleTransport)(nil)

func parseMessage(msg *gmail.Message) gc.Message {
	out := gc.Message{
		ID:     gc.MessageID(msg.Id),
		Thread: gc.ThreadID(msg.ThreadId),
	}
	for _, l := range msg.LabelIds {
		out.Labels = append(out.Labels, l)
	}
	if msg.Payload == nil {
		return out
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			out.Subject = h.Value
		case "From":
			out.From = h.Value
		case "To":
			out.To = h.Value
		case "Message-ID", "Message-Id":
			out.MessageIDHeader = h.Value
		}
	}
	out.Body = plainTextBody(msg.Payload)
	return out
}
