package gmail

import "context"

// Transport is the narrow Gmail surface required by replygate.
type Transport interface {
	List(ctx context.Context, q Query, pageToken string, pageSize int) (ListPage, error)
	Get(ctx context.Context, id MessageID) (Message, error)
	Send(ctx context.Context, reply DraftReply) (MessageID, error)
	CreateDraft(ctx context.Context, reply DraftReply) (MessageID, error)
}
