package indexer

import (
	"context"
	"fmt"

	"avatar-engine-be/internal/apperror"
	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/pkg/logger"
	"avatar-engine-be/pkg/conversation"
	"avatar-engine-be/pkg/store"
)

// DocumentID is the vector store id of a message: msg_<id> for channel
// messages and dm_<id> for direct messages.
func DocumentID(msg *entity.Message) (string, error) {
	switch msg.Target.(type) {
	case entity.ChannelTarget:
		return fmt.Sprintf("msg_%d", msg.Id), nil
	case entity.DirectTarget:
		return fmt.Sprintf("dm_%d", msg.Id), nil
	default:
		return "", fmt.Errorf("message %d has unknown target %T", msg.Id, msg.Target)
	}
}

// BuildDocument converts a message into its indexed form. The embedding is
// left empty for the store to fill in.
func BuildDocument(msg *entity.Message) (*entity.IndexedDocument, error) {
	id, err := DocumentID(msg)
	if err != nil {
		return nil, err
	}
	sender, err := msg.Sender()
	if err != nil {
		return nil, err
	}
	key, err := conversation.KeyFor(msg.Target)
	if err != nil {
		return nil, err
	}

	return &entity.IndexedDocument{
		Id:      id,
		Kind:    entity.DocumentKindMessage,
		Content: fmt.Sprintf("[%s] %s", sender.DisplayName, msg.Content),
		Metadata: entity.DocumentMetadata{
			AuthorId:        sender.Id,
			AuthorName:      sender.DisplayName,
			Timestamp:       msg.CreatedAt.Unix(),
			ConversationKey: key,
			ThreadParentId:  msg.ThreadParentId,
		},
	}, nil
}

// Indexer writes chat messages into the vector store.
type Indexer struct {
	store  store.VectorStore
	logger logger.ILogger
}

func NewIndexer(vs store.VectorStore, l logger.ILogger) *Indexer {
	return &Indexer{store: vs, logger: l}
}

// IndexMessage upserts one message. Indexing the same message again
// overwrites the earlier document.
func (i *Indexer) IndexMessage(ctx context.Context, msg *entity.Message) error {
	return i.IndexMessages(ctx, []*entity.Message{msg})
}

// IndexMessages upserts a batch in a single store call. Failures are not
// retried.
func (i *Indexer) IndexMessages(ctx context.Context, msgs []*entity.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	docs := make([]*entity.IndexedDocument, 0, len(msgs))
	ids := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		doc, err := BuildDocument(msg)
		if err != nil {
			return &apperror.IndexingError{DocumentIds: ids, Err: err}
		}
		docs = append(docs, doc)
		ids = append(ids, doc.Id)
	}

	if err := i.store.Upsert(ctx, docs); err != nil {
		i.logger.Error("INDEXER", "Failed to index messages", map[string]interface{}{
			"document_ids": ids,
			"error":        err.Error(),
		})
		return &apperror.IndexingError{DocumentIds: ids, Err: err}
	}

	i.logger.Debug("INDEXER", "Messages indexed", map[string]interface{}{
		"count": len(docs),
	})
	return nil
}
