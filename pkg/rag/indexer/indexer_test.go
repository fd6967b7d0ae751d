package indexer

import (
	"context"
	"errors"
	"testing"
	"time"

	"avatar-engine-be/internal/apperror"
	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/pkg/logger"
	"avatar-engine-be/internal/repository/memory"
	"avatar-engine-be/internal/testutil"
	"avatar-engine-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sentAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func channelMessage(id int64) *entity.Message {
	return &entity.Message{
		Id:        id,
		Content:   "hello",
		CreatedAt: sentAt,
		Target: entity.ChannelTarget{
			ChannelId: 7,
			Author:    entity.Participant{Id: 3, DisplayName: "Ana"},
		},
	}
}

func newIndexer(embedder *testutil.Embedder) (*Indexer, store.VectorStore) {
	vs := store.NewVectorStore(memory.NewDocumentRepository(), embedder)
	return NewIndexer(vs, logger.NewNopLogger()), vs
}

func TestBuildDocument(t *testing.T) {
	parent := int64(40)
	tests := []struct {
		name    string
		msg     *entity.Message
		wantId  string
		wantKey string
		author  int64
	}{
		{"channel", channelMessage(11), "msg_11", "7", 3},
		{
			name: "direct",
			msg: &entity.Message{
				Id:             12,
				Content:        "hello",
				CreatedAt:      sentAt,
				ThreadParentId: &parent,
				Target: entity.DirectTarget{
					From: entity.Participant{Id: 9, DisplayName: "Ana"},
					To:   entity.Participant{Id: 5, DisplayName: "Bo"},
				},
			},
			wantId:  "dm_12",
			wantKey: "dm_5_9",
			author:  9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := BuildDocument(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantId, doc.Id)
			assert.Equal(t, entity.DocumentKindMessage, doc.Kind)
			assert.Equal(t, "[Ana] hello", doc.Content)
			assert.Equal(t, tt.wantKey, doc.Metadata.ConversationKey)
			assert.Equal(t, tt.author, doc.Metadata.AuthorId)
			assert.Equal(t, sentAt.Unix(), doc.Metadata.Timestamp)
			assert.Equal(t, tt.msg.ThreadParentId, doc.Metadata.ThreadParentId)
		})
	}

	_, err := BuildDocument(&entity.Message{Id: 1})
	assert.Error(t, err)
}

func TestIndexMessageTwiceStoresOneDocument(t *testing.T) {
	ctx := context.Background()
	idx, vs := newIndexer(&testutil.Embedder{})

	require.NoError(t, idx.IndexMessage(ctx, channelMessage(11)))
	require.NoError(t, idx.IndexMessage(ctx, channelMessage(11)))

	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestIndexMessagesBatch(t *testing.T) {
	ctx := context.Background()
	idx, vs := newIndexer(&testutil.Embedder{})

	require.NoError(t, idx.IndexMessages(ctx, nil))
	require.NoError(t, idx.IndexMessages(ctx, []*entity.Message{channelMessage(1), channelMessage(2), channelMessage(3)}))

	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestIndexFailureIsIndexingError(t *testing.T) {
	idx, _ := newIndexer(&testutil.Embedder{Err: errors.New("embedding offline")})

	err := idx.IndexMessage(context.Background(), channelMessage(11))

	var indexingErr *apperror.IndexingError
	require.ErrorAs(t, err, &indexingErr)
	assert.Equal(t, []string{"msg_11"}, indexingErr.DocumentIds)
	assert.ErrorContains(t, err, "embedding offline")
}
