package retriever

import (
	"context"
	"errors"
	"fmt"
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

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func doc(id string, ts int64) *entity.IndexedDocument {
	return &entity.IndexedDocument{Id: id, Metadata: entity.DocumentMetadata{Timestamp: ts}}
}

func TestFuseDedupsAndSorts(t *testing.T) {
	thread := []*entity.IndexedDocument{doc("msg_10", 100)}
	recency := []*entity.IndexedDocument{doc("msg_12", 300), doc("msg_10", 100)}
	similarity := []*entity.IndexedDocument{doc("msg_11", 200)}

	bundle := Fuse(thread, recency, similarity)
	assert.Equal(t, []string{"msg_10", "msg_11", "msg_12"}, bundle.Ids())
}

func TestFuseFirstOccurrenceWins(t *testing.T) {
	fromThread := doc("msg_1", 10)
	fromThread.Content = "thread copy"
	fromRecency := doc("msg_1", 10)
	fromRecency.Content = "recency copy"

	bundle := Fuse([]*entity.IndexedDocument{fromThread}, []*entity.IndexedDocument{fromRecency}, nil)
	require.Len(t, bundle, 1)
	assert.Equal(t, "thread copy", bundle[0].Content)
}

func TestFuseKeepsMergeOrderOnTies(t *testing.T) {
	bundle := Fuse(
		[]*entity.IndexedDocument{doc("b", 5)},
		[]*entity.IndexedDocument{doc("a", 5), doc("c", 1)},
		nil,
	)
	assert.Equal(t, []string{"c", "b", "a"}, bundle.Ids())
	assert.Empty(t, Fuse(nil, nil, nil))
}

func message(id int64, key int64, content string, at time.Time, parent *int64) *entity.IndexedDocument {
	return &entity.IndexedDocument{
		Id:      fmt.Sprintf("msg_%d", id),
		Kind:    entity.DocumentKindMessage,
		Content: content,
		Metadata: entity.DocumentMetadata{
			AuthorId:        1,
			Timestamp:       at.Unix(),
			ConversationKey: fmt.Sprint(key),
			ThreadParentId:  parent,
		},
	}
}

func newRetriever(t *testing.T, docs ...*entity.IndexedDocument) *Retriever {
	t.Helper()
	vs := store.NewVectorStore(memory.NewDocumentRepository(), &testutil.Embedder{})
	require.NoError(t, vs.Upsert(context.Background(), docs))
	return NewRetriever(vs, logger.NewNopLogger(), WithClock(func() time.Time { return now }))
}

func TestRetrieveCombinesThreadRecencyAndSimilarity(t *testing.T) {
	parentId := int64(1)
	r := newRetriever(t,
		message(1, 7, "[Ana] release plan for friday", now.Add(-72*time.Hour), nil),
		message(2, 7, "[Bo] friday works", now.Add(-71*time.Hour), &parentId),
		message(3, 7, "[Ana] lunch?", now.Add(-2*time.Hour), nil),
		message(4, 7, "[Bo] release checklist is ready", now.Add(-90*time.Minute), nil),
		message(5, 7, "[Cy] coffee", now.Add(-time.Hour), nil),
		message(6, 8, "[Ana] release in another channel", now.Add(-time.Hour), nil),
	)

	msg := &entity.Message{
		Id:             9,
		Content:        "is the release still on?",
		CreatedAt:      now,
		ThreadParentId: &parentId,
		Target:         entity.ChannelTarget{ChannelId: 7, Author: entity.Participant{Id: 2, DisplayName: "Bo"}},
	}
	plan := entity.ContextWindowPlan{TimeWindow: 24 * time.Hour, MessageLimit: 4}

	bundle, err := r.Retrieve(context.Background(), msg, plan, "7")
	require.NoError(t, err)

	// parent and reply come from the thread even though they are outside the window
	assert.Equal(t, []string{"msg_1", "msg_2", "msg_3", "msg_4", "msg_5"}, bundle.Ids())
}

func TestRetrieveRespectsWindowAndLimit(t *testing.T) {
	var docs []*entity.IndexedDocument
	for i := 0; i < 30; i++ {
		docs = append(docs, message(int64(i), 7, "[Ana] status update", now.Add(-time.Duration(i)*time.Hour), nil))
	}
	r := newRetriever(t, docs...)

	msg := &entity.Message{Id: 100, Content: "status update", Target: entity.ChannelTarget{ChannelId: 7}}
	plan := entity.ContextWindowPlan{TimeWindow: 12 * time.Hour, MessageLimit: 5}

	bundle, err := r.Retrieve(context.Background(), msg, plan, "7")
	require.NoError(t, err)

	floor := now.Add(-12 * time.Hour).Unix()
	for _, d := range bundle {
		assert.GreaterOrEqual(t, d.Metadata.Timestamp, floor, d.Id)
	}
	// 5 recent plus up to floor(5*0.3)=1 similar
	assert.LessOrEqual(t, len(bundle), 6)
	assert.GreaterOrEqual(t, len(bundle), 5)
}

func TestRetrieveSkipsSimilarityWhenShareIsZero(t *testing.T) {
	embedder := &testutil.Embedder{}
	vs := store.NewVectorStore(memory.NewDocumentRepository(), embedder)
	r := NewRetriever(vs, logger.NewNopLogger(), WithClock(func() time.Time { return now }))

	msg := &entity.Message{Id: 1, Content: "hi", Target: entity.ChannelTarget{ChannelId: 7}}
	_, err := r.Retrieve(context.Background(), msg, entity.ContextWindowPlan{TimeWindow: time.Hour, MessageLimit: 3}, "7")
	require.NoError(t, err)
	assert.Zero(t, embedder.CallCount())
}

func TestRetrieveDirectThreadParentUsesDirectId(t *testing.T) {
	parentId := int64(40)
	parent := message(40, 0, "[Ana] dm parent", now.Add(-time.Hour), nil)
	parent.Id = "dm_40"
	parent.Metadata.ConversationKey = "dm_1_2"
	r := newRetriever(t, parent)

	msg := &entity.Message{
		Id:             41,
		ThreadParentId: &parentId,
		Target:         entity.DirectTarget{From: entity.Participant{Id: 2}, To: entity.Participant{Id: 1}},
	}
	bundle, err := r.Retrieve(context.Background(), msg, entity.ContextWindowPlan{TimeWindow: time.Hour, MessageLimit: 1}, "dm_1_2")
	require.NoError(t, err)
	assert.Equal(t, []string{"dm_40"}, bundle.Ids())
}

func TestRetrieveStoreFailureIsRetrievalError(t *testing.T) {
	vs := store.NewVectorStore(memory.NewDocumentRepository(), &testutil.Embedder{Err: errors.New("embedder down")})
	r := NewRetriever(vs, logger.NewNopLogger(), WithClock(func() time.Time { return now }))

	msg := &entity.Message{Id: 1, Content: "hello there", Target: entity.ChannelTarget{ChannelId: 7}}
	_, err := r.Retrieve(context.Background(), msg, entity.ContextWindowPlan{TimeWindow: time.Hour, MessageLimit: 10}, "7")

	var retrievalErr *apperror.RetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.Equal(t, "similarity", retrievalErr.Op)
}
