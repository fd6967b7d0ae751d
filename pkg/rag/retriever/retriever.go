package retriever

import (
	"context"
	"math"
	"sort"
	"time"

	"avatar-engine-be/internal/apperror"
	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/pkg/logger"
	"avatar-engine-be/internal/repository/specification"
	"avatar-engine-be/pkg/rag/indexer"
	"avatar-engine-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("avatar-engine.retriever")

const (
	// ThreadLimit caps the replies fetched for a thread.
	ThreadLimit = 10
	// SimilarityShare is the fraction of the message limit used for the
	// semantic search.
	SimilarityShare = 0.3
)

// Retriever builds the grounding bundle from thread, recency and similarity
// searches.
type Retriever struct {
	store  store.VectorStore
	logger logger.ILogger
	now    func() time.Time
}

type Option func(*Retriever)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Retriever) {
		r.now = now
	}
}

func NewRetriever(vs store.VectorStore, l logger.ILogger, opts ...Option) *Retriever {
	r := &Retriever{
		store:  vs,
		logger: l,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs the three searches and fuses them. Any store failure aborts
// with a RetrievalError.
func (r *Retriever) Retrieve(ctx context.Context, msg *entity.Message, plan entity.ContextWindowPlan, conversationKey string) (entity.RetrievalBundle, error) {
	ctx, span := tracer.Start(ctx, "retriever.Retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.String("conversation.key", conversationKey),
		attribute.Int64("plan.window_seconds", plan.TimeWindowSeconds()),
		attribute.Int("plan.message_limit", plan.MessageLimit),
	)

	bundle, err := r.retrieve(ctx, msg, plan, conversationKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("bundle.size", len(bundle)))
	span.SetStatus(codes.Ok, "")
	return bundle, nil
}

func (r *Retriever) retrieve(ctx context.Context, msg *entity.Message, plan entity.ContextWindowPlan, conversationKey string) (entity.RetrievalBundle, error) {
	thread, err := r.threadContext(ctx, msg)
	if err != nil {
		return nil, apperror.NewRetrievalError("thread context", err)
	}

	inWindow := []specification.Specification{
		specification.ByKind{Kind: entity.DocumentKindMessage},
		specification.ByConversationKey{Key: conversationKey},
		specification.TimestampFrom{Since: r.now().Add(-plan.TimeWindow).Unix()},
	}

	recent, err := r.store.Query(ctx, "", plan.MessageLimit, inWindow...)
	if err != nil {
		return nil, apperror.NewRetrievalError("recency", err)
	}

	var similar []*entity.IndexedDocument
	k := int(math.Floor(float64(plan.MessageLimit) * SimilarityShare))
	if k > 0 && msg.Content != "" {
		similar, err = r.store.Query(ctx, msg.Content, k, inWindow...)
		if err != nil {
			return nil, apperror.NewRetrievalError("similarity", err)
		}
	}

	bundle := Fuse(thread, recent, similar)
	r.logger.Debug("RETRIEVER", "Context retrieved", map[string]interface{}{
		"message_id": msg.Id,
		"thread":     len(thread),
		"recency":    len(recent),
		"similarity": len(similar),
		"bundle":     len(bundle),
	})
	return bundle, nil
}

// threadContext returns the parent message and up to ThreadLimit replies
// sharing it.
func (r *Retriever) threadContext(ctx context.Context, msg *entity.Message) ([]*entity.IndexedDocument, error) {
	if msg.ThreadParentId == nil {
		return nil, nil
	}
	parentId := *msg.ThreadParentId

	replies, err := r.store.Query(ctx, "", ThreadLimit,
		specification.ByKind{Kind: entity.DocumentKindMessage},
		specification.ByThreadParent{ParentId: parentId},
	)
	if err != nil {
		return nil, err
	}

	// the parent lives in the same conversation, so it shares the variant
	docId, err := indexer.DocumentID(&entity.Message{Id: parentId, Target: msg.Target})
	if err != nil {
		return nil, err
	}
	parent, err := r.store.Get(ctx, docId)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return replies, nil
	}
	return append([]*entity.IndexedDocument{parent}, replies...), nil
}

// Fuse merges the sets in priority order keeping the first occurrence of
// each id, then orders the result by ascending timestamp. Documents with
// equal timestamps keep their merge order.
func Fuse(thread, recency, similarity []*entity.IndexedDocument) entity.RetrievalBundle {
	seen := make(map[string]bool, len(thread)+len(recency)+len(similarity))
	bundle := make(entity.RetrievalBundle, 0, len(thread)+len(recency)+len(similarity))

	for _, set := range [][]*entity.IndexedDocument{thread, recency, similarity} {
		for _, doc := range set {
			if doc == nil || seen[doc.Id] {
				continue
			}
			seen[doc.Id] = true
			bundle = append(bundle, doc)
		}
	}

	sort.SliceStable(bundle, func(i, j int) bool {
		return bundle[i].Metadata.Timestamp < bundle[j].Metadata.Timestamp
	})
	return bundle
}
