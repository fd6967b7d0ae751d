package contract

import (
	"context"

	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/repository/specification"
)

// ScoredDocument wraps an IndexedDocument with its similarity score
type ScoredDocument struct {
	Document   *entity.IndexedDocument
	Similarity float64 // cosine similarity, 1.0 = identical
}

// DocumentRepository persists vector documents. Upsert is idempotent by id.
type DocumentRepository interface {
	Upsert(ctx context.Context, docs []*entity.IndexedDocument) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.IndexedDocument, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.IndexedDocument, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilar returns up to limit documents ordered by descending similarity.
	SearchSimilar(ctx context.Context, embedding []float32, limit int, specs ...specification.Specification) ([]*ScoredDocument, error)
}
