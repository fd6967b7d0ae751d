package store

import (
	"context"
	"fmt"

	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/repository/contract"
	"avatar-engine-be/internal/repository/specification"
	"avatar-engine-be/pkg/embedding"
)

// VectorStore is the document store used by the engine. It embeds content on
// write and query text on read; metadata filtering is expressed with
// specifications.
type VectorStore interface {
	// Upsert embeds documents that carry no vector yet and writes them by id.
	Upsert(ctx context.Context, docs []*entity.IndexedDocument) error
	// Get returns nil, nil when the id is unknown.
	Get(ctx context.Context, id string) (*entity.IndexedDocument, error)
	// Query with empty text returns the newest matching documents; otherwise
	// the documents most similar to text.
	Query(ctx context.Context, text string, limit int, specs ...specification.Specification) ([]*entity.IndexedDocument, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type vectorStore struct {
	repo     contract.DocumentRepository
	embedder embedding.EmbeddingProvider
}

func NewVectorStore(repo contract.DocumentRepository, embedder embedding.EmbeddingProvider) VectorStore {
	return &vectorStore{
		repo:     repo,
		embedder: embedder,
	}
}

func (s *vectorStore) Upsert(ctx context.Context, docs []*entity.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var pending []*entity.IndexedDocument
	var texts []string
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			pending = append(pending, doc)
			texts = append(texts, doc.Content)
		}
	}

	vectors, err := embedding.GenerateAll(ctx, s.embedder, texts, embedding.TaskRetrievalDocument)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(pending) {
		return fmt.Errorf("embed documents: got %d vectors for %d texts", len(vectors), len(pending))
	}
	for i, doc := range pending {
		doc.Embedding = vectors[i]
	}

	if err := s.repo.Upsert(ctx, docs); err != nil {
		return fmt.Errorf("upsert documents: %w", err)
	}
	return nil
}

func (s *vectorStore) Get(ctx context.Context, id string) (*entity.IndexedDocument, error) {
	return s.repo.FindOne(ctx, specification.ByDocumentID{ID: id})
}

func (s *vectorStore) Query(ctx context.Context, text string, limit int, specs ...specification.Specification) ([]*entity.IndexedDocument, error) {
	if limit <= 0 {
		return []*entity.IndexedDocument{}, nil
	}

	if text == "" {
		all := append(append([]specification.Specification{}, specs...),
			specification.OrderBy{Field: "timestamp", Desc: true},
			specification.Pagination{Limit: limit},
		)
		return s.repo.FindAll(ctx, all...)
	}

	res, err := s.embedder.Generate(ctx, text, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	scored, err := s.repo.SearchSimilar(ctx, res.Embedding.Values, limit, specs...)
	if err != nil {
		return nil, err
	}

	docs := make([]*entity.IndexedDocument, len(scored))
	for i, sd := range scored {
		docs[i] = sd.Document
	}
	return docs, nil
}

func (s *vectorStore) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return s.repo.Count(ctx, specs...)
}
