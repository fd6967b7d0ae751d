package implementation

import (
	"context"
	"errors"
	"fmt"

	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/mapper"
	"avatar-engine-be/internal/model"
	"avatar-engine-be/internal/repository/contract"
	"avatar-engine-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.VectorDocumentMapper
}

func NewDocumentRepository(db *gorm.DB) contract.DocumentRepository {
	return &DocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewVectorDocumentMapper(),
	}
}

func (r *DocumentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentRepositoryImpl) Upsert(ctx context.Context, docs []*entity.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	for _, doc := range docs {
		if len(doc.Embedding) != model.EmbeddingDimensions {
			return fmt.Errorf("document %s has a %d dimension embedding, the store expects %d",
				doc.Id, len(doc.Embedding), model.EmbeddingDimensions)
		}
	}
	models := r.mapper.ToModels(docs)

	// created_at is kept from the first write
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"kind", "content", "embedding", "author_id", "author_name",
				"timestamp", "conversation_key", "thread_parent_id", "config", "updated_at",
			}),
		}).
		Create(models).Error
}

func (r *DocumentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.IndexedDocument, error) {
	var m model.VectorDocument
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DocumentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.IndexedDocument, error) {
	var models []*model.VectorDocument
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DocumentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.VectorDocument{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DocumentRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, limit int, specs ...specification.Specification) ([]*contract.ScoredDocument, error) {
	if limit <= 0 {
		return nil, nil
	}

	// Cosine distance in pgvector is 1 - cosine_similarity
	type result struct {
		model.VectorDocument
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)
	query := r.db.WithContext(ctx).
		Table("vector_documents").
		Select("vector_documents.*, 1 - (embedding <=> ?) as similarity", queryVector)
	query = r.applySpecifications(query, specs...)

	err := query.
		Order(gorm.Expr("embedding <=> ?", queryVector)).
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredDocument, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredDocument{
			Document:   r.mapper.ToEntity(&res.VectorDocument),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
