package mapper

import (
	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type VectorDocumentMapper struct{}

func NewVectorDocumentMapper() *VectorDocumentMapper {
	return &VectorDocumentMapper{}
}

func (m *VectorDocumentMapper) ToEntity(d *model.VectorDocument) *entity.IndexedDocument {
	if d == nil {
		return nil
	}

	return &entity.IndexedDocument{
		Id:        d.Id,
		Kind:      d.Kind,
		Content:   d.Content,
		Embedding: d.Embedding.Slice(),
		Metadata: entity.DocumentMetadata{
			AuthorId:        d.AuthorId,
			AuthorName:      d.AuthorName,
			Timestamp:       d.Timestamp,
			ConversationKey: d.ConversationKey,
			ThreadParentId:  d.ThreadParentId,
			Config:          string(d.Config),
		},
		UpdatedAt: d.UpdatedAt,
	}
}

func (m *VectorDocumentMapper) ToModel(d *entity.IndexedDocument) *model.VectorDocument {
	if d == nil {
		return nil
	}

	var config datatypes.JSON
	if d.Metadata.Config != "" {
		config = datatypes.JSON(d.Metadata.Config)
	}

	return &model.VectorDocument{
		Id:              d.Id,
		Kind:            d.Kind,
		Content:         d.Content,
		Embedding:       pgvector.NewVector(d.Embedding),
		AuthorId:        d.Metadata.AuthorId,
		AuthorName:      d.Metadata.AuthorName,
		Timestamp:       d.Metadata.Timestamp,
		ConversationKey: d.Metadata.ConversationKey,
		ThreadParentId:  d.Metadata.ThreadParentId,
		Config:          config,
		UpdatedAt:       d.UpdatedAt,
	}
}

func (m *VectorDocumentMapper) ToEntities(docs []*model.VectorDocument) []*entity.IndexedDocument {
	entities := make([]*entity.IndexedDocument, len(docs))
	for i, d := range docs {
		entities[i] = m.ToEntity(d)
	}
	return entities
}

func (m *VectorDocumentMapper) ToModels(docs []*entity.IndexedDocument) []*model.VectorDocument {
	models := make([]*model.VectorDocument, len(docs))
	for i, d := range docs {
		models[i] = m.ToModel(d)
	}
	return models
}
