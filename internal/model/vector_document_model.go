package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// EmbeddingDimensions is the width of the embedding column. The gorm tag
// below must say the same.
const EmbeddingDimensions = 768

type VectorDocument struct {
	Id              string          `gorm:"type:varchar(128);primaryKey"`
	Kind            string          `gorm:"type:varchar(32);not null;index"`
	Content         string          `gorm:"type:text"`
	Embedding       pgvector.Vector `gorm:"type:vector(768)"`
	AuthorId        int64           `gorm:"index"`
	AuthorName      string          `gorm:"type:varchar(255)"`
	Timestamp       int64           `gorm:"not null;index"`
	ConversationKey string          `gorm:"type:varchar(128);index"`
	ThreadParentId  *int64          `gorm:"index"`
	Config          datatypes.JSON  `gorm:"type:jsonb"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime"`
}

func (VectorDocument) TableName() string {
	return "vector_documents"
}
