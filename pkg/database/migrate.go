package database

import (
	"fmt"

	"avatar-engine-be/internal/model"

	"gorm.io/gorm"
)

// Migrate creates the vector_documents table and its indexes. The users and
// messages tables belong to the chat service and are never migrated here.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}

	if err := db.AutoMigrate(&model.VectorDocument{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_vector_documents_embedding ON vector_documents USING hnsw (embedding vector_cosine_ops);`,
		`CREATE INDEX IF NOT EXISTS idx_vector_documents_conversation_ts ON vector_documents (conversation_key, "timestamp" DESC);`,
	}
	for _, sql := range indexes {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
