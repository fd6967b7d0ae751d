package specification

import (
	"avatar-engine-be/internal/entity"

	"gorm.io/gorm"
)

// Specification defines the interface for query specifications
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

// DocumentSpecification is a document filter that can run either as SQL or
// against an in-memory document.
type DocumentSpecification interface {
	Specification
	Matches(doc *entity.IndexedDocument) bool
}
