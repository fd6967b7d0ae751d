package specification

import (
	"avatar-engine-be/internal/entity"

	"gorm.io/gorm"
)

type ByDocumentID struct {
	ID string
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

func (s ByDocumentID) Matches(doc *entity.IndexedDocument) bool {
	return doc.Id == s.ID
}

type ByDocumentIDs struct {
	IDs []string
}

func (s ByDocumentIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id IN ?", s.IDs)
}

func (s ByDocumentIDs) Matches(doc *entity.IndexedDocument) bool {
	for _, id := range s.IDs {
		if doc.Id == id {
			return true
		}
	}
	return false
}

type ByKind struct {
	Kind string
}

func (s ByKind) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("kind = ?", s.Kind)
}

func (s ByKind) Matches(doc *entity.IndexedDocument) bool {
	return doc.Kind == s.Kind
}

type ByAuthor struct {
	AuthorId int64
}

func (s ByAuthor) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("author_id = ?", s.AuthorId)
}

func (s ByAuthor) Matches(doc *entity.IndexedDocument) bool {
	return doc.Metadata.AuthorId == s.AuthorId
}

type ByConversationKey struct {
	Key string
}

func (s ByConversationKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversation_key = ?", s.Key)
}

func (s ByConversationKey) Matches(doc *entity.IndexedDocument) bool {
	return doc.Metadata.ConversationKey == s.Key
}

type ByThreadParent struct {
	ParentId int64
}

func (s ByThreadParent) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("thread_parent_id = ?", s.ParentId)
}

func (s ByThreadParent) Matches(doc *entity.IndexedDocument) bool {
	return doc.Metadata.ThreadParentId != nil && *doc.Metadata.ThreadParentId == s.ParentId
}

// TimestampFrom keeps documents at or after Since (epoch seconds).
type TimestampFrom struct {
	Since int64
}

func (s TimestampFrom) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("timestamp >= ?", s.Since)
}

func (s TimestampFrom) Matches(doc *entity.IndexedDocument) bool {
	return doc.Metadata.Timestamp >= s.Since
}
