package entity

import "time"

const (
	DocumentKindMessage = "message"
	DocumentKindPersona = "avatar-config"
)

// DocumentMetadata is the filterable metadata stored next to every vector.
type DocumentMetadata struct {
	AuthorId        int64
	AuthorName      string
	Timestamp       int64 // epoch seconds
	ConversationKey string
	ThreadParentId  *int64
	Config          string // serialized persona, persona documents only
}

// IndexedDocument is the unit stored in the vector store.
type IndexedDocument struct {
	Id        string
	Kind      string
	Content   string
	Embedding []float32
	Metadata  DocumentMetadata
	UpdatedAt time.Time
}

// Time returns the document timestamp as a time.Time.
func (d *IndexedDocument) Time() time.Time {
	return time.Unix(d.Metadata.Timestamp, 0)
}

// RetrievalBundle is the grounding context for one generated reply:
// unique by id, ascending by timestamp.
type RetrievalBundle []*IndexedDocument

// Ids returns the document ids in bundle order.
func (b RetrievalBundle) Ids() []string {
	ids := make([]string, len(b))
	for i, d := range b {
		ids[i] = d.Id
	}
	return ids
}
