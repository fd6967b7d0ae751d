package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/repository/contract"
	"avatar-engine-be/internal/repository/specification"
	"avatar-engine-be/pkg/embedding"

	"github.com/patrickmn/go-cache"
)

// DocumentRepository keeps vector documents in process memory. Filters are
// evaluated through DocumentSpecification.Matches; OrderBy and Pagination
// are interpreted directly.
type DocumentRepository struct {
	cache *cache.Cache
}

func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

var _ contract.DocumentRepository = (*DocumentRepository)(nil)

func (r *DocumentRepository) Upsert(ctx context.Context, docs []*entity.IndexedDocument) error {
	for _, doc := range docs {
		stored := cloneDocument(doc)
		if stored.UpdatedAt.IsZero() {
			stored.UpdatedAt = time.Now()
		}
		r.cache.Set(doc.Id, stored, cache.NoExpiration)
	}
	return nil
}

func (r *DocumentRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.IndexedDocument, error) {
	docs, err := r.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

func (r *DocumentRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.IndexedDocument, error) {
	q, err := parseSpecs(specs)
	if err != nil {
		return nil, err
	}
	docs := r.filter(q.filters)
	q.sort(docs)
	return q.page(docs), nil
}

func (r *DocumentRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	q, err := parseSpecs(specs)
	if err != nil {
		return 0, err
	}
	return int64(len(r.filter(q.filters))), nil
}

func (r *DocumentRepository) SearchSimilar(ctx context.Context, vector []float32, limit int, specs ...specification.Specification) ([]*contract.ScoredDocument, error) {
	if limit <= 0 {
		return nil, nil
	}
	q, err := parseSpecs(specs)
	if err != nil {
		return nil, err
	}

	docs := r.filter(q.filters)
	scored := make([]*contract.ScoredDocument, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			continue
		}
		scored = append(scored, &contract.ScoredDocument{
			Document:   doc,
			Similarity: embedding.CosineSimilarity(vector, doc.Embedding),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity == scored[j].Similarity {
			return scored[i].Document.Id < scored[j].Document.Id
		}
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (r *DocumentRepository) filter(filters []specification.DocumentSpecification) []*entity.IndexedDocument {
	items := r.cache.Items()
	docs := make([]*entity.IndexedDocument, 0, len(items))
	for _, item := range items {
		doc := item.Object.(*entity.IndexedDocument)
		if matchesAll(doc, filters) {
			docs = append(docs, cloneDocument(doc))
		}
	}
	// map iteration order is random
	sort.Slice(docs, func(i, j int) bool { return docs[i].Id < docs[j].Id })
	return docs
}

type memoryQuery struct {
	filters []specification.DocumentSpecification
	orders  []specification.OrderBy
	paging  *specification.Pagination
}

func parseSpecs(specs []specification.Specification) (*memoryQuery, error) {
	q := &memoryQuery{}
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.DocumentSpecification:
			q.filters = append(q.filters, s)
		case specification.OrderBy:
			if _, ok := orderFields[s.Field]; !ok {
				return nil, fmt.Errorf("memory store cannot order by %q", s.Field)
			}
			q.orders = append(q.orders, s)
		case specification.Pagination:
			p := s
			q.paging = &p
		default:
			return nil, fmt.Errorf("memory store does not support specification %T", spec)
		}
	}
	return q, nil
}

var orderFields = map[string]func(a, b *entity.IndexedDocument) int{
	"timestamp": func(a, b *entity.IndexedDocument) int {
		return compareInt64(a.Metadata.Timestamp, b.Metadata.Timestamp)
	},
	"id": func(a, b *entity.IndexedDocument) int {
		switch {
		case a.Id < b.Id:
			return -1
		case a.Id > b.Id:
			return 1
		}
		return 0
	},
	"updated_at": func(a, b *entity.IndexedDocument) int {
		return a.UpdatedAt.Compare(b.UpdatedAt)
	},
}

func (q *memoryQuery) sort(docs []*entity.IndexedDocument) {
	if len(q.orders) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range q.orders {
			c := orderFields[o.Field](docs[i], docs[j])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func (q *memoryQuery) page(docs []*entity.IndexedDocument) []*entity.IndexedDocument {
	if q.paging == nil {
		return docs
	}
	if q.paging.Offset >= len(docs) {
		return []*entity.IndexedDocument{}
	}
	docs = docs[q.paging.Offset:]
	if q.paging.Limit > 0 && len(docs) > q.paging.Limit {
		docs = docs[:q.paging.Limit]
	}
	return docs
}

func matchesAll(doc *entity.IndexedDocument, filters []specification.DocumentSpecification) bool {
	for _, f := range filters {
		if !f.Matches(doc) {
			return false
		}
	}
	return true
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cloneDocument(doc *entity.IndexedDocument) *entity.IndexedDocument {
	c := *doc
	if doc.Embedding != nil {
		c.Embedding = append([]float32(nil), doc.Embedding...)
	}
	if doc.Metadata.ThreadParentId != nil {
		parent := *doc.Metadata.ThreadParentId
		c.Metadata.ThreadParentId = &parent
	}
	return &c
}
