package embedding

import "context"

const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
}

// BatchEmbeddingProvider is implemented by providers that can embed several
// texts in one request. Results are in input order.
type BatchEmbeddingProvider interface {
	EmbeddingProvider
	GenerateBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
}

// GenerateAll embeds texts with a single batch call when the provider
// supports it and one call per text otherwise.
func GenerateAll(ctx context.Context, p EmbeddingProvider, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if bp, ok := p.(BatchEmbeddingProvider); ok {
		return bp.GenerateBatch(ctx, texts, taskType)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		res, err := p.Generate(ctx, text, taskType)
		if err != nil {
			return nil, err
		}
		vectors[i] = res.Embedding.Values
	}
	return vectors, nil
}
