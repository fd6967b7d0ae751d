// Package testutil holds deterministic stand-ins for the model providers and
// the user store so the pipeline can be tested without network access.
package testutil

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"avatar-engine-be/internal/entity"
	"avatar-engine-be/pkg/embedding"
	"avatar-engine-be/pkg/llm"
)

const EmbeddingDimensions = 32

// Embedder hashes words into a fixed-size bag-of-words vector.
type Embedder struct {
	mu    sync.Mutex
	Calls int
	Err   error
}

func (e *Embedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	e.mu.Lock()
	e.Calls++
	err := e.Err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: Vectorize(text)},
	}, nil
}

func (e *Embedder) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Calls
}

// Vectorize is the embedding used by Embedder.
func Vectorize(text string) []float32 {
	vec := make([]float32, EmbeddingDimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(word, ".,!?[]")))
		vec[h.Sum32()%EmbeddingDimensions]++
	}
	return vec
}

// LLMCall records one request made to LLM.
type LLMCall struct {
	History []llm.Message
	Options *llm.Options
}

// LLM answers with Respond, or with the queued Replies in order.
type LLM struct {
	mu      sync.Mutex
	Replies []string
	Respond func(history []llm.Message, opts *llm.Options) (string, error)
	Calls   []LLMCall
}

func (l *LLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.ApplyOptions(llm.Options{}, options...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, LLMCall{History: history, Options: opts})

	if l.Respond != nil {
		return l.Respond(history, opts)
	}
	if len(l.Replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := l.Replies[0]
	l.Replies = l.Replies[1:]
	return reply, nil
}

func (l *LLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return l.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

func (l *LLM) CallCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Calls)
}

// Profiles is an in-memory UserProfileRepository.
type Profiles struct {
	mu       sync.Mutex
	Profiles map[int64]*entity.UserProfile
	Calls    int
	Err      error
}

func (p *Profiles) GetProfile(ctx context.Context, userId int64) (*entity.UserProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls++
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Profiles[userId], nil
}

func (p *Profiles) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Calls
}
