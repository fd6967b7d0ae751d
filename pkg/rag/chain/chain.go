package chain

import (
	"context"
	"errors"
	"sort"
	"strings"

	"avatar-engine-be/internal/apperror"
	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/pkg/logger"
	"avatar-engine-be/pkg/embedding"
	"avatar-engine-be/pkg/llm"
	"avatar-engine-be/pkg/rag/prompt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("avatar-engine.chain")

var errEmptyCompletion = errors.New("empty completion")

// Input is everything one reply is generated from.
type Input struct {
	Persona *entity.AvatarPersona
	Sender  string
	Content string
	Bundle  entity.RetrievalBundle
}

type Config struct {
	RewriteTemperature float64
	AnswerTemperature  float64
	// GroundingLimit keeps only the N documents most similar to the
	// rewritten message. Zero keeps the whole bundle.
	GroundingLimit int
}

func DefaultConfig() Config {
	return Config{
		RewriteTemperature: 0,
		AnswerTemperature:  0.7,
	}
}

// Chain runs rewrite, rank and answer in sequence. Each stage failure
// stops the chain.
type Chain struct {
	llm      llm.LLMProvider
	embedder embedding.EmbeddingProvider
	trace    logger.ILogger
	cfg      Config
}

// NewChain takes a trace logger that receives every prompt and completion.
func NewChain(provider llm.LLMProvider, embedder embedding.EmbeddingProvider, traceLogger logger.ILogger, cfg Config) *Chain {
	return &Chain{
		llm:      provider,
		embedder: embedder,
		trace:    traceLogger,
		cfg:      cfg,
	}
}

// Run returns the answer text verbatim.
func (c *Chain) Run(ctx context.Context, in Input) (string, error) {
	ctx, span := tracer.Start(ctx, "chain.Run")
	defer span.End()

	standalone, err := c.rewrite(ctx, in)
	if err != nil {
		return "", fail(span, err)
	}

	grounding, err := c.rank(ctx, standalone, in.Bundle)
	if err != nil {
		return "", fail(span, err)
	}

	answer, err := c.answer(ctx, in, standalone, grounding)
	if err != nil {
		return "", fail(span, err)
	}

	span.SetStatus(codes.Ok, "")
	return answer, nil
}

func (c *Chain) rewrite(ctx context.Context, in Input) (string, error) {
	ctx, span := tracer.Start(ctx, "chain.rewrite")
	defer span.End()

	user := prompt.NewRewriteBuilder(in.Bundle, in.Sender, in.Content).Build()
	out, err := c.complete(ctx, "rewrite", prompt.RewriteSystem, user, c.cfg.RewriteTemperature)
	if err != nil {
		return "", fail(span, err)
	}
	return strings.TrimSpace(out), nil
}

// rank keeps the documents closest to the rewritten message, still in
// chronological order.
func (c *Chain) rank(ctx context.Context, query string, bundle entity.RetrievalBundle) (entity.RetrievalBundle, error) {
	if c.cfg.GroundingLimit <= 0 || len(bundle) <= c.cfg.GroundingLimit {
		return bundle, nil
	}

	ctx, span := tracer.Start(ctx, "chain.rank")
	defer span.End()

	res, err := c.embedder.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fail(span, apperror.NewRetrievalError("rank", err))
	}

	type scored struct {
		index int
		score float64
	}
	scores := make([]scored, len(bundle))
	for i, doc := range bundle {
		scores[i] = scored{index: i, score: embedding.CosineSimilarity(res.Embedding.Values, doc.Embedding)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	keep := make([]bool, len(bundle))
	for _, s := range scores[:c.cfg.GroundingLimit] {
		keep[s.index] = true
	}
	ranked := make(entity.RetrievalBundle, 0, c.cfg.GroundingLimit)
	for i, doc := range bundle {
		if keep[i] {
			ranked = append(ranked, doc)
		}
	}

	span.SetAttributes(attribute.Int("rank.kept", len(ranked)), attribute.Int("rank.total", len(bundle)))
	return ranked, nil
}

func (c *Chain) answer(ctx context.Context, in Input, standalone string, grounding entity.RetrievalBundle) (string, error) {
	ctx, span := tracer.Start(ctx, "chain.answer")
	defer span.End()

	builder := prompt.NewAnswerBuilder(in.Persona, in.Sender, grounding).WithStandalone(standalone)
	out, err := c.complete(ctx, "answer", builder.System(), builder.User(in.Content), c.cfg.AnswerTemperature)
	if err != nil {
		return "", fail(span, err)
	}
	return out, nil
}

func (c *Chain) complete(ctx context.Context, stage, system, user string, temperature float64) (string, error) {
	out, err := c.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}, llm.WithTemperature(temperature))

	details := map[string]interface{}{
		"stage":      stage,
		"system":     system,
		"user":       user,
		"completion": out,
	}
	if err != nil {
		details["error"] = err.Error()
		c.trace.Error("LLM", "Completion failed", details)
		return "", apperror.NewGenerationError(stage, err)
	}
	c.trace.Info("LLM", "Completion", details)

	if strings.TrimSpace(out) == "" {
		return "", apperror.NewGenerationError(stage, errEmptyCompletion)
	}
	return out, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
