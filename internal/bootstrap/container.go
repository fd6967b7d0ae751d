package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"avatar-engine-be/internal/config"
	"avatar-engine-be/internal/controller"
	"avatar-engine-be/internal/model"
	"avatar-engine-be/internal/pkg/logger"
	"avatar-engine-be/internal/repository/contract"
	"avatar-engine-be/internal/repository/implementation"
	"avatar-engine-be/internal/repository/memory"
	"avatar-engine-be/internal/service"
	"avatar-engine-be/pkg/embedding"
	"avatar-engine-be/pkg/embedding/jina"
	"avatar-engine-be/pkg/llm"
	"avatar-engine-be/pkg/llm/factory"
	pktNats "avatar-engine-be/pkg/nats"
	"avatar-engine-be/pkg/rag/chain"
	"avatar-engine-be/pkg/rag/indexer"
	"avatar-engine-be/pkg/rag/persona"
	"avatar-engine-be/pkg/rag/retriever"
	"avatar-engine-be/pkg/rag/window"
	"avatar-engine-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AvatarController controller.IAvatarController
	IndexController  controller.IIndexController
	HealthController controller.IHealthController

	// Services
	AvatarService service.IAvatarService
	IndexService  service.IIndexService

	// Background services, started by main
	ConsumerService service.IConsumerService
	IngestService   service.IIngestService // nil without NATS

	Logger      logger.ILogger
	VectorStore store.VectorStore

	closers []func()
}

// NewContainer wires every component from cfg. db may be nil when the
// memory vector store is selected; profiles then come from an empty
// in-memory reader.
func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	traceLogger := logger.NewIsolatedLogger(cfg.App.LLMTraceLogPath)
	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, func() { _ = traceLogger.Sync() }, func() { _ = sysLogger.Sync() })

	// 1. Model providers
	embeddingProvider, err := NewEmbeddingProvider(cfg.Ai, cfg.Keys)
	if err != nil {
		return nil, err
	}
	sysLogger.Info("BOOTSTRAP", "Embedding provider ready", map[string]interface{}{
		"provider": cfg.Ai.EmbeddingProvider,
		"model":    cfg.Ai.EmbeddingModel,
	})

	llmProvider, err := NewLLMProvider(cfg.Ai, cfg.Keys)
	if err != nil {
		return nil, err
	}
	sysLogger.Info("BOOTSTRAP", "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	// 2. Storage
	var (
		docRepo  contract.DocumentRepository
		profiles contract.UserProfileRepository
	)
	switch cfg.Vector.Store {
	case "memory":
		docRepo = memory.NewDocumentRepository()
	case "pgvector":
		if cfg.Ai.EmbeddingDimensions != model.EmbeddingDimensions {
			return nil, fmt.Errorf("EMBEDDING_DIMENSIONS is %d but the vector_documents column holds %d",
				cfg.Ai.EmbeddingDimensions, model.EmbeddingDimensions)
		}
		if db == nil {
			return nil, fmt.Errorf("pgvector store requires DB_CONNECTION_STRING")
		}
		docRepo = implementation.NewDocumentRepository(db)
	default:
		return nil, fmt.Errorf("unsupported vector store: %s", cfg.Vector.Store)
	}
	if db != nil {
		profiles = implementation.NewUserProfileRepository(db)
	} else {
		sysLogger.Warn("BOOTSTRAP", "No database configured, personas are derived without profiles", nil)
		profiles = memory.NewUserProfileRepository()
	}
	vectorStore := store.NewVectorStore(docRepo, embeddingProvider)
	c.VectorStore = vectorStore

	// 3. Persona store with an optional cross-process lock
	var personaOpts []persona.Option
	if cfg.Persona.UseRedisLock && cfg.App.RedisURL != "" {
		if rdb := connectRedis(cfg.App.RedisURL, sysLogger); rdb != nil {
			personaOpts = append(personaOpts, persona.WithLocker(persona.NewRedisLocker(rdb)))
			c.closers = append(c.closers, func() { _ = rdb.Close() })
		}
	}
	personaStore := persona.NewStore(vectorStore, profiles, llmProvider, sysLogger, persona.Config{
		HistoryLimit: cfg.Persona.HistoryLimit,
		LockTTL:      cfg.Persona.LockTTL,
		PollInterval: cfg.Persona.PollInterval,
	}, personaOpts...)

	// 4. Reply pipeline
	planner := window.NewPlanner(vectorStore, ThresholdsFrom(cfg.Planner), sysLogger)
	hybridRetriever := retriever.NewRetriever(vectorStore, sysLogger)
	replyChain := chain.NewChain(llmProvider, embeddingProvider, traceLogger, chain.Config{
		RewriteTemperature: cfg.Chain.RewriteTemperature,
		AnswerTemperature:  cfg.Chain.AnswerTemperature,
		GroundingLimit:     cfg.Chain.GroundingLimit,
	})
	c.AvatarService = service.NewAvatarService(personaStore, planner, hybridRetriever, replyChain, sysLogger, cfg.App.RequestTimeout)

	// 5. Indexing queue
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	messageIndexer := indexer.NewIndexer(vectorStore, sysLogger)
	publisherService := service.NewPublisherService(cfg.Keys.IndexTopic, pubSub)
	c.IndexService = service.NewIndexService(publisherService, messageIndexer, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Keys.IndexTopic, c.IndexService, cfg.Index.QueueAttempts, sysLogger)

	if cfg.Index.NatsEnabled {
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS, message events are not indexed", map[string]interface{}{"error": err.Error()})
		} else {
			c.IngestService = service.NewIngestService(natsSub, c.IndexService, cfg.Index.NatsDurable, cfg.Index.NatsMaxDeliver, sysLogger)
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// 6. Controllers
	checks := map[string]controller.HealthCheck{
		"vector_store": func(ctx context.Context) error {
			_, err := vectorStore.Count(ctx)
			return err
		},
	}
	if db != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}

	c.AvatarController = controller.NewAvatarController(c.AvatarService)
	c.IndexController = controller.NewIndexController(c.IndexService)
	c.HealthController = controller.NewHealthController(checks)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func NewEmbeddingProvider(ai config.AIConfig, keys config.APIKeys) (embedding.EmbeddingProvider, error) {
	switch strings.ToLower(ai.EmbeddingProvider) {
	case "ollama":
		return embedding.NewOllamaProvider(ai.OllamaBaseURL, ai.EmbeddingModel), nil
	case "gemini":
		if keys.GoogleGemini == "" {
			return nil, fmt.Errorf("gemini embeddings require GOOGLE_GEMINI_API_KEY")
		}
		return embedding.NewGeminiProvider(keys.GoogleGemini), nil
	case "jina":
		if keys.Jina == "" {
			return nil, fmt.Errorf("jina embeddings require JINA_API_KEY")
		}
		return jina.NewJinaProvider(keys.Jina), nil
	case "openai":
		if keys.OpenAI == "" {
			return nil, fmt.Errorf("openai embeddings require OPENAI_API_KEY")
		}
		return embedding.NewOpenAIProvider(keys.OpenAI, ai.OpenAIBaseURL, ai.EmbeddingModel, ai.EmbeddingDimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", ai.EmbeddingProvider)
	}
}

func NewLLMProvider(ai config.AIConfig, keys config.APIKeys) (llm.LLMProvider, error) {
	fc := factory.Config{
		Provider: strings.ToLower(ai.LLMProvider),
		Model:    ai.LLMModel,
		BaseURL:  ai.LLMBaseURL,
	}
	switch fc.Provider {
	case "ollama":
		if fc.BaseURL == "" {
			fc.BaseURL = ai.OllamaBaseURL
		}
	case "huggingface":
		fc.APIKey = keys.HuggingFace
	case "openai":
		fc.APIKey = keys.OpenAI
		if fc.BaseURL == "" {
			fc.BaseURL = ai.OpenAIBaseURL
		}
	}
	return factory.NewLLMProvider(fc)
}

// ThresholdsFrom converts the planner settings into window thresholds.
func ThresholdsFrom(p config.PlannerConfig) window.Thresholds {
	hours := func(n int) time.Duration { return time.Duration(n) * time.Hour }
	return window.Thresholds{
		VeryHighActivity: p.VeryHighActivity,
		HighActivity:     p.HighActivity,
		ModerateActivity: p.ModerateActivity,
		LowActivity:      p.LowActivity,

		VeryHighWindow: hours(p.VeryHighWindowHours),
		HighWindow:     hours(p.HighWindowHours),
		ModerateWindow: hours(p.ModerateWindowHours),
		LowWindow:      hours(p.LowWindowHours),
		DormantWindow:  hours(p.DormantWindowHours),

		MinBaseline:     p.MinBaseline,
		MaxBaseline:     p.MaxBaseline,
		BusyLimitCap:    p.BusyLimitCap,
		QuietLimitFloor: p.QuietLimitFloor,

		ActivityLookback: hours(p.LookbackHours),
	}
}

func connectRedis(url string, l logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		l.Warn("BOOTSTRAP", "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		l.Warn("BOOTSTRAP", "Redis unreachable, persona lock disabled", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
