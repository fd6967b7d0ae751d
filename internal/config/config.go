package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Vector   VectorConfig
	Planner  PlannerConfig
	Persona  PersonaConfig
	Index    IndexConfig
	Chain    ChainConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LLMTraceLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	RequestTimeout     time.Duration
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini     string
	Jina             string
	OpenAI           string
	HuggingFace      string
	ServiceJwtSecret string
	IndexTopic       string
}

type AIConfig struct {
	EmbeddingProvider   string // "ollama", "gemini", "jina" or "openai"
	EmbeddingModel      string
	EmbeddingDimensions int // width of the pgvector column, checked at startup
	OllamaBaseURL       string
	OpenAIBaseURL       string
	LLMProvider         string // "ollama", "huggingface" or "openai"
	LLMModel            string
	LLMBaseURL          string
}

type VectorConfig struct {
	Store string // "pgvector" or "memory"
}

// PlannerConfig holds the activity thresholds in messages per hour and the
// matching windows in hours.
type PlannerConfig struct {
	VeryHighActivity float64
	HighActivity     float64
	ModerateActivity float64
	LowActivity      float64

	VeryHighWindowHours int
	HighWindowHours     int
	ModerateWindowHours int
	LowWindowHours      int
	DormantWindowHours  int

	MinBaseline     int
	MaxBaseline     int
	BusyLimitCap    int
	QuietLimitFloor int
	LookbackHours   int
}

type PersonaConfig struct {
	HistoryLimit int
	LockTTL      time.Duration
	PollInterval time.Duration
	UseRedisLock bool
}

type IndexConfig struct {
	NatsEnabled    bool
	NatsDurable    string
	NatsMaxDeliver int
	QueueAttempts  int
	BackfillBatch  int
}

type ChainConfig struct {
	RewriteTemperature float64
	AnswerTemperature  float64
	GroundingLimit     int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMTraceLogPath:    getEnv("LLM_TRACE_LOG_PATH", "logs/llm_trace.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", ""),
			RequestTimeout:     time.Duration(getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini:     getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Jina:             getEnv("JINA_API_KEY", ""),
			OpenAI:           getEnv("OPENAI_API_KEY", ""),
			HuggingFace:      getEnv("HUGGINGFACE_API_KEY", ""),
			ServiceJwtSecret: getEnv("SERVICE_JWT_SECRET", ""),
			IndexTopic:       getEnv("INDEX_MESSAGE_TOPIC_NAME", "INDEX_MESSAGE"),
		},
		Ai: AIConfig{
			EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:      getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 768),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
			LLMProvider:         getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:            getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:          getEnv("LLM_BASE_URL", ""),
		},
		Vector: VectorConfig{
			Store: getEnv("VECTOR_STORE", "pgvector"),
		},
		Planner: PlannerConfig{
			VeryHighActivity:    getEnvAsFloat("PLANNER_VERY_HIGH_ACTIVITY", 50),
			HighActivity:        getEnvAsFloat("PLANNER_HIGH_ACTIVITY", 20),
			ModerateActivity:    getEnvAsFloat("PLANNER_MODERATE_ACTIVITY", 5),
			LowActivity:         getEnvAsFloat("PLANNER_LOW_ACTIVITY", 1),
			VeryHighWindowHours: getEnvAsInt("PLANNER_VERY_HIGH_WINDOW_HOURS", 12),
			HighWindowHours:     getEnvAsInt("PLANNER_HIGH_WINDOW_HOURS", 24),
			ModerateWindowHours: getEnvAsInt("PLANNER_MODERATE_WINDOW_HOURS", 48),
			LowWindowHours:      getEnvAsInt("PLANNER_LOW_WINDOW_HOURS", 7*24),
			DormantWindowHours:  getEnvAsInt("PLANNER_DORMANT_WINDOW_HOURS", 30*24),
			MinBaseline:         getEnvAsInt("PLANNER_MIN_BASELINE", 50),
			MaxBaseline:         getEnvAsInt("PLANNER_MAX_BASELINE", 200),
			BusyLimitCap:        getEnvAsInt("PLANNER_BUSY_LIMIT_CAP", 75),
			QuietLimitFloor:     getEnvAsInt("PLANNER_QUIET_LIMIT_FLOOR", 150),
			LookbackHours:       getEnvAsInt("PLANNER_LOOKBACK_HOURS", 24),
		},
		Persona: PersonaConfig{
			HistoryLimit: getEnvAsInt("PERSONA_HISTORY_LIMIT", 100),
			LockTTL:      time.Duration(getEnvAsInt("PERSONA_LOCK_TTL_SECONDS", 30)) * time.Second,
			PollInterval: time.Duration(getEnvAsInt("PERSONA_POLL_INTERVAL_MS", 500)) * time.Millisecond,
			UseRedisLock: getEnvAsBool("PERSONA_REDIS_LOCK", true),
		},
		Index: IndexConfig{
			NatsEnabled:    getEnvAsBool("INDEX_NATS_ENABLED", true),
			NatsDurable:    getEnv("INDEX_NATS_DURABLE", "avatar-indexer"),
			NatsMaxDeliver: getEnvAsInt("INDEX_NATS_MAX_DELIVER", 5),
			QueueAttempts:  getEnvAsInt("INDEX_QUEUE_ATTEMPTS", 3),
			BackfillBatch:  getEnvAsInt("BACKFILL_BATCH_SIZE", 200),
		},
		Chain: ChainConfig{
			RewriteTemperature: getEnvAsFloat("CHAIN_REWRITE_TEMPERATURE", 0),
			AnswerTemperature:  getEnvAsFloat("CHAIN_ANSWER_TEMPERATURE", 0.7),
			GroundingLimit:     getEnvAsInt("CHAIN_GROUNDING_LIMIT", 0),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
