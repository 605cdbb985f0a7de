package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Keys        APIKeys
	Ai          AIConfig
	VectorStore VectorStoreConfig
	Ingest      IngestConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string // empty disables the guard
	ChatStreamTimeout  time.Duration
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	Jina         string
	OpenAI       string
	Anthropic    string
	AstraToken   string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini", "ollama" or "jina"
	EmbeddingModel    string
	EmbeddingCache    string // "memory", "redis" or "none"
	QueryTaskType     string // empty sends no task hint
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "gemini", "ollama", "openai", "huggingface", "anthropic"
	LLMModel          string
	LLMBaseURL        string // OpenAI-compatible endpoint override
}

type VectorStoreConfig struct {
	Provider        string // "astra", "pgvector" or "chromem"
	AstraEndpoint   string
	AstraKeyspace   string
	AstraCollection string
	ChromemPath     string // empty keeps the collection in memory
	ChromemName     string
}

type IngestConfig struct {
	Topic        string
	PoisonTopic  string
	MaxRetries   int
	RetryDelay   time.Duration
	ChunkSize    int
	ChunkOverlap int
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
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
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "logs/chat.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			ChatStreamTimeout:  getEnvAsDuration("CHAT_STREAM_TIMEOUT", 2*time.Minute),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", getEnv("GEMINI_API_KEY", "")),
			Jina:         getEnv("JINA_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			Anthropic:    getEnv("ANTHROPIC_API_KEY", ""),
			AstraToken:   getEnv("ASTRA_DB_APPLICATION_TOKEN", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", ""),
			EmbeddingCache:    getEnv("EMBEDDING_CACHE", "memory"),
			QueryTaskType:     getEnv("EMBEDDING_QUERY_TASK_TYPE", "RETRIEVAL_QUERY"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:          getEnv("LLM_MODEL", ""),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
		},
		VectorStore: VectorStoreConfig{
			Provider:        getEnv("VECTOR_STORE_PROVIDER", "astra"),
			AstraEndpoint:   getEnv("ASTRA_DB_API_ENDPOINT", ""),
			AstraKeyspace:   getEnv("ASTRA_DB_KEYSPACE", "default_keyspace"),
			AstraCollection: getEnv("ASTRA_DB_COLLECTION", ""),
			ChromemPath:     getEnv("CHROMEM_PATH", ""),
			ChromemName:     getEnv("CHROMEM_COLLECTION", "documents"),
		},
		Ingest: IngestConfig{
			Topic:        getEnv("INGEST_TOPIC_NAME", "INGEST_DOCUMENT"),
			PoisonTopic:  getEnv("INGEST_POISON_TOPIC_NAME", "INGEST_DOCUMENT_POISON"),
			MaxRetries:   getEnvAsInt("INGEST_MAX_RETRIES", 3),
			RetryDelay:   getEnvAsDuration("INGEST_RETRY_DELAY", 2*time.Second),
			ChunkSize:    getEnvAsInt("INGEST_CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvAsInt("INGEST_CHUNK_OVERLAP", 200),
		},
	}
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
