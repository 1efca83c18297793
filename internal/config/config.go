package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Ai      AIConfig
	Rag     RagConfig
	Session SessionConfig
	Plugin  PluginConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama" or "local"
	EmbeddingFallback string // "degrade" or "fail"
	EmbeddingDim      int
	OllamaBaseURL     string
	OllamaEmbedModel  string
	LLMProvider       string // "ollama"
	LLMModel          string // e.g. "llama3", "qwen2.5"
	LLMTimeout        time.Duration
	MaxTokens         int
	Temperature       float64
}

type RagConfig struct {
	DocsDir       string
	ChunkSize     int
	ChunkOverlap  int
	MaxResults    int
	MinSimilarity float64
}

type SessionConfig struct {
	Backend      string // "redis" or "memory"
	TTL          time.Duration
	HistoryLimit int
	CleanupEvery time.Duration
}

type PluginConfig struct {
	ExecuteTimeout time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingFallback: getEnv("EMBEDDING_FALLBACK", "degrade"),
			EmbeddingDim:      getEnvAsInt("EMBEDDING_DIM", 768),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaEmbedModel:  getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMTimeout:        getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			MaxTokens:         getEnvAsInt("LLM_MAX_TOKENS", 1024),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		},
		Rag: RagConfig{
			DocsDir:       getEnv("RAG_DOCS_DIR", "./docs"),
			ChunkSize:     getEnvAsInt("RAG_CHUNK_SIZE", 1000),
			ChunkOverlap:  getEnvAsInt("RAG_CHUNK_OVERLAP", 200),
			MaxResults:    getEnvAsInt("RAG_MAX_RESULTS", 3),
			MinSimilarity: getEnvAsFloat("RAG_MIN_SIMILARITY", 0.1),
		},
		Session: SessionConfig{
			Backend:      getEnv("SESSION_BACKEND", "redis"),
			TTL:          getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			HistoryLimit: getEnvAsInt("SESSION_HISTORY_LIMIT", 10),
			CleanupEvery: getEnvAsDuration("SESSION_CLEANUP_EVERY", time.Hour),
		},
		Plugin: PluginConfig{
			ExecuteTimeout: getEnvAsDuration("PLUGIN_TIMEOUT", 5*time.Second),
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
