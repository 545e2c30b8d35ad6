package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Keys         APIKeys
	Ai           AIConfig
	Conversation ConversationConfig
	Search       SearchConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	SessionBackend     string // "memory" or "redis"
	JwtSecret          string
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini    string
	OpenAI          string
	HuggingFace     string
	AzureAPIKey     string
	AzureEndpoint   string
	AzureAPIVersion string
	AzureDeployment string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini", "ollama" or "openai"
	EmbeddingModel    string
	OllamaBaseURL     string
	LLMProvider       string // "ollama", "huggingface", "openai", "azure"
	LLMModel          string // e.g. "llama3", "gpt-4o-mini"
}

type ConversationConfig struct {
	SessionTimeout    time.Duration
	SweepInterval     time.Duration
	CapabilityTimeout time.Duration
	HistoryWindow     int
	ConfirmMaxRetries int
}

type SearchConfig struct {
	TopK         int
	MinRelevance float64
	HMOBoost     float64
	TierBoost    float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "conversation_audit.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			SessionBackend:     strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini:    getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAI:          getEnv("OPENAI_API_KEY", ""),
			HuggingFace:     getEnv("HUGGINGFACE_API_KEY", ""),
			AzureAPIKey:     getEnv("AZURE_OPENAI_API_KEY", ""),
			AzureEndpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
			AzureAPIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2024-06-01"),
			AzureDeployment: getEnv("AZURE_OPENAI_DEPLOYMENT", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "openai"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMProvider:       getEnv("LLM_PROVIDER", "openai"),
			LLMModel:          getEnv("LLM_MODEL", "gpt-4o-mini"),
		},
		Conversation: ConversationConfig{
			SessionTimeout:    getEnvAsDuration("SESSION_TIMEOUT", 60*time.Minute),
			SweepInterval:     getEnvAsDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
			CapabilityTimeout: getEnvAsDuration("CAPABILITY_TIMEOUT", 20*time.Second),
			HistoryWindow:     getEnvAsInt("HISTORY_WINDOW", 10),
			ConfirmMaxRetries: getEnvAsInt("CONFIRM_MAX_RETRIES", 3),
		},
		Search: SearchConfig{
			TopK:         getEnvAsInt("SEARCH_TOP_K", 5),
			MinRelevance: getEnvAsFloat("SEARCH_MIN_RELEVANCE", 0.35),
			HMOBoost:     getEnvAsFloat("SEARCH_HMO_BOOST", 0.05),
			TierBoost:    getEnvAsFloat("SEARCH_TIER_BOOST", 0.05),
		},
	}
}

// LLMSettings resolves the key and model for the configured chat provider.
func (c *Config) LLMSettings() (provider, model, apiKey string) {
	provider, model = c.Ai.LLMProvider, c.Ai.LLMModel
	switch provider {
	case "huggingface":
		apiKey = c.Keys.HuggingFace
	case "azure":
		apiKey = c.Keys.AzureAPIKey
		if c.Keys.AzureDeployment != "" {
			model = c.Keys.AzureDeployment
		}
	default:
		apiKey = c.Keys.OpenAI
	}
	return provider, model, apiKey
}

// EmbeddingKey is the API key for the configured embedding provider.
func (c *Config) EmbeddingKey() string {
	if c.Ai.EmbeddingProvider == "gemini" {
		return c.Keys.GoogleGemini
	}
	return c.Keys.OpenAI
}

// IsProduction reports whether GO_ENV is production.
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

// getEnvAsDuration accepts Go durations ("90s", "1h").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
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
