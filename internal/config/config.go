package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	AI       AIConfig
	Pipeline PipelineConfig
	Push     PushConfig
	Limits   LimitsConfig
}

type ServerConfig struct {
	Port               string
	LogLevel           string
	CORSAllowedOrigins []string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type AIConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	TimeoutSeconds int
	MaxAttempts    int
}

type PipelineConfig struct {
	BatchWindowSeconds int
	MaxBatchSize       int
	Workers            int
	QueueSize          int
	CooldownSeconds    int
}

type PushConfig struct {
	Concurrency int
	MaxRetries  int
}

type LimitsConfig struct {
	MaxLogLineLength   int
	MaxIngestBatch     int
	DefaultAlertsLimit int
	MaxAlertsLimit     int
	SSEQueueSize       int
	SSEMaxClients      int
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:               getenv("PORT", "8080"),
			LogLevel:           getenv("LOG_LEVEL", "info"),
			CORSAllowedOrigins: splitCSV(os.Getenv("CORS_ALLOWED_ORIGINS")),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		AI: AIConfig{
			APIKey:         os.Getenv("AI_API_KEY"),
			Model:          getenv("AI_MODEL", "gemini-2.0-flash"),
			EmbeddingModel: getenv("AI_EMBEDDING_MODEL", "text-embedding-004"),
			TimeoutSeconds: getenvInt("AI_TIMEOUT_SECONDS", 30),
			MaxAttempts:    getenvInt("AI_MAX_ATTEMPTS", 3),
		},
		Pipeline: PipelineConfig{
			BatchWindowSeconds: getenvInt("BATCH_WINDOW_SECONDS", 30),
			MaxBatchSize:       getenvInt("MAX_BATCH_SIZE", 50),
			Workers:            getenvInt("PIPELINE_WORKERS", 4),
			QueueSize:          getenvInt("PIPELINE_QUEUE_SIZE", 64),
			CooldownSeconds:    getenvInt("ALERT_COOLDOWN_SECONDS", 300),
		},
		Push: PushConfig{
			Concurrency: getenvInt("PUSH_CONCURRENCY", 8),
			MaxRetries:  getenvInt("PUSH_MAX_RETRIES", 2),
		},
		Limits: LimitsConfig{
			MaxLogLineLength:   getenvInt("MAX_LOG_LINE_LENGTH", 10000),
			MaxIngestBatch:     getenvInt("MAX_INGEST_BATCH", 500),
			DefaultAlertsLimit: getenvInt("DEFAULT_ALERTS_LIMIT", 50),
			MaxAlertsLimit:     getenvInt("MAX_ALERTS_LIMIT", 200),
			SSEQueueSize:       getenvInt("SSE_QUEUE_SIZE", 50),
			SSEMaxClients:      getenvInt("SSE_MAX_CLIENTS", 100),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func splitCSV(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
