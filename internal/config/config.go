package config

import (
	"os"
	"strconv"
	"strings"
)

// Config centralizes runtime settings for the API and the summary worker.
type Config struct {
	Port string

	AuthToken string

	DatabaseURL string

	// Upload intake
	MaxUploadBytes   int64
	AllowedFileTypes []string
	FreeTierJobLimit int
	StorageDriver    string
	LocalStorageDir  string
	MinioEndpoint    string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioBucket      string
	MinioUseSSL      bool

	// Summarization
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAITimeoutMS    int
	OpenAIModel        string
	TranscriptionModel string
	MaxContentLength   int

	// Queue
	QueueDriver   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string
	RedisDLQ      string
	RedisGroup    string
	RedisConsumer string
	RabbitURL     string
	RabbitQueue   string

	// Observer
	ObserverTimeoutMS int

	// Payments
	SolanaRPCURL    string
	RecipientWallet string
	AmountTolerance float64

	CORSAllowedOrigins []string

	RateLimitRPS   float64
	RateLimitBurst int

	WorkerEnabled bool
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		AuthToken: getEnv("API_AUTH_TOKEN", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 100*1024*1024),
		AllowedFileTypes: getEnvList("ALLOWED_FILE_TYPES", []string{
			"application/pdf",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"audio/mpeg",
			"video/mp4",
		}),
		FreeTierJobLimit: getEnvInt("FREE_TIER_JOB_LIMIT", 5),
		StorageDriver:    getEnv("STORAGE_DRIVER", ""),
		LocalStorageDir:  getEnv("LOCAL_STORAGE_DIR", "uploads"),
		MinioEndpoint:    getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:   getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:   getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:      getEnv("MINIO_BUCKET", "uploads"),
		MinioUseSSL:      getEnvBool("MINIO_USE_SSL", false),

		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAITimeoutMS:    getEnvInt("OPENAI_TIMEOUT_MS", 60000),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o"),
		TranscriptionModel: getEnv("TRANSCRIPTION_MODEL", "whisper-1"),
		MaxContentLength:   getEnvInt("MAX_CONTENT_LENGTH", 15000),

		QueueDriver:   getEnv("QUEUE_DRIVER", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisStream:   getEnv("REDIS_STREAM", "summary_jobs"),
		RedisDLQ:      getEnv("REDIS_DLQ_STREAM", "summary_jobs_dlq"),
		RedisGroup:    getEnv("REDIS_GROUP", "summary_workers"),
		RedisConsumer: getEnv("REDIS_CONSUMER", "api-1"),
		RabbitURL:     getEnv("RABBIT_URL", ""),
		RabbitQueue:   getEnv("RABBIT_QUEUE", "summary_jobs"),

		ObserverTimeoutMS: getEnvInt("OBSERVER_TIMEOUT_MS", 120000),

		SolanaRPCURL:    getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		RecipientWallet: getEnv("RECIPIENT_WALLET_ADDRESS", ""),
		AmountTolerance: getEnvFloat("PAYMENT_AMOUNT_TOLERANCE", 0.0001),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		WorkerEnabled: getEnvBool("WORKER_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
