package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	OpenAIAPIKey    string
	GoogleAPIKey    string
	AnthropicAPIKey string
	OllamaBaseURL   string

	DefaultLLMProvider string
	DefaultLLMModel    string
	EmbeddingProvider  string

	JWTSecret  string
	UploadDir  string
	PreviewDir string

	IngestionConcurrency int
	PreviewWidth         int
	JobPoolSize          int

	Port string
}

// LoadConfig loads the environment variables and returns config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "deckwise-docs"),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		GoogleAPIKey:    getEnv("GOOGLE_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),

		DefaultLLMProvider: getEnv("DEFAULT_LLM_PROVIDER", "gpt"),
		DefaultLLMModel:    getEnv("DEFAULT_LLM_MODEL", "gpt-4o-mini"),
		EmbeddingProvider:  getEnv("EMBEDDING_PROVIDER", "openai_small"),

		JWTSecret:  getEnv("JWT_SECRET", "CHANGE_ME_IN_PRODUCTION"),
		UploadDir:  getEnv("UPLOAD_DIR", "./uploads"),
		PreviewDir: getEnv("PREVIEW_DIR", "./previews"),

		IngestionConcurrency: getEnvInt("INGESTION_CONCURRENCY", 4),
		PreviewWidth:         getEnvInt("PREVIEW_WIDTH", 1200),
		JobPoolSize:          getEnvInt("JOB_POOL_SIZE", 2),

		Port: getEnv("PORT", "8080"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	if cfg.OpenAIAPIKey == "" {
		log.Println("WARN: OPENAI_API_KEY not set - gpt provider will be disabled")
	}
	if cfg.GoogleAPIKey == "" {
		log.Println("WARN: GOOGLE_API_KEY not set - gemini provider will be disabled")
	}

	for _, dir := range []string{cfg.UploadDir, cfg.PreviewDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("create %s: %v", dir, err)
		}
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
