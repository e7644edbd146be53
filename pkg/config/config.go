package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment
// variables.
type Config struct {
	// Server
	Port    string
	AppName string

	// OpenAI
	OpenAIAPIKey string
	EmbedModel   string
	ChatModel    string

	// SOP source
	SOPPath       string
	SOPSourceName string

	// Chunking
	MaxTokens     int
	OverlapTokens int

	// Embedding
	BatchSize       int
	MaxRetries      int
	RetryBaseDelay  time.Duration
	ProviderTimeout time.Duration

	// Confidence gating
	MinConfidence float64
	DefaultTopK   int

	// Snapshot store: "file" or "postgres"
	StoreBackend    string
	VectorStorePath string
	DatabaseURL     string

	// Audit
	AuditLogPath string

	// Todoist
	TodoistToken   string
	TodoistProject string

	// Optional checklist block appended to expense task comments.
	SOPChecklist string
}

// Load reads configuration from environment variables with sensible
// defaults.
func Load() *Config {
	return &Config{
		Port:    envOrDefault("PORT", "8000"),
		AppName: envOrDefault("APP_NAME", "SOP Assistant"),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		EmbedModel:   envOrDefault("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		ChatModel:    envOrDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini"),

		SOPPath:       envOrDefault("SOP_PATH", "data/sops/expenses_sop.txt"),
		SOPSourceName: envOrDefault("SOP_SOURCE_NAME", "SFO EXPENSES SOP"),

		MaxTokens:     envOrDefaultInt("CHUNK_MAX_TOKENS", 350),
		OverlapTokens: envOrDefaultInt("CHUNK_OVERLAP_TOKENS", 50),

		BatchSize:       envOrDefaultInt("EMBED_BATCH_SIZE", 16),
		MaxRetries:      envOrDefaultInt("EMBED_MAX_RETRIES", 5),
		RetryBaseDelay:  envOrDefaultDuration("EMBED_RETRY_BASE_DELAY", time.Second),
		ProviderTimeout: envOrDefaultDuration("PROVIDER_TIMEOUT", 30*time.Second),

		MinConfidence: envOrDefaultFloat("MIN_CONFIDENCE", 0.45),
		DefaultTopK:   envOrDefaultInt("DEFAULT_TOP_K", 4),

		StoreBackend:    envOrDefault("STORE_BACKEND", "file"),
		VectorStorePath: envOrDefault("VECTOR_STORE_PATH", "data/vector_store"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),

		AuditLogPath: envOrDefault("AUDIT_LOG_PATH", "audit.jsonl"),

		TodoistToken:   os.Getenv("TODOIST_API_TOKEN"),
		TodoistProject: envOrDefault("TODOIST_PROJECT_NAME", "Inbox"),

		SOPChecklist: os.Getenv("SOP_CHECKLIST"),
	}
}

// Validate rejects configurations that cannot work before any request is
// served.
func (c *Config) Validate() error {
	if c.OverlapTokens >= c.MaxTokens {
		return fmt.Errorf("CHUNK_OVERLAP_TOKENS (%d) must be smaller than CHUNK_MAX_TOKENS (%d)", c.OverlapTokens, c.MaxTokens)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("MIN_CONFIDENCE must be in [0,1], got %g", c.MinConfidence)
	}
	if c.StoreBackend != "file" && c.StoreBackend != "postgres" {
		return fmt.Errorf("STORE_BACKEND must be file or postgres, got %q", c.StoreBackend)
	}
	if c.StoreBackend == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required with STORE_BACKEND=postgres")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return fallback
}
