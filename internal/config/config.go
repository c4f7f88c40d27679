// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	DBPath         string
	SessionTTL     time.Duration
	CurrencySymbol string
	AI             AIConfig
}

// AIConfig controls the RAG assistant.
type AIConfig struct {
	OpenAIAPIKey   string
	ChatModel      string
	EmbeddingModel string
	RetrievalTopK  int
	MemoryTurns    int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	topK := getEnvInt("RAG_RETRIEVAL_TOP_K", 5)
	if topK <= 0 {
		topK = 5
	}
	memoryTurns := getEnvInt("RAG_MEMORY_TURNS", 10)
	if memoryTurns <= 0 {
		memoryTurns = 10
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		DBPath:         getEnv("DB_PATH", "./data/shoply.db"),
		SessionTTL:     time.Duration(getEnvInt("SESSION_TTL_HOURS", 720)) * time.Hour,
		CurrencySymbol: getEnv("CURRENCY_SYMBOL", "$"),
		AI: AIConfig{
			OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
			ChatModel:      getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			RetrievalTopK:  topK,
			MemoryTurns:    memoryTurns,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be > 0")
	}
	if c.CurrencySymbol == "" {
		return fmt.Errorf("CURRENCY_SYMBOL cannot be empty")
	}
	return nil
}

// AIEnabled reports whether the OpenAI-backed assistant can be used.
func (c *Config) AIEnabled() bool {
	return c.AI.OpenAIAPIKey != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
