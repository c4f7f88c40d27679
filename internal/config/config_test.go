package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.CurrencySymbol != "$" {
		t.Fatalf("CurrencySymbol = %q, want $", cfg.CurrencySymbol)
	}
	if cfg.SessionTTL != 720*time.Hour {
		t.Fatalf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.AI.RetrievalTopK != 5 || cfg.AI.MemoryTurns != 10 {
		t.Fatalf("AI defaults = %+v", cfg.AI)
	}
	if cfg.AIEnabled() {
		t.Fatal("AIEnabled without an API key")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("RAG_RETRIEVAL_TOP_K", "3")
	t.Setenv("SESSION_TTL_HOURS", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if !cfg.AIEnabled() {
		t.Fatal("AIEnabled = false with an API key set")
	}
	if cfg.AI.RetrievalTopK != 3 {
		t.Fatalf("RetrievalTopK = %d", cfg.AI.RetrievalTopK)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("SessionTTL = %v", cfg.SessionTTL)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	t.Parallel()

	cfg := &Config{Port: "", DBPath: "x", SessionTTL: time.Hour, CurrencySymbol: "$"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty port passed validation")
	}
}

func TestIsDevelopment(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"":                        true,
		"http://localhost:3000":   true,
		"http://127.0.0.1:3000":   true,
		"https://shop.example.io": false,
	}
	for url, want := range cases {
		cfg := &Config{FrontendURL: url}
		if got := cfg.IsDevelopment(); got != want {
			t.Fatalf("IsDevelopment(%q) = %v, want %v", url, got, want)
		}
	}
}
