package config

import "testing"

func clearPipelineEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "PLACES_API_KEY", "YOUTUBE_API_KEY",
		"CHAT_BACKEND", "CHAT_MODEL", "STORE_ROOT_DIR", "SQLITE_PATH", "MYSQL_DSN", "MAX_CONCURRENT_WORKERS",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_AppliesDefaultsWhenUnset(t *testing.T) {
	clearPipelineEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ChatBackend != "mock" {
		t.Fatalf("expected default chat backend mock, got %q", cfg.ChatBackend)
	}
	if cfg.StoreRootDir != "./data" {
		t.Fatalf("expected default store root ./data, got %q", cfg.StoreRootDir)
	}
	if cfg.MaxConcurrentWorkers != 3 {
		t.Fatalf("expected default concurrency 3, got %d", cfg.MaxConcurrentWorkers)
	}
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	clearPipelineEnv(t)
	t.Setenv("CHAT_BACKEND", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("MAX_CONCURRENT_WORKERS", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ChatBackend != "anthropic" {
		t.Fatalf("expected overridden chat backend, got %q", cfg.ChatBackend)
	}
	if cfg.AnthropicAPIKey != "sk-test" {
		t.Fatalf("expected api key to be read from env, got %q", cfg.AnthropicAPIKey)
	}
	if cfg.MaxConcurrentWorkers != 8 {
		t.Fatalf("expected overridden concurrency 8, got %d", cfg.MaxConcurrentWorkers)
	}
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	clearPipelineEnv(t)
	t.Setenv("MAX_CONCURRENT_WORKERS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxConcurrentWorkers != 3 {
		t.Fatalf("expected fallback to default 3 on an invalid int, got %d", cfg.MaxConcurrentWorkers)
	}
}
