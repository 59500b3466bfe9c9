// Package config loads pipeline-wide settings from the process environment,
// optionally seeded from a .env file via godotenv. CLI flags (see
// cmd/pipeline) take precedence over anything loaded here.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds provider credentials and default run limits sourced from
// the environment.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GeminiAPIKey    string
	PlacesAPIKey    string
	YouTubeAPIKey   string

	ChatBackend string // "anthropic" | "openai" | "gemini" | "mock"
	ChatModel   string

	StoreRootDir string
	SQLitePath   string
	MySQLDSN     string

	MaxConcurrentWorkers int
}

// Load reads .env (if present, ignoring a missing file) then populates
// Config from the environment, applying defaults for anything unset.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}

	cfg := Config{
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		PlacesAPIKey:         os.Getenv("PLACES_API_KEY"),
		YouTubeAPIKey:        os.Getenv("YOUTUBE_API_KEY"),
		ChatBackend:          getenvDefault("CHAT_BACKEND", "mock"),
		ChatModel:            os.Getenv("CHAT_MODEL"),
		StoreRootDir:         getenvDefault("STORE_ROOT_DIR", "./data"),
		SQLitePath:           getenvDefault("SQLITE_PATH", "./data/index.db"),
		MySQLDSN:             os.Getenv("MYSQL_DSN"),
		MaxConcurrentWorkers: getenvIntDefault("MAX_CONCURRENT_WORKERS", 3),
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
