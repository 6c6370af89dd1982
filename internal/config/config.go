package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type TagMode string

const (
	// TagModeEnum validates schedule tags against the fixed set.
	TagModeEnum TagMode = "enum"
	// TagModeCollection resolves tags against the free-form tags collection.
	TagModeCollection TagMode = "collection"
)

type Config struct {
	Port string

	MongoURI string
	MongoDB  string

	GeminiAPIKey string
	ModelName    string

	StorageBackend string // "memory" or "mongo"
	UseMockModel   bool   // true = scripted mock instead of Gemini

	TagMode         TagMode
	MaxFunctionHops int
	MemoryWindow    int // completed conversations fed back as short-term memory
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

func getIntEnv(key string, def int) int {
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

// Load reads .env (when present) and all env vars, builds the config and
// fails fast on missing required settings.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("VSTUDENT_PORT", "8080"),

		MongoURI: getEnv("VSTUDENT_MONGODB_URI", ""),
		MongoDB:  getEnv("VSTUDENT_MONGODB_DB", "vstudent"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		ModelName:    getEnv("VSTUDENT_MODEL_NAME", "gemini-2.0-flash"),

		StorageBackend: getEnv("VSTUDENT_STORAGE_BACKEND", "mongo"),
		UseMockModel:   getBoolEnv("VSTUDENT_USE_MOCK_MODEL", false),

		TagMode:         TagMode(getEnv("VSTUDENT_TAG_MODE", string(TagModeEnum))),
		MaxFunctionHops: getIntEnv("VSTUDENT_MAX_FUNCTION_HOPS", 8),
		MemoryWindow:    getIntEnv("VSTUDENT_MEMORY_WINDOW", 10),
	}

	if cfg.StorageBackend == "mongo" && cfg.MongoURI == "" {
		return nil, fmt.Errorf("VSTUDENT_MONGODB_URI must be set for the mongo storage backend")
	}
	if !cfg.UseMockModel && cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY must be set unless VSTUDENT_USE_MOCK_MODEL=1")
	}
	if cfg.TagMode != TagModeEnum && cfg.TagMode != TagModeCollection {
		return nil, fmt.Errorf("VSTUDENT_TAG_MODE must be %q or %q", TagModeEnum, TagModeCollection)
	}
	if cfg.MaxFunctionHops <= 0 {
		return nil, fmt.Errorf("VSTUDENT_MAX_FUNCTION_HOPS must be positive")
	}

	return cfg, nil
}
