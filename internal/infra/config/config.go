package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Env  string
	Port string

	// Generative backend
	LLMURL           string
	LLMToken         string
	LLMModel         string
	Temperature      float64
	TopP             float64
	NumCtx           int
	MaxOutputTokens  int
	RepeatPenalty    float64
	GenerateTimeoutS int

	// Validation retry loop
	MaxRetries   int
	RetryDelayMs int

	// POI resolution
	ResolveBudgetMs   int
	OverpassEndpoints []string
	OverpassTimeoutS  int

	// Reverse geocoding
	GeocoderURL      string
	GeocoderTimeoutS int

	// Resolver cache
	CacheSize   int
	CacheTTLMin int
}

// Load builds the config from environment variables, then overlays values
// from the TOML file named by PLACETALE_CONFIG when it is set.
func Load() *Config {
	cfg := &Config{
		Env:              getEnv("ENV", "development"),
		Port:             getEnv("PORT", "9040"),
		LLMURL:           getEnv("LLM_URL", "http://localhost:11434"),
		LLMToken:         getSecret("LLM_TOKEN", "LLM_TOKEN_FILE", ""),
		LLMModel:         getEnv("LLM_MODEL", "gemma3:4b"),
		Temperature:      getEnvFloat("LLM_TEMPERATURE", 0.6),
		TopP:             getEnvFloat("LLM_TOP_P", 0.9),
		NumCtx:           getEnvInt("LLM_NUM_CTX", 4096),
		MaxOutputTokens:  getEnvInt("LLM_MAX_OUTPUT_TOKENS", 900),
		RepeatPenalty:    getEnvFloat("LLM_REPEAT_PENALTY", 1.1),
		GenerateTimeoutS: getEnvInt("LLM_TIMEOUT_SECONDS", 120),
		MaxRetries:       getEnvInt("NARRATE_MAX_RETRIES", 3),
		RetryDelayMs:     getEnvInt("NARRATE_RETRY_DELAY_MS", 750),
		ResolveBudgetMs:  getEnvInt("RESOLVE_BUDGET_MS", 12000),
		OverpassEndpoints: getEnvList("OVERPASS_ENDPOINTS", []string{
			"https://overpass-api.de/api/interpreter",
			"https://overpass.kumi.systems/api/interpreter",
			"https://overpass.osm.ch/api/interpreter",
		}),
		OverpassTimeoutS: getEnvInt("OVERPASS_TIMEOUT_SECONDS", 25),
		GeocoderURL:      getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocoderTimeoutS: getEnvInt("GEOCODER_TIMEOUT_SECONDS", 10),
		CacheSize:        getEnvInt("RESOLVE_CACHE_SIZE", 256),
		CacheTTLMin:      getEnvInt("RESOLVE_CACHE_TTL_MINUTES", 60),
	}

	if path := os.Getenv("PLACETALE_CONFIG"); path != "" {
		// Overlay errors are non-fatal; env values already apply.
		_, _ = toml.DecodeFile(path, cfg)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
