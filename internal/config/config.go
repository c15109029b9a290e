package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port string

	// Gemini API configuration
	GeminiAPIKey  string
	GeminiBaseURL string

	// CandidateModels is the priority-ordered fallback list for generation.
	// The invoker walks it in order and stops at the first success.
	CandidateModels []string

	// Storage paths
	HistoryFile string
	ExportDir   string

	// ExportTTL is how long exported session files are kept before cleanup
	ExportTTL time.Duration

	// PromptsFile optionally overrides the built-in prompt templates (YAML)
	PromptsFile string

	AllowedOrigins string
}

// DefaultCandidateModels is the fallback order used when CANDIDATE_MODELS is
// not set: fastest first, then strongest, then legacy names kept for drift.
var DefaultCandidateModels = []string{
	"gemini-2.5-flash",
	"gemini-2.5-pro",
	"gemini-pro",
	"gemini-2.0-pro",
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	candidates := DefaultCandidateModels
	if env := getEnv("CANDIDATE_MODELS", ""); env != "" {
		candidates = nil
		for _, m := range strings.Split(env, ",") {
			if m = strings.TrimSpace(m); m != "" {
				candidates = append(candidates, m)
			}
		}
	}

	return &Config{
		Port:            getEnv("PORT", "3002"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		CandidateModels: candidates,
		HistoryFile:     getEnv("HISTORY_FILE", "journal_history.json"),
		ExportDir:       getEnv("EXPORT_DIR", "./exports"),
		ExportTTL:       time.Duration(getIntEnv("EXPORT_TTL_HOURS", 24)) * time.Hour,
		PromptsFile:     getEnv("PROMPTS_FILE", ""),
		AllowedOrigins:  getEnv("ALLOWED_ORIGINS", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
