// Package config provides application-wide configuration loaded from env vars.
// All fields have safe defaults so the binary runs locally without any env
// setup, except the Groq API keys which the key pool validates at start.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for FloatChat.
type Config struct {
	// LLM provider
	GroqAPIKeys    []string      // FLOATCHAT_GROQ_API_KEYS — comma-separated key pool
	GroqBaseURL    string        // FLOATCHAT_GROQ_BASE_URL — default: "https://api.groq.com/openai/v1"
	GroqModel      string        // FLOATCHAT_GROQ_MODEL — default: "llama-3.3-70b-versatile"
	LLMTimeout     time.Duration // FLOATCHAT_LLM_TIMEOUT_SECONDS — per provider call, default 30s
	RequestTimeout time.Duration // FLOATCHAT_REQUEST_TIMEOUT_SECONDS — whole query, default 90s

	// Key pool
	RateLimitPerMinute int // FLOATCHAT_RATE_LIMIT_PER_MINUTE — per key, default 30
	MaxAttempts        int // FLOATCHAT_MAX_ATTEMPTS — per Invoke across the pool, default 6
	MaxHardFailures    int // FLOATCHAT_MAX_HARD_FAILURES — before a key is disabled, default 5

	// Stores
	DatabaseURL     string // FLOATCHAT_DATABASE_URL — ARGO measurement database (Postgres)
	KnowledgeDBPath string // FLOATCHAT_KNOWLEDGE_DB — offline-built chunk store (SQLite)
	SessionDBPath   string // FLOATCHAT_SESSION_DB — conversation turns (SQLite)

	// Retrieval
	ContextTokenBudget int // FLOATCHAT_CONTEXT_TOKEN_BUDGET — default 2000

	// SQL generation
	MaxSQLRetries   int // FLOATCHAT_MAX_SQL_RETRIES — corrective re-prompts, default 2
	DefaultRowLimit int // FLOATCHAT_DEFAULT_ROW_LIMIT — appended LIMIT, default 100

	// Optional rules file (signals, regions, whitelist) — see rules.go.
	RulesPath string // FLOATCHAT_RULES — default: "" (built-in defaults)
}

const (
	envKeyGroqAPIKeys        = "FLOATCHAT_GROQ_API_KEYS"
	envKeyGroqBaseURL        = "FLOATCHAT_GROQ_BASE_URL"
	envKeyGroqModel          = "FLOATCHAT_GROQ_MODEL"
	envKeyLLMTimeout         = "FLOATCHAT_LLM_TIMEOUT_SECONDS"
	envKeyRequestTimeout     = "FLOATCHAT_REQUEST_TIMEOUT_SECONDS"
	envKeyRateLimitPerMinute = "FLOATCHAT_RATE_LIMIT_PER_MINUTE"
	envKeyMaxAttempts        = "FLOATCHAT_MAX_ATTEMPTS"
	envKeyMaxHardFailures    = "FLOATCHAT_MAX_HARD_FAILURES"
	envKeyDatabaseURL        = "FLOATCHAT_DATABASE_URL"
	envKeyKnowledgeDBPath    = "FLOATCHAT_KNOWLEDGE_DB"
	envKeySessionDBPath      = "FLOATCHAT_SESSION_DB"
	envKeyContextTokenBudget = "FLOATCHAT_CONTEXT_TOKEN_BUDGET"
	envKeyMaxSQLRetries      = "FLOATCHAT_MAX_SQL_RETRIES"
	envKeyDefaultRowLimit    = "FLOATCHAT_DEFAULT_ROW_LIMIT"
	envKeyRulesPath          = "FLOATCHAT_RULES"
)

// Load reads configuration from environment variables, applying defaults for
// missing values.
func Load() Config {
	return Config{
		GroqAPIKeys:        splitKeys(os.Getenv(envKeyGroqAPIKeys)),
		GroqBaseURL:        envOr(envKeyGroqBaseURL, "https://api.groq.com/openai/v1"),
		GroqModel:          envOr(envKeyGroqModel, "llama-3.3-70b-versatile"),
		LLMTimeout:         envSeconds(envKeyLLMTimeout, 30),
		RequestTimeout:     envSeconds(envKeyRequestTimeout, 90),
		RateLimitPerMinute: envInt(envKeyRateLimitPerMinute, 30),
		MaxAttempts:        envInt(envKeyMaxAttempts, 6),
		MaxHardFailures:    envInt(envKeyMaxHardFailures, 5),
		DatabaseURL:        envOr(envKeyDatabaseURL, "postgres://localhost:5432/argo"),
		KnowledgeDBPath:    envOr(envKeyKnowledgeDBPath, "./data/knowledge.db"),
		SessionDBPath:      envOr(envKeySessionDBPath, "./data/sessions.db"),
		ContextTokenBudget: envInt(envKeyContextTokenBudget, 2000),
		MaxSQLRetries:      envInt(envKeyMaxSQLRetries, 2),
		DefaultRowLimit:    envInt(envKeyDefaultRowLimit, 100),
		RulesPath:          os.Getenv(envKeyRulesPath),
	}
}

// splitKeys parses a comma-separated key list, dropping empty entries.
func splitKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt returns the integer value of the environment variable key, or
// fallback when unset or unparseable.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envSeconds(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Second
}
