// Package config holds all runtime settings for the triage service.
// Everything is environment-driven with sensible defaults so the binary
// starts with nothing but an Ollama server nearby.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SessionBackend selects where per-session memory lives.
type SessionBackend string

const (
	BackendMemory SessionBackend = "memory" // in-process, lost on restart
	BackendRedis  SessionBackend = "redis"  // durable, TTL-bounded
)

// Config holds global settings for the triage service.
type Config struct {
	// === Oracle (Ollama) ===
	OracleBaseURL     string        // Ollama server URL (default: http://localhost:11434)
	OracleModel       string        // chat/classification model
	EmbedModel        string        // embedding model for the retrieval store
	OracleTimeout     time.Duration // per-call budget; exceeding it degrades to defaults
	OracleMaxInFlight int           // concurrent oracle calls across all requests

	// === Classifier tuning ===
	// Intent heuristic scores are hits/(1+keywordCount); these gate when the
	// heuristic may override or replace the oracle verdict.
	IntentScoreThreshold float64 // accept heuristic intent at or above this
	IntentMargin         float64 // top-vs-second gap below this = too close to call
	IntentLengthBonus    float64 // additive DescribeEvent bonus for long input
	IntentLongRunes      int     // rune length at which the bonus applies
	RecallMaxRunes       int     // RecallMemory chosen above this length becomes DescribeEvent
	ChitchatMaxRunes     int     // Chitchat chosen above this length becomes DescribeEvent

	// === Session memory ===
	SessionBackend SessionBackend
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SessionTTL     time.Duration // redis backend only; 0 = no expiry
	HistoryLimit   int           // turns kept per session

	// === Persistence sinks ===
	CSVLogPath  string // CSV sink path; empty disables
	PostgresDSN string // Postgres sink DSN; empty disables

	// === Retrieval ===
	CaseDataPath string // fraud case documents (JSONL); empty disables retrieval

	// === Keyword tables ===
	KeywordsPath string // optional YAML override for the built-in tables

	// === LINE webhook ===
	LineChannelSecret string
	LineChannelToken  string
	LineVerifyUserID  string // LINE console verification user, answered with "OK"

	// === HTTP ===
	ListenAddr string
}

// NewDefaultConfig builds a Config from the environment.
func NewDefaultConfig() *Config {
	return &Config{
		OracleBaseURL:     GetEnv("TRIAGE_ORACLE_URL", "http://localhost:11434"),
		OracleModel:       GetEnv("TRIAGE_ORACLE_MODEL", "qwen2.5:7b"),
		EmbedModel:        GetEnv("TRIAGE_EMBED_MODEL", "nomic-embed-text"),
		OracleTimeout:     GetEnvDuration("TRIAGE_ORACLE_TIMEOUT", 10*time.Second),
		OracleMaxInFlight: GetEnvInt("TRIAGE_ORACLE_MAX_INFLIGHT", 8),

		IntentScoreThreshold: GetEnvFloat("TRIAGE_INTENT_SCORE_THRESHOLD", 0.15),
		IntentMargin:         GetEnvFloat("TRIAGE_INTENT_MARGIN", 0.10),
		IntentLengthBonus:    GetEnvFloat("TRIAGE_INTENT_LENGTH_BONUS", 0.25),
		IntentLongRunes:      GetEnvInt("TRIAGE_INTENT_LONG_RUNES", 20),
		RecallMaxRunes:       GetEnvInt("TRIAGE_RECALL_MAX_RUNES", 40),
		ChitchatMaxRunes:     GetEnvInt("TRIAGE_CHITCHAT_MAX_RUNES", 30),

		SessionBackend: SessionBackend(GetEnv("TRIAGE_SESSION_BACKEND", string(BackendMemory))),
		RedisAddr:      GetEnv("TRIAGE_REDIS_ADDR", "localhost:6379"),
		RedisPassword:  GetEnv("TRIAGE_REDIS_PASSWORD", ""),
		RedisDB:        GetEnvInt("TRIAGE_REDIS_DB", 0),
		SessionTTL:     GetEnvDuration("TRIAGE_SESSION_TTL", 24*time.Hour),
		HistoryLimit:   GetEnvInt("TRIAGE_HISTORY_LIMIT", 5),

		CSVLogPath:  GetEnv("TRIAGE_CSV_LOG", "scam_logs.csv"),
		PostgresDSN: GetEnv("TRIAGE_POSTGRES_DSN", ""),

		CaseDataPath: GetEnv("TRIAGE_CASE_DATA", ""),
		KeywordsPath: GetEnv("TRIAGE_KEYWORDS_FILE", ""),

		LineChannelSecret: GetEnv("LINE_CHANNEL_SECRET", ""),
		LineChannelToken:  GetEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
		LineVerifyUserID:  GetEnv("LINE_VERIFY_USER_ID", ""),

		ListenAddr: GetEnv("TRIAGE_LISTEN_ADDR", ":8080"),
	}
}

// NewLocalConfig is NewDefaultConfig with every external sink disabled.
// Used by the one-shot CLI and in tests.
func NewLocalConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.SessionBackend = BackendMemory
	cfg.CSVLogPath = ""
	cfg.PostgresDSN = ""
	cfg.CaseDataPath = ""
	return cfg
}

// Helper functions for environment variable parsing.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvDuration returns the duration value of an environment variable or a
// default value. Plain integers are taken as seconds.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}
