// Package config holds global settings for the ScamGuard gateway.
// All settings can be configured via environment variables or
// programmatically.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds global settings for the triage gateway.
type Config struct {
	// === HTTP ===
	ListenAddr string // address the gateway binds (default: ":8090")

	// === Detection thresholds (0.0 - 1.0) ===
	// Tune these to balance catch rate vs. notification noise.
	AlertThreshold float64 // fused score at or above this escalates (default: 0.50)
	HighThreshold  float64 // fused score at or above this is provisional HIGH (default: 0.78)

	// === Fusion & escalation policies ===
	FusionPolicy string // "weighted_sum" (default) or "noisy_or"
	Stage3Policy string // "conservative_on_failure" (default) or "require_confirmation"

	// === On-device model ===
	ModelDir        string // directory holding vocab.json, model_config.json, model.onnx
	OnnxLibraryPath string // optional explicit libonnxruntime path

	// === Cloud confirmation ===
	LLMProvider   string        // "openrouter" (default), "ollama", "groq", "cerebras"
	LLMAPIKey     string        // API key for cloud providers; empty disables Stage 3
	LLMModel      string        // model identifier, provider default when empty
	LLMBaseURL    string        // custom base URL for self-hosted endpoints
	LLMTimeout    time.Duration // hard confirmation deadline (default: 10s)
	Language      string        // explanation language hint (default: "en")
	MaxConcurrent int           // concurrent confirmation calls (default: 4)

	// === Exemplar enrichment ===
	EmbedURL   string // Ollama base URL for exemplar embeddings; empty disables
	EmbedModel string // embedding model (default: "nomic-embed-text")
	ExemplarK  int    // similar scams attached per confirmation (default: 3)

	// === Deduplication ===
	RedisAddr     string        // Redis address; empty selects the in-process LRU
	DedupCapacity int           // LRU capacity (default: 50)
	DedupWindow   time.Duration // suppression window (default: 10m)

	// === Persistence ===
	DatabaseURL string // PostgreSQL URL; empty selects the in-memory store
}

// NewDefaultConfig creates a Config with sensible defaults. All settings can
// be overridden via SCAMGUARD_* environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		ListenAddr: GetEnv("SCAMGUARD_LISTEN_ADDR", ":8090"),

		AlertThreshold: GetEnvFloat("SCAMGUARD_ALERT_THRESHOLD", 0.50),
		HighThreshold:  GetEnvFloat("SCAMGUARD_HIGH_THRESHOLD", 0.78),

		FusionPolicy: GetEnv("SCAMGUARD_FUSION_POLICY", "weighted_sum"),
		Stage3Policy: GetEnv("SCAMGUARD_STAGE3_POLICY", "conservative_on_failure"),

		ModelDir:        GetEnv("SCAMGUARD_MODEL_DIR", "models"),
		OnnxLibraryPath: GetEnv("ONNXRUNTIME_LIB_PATH", ""),

		LLMProvider:   detectLLMProvider(),
		LLMAPIKey:     GetEnv("SCAMGUARD_LLM_API_KEY", GetEnv("GROQ_API_KEY", os.Getenv("OPENROUTER_API_KEY"))),
		LLMModel:      GetEnv("SCAMGUARD_LLM_MODEL", ""),
		LLMBaseURL:    GetEnv("SCAMGUARD_LLM_BASE_URL", ""),
		LLMTimeout:    time.Duration(GetEnvInt("SCAMGUARD_LLM_TIMEOUT_MS", 10000)) * time.Millisecond,
		Language:      GetEnv("SCAMGUARD_LANGUAGE", "en"),
		MaxConcurrent: clampInt(GetEnvInt("SCAMGUARD_LLM_MAX_CONCURRENT", 4), 1, 64),

		EmbedURL:   GetEnv("SCAMGUARD_EMBED_URL", ""),
		EmbedModel: GetEnv("SCAMGUARD_EMBED_MODEL", "nomic-embed-text"),
		ExemplarK:  clampInt(GetEnvInt("SCAMGUARD_EXEMPLAR_K", 3), 0, 10),

		RedisAddr:     GetEnv("SCAMGUARD_REDIS_ADDR", ""),
		DedupCapacity: clampInt(GetEnvInt("SCAMGUARD_DEDUP_CAPACITY", 50), 1, 10000),
		DedupWindow:   time.Duration(GetEnvInt("SCAMGUARD_DEDUP_WINDOW_SECONDS", 600)) * time.Second,

		DatabaseURL: GetEnv("SCAMGUARD_DATABASE_URL", ""),
	}
}

// NewLocalConfig creates a Config optimized for fully local operation:
// Ollama for confirmation and embeddings, no cloud keys required.
func NewLocalConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.LLMProvider = "ollama"
	cfg.LLMBaseURL = "http://localhost:11434/v1"
	cfg.LLMModel = "qwen2.5:7b"
	cfg.LLMAPIKey = ""
	cfg.EmbedURL = "http://localhost:11434"
	return cfg
}

// NewHighSensitivityConfig lowers the thresholds to catch more, at the cost
// of more notifications.
func NewHighSensitivityConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.AlertThreshold = 0.30
	cfg.HighThreshold = 0.60
	return cfg
}

// Stage3Enabled reports whether cloud confirmation can run at all.
func (c *Config) Stage3Enabled() bool {
	return c.LLMAPIKey != "" || c.LLMProvider == "ollama"
}

// Validate checks threshold ordering and policy names early, so a typo in
// an environment variable fails at startup instead of mid-triage.
func (c *Config) Validate() error {
	var problems []string

	if c.AlertThreshold <= 0 || c.AlertThreshold > 1 {
		problems = append(problems, fmt.Sprintf("SCAMGUARD_ALERT_THRESHOLD %v out of range (0,1]", c.AlertThreshold))
	}
	if c.HighThreshold < c.AlertThreshold || c.HighThreshold > 1 {
		problems = append(problems, fmt.Sprintf("SCAMGUARD_HIGH_THRESHOLD %v must be in [alert,1]", c.HighThreshold))
	}
	switch c.FusionPolicy {
	case "weighted_sum", "noisy_or":
	default:
		problems = append(problems, fmt.Sprintf("unknown SCAMGUARD_FUSION_POLICY %q", c.FusionPolicy))
	}
	switch c.Stage3Policy {
	case "conservative_on_failure", "require_confirmation":
	default:
		problems = append(problems, fmt.Sprintf("unknown SCAMGUARD_STAGE3_POLICY %q", c.Stage3Policy))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
// Call this at startup before starting the server.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: Configuration validation failed: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}

func detectLLMProvider() string {
	if p := os.Getenv("SCAMGUARD_LLM_PROVIDER"); p != "" {
		return p
	}
	if os.Getenv("GROQ_API_KEY") != "" {
		return "groq"
	}
	if os.Getenv("OPENROUTER_API_KEY") != "" || os.Getenv("SCAMGUARD_LLM_API_KEY") != "" {
		return "openrouter"
	}
	return "ollama"
}

// clampInt ensures a value is within bounds.
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing.
// Exported for use by other packages.

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
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
