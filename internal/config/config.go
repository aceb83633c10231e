// Package config loads process configuration from the environment,
// following the teacher's godotenv-plus-getEnv* idiom.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the orchestrator's process-wide configuration, read once at
// startup via Load.
type Config struct {
	// Concurrency
	MaxConcurrentPilots int
	MaxParallelScenes   int

	// Budget
	ReserveFraction float64
	OverheadFactor  float64

	// Retry / polling
	MaxRetries      int
	PollMinInterval int // seconds
	PollMaxDuration int // seconds

	// Providers
	OpenAIKey     string
	GeminiAPIKey  string
	XAIAPIKey     string
	ElevenLabsKey string
	CartesiaKey   string

	// Learnings Store
	MemoryBasePath    string
	MemoryOrgID       string
	MemoryActorID     string
	AgentCoreMemoryID string

	// Run Registry (optional secondary index) and Job Supervisor queue
	DatabaseURL string
	RedisURL    string

	AWSRegion string

	// Logging
	LogLevel string

	// Assembler
	FFmpegPath string
}

// Load reads .env (if present) then the process environment, applying
// the same required-field validation discipline as the teacher's
// config loader — but nothing here is hard-required, since every
// provider capability has a mock fallback and the Run Registry/Job
// Supervisor's external back-ends are optional by design.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		MaxConcurrentPilots: getEnvInt("MAX_CONCURRENT_PILOTS", 2),
		MaxParallelScenes:   getEnvInt("MAX_PARALLEL_SCENES", 4),
		ReserveFraction:     getEnvFloat("RESERVE_FRACTION", 0.10),
		OverheadFactor:      getEnvFloat("OVERHEAD_FACTOR", 1.0),
		MaxRetries:          getEnvInt("MAX_RETRIES", 3),
		PollMinInterval:     getEnvInt("POLL_MIN_INTERVAL_SEC", 4),
		PollMaxDuration:     getEnvInt("POLL_MAX_DURATION_SEC", 300),

		OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		XAIAPIKey:     getEnv("XAI_API_KEY", ""),
		ElevenLabsKey: getEnv("ELEVENLABS_API_KEY", ""),
		CartesiaKey:   getEnv("CARTESIA_API_KEY", ""),

		MemoryBasePath:    getEnv("MEMORY_BASE_PATH", "./memory"),
		MemoryOrgID:       getEnv("MEMORY_ORG_ID", ""),
		MemoryActorID:     getEnv("MEMORY_ACTOR_ID", ""),
		AgentCoreMemoryID: getEnv("AGENTCORE_MEMORY_ID", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		AWSRegion:   getEnv("AWS_REGION", "us-east-1"),

		LogLevel:   getEnv("LOG_LEVEL", "info"),
		FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
	}

	if cfg.MaxConcurrentPilots <= 0 {
		return nil, fmt.Errorf("MAX_CONCURRENT_PILOTS must be positive")
	}
	if cfg.MaxParallelScenes <= 0 {
		return nil, fmt.Errorf("MAX_PARALLEL_SCENES must be positive")
	}
	if cfg.ReserveFraction < 0 || cfg.ReserveFraction >= 1 {
		return nil, fmt.Errorf("RESERVE_FRACTION must be in [0,1)")
	}

	return cfg, nil
}

// UsesHostedLearnings reports whether the hosted Learnings Store
// back-end should be selected per §6's AGENTCORE_MEMORY_ID switch.
func (c *Config) UsesHostedLearnings() bool {
	return c.AgentCoreMemoryID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}
