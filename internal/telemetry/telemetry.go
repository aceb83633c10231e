// Package telemetry configures the process-wide structured logger and
// hands out run/pilot/scene-scoped child loggers.
package telemetry

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu          sync.RWMutex
	base        zerolog.Logger
	initialized bool
)

// Config controls the global logger. Level is one of zerolog's parseable
// level strings ("debug", "info", "warn", "error").
type Config struct {
	Level   string
	Output  io.Writer
	Service string
}

// Configure sets up the global logger; every call replaces the previous
// configuration (used by tests that need a buffer sink).
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	service := cfg.Service
	if service == "" {
		service = "orchestrator"
	}

	base = zerolog.New(out).With().
		Timestamp().
		Str("service", service).
		Logger()
	initialized = true
}

func ensureInitialized() {
	mu.RLock()
	ok := initialized
	mu.RUnlock()
	if !ok {
		Configure(Config{Level: "info"})
	}
}

// Base returns the process-wide logger.
func Base() zerolog.Logger {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// ForRun returns a child logger scoped to a run_id.
func ForRun(runID string) zerolog.Logger {
	return Base().With().Str("run_id", runID).Logger()
}

// ForPilot returns a child logger scoped to a run_id/pilot_id pair.
func ForPilot(runID, pilotID string) zerolog.Logger {
	return Base().With().Str("run_id", runID).Str("pilot_id", pilotID).Logger()
}

// ForScene returns a child logger scoped to run_id/pilot_id/scene_id.
func ForScene(runID, pilotID, sceneID string) zerolog.Logger {
	return Base().With().
		Str("run_id", runID).
		Str("pilot_id", pilotID).
		Str("scene_id", sceneID).
		Logger()
}
