// Package config holds engine-wide configuration and its validation,
// matching spec §7's "Configuration error... rejected at boundary, never
// reaches the engine": nothing in this package ever touches internal/engine
// directly, so an invalid Config simply never gets that far.
package config

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/maticnetwork/dice/internal/signals"
)

// Config collects the knobs an Engine is constructed with.
type Config struct {
	// Parallelism bounds concurrent dependency-check fan-out per key; zero
	// or negative defaults to GOMAXPROCS, matching
	// bufbuild-protocompile's incremental.New.
	Parallelism int
	// Backend selects the critical-path reporting backend (spec §6).
	Backend string
	// LogLevel is a zerolog level name ("debug", "info", "warn", "error",
	// "disabled").
	LogLevel string
	// ActivationRingSize bounds the default ActivationTracker's recent
	// history (0 uses a sensible default).
	ActivationRingSize int
}

// Default returns a Config with the engine's baseline settings.
func Default() Config {
	return Config{
		Parallelism: 0,
		Backend:     string(signals.BackendDefault),
		LogLevel:    "info",
		ActivationRingSize: 256,
	}
}

// Validated is a Config that has passed Validate, carrying the parsed,
// typed forms of its string fields so the engine never re-parses them.
type Validated struct {
	Config
	Backend  signals.BackendName
	LogLevel zerolog.Level
}

// Validate rejects an invalid Config at the boundary (spec §7). Unknown
// backend names and log levels are configuration errors; they never reach
// the engine.
func (c Config) Validate() (Validated, error) {
	backend, err := signals.ParseBackendName(c.Backend)
	if err != nil {
		return Validated{}, err
	}
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return Validated{}, fmt.Errorf("dice: invalid log level %q: %w", c.LogLevel, err)
	}
	return Validated{Config: c, Backend: backend, LogLevel: level}, nil
}
