// Package dice is the public face of the engine: a single Dice handle
// wiring together key interning, the versioned graph store, the
// incremental engine, and the ambient logging/metrics/signals stack, the
// way a caller actually wants to consume it rather than wiring
// internal/core, internal/core/graph and internal/engine by hand.
package dice

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/maticnetwork/dice/internal/activation"
	"github.com/maticnetwork/dice/internal/config"
	"github.com/maticnetwork/dice/internal/core"
	"github.com/maticnetwork/dice/internal/core/graph"
	"github.com/maticnetwork/dice/internal/cycle"
	"github.com/maticnetwork/dice/internal/engine"
	"github.com/maticnetwork/dice/internal/events"
	"github.com/maticnetwork/dice/internal/metrics"
	"github.com/maticnetwork/dice/internal/signals"
)

// Re-exported so callers never need to import internal/engine directly.
type (
	Computation     = engine.Computation
	SyncComputation = engine.SyncComputation
	EvalContext     = engine.EvalContext
	EvalOutput      = engine.EvalOutput
	Resolver        = engine.Resolver
	CycleDetector   = cycle.Detector
)

// VersionNumber and VersionEpoch are re-exported for the same reason.
type (
	VersionNumber = core.VersionNumber
	VersionEpoch  = core.VersionEpoch
)

// Dice is the top-level handle a caller constructs once and drives across
// however many versions its build or query loop produces. One Dice owns
// one KeyIndex, one VersionedGraphStore, and one IncrementalEngine, all
// scoped to one VersionEpoch (spec §9: "tests create fresh instances"
// generalizes to "callers create fresh instances per logical session").
type Dice struct {
	id      uuid.UUID
	cfg     config.Validated
	keys    *core.KeyIndex
	store   *graph.Store
	eng     *engine.Engine
	backend signals.Backend
	ring    *activation.RingTracker
	logger  zerolog.Logger

	cancel  context.CancelFunc
	version uint64 // atomic; next value handed out by NewVersion
}

// Option configures a Dice instance beyond what Config covers.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
	cycles     cycle.Detector
	logger     *zerolog.Logger
}

// WithPrometheus registers the engine's metrics against reg. Omit for a
// no-op Recorder.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithCycleDetector installs a user-pluggable CycleDetector (spec C6)
// alongside the engine's own intrinsic detection. Omit for cycle.Noop.
func WithCycleDetector(d cycle.Detector) Option {
	return func(o *options) { o.cycles = d }
}

// WithLogger overrides the default stderr console logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// New constructs a Dice instance at epoch 0 and starts the store's
// single-writer loop in the background. resolver maps a user key to the
// Computation that knows how to evaluate it; New itself never evaluates
// anything.
func New(cfg config.Config, resolver Resolver, opts ...Option) (*Dice, error) {
	validated, err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	o := &options{cycles: cycle.Noop}
	for _, opt := range opts {
		opt(o)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(validated.LogLevel).With().Timestamp().Logger()
	if o.logger != nil {
		logger = *o.logger
	}

	keys := core.NewKeyIndex()
	store := graph.New(0)

	ctx, cancel := context.WithCancel(context.Background())
	go store.Run(ctx)

	backend := signals.NewBackend(validated.Backend)

	ringSize := cfg.ActivationRingSize
	if ringSize <= 0 {
		ringSize = 256
	}
	ring := activation.NewRingTracker(ringSize)

	id := uuid.New()
	logger = logger.With().Stringer("dice_id", id).Logger()

	// backend's concrete type (longestPathBackend/defaultBackend) also
	// satisfies events.Dispatcher and activation.Tracker even though the
	// signals.Backend interface itself only declares Name/Report; recover
	// that via a runtime interface assertion rather than widening Backend
	// and dragging internal/events and internal/activation into its
	// package boundary.
	dispatchers := []events.Dispatcher{events.ZerologDispatcher{Log: logger}}
	if bd, ok := backend.(events.Dispatcher); ok {
		dispatchers = append([]events.Dispatcher{bd}, dispatchers...)
	}
	trackers := []activation.Tracker{ring}
	if bt, ok := backend.(activation.Tracker); ok {
		trackers = append([]activation.Tracker{bt}, trackers...)
	}

	eng := engine.New(keys, store, 0, resolver,
		engine.WithLogger(logger),
		engine.WithMetrics(metrics.New(o.registerer)),
		engine.WithEventDispatcher(multiDispatcher(dispatchers)),
		engine.WithActivationTracker(multiTracker(trackers)),
		engine.WithParallelism(cfg.Parallelism),
		engine.WithCycleDetector(o.cycles),
	)

	return &Dice{
		id: id, cfg: validated, keys: keys, store: store, eng: eng,
		backend: backend, ring: ring, logger: logger, cancel: cancel,
	}, nil
}

// ID identifies this Dice instance across structured log lines.
func (d *Dice) ID() uuid.UUID { return d.id }

// NewVersion mints the next VersionNumber. The caller is responsible for
// calling this whenever it declares external state has changed (spec §3:
// "the engine never advances it on its own").
func (d *Dice) NewVersion() core.VersionNumber {
	return core.VersionNumber(atomic.AddUint64(&d.version, 1))
}

// CurrentVersion returns the most recently minted VersionNumber, or 0 if
// NewVersion has never been called.
func (d *Dice) CurrentVersion() core.VersionNumber {
	return core.VersionNumber(atomic.LoadUint64(&d.version))
}

// Get resolves key at version, deduplicating against any in-flight
// request for the same (key, version) and reusing a cached value when the
// DependencyChecker confirms nothing it depends on has changed.
func (d *Dice) Get(ctx context.Context, key any, version core.VersionNumber) (any, error) {
	return d.eng.Get(ctx, key, version)
}

// Project evaluates key synchronously via sync, the cheap, pure,
// no-further-deps path (spec §4.3's project_for_key). Its UpdateComputed
// is awaited before Project returns (§12 Open Question 1).
func (d *Dice) Project(ctx context.Context, key any, version core.VersionNumber, sync SyncComputation) (any, error) {
	return d.eng.ProjectForKey(ctx, key, version, sync)
}

// Report returns the configured signals.Backend's current report (spec
// §6): the critical path and aggregate recompute/reuse counts observed so
// far.
func (d *Dice) Report() signals.Report { return d.backend.Report() }

// RecentActivations returns the most recent Reused/Evaluated signals, most
// recent first, from the bounded activation ring.
func (d *Dice) RecentActivations() []activation.Record { return d.ring.Recent() }

// Shutdown stops the store's background goroutine. A Dice instance must
// not be used after Shutdown; construct a fresh one instead (spec §9).
func (d *Dice) Shutdown() { d.cancel() }
