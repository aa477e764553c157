// Package engine implements the IncrementalEngine (spec C4): the part of
// the system that turns a LookupKey/UpdateComputed pair over
// internal/core/graph into "compute this key at this version, reusing
// whatever can be reused, deduplicating whoever else is asking for the
// same thing right now".
//
// Grounded on core/blockstm/executor.go's ParallelExecutor: both drive a
// per-key (there: per-transaction) task through an explicit state machine,
// both support abort/retry of an in-flight attempt when something newer
// supersedes it, and both report a summary of what actually ran versus
// what was reused.
package engine

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maticnetwork/dice/internal/activation"
	"github.com/maticnetwork/dice/internal/core"
	"github.com/maticnetwork/dice/internal/core/graph"
	"github.com/maticnetwork/dice/internal/cycle"
	"github.com/maticnetwork/dice/internal/events"
	"github.com/maticnetwork/dice/internal/metrics"
	"github.com/maticnetwork/dice/internal/task"
)

// ErrCycle is returned when a computation, directly or transitively,
// depends on a key it is itself already computing (spec §4.6: intrinsic
// detection catches this regardless of whether a user CycleDetector is
// installed).
var ErrCycle = errors.New("dice: cycle detected")

type ancestorKey struct{}

// withAncestor extends the per-request ancestor chain carried on ctx. The
// chain is rebuilt per top-level Get call rather than stored on the Task,
// since a Task may be shared by callers that reached it via different
// paths; like buck2's own UserCycleDetectorData, intrinsic cycle detection
// only covers the causal chain of whichever caller is actually driving the
// computation; a caller that merely attaches to an already in-flight task
// is not re-checked against its own chain.
func withAncestor(ctx context.Context, id core.KeyID) context.Context {
	chain, _ := ctx.Value(ancestorKey{}).([]core.KeyID)
	next := make([]core.KeyID, len(chain)+1)
	copy(next, chain)
	next[len(chain)] = id
	return context.WithValue(ctx, ancestorKey{}, next)
}

func hasAncestor(ctx context.Context, id core.KeyID) bool {
	chain, _ := ctx.Value(ancestorKey{}).([]core.KeyID)
	for _, a := range chain {
		if a == id {
			return true
		}
	}
	return false
}

// attachChain copies the ancestor chain carried on from onto base. Used
// when a task's driver starts running: base is the task's own
// cancellation context (derived independently of any caller's context,
// since a task outlives whichever caller happened to create it), and from
// is the chain-bearing context of whichever call triggered the spawn.
func attachChain(base, from context.Context) context.Context {
	chain, _ := from.Value(ancestorKey{}).([]core.KeyID)
	return context.WithValue(base, ancestorKey{}, chain)
}

// Engine is the IncrementalEngine: it owns nothing about storage itself
// (that's graph.Store) or dedup bookkeeping (that's task.Registry) — it
// is the orchestration that sits between them and a Resolver.
type Engine struct {
	id       uuid.UUID
	keys     *core.KeyIndex
	store    *graph.Store
	registry *task.Registry
	epoch    core.VersionEpoch
	resolver Resolver

	parallelism int64
	logger      zerolog.Logger
	events      events.Maybe
	activation  activation.Maybe
	metrics     *metrics.Recorder
	cycles      cycle.Detector
}

// Option configures an Engine at construction time.
type Option func(*Engine)

func WithEventDispatcher(d events.Dispatcher) Option {
	return func(e *Engine) { e.events = events.Maybe{D: d} }
}

func WithActivationTracker(t activation.Tracker) Option {
	return func(e *Engine) { e.activation = activation.Maybe{T: t} }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithCycleDetector(c cycle.Detector) Option {
	return func(e *Engine) { e.cycles = c }
}

func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = int64(n)
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New constructs an Engine over an already-running store, at epoch,
// resolving keys to Computations via resolver.
func New(keys *core.KeyIndex, store *graph.Store, epoch core.VersionEpoch, resolver Resolver, opts ...Option) *Engine {
	e := &Engine{
		id:          uuid.New(),
		keys:        keys,
		store:       store,
		registry:    task.NewRegistry(),
		epoch:       epoch,
		resolver:    resolver,
		parallelism: int64(runtime.GOMAXPROCS(0)),
		logger:      zerolog.Nop(),
		cycles:      cycle.Noop,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.New(nil)
	}
	return e
}

// ID identifies this engine instance, useful for correlating log lines
// across multiple engines sharing one process.
func (e *Engine) ID() uuid.UUID { return e.id }

// Get resolves key at version, spawning or attaching to whatever task is
// needed, and blocks until it has an answer (spec §4: "get_or_compute").
func (e *Engine) Get(ctx context.Context, key any, version core.VersionNumber) (any, error) {
	id := e.keys.Intern(key)
	cv, err := e.resolve(ctx, id, version, e.cycles)
	if err != nil {
		return nil, err
	}
	return cv.Value.Data, nil
}

func (e *Engine) resolve(ctx context.Context, id core.KeyID, version core.VersionNumber, cycles cycle.Detector) (core.ComputedValue, error) {
	if hasAncestor(ctx, id) {
		return core.ComputedValue{}, ErrCycle
	}

	chainCtx := withAncestor(ctx, id)
	for {
		t := e.spawnForKey(chainCtx, id, version, cycles)
		res, err := t.Await(ctx)
		if err != nil {
			return core.ComputedValue{}, err
		}
		if res.Err != nil {
			if errors.Is(res.Err, task.ErrCancelled) {
				// t was cancelled because a newer request for the same key
				// superseded it while we were still waiting, not because
				// our own caller asked to stop (spec §5, §7: cancellation
				// is only an error to whoever initiated it). Retry by
				// acquiring whatever task is now current for (id, version).
				continue
			}
			return core.ComputedValue{}, res.Err
		}
		return res.Value, nil
	}
}

// spawnForKey is spec §4.2's spawn_for_key: acquire (create or attach to)
// the task current for (id, version), starting its driver goroutine only
// if Acquire actually created it. chainCtx carries the ancestor chain of
// whichever caller triggered this attempt, already including id.
func (e *Engine) spawnForKey(chainCtx context.Context, id core.KeyID, version core.VersionNumber, cycles cycle.Detector) *task.Task {
	t, _ := e.registry.Acquire(chainCtx, id, version, e.epoch, func(prev *task.Task) *task.Task {
		nt := task.New(context.Background(), id, version, e.epoch)
		go e.drive(nt, prev, id, version, cycles, chainCtx)
		return nt
	})
	return t
}

// drive is a task's driver goroutine. When prev is non-nil it first races
// prev's own termination against this task's own cancellation (spec §4.3,
// testable property 6: "adoption" — if prev had its cancellation signaled
// but finishes anyway before this task's context is cancelled, and at the
// same epoch, its result is reused outright instead of recomputing). A
// prev that finished without ever being cancelled is not adopted: the
// successor goes through the store lookup like any other task.
func (e *Engine) drive(t *task.Task, prev *task.Task, id core.KeyID, version core.VersionNumber, cycles cycle.Detector, chainCtx context.Context) {
	ctx := attachChain(t.Context(), chainCtx)

	if prev != nil {
		select {
		case <-prev.Done():
			st, res, _ := prev.Terminal()
			if st == task.StateFinished && res.Err == nil && prev.Epoch == t.Epoch && prev.Context().Err() != nil {
				t.Finish(res)
				return
			}
		case <-ctx.Done():
			t.Cancel()
			return
		}
	}

	e.evalEntryVersioned(ctx, t, id, version, cycles)
}

// evalEntryVersioned is eval_entry_versioned from spec §4.2/§4.4: look the
// key up in the store and branch on Match/Compute/CheckDeps.
func (e *Engine) evalEntryVersioned(ctx context.Context, t *task.Task, id core.KeyID, version core.VersionNumber, cycles cycle.Detector) {
	key := e.keys.Get(id)
	comp := e.resolver(key)

	gr, err := e.store.Lookup(ctx, id, version)
	if err != nil {
		t.Finish(task.Result{Err: err})
		return
	}

	switch gr.Kind {
	case core.ResultMatch:
		t.Finish(task.Result{Value: gr.Match})

	case core.ResultCompute:
		if cycles.StartComputingKey(key) {
			t.Finish(task.Result{Err: ErrCycle})
			return
		}
		e.compute(ctx, t, id, version, comp, cycles)

	case core.ResultCheckDeps:
		if cycles.StartComputingKey(key) {
			t.Finish(task.Result{Err: ErrCycle})
			return
		}
		t.SetCheckingDeps()
		e.events.CheckDepsStarted(key)
		verdict, deps, _ := e.checkDependencies(ctx, id, gr.CheckDeps.VerifiedVersions, gr.CheckDeps.DepsToValidate, version, comp, cycles)
		e.events.CheckDepsFinished(key)

		if verdict == verdictNoChange {
			cycles.FinishedComputingKey(key)
			e.activation.KeyActivated(key, e.toAnyKeys(deps), activation.Data{Kind: activation.Reused})
			e.metrics.TaskReused()

			storage := core.StorageNormal
			if comp != nil {
				storage = comp.StorageType(key)
			}
			cv, err := e.store.ExtendAndUpdate(ctx, id, version, e.epoch, storage, gr.CheckDeps.Entry.Value, deps)
			t.Finish(task.Result{Value: cv, Err: err})
			return
		}

		if verdict == verdictChanged {
			e.metrics.DepCheckChanged()
		}
		e.compute(ctx, t, id, version, comp, cycles)
	}
}

// compute runs comp's evaluator and publishes its result, honoring the
// commit-point race against cancellation (spec §4.3, §5).
func (e *Engine) compute(ctx context.Context, t *task.Task, id core.KeyID, version core.VersionNumber, comp Computation, cycles cycle.Detector) {
	t.SetComputing()
	key := e.keys.Get(id)

	e.events.Started(key)
	defer e.events.Finished(key)

	ec := &EvalContext{engine: e, version: version, cycles: cycles}

	start := time.Now()
	out, err := comp.Evaluate(ctx, key, ec)
	e.metrics.ObserveComputeSeconds(time.Since(start).Seconds())

	if !t.TryDisableCancellation() {
		e.metrics.TaskCancelled()
		return
	}

	if err != nil {
		t.Finish(task.Result{Err: err})
		return
	}

	deps := ec.recordedDeps()
	anyDeps := e.toAnyKeys(deps)
	e.activation.KeyActivated(key, anyDeps, activation.Data{Kind: activation.Evaluated, EvaluationData: out.EvaluationData})
	e.metrics.TaskComputed()

	if out.Transient {
		// Never written to the store (spec §4.4): a transient value is
		// handed to exactly this one caller.
		cv := core.ComputedValue{
			Value:   core.Value{Data: out.Value, Transient: true},
			History: core.VerifiedAt(version),
		}
		t.Finish(task.Result{Value: cv})
		return
	}

	// The commit point is won: a Cancel arriving from here on must not
	// abort the store write, so it runs without the task's cancellation.
	storage := comp.StorageType(key)
	cv, err := e.store.Update(context.WithoutCancel(ctx), id, version, e.epoch, storage, core.Value{Data: out.Value}, deps)
	t.Finish(task.Result{Value: cv, Err: err})
}

// ProjectForKey is the synchronous projection path (spec §4.3,
// project_for_key / SyncEvaluator): resolved §12 open question 1 in
// favor of blocking until the underlying UpdateComputed completes, the
// "simpler invariants" option the original spec itself offers, rather
// than firing the store write in the background.
func (e *Engine) ProjectForKey(ctx context.Context, key any, version core.VersionNumber, sync SyncComputation) (any, error) {
	id := e.keys.Intern(key)
	t, _ := e.registry.Acquire(ctx, id, version, e.epoch, func(prev *task.Task) *task.Task {
		return task.New(context.Background(), id, version, e.epoch)
	})
	p := task.NewPromise(t)

	e.events.Started(key)
	defer e.events.Finished(key)

	res, err := p.GetOrComplete(ctx, func() (core.ComputedValue, error) {
		out, evalErr := sync.Evaluate(key)
		if evalErr != nil {
			return core.ComputedValue{}, evalErr
		}

		e.activation.KeyActivated(key, nil, activation.Data{Kind: activation.Evaluated, EvaluationData: out.EvaluationData})
		e.metrics.TaskComputed()

		if out.Transient {
			return core.ComputedValue{
				Value:   core.Value{Data: out.Value, Transient: true},
				History: core.VerifiedAt(version),
			}, nil
		}

		storage := core.StorageNormal
		if comp := e.resolver(key); comp != nil {
			storage = comp.StorageType(key)
		}
		return e.store.Update(ctx, id, version, e.epoch, storage, core.Value{Data: out.Value}, nil)
	})
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Value.Value.Data, nil
}

func (e *Engine) toAnyKeys(ids []core.KeyID) []any {
	if len(ids) == 0 {
		return nil
	}
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = e.keys.Get(id)
	}
	return out
}
