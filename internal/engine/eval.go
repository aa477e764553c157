package engine

import (
	"context"
	"sync"

	"github.com/maticnetwork/dice/internal/core"
	"github.com/maticnetwork/dice/internal/cycle"
)

// EvalOutput is what an evaluator returns on success (spec §6:
// "EvalOutput = { value, storage, deps, evaluation_data }"). It carries no
// deps or storage field: the engine records deps itself from EvalContext.Get
// calls, so every dep read through the live-version context is recorded
// (invariant I5), and storage comes from Computation.StorageType.
type EvalOutput struct {
	Value          any
	Transient      bool
	EvaluationData any
}

// Computation is the AsyncEvaluator contract (spec §6), bundled with the
// per-key storage policy the reuse path also needs (spec §12 supplement:
// "the original re-resolves eval.storage_type(k) even when reusing").
type Computation interface {
	Evaluate(ctx context.Context, key any, ec *EvalContext) (EvalOutput, error)
	StorageType(key any) core.StoragePolicy
}

// Resolver maps a user key to the Computation that knows how to evaluate
// it. Different key types may be backed by entirely different
// Computations, the way a build system's target keys and configuration
// keys are evaluated by different code even though they share one engine.
type Resolver func(key any) Computation

// EvalContext is the "live-version context" an evaluator uses to read its
// dependencies; every Get call both resolves the dependency and records it
// as a dependency of the computation currently running, satisfying I5.
type EvalContext struct {
	engine  *Engine
	version core.VersionNumber
	cycles  cycle.Detector

	mu   sync.Mutex
	deps []core.KeyID
}

// Get resolves dep at the context's version, recording it as a dependency
// of the enclosing computation. It recurses into the engine exactly like a
// top-level request would, so caching, dedup and cancellation all compose.
func (c *EvalContext) Get(ctx context.Context, dep any) (any, error) {
	id := c.engine.keys.Intern(dep)
	cv, err := c.engine.resolve(ctx, id, c.version, c.cycles.Subrequest(dep))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.deps = append(c.deps, id)
	c.mu.Unlock()

	return cv.Value.Data, nil
}

// Version returns the version this evaluation is pinned to.
func (c *EvalContext) Version() core.VersionNumber { return c.version }

func (c *EvalContext) recordedDeps() []core.KeyID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.KeyID{}, c.deps...)
}

// SyncComputation is the SyncEvaluator contract (spec §6): a cheap, pure
// projection that does not read further dependencies and takes no
// cancellation context.
type SyncComputation interface {
	Evaluate(key any) (EvalOutput, error)
}
