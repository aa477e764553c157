// Package cycle defines the CycleDetector contract the engine consumes
// from a user-pluggable detector (spec C6, §4.6), plus a no-op default.
//
// The engine also runs its own intrinsic cycle detection (tracking the
// live ancestor chain of a computation so K depending on K, directly or
// transitively, fails fast) in internal/engine, since that check needs to
// run regardless of whether a user detector is installed. Detector is the
// user-pluggable half of §4.6's "both user-pluggable and engine-intrinsic"
// cycle detection: StartComputingKey's bool return is how a user detector
// reports a cycle back to the engine, which "treats the detector's return
// of 'cycle' as a dependency error (→ Changed or a propagated error when
// computing)" per §4.6.
package cycle

// Detector receives lifecycle notifications about per-key computation.
// Where no Detector is installed the engine uses Noop in its place, and a
// Detector must be safe to drop (spec §4.7: "Both sinks are Optional").
type Detector interface {
	// StartComputingKey is called exactly once per engine attempt on key,
	// before any dependency resolution begins. A true return reports that
	// key is already on the detector's own notion of the active
	// computation chain — a cycle the engine's intrinsic ancestor check
	// may not itself have a view of (e.g. across a user-defined grouping
	// of keys) — and the engine treats that exactly like its own ErrCycle:
	// a propagated error on the compute path, a Changed verdict when
	// encountered while checking a dependency.
	StartComputingKey(key any) (isCycle bool)
	// FinishedComputingKey is called on the reuse path once a cached value
	// is confirmed still valid. On the compute path the evaluator itself
	// is responsible for signaling completion through its own means.
	FinishedComputingKey(key any)
	// Subrequest returns the child detector state to pass into the
	// resolution of dep.
	Subrequest(dep any) Detector
}

type noop struct{}

// Noop is the default Detector: it does nothing and never reports a cycle.
var Noop Detector = noop{}

func (noop) StartComputingKey(any) bool { return false }
func (noop) FinishedComputingKey(any)   {}
func (noop) Subrequest(any) Detector    { return Noop }
