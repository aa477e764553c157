// Package activation implements the ActivationReporter coupling (spec C7):
// a sink told, per key, whether it was genuinely recomputed or reused, and
// what it depended on.
package activation

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Kind discriminates an activation signal.
type Kind int

const (
	// Reused: DependencyChecker found no change; the evaluator did not run.
	Reused Kind = iota
	// Evaluated: the evaluator ran and produced a fresh value.
	Evaluated
)

// Data is what key_activated receives alongside the key and its deps.
type Data struct {
	Kind Kind
	// EvaluationData is the evaluator-supplied payload on the Evaluated
	// path (§4.4: "Report activation with the evaluator's data"); nil on
	// the Reused path.
	EvaluationData any
}

// Tracker is the ActivationTracker contract from spec §6: key_activated(key,
// deps, data). It must be safe to drop — a nil Tracker is never called.
type Tracker interface {
	KeyActivated(key any, deps []any, data Data)
}

// Maybe wraps a possibly-nil Tracker so call sites never need a nil check
// of their own.
type Maybe struct{ T Tracker }

func (m Maybe) KeyActivated(key any, deps []any, data Data) {
	if m.T != nil {
		m.T.KeyActivated(key, deps, data)
	}
}

// Record is one entry in the default tracker's recent-activation ring.
type Record struct {
	Key  any
	Deps []any
	Data Data
}

// RingTracker is the default Tracker: a bounded LRU of the most recent
// activations per key, so a debug/CLI surface can show "what did the
// engine just do" without the tracker growing without bound across a
// long-lived engine instance. Grounded on bor's consensus/bor.SpanStore,
// which caches heimdall spans in exactly this kind of bounded LRU rather
// than an ever-growing map.
type RingTracker struct {
	recent *lru.Cache[any, Record]
}

// NewRingTracker returns a tracker retaining up to size most recent
// activations (keyed by the activated key, so repeated activity on a hot
// key doesn't evict history for everything else).
func NewRingTracker(size int) *RingTracker {
	if size <= 0 {
		size = 256
	}
	c, _ := lru.New[any, Record](size)
	return &RingTracker{recent: c}
}

// KeyActivated implements Tracker.
func (r *RingTracker) KeyActivated(key any, deps []any, data Data) {
	r.recent.Add(key, Record{Key: key, Deps: deps, Data: data})
}

// Recent returns a snapshot of tracked activations, most-recently-used
// first.
func (r *RingTracker) Recent() []Record {
	keys := r.recent.Keys()
	out := make([]Record, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if rec, ok := r.recent.Peek(keys[i]); ok {
			out = append(out, rec)
		}
	}
	return out
}
