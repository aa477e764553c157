package task

import (
	"context"
	"sync"

	"github.com/maticnetwork/dice/internal/core"
)

// Registry maps key → the one task currently "current" for that key
// within this engine instance's epoch (spec C2). It enforces invariant I1
// (at most one non-terminal task per key) and implements the adoption
// hand-off from §4.2: a request for a key already being computed at the
// same version attaches to the existing task; a request at a newer version
// supersedes whatever task is there, cancelling it and handing it to the
// successor as a previously-cancelled task to race against.
type Registry struct {
	mu    sync.Mutex
	tasks map[core.KeyID]slot
}

type slot struct {
	task    *Task
	version core.VersionNumber
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[core.KeyID]slot)}
}

// Acquire returns the task that should be awaited for (key, version). If
// one already exists for exactly this version, it is returned unchanged
// (dedup — spec testable property 2). If the existing task is for an
// older version, it is cancelled and spawn is called with it as the
// "previously cancelled" predecessor to build a successor task, which
// becomes the new current task for key. If there is nothing for key yet,
// spawn is called with prev == nil.
//
// spawn must return a non-nil, not-yet-terminal *Task; Acquire installs it
// before returning so concurrent Acquire calls for the same key observe a
// consistent slot.
func (r *Registry) Acquire(ctx context.Context, key core.KeyID, version core.VersionNumber, epoch core.VersionEpoch, spawn func(prev *Task) *Task) (t *Task, isNew bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.tasks[key]; ok {
		if s.version == version && s.task.Epoch == epoch && !staleTerminal(s.task) {
			return s.task, false
		}
		prev := s.task
		if st, _, terminal := prev.Terminal(); !terminal && st != StateCancelled {
			prev.Cancel()
		}
		nt := spawn(prev)
		r.tasks[key] = slot{task: nt, version: version}
		return nt, true
	}

	nt := spawn(nil)
	r.tasks[key] = slot{task: nt, version: version}
	return nt, true
}

// staleTerminal reports whether t is terminal in a way that must never be
// handed out as a dedup hit for a fresh Acquire, even when its (version,
// epoch) still match the request:
//   - finished with an evaluator error: spec §7/§8.4 forbid caching errors
//     ("Next request recomputes"), so the slot is treated exactly like a
//     version/epoch mismatch, falling through to spawn a successor;
//   - cancelled: spec §7 says a fresh requester "gets a new task" rather
//     than inheriting whatever task a prior, now-abandoned attempt left
//     behind — this also keeps Engine.resolve's retry-on-ErrCancelled loop
//     from re-acquiring the very same cancelled task it just saw terminate;
//   - finished with a transient value: a transient value is never cached,
//     so a later request recomputes instead of being handed it again.
func staleTerminal(t *Task) bool {
	st, res, terminal := t.Terminal()
	if !terminal {
		return false
	}
	return st == StateCancelled || res.Err != nil || res.Value.Value.Transient
}

// Peek returns the task currently installed for key, if any, without
// creating one.
func (r *Registry) Peek(key core.KeyID) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.tasks[key]
	if !ok {
		return nil, false
	}
	return s.task, true
}
