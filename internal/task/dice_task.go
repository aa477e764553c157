// Package task implements the DiceTask/DicePromise state machine (spec
// component C3) and the TaskRegistry that deduplicates concurrent requests
// for the same key (C2).
//
// Grounded on core/blockstm's own task bookkeeping (executor.go's
// taskStatusManager tracks pending/in-progress/complete per transaction
// index with a mutex-guarded map) generalized from "transaction index" to
// arbitrary keys, and from a fixed Initial→Complete lifecycle to the
// richer Initial→CheckingDeps→Computing→{Finished,Cancelled} one the spec
// requires.
package task

import (
	"context"
	"sync"

	"github.com/maticnetwork/dice/internal/core"
)

// State is a DiceTask's lifecycle stage (spec §3 Invariants, §4.3).
type State int

const (
	StateInitial State = iota
	StateCheckingDeps
	StateComputing
	StateFinished
	StateCancelled
)

func (s State) Terminal() bool { return s == StateFinished || s == StateCancelled }

// Result is what a task publishes on completion.
type Result struct {
	Value core.ComputedValue
	Err   error
}

// Task is a shared, reference-counted handle to an ongoing or completed
// computation for one key at one version_epoch. Multiple goroutines may
// hold a *Task simultaneously (via Promise); all mutation is behind mu.
// Awaiters don't get individual channels: every awaiter blocks on the same
// broadcast close of done, which is the idiomatic Go equivalent of the
// spec's "list of oneshot awaiters" (a close(chan) wakes every receiver).
type Task struct {
	Key     core.KeyID
	Version core.VersionNumber
	Epoch   core.VersionEpoch

	mu             sync.Mutex
	state          State
	result         Result
	done           chan struct{}
	cancelDisabled bool // commit point reached: cancellation can no longer win

	cancelCtx context.Context
	cancel    context.CancelFunc
}

// New creates a task in StateInitial together with the context its driver
// should run under; cancelling that context is how Cancel signals the
// driver to stop (spec §5: "cancellation is cooperative... polled by the
// evaluator").
func New(ctx context.Context, key core.KeyID, version core.VersionNumber, epoch core.VersionEpoch) *Task {
	cctx, cancel := context.WithCancel(ctx)
	return &Task{
		Key: key, Version: version, Epoch: epoch,
		done:      make(chan struct{}),
		cancelCtx: cctx,
		cancel:    cancel,
	}
}

// Context is the cancellation context the driver/evaluator must observe.
func (t *Task) Context() context.Context { return t.cancelCtx }

// State returns the task's current lifecycle stage.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetCheckingDeps transitions Initial → CheckingDeps.
func (t *Task) SetCheckingDeps() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.Terminal() {
		t.state = StateCheckingDeps
	}
}

// SetComputing transitions to Computing.
func (t *Task) SetComputing() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.Terminal() {
		t.state = StateComputing
	}
}

// TryDisableCancellation is the commit-point guard from spec §4.3/§5: right
// before publishing a computed result, the driver must win this race
// against Cancel. If it returns false, cancellation already happened and
// the driver must discard its result instead of finishing the task.
func (t *Task) TryDisableCancellation() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateCancelled {
		return false
	}
	t.cancelDisabled = true
	return true
}

// Cancel signals the task's driver to stop. If the driver already disabled
// cancellation (it reached the commit point) this is a no-op on state: the
// driver is about to call Finish and wins the race. Otherwise the task
// transitions straight to Cancelled and every awaiter wakes with
// ErrCancelled.
func (t *Task) Cancel() {
	t.mu.Lock()
	if t.state.Terminal() || t.cancelDisabled {
		t.mu.Unlock()
		t.cancel()
		return
	}
	t.state = StateCancelled
	t.result = Result{Err: ErrCancelled}
	close(t.done)
	t.mu.Unlock()

	t.cancel()
}

// Finish publishes res and wakes every awaiter. It is a no-op if the task
// is already terminal (a cancelled task cannot be finished after the fact).
func (t *Task) Finish(res Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() {
		return
	}
	t.state = StateFinished
	t.result = res
	close(t.done)
}

// Terminal returns the task's state, its result if terminal, and whether it
// is terminal at all.
func (t *Task) Terminal() (State, Result, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.result, t.state.Terminal()
}

// Await blocks until the task reaches a terminal state or ctx is
// cancelled. Publication happens-before any awaiter observing it: both
// Finish and Cancel set the result under the same lock they close done
// with (spec §5 ordering guarantees).
func (t *Task) Await(ctx context.Context) (Result, error) {
	t.mu.Lock()
	done := t.done
	if t.state.Terminal() {
		res := t.result
		t.mu.Unlock()
		return res, nil
	}
	t.mu.Unlock()

	select {
	case <-done:
		_, res, _ := t.Terminal()
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Done reports the channel that closes once the task reaches a terminal
// state, for callers that want to select on termination without consuming
// a result (e.g. adoption waiting on a previously cancelled task).
func (t *Task) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}
