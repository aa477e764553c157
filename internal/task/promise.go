package task

import (
	"context"

	"github.com/maticnetwork/dice/internal/core"
)

// Promise is a DicePromise: a handle callers use to either wait on an
// async task or, on the synchronous projection path, complete it inline.
type Promise struct {
	t *Task
}

// NewPromise wraps t.
func NewPromise(t *Task) *Promise { return &Promise{t: t} }

// Task returns the underlying task.
func (p *Promise) Task() *Task { return p.t }

// Get blocks until the task's result is available.
func (p *Promise) Get(ctx context.Context) (Result, error) {
	return p.t.Await(ctx)
}

// GetOrComplete is project_for_key's synchronous path (spec §4.3): if the
// task is already terminal, its cached result is returned immediately;
// otherwise the calling goroutine itself runs f synchronously and
// publishes the result, since a projection is guaranteed cheap and pure
// and therefore needs no cooperative driver of its own. Concurrent callers
// that lose the race to start f simply await the winner's result.
func (p *Promise) GetOrComplete(ctx context.Context, f func() (core.ComputedValue, error)) (Result, error) {
	p.t.mu.Lock()
	if p.t.state.Terminal() {
		if p.t.state == StateFinished && p.t.result.Err != nil {
			// An evaluator error is never cached (spec §7, §8.4: "Next
			// request recomputes"). Reset this task in place — a fresh
			// done channel so a prior awaiter's already-delivered close
			// isn't double-closed — and let this call re-run f, the
			// projection-path equivalent of Registry.Acquire spawning a
			// successor task for an errored async Get.
			p.t.state = StateComputing
			p.t.cancelDisabled = false
			p.t.done = make(chan struct{})
			p.t.mu.Unlock()

			value, err := f()
			result := Result{Value: value, Err: err}
			p.t.Finish(result)
			return result, nil
		}
		res := p.t.result
		p.t.mu.Unlock()
		return res, nil
	}
	if p.t.state == StateComputing {
		// Another caller is already running f; just await it.
		p.t.mu.Unlock()
		return p.t.Await(ctx)
	}
	p.t.state = StateComputing
	p.t.mu.Unlock()

	value, err := f()
	result := Result{Value: value, Err: err}
	p.t.Finish(result)
	return result, nil
}
