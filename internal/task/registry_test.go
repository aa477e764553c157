package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryDedupSameVersion(t *testing.T) {
	r := NewRegistry()
	spawned := 0
	spawn := func(prev *Task) *Task {
		spawned++
		return New(context.Background(), 1, 1, 0)
	}

	t1, isNew1 := r.Acquire(context.Background(), 1, 1, 0, spawn)
	t2, isNew2 := r.Acquire(context.Background(), 1, 1, 0, spawn)

	require.True(t, isNew1)
	require.False(t, isNew2)
	require.Same(t, t1, t2)
	require.Equal(t, 1, spawned)
}

func TestRegistryNewerVersionCancelsPredecessor(t *testing.T) {
	r := NewRegistry()
	first := New(context.Background(), 1, 1, 0)
	r.Acquire(context.Background(), 1, 1, 0, func(prev *Task) *Task { return first })

	var seenPrev *Task
	second, isNew := r.Acquire(context.Background(), 1, 2, 0, func(prev *Task) *Task {
		seenPrev = prev
		return New(context.Background(), 1, 2, 0)
	})

	require.True(t, isNew)
	require.Same(t, first, seenPrev)
	require.NotSame(t, first, second)

	st, _, terminal := first.Terminal()
	require.True(t, terminal)
	require.Equal(t, StateCancelled, st)
}

func TestRegistryErroredSlotIsNeverADedupHit(t *testing.T) {
	r := NewRegistry()
	errored := New(context.Background(), 1, 1, 0)
	r.Acquire(context.Background(), 1, 1, 0, func(prev *Task) *Task { return errored })
	errored.Finish(Result{Err: errors.New("boom")})

	spawned := 0
	second, isNew := r.Acquire(context.Background(), 1, 1, 0, func(prev *Task) *Task {
		spawned++
		require.Same(t, errored, prev)
		return New(context.Background(), 1, 1, 0)
	})

	require.True(t, isNew)
	require.Equal(t, 1, spawned)
	require.NotSame(t, errored, second)
}

func TestRegistryCancelledSlotIsNeverADedupHit(t *testing.T) {
	r := NewRegistry()
	cancelled := New(context.Background(), 1, 1, 0)
	r.Acquire(context.Background(), 1, 1, 0, func(prev *Task) *Task { return cancelled })
	cancelled.Cancel()

	spawned := 0
	second, isNew := r.Acquire(context.Background(), 1, 1, 0, func(prev *Task) *Task {
		spawned++
		require.Same(t, cancelled, prev)
		return New(context.Background(), 1, 1, 0)
	})

	require.True(t, isNew)
	require.Equal(t, 1, spawned)
	require.NotSame(t, cancelled, second)
}

func TestRegistryPeek(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Peek(1)
	require.False(t, ok)

	tsk := New(context.Background(), 1, 1, 0)
	r.Acquire(context.Background(), 1, 1, 0, func(prev *Task) *Task { return tsk })

	got, ok := r.Peek(1)
	require.True(t, ok)
	require.Same(t, tsk, got)
}
