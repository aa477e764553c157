package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maticnetwork/dice/internal/core"
)

func TestPromiseGetOrCompleteRunsOnce(t *testing.T) {
	tsk := New(context.Background(), 1, 1, 0)
	p := NewPromise(tsk)

	var calls int32
	f := func() (core.ComputedValue, error) {
		atomic.AddInt32(&calls, 1)
		return core.ComputedValue{Value: core.Value{Data: 7}}, nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]Result, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			res, err := p.GetOrComplete(context.Background(), f)
			require.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, res := range results {
		require.Equal(t, 7, res.Value.Value.Data)
	}
}

func TestPromiseGetOrCompleteAlreadyTerminal(t *testing.T) {
	tsk := New(context.Background(), 1, 1, 0)
	tsk.Finish(Result{Value: core.ComputedValue{Value: core.Value{Data: "cached"}}})

	p := NewPromise(tsk)
	calledF := false
	res, err := p.GetOrComplete(context.Background(), func() (core.ComputedValue, error) {
		calledF = true
		return core.ComputedValue{}, nil
	})

	require.NoError(t, err)
	require.False(t, calledF)
	require.Equal(t, "cached", res.Value.Value.Data)
}

func TestPromiseGetOrCompleteRerunsAfterError(t *testing.T) {
	tsk := New(context.Background(), 1, 1, 0)
	p := NewPromise(tsk)

	wantErr := errors.New("boom")
	var calls int32
	first, err := p.GetOrComplete(context.Background(), func() (core.ComputedValue, error) {
		atomic.AddInt32(&calls, 1)
		return core.ComputedValue{}, wantErr
	})
	require.NoError(t, err)
	require.ErrorIs(t, first.Err, wantErr)

	second, err := p.GetOrComplete(context.Background(), func() (core.ComputedValue, error) {
		atomic.AddInt32(&calls, 1)
		return core.ComputedValue{Value: core.Value{Data: "ok"}}, nil
	})
	require.NoError(t, err)
	require.NoError(t, second.Err)
	require.Equal(t, "ok", second.Value.Value.Data)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls),
		"an evaluator error must not be cached: GetOrComplete must re-run f on the next call")
}
