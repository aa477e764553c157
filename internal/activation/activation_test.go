package activation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaybeIsSafeWhenNil(t *testing.T) {
	var m Maybe
	require.NotPanics(t, func() { m.KeyActivated("k", nil, Data{}) })
}

func TestRingTrackerEvictsOldestOnceFull(t *testing.T) {
	r := NewRingTracker(2)
	r.KeyActivated("a", nil, Data{Kind: Evaluated})
	r.KeyActivated("b", nil, Data{Kind: Evaluated})
	r.KeyActivated("c", nil, Data{Kind: Evaluated})

	recent := r.Recent()
	keys := make(map[any]bool, len(recent))
	for _, rec := range recent {
		keys[rec.Key] = true
	}

	require.Len(t, recent, 2)
	require.False(t, keys["a"], "oldest entry must be evicted once the ring is over capacity")
	require.True(t, keys["b"])
	require.True(t, keys["c"])
}

func TestRingTrackerRecentReflectsLatestActivation(t *testing.T) {
	r := NewRingTracker(4)
	r.KeyActivated("k", []any{"dep1"}, Data{Kind: Reused})
	r.KeyActivated("k", []any{"dep1", "dep2"}, Data{Kind: Evaluated, EvaluationData: "payload"})

	recent := r.Recent()
	require.Len(t, recent, 1, "re-activating the same key updates its entry rather than appending")
	require.Equal(t, Evaluated, recent[0].Data.Kind)
	require.Equal(t, []any{"dep1", "dep2"}, recent[0].Deps)
}
