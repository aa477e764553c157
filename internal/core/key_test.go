package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyIndexInternStable(t *testing.T) {
	x := NewKeyIndex()
	id1 := x.Intern("a")
	id2 := x.Intern("b")
	id3 := x.Intern("a")

	require.Equal(t, id1, id3)
	require.NotEqual(t, id1, id2)
	require.Equal(t, "a", x.Get(id1))
	require.Equal(t, "b", x.Get(id2))
	require.Equal(t, 2, x.Len())
}

func TestKeyIndexInternConcurrentSameKey(t *testing.T) {
	x := NewKeyIndex()
	const n = 100

	ids := make([]KeyID, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			ids[i] = x.Intern("shared")
		}()
	}
	wg.Wait()

	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
	require.Equal(t, 1, x.Len())
}
