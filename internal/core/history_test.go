package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionRangesLiveness(t *testing.T) {
	h := VerifiedAt(5)
	require.True(t, h.Live(5))
	require.False(t, h.Live(4))
	require.False(t, h.Live(6))
}

func TestVersionRangesExtendCoalesces(t *testing.T) {
	h := VerifiedAt(5)
	h = h.Extend(6)
	require.True(t, h.Live(5))
	require.True(t, h.Live(6))
	require.False(t, h.Live(7))

	h = h.Extend(10)
	require.True(t, h.Live(10))
	require.False(t, h.Live(7))
	require.False(t, h.Live(8))
}

func TestVersionRangesUnionNonOverlapping(t *testing.T) {
	a := Verified(1).Union(Verified(3))
	require.True(t, a.Contains(1))
	require.True(t, a.Contains(3))
	require.False(t, a.Contains(2))
}

func TestVersionRangesIntersect(t *testing.T) {
	a := Verified(1).Union(Verified(2)).Union(Verified(3))
	b := Verified(2).Union(Verified(3)).Union(Verified(4))

	got := a.Intersect(b)
	require.True(t, got.Contains(2))
	require.True(t, got.Contains(3))
	require.False(t, got.Contains(1))
	require.False(t, got.Contains(4))
}

func TestVersionRangesIntersectEmpty(t *testing.T) {
	a := Verified(1)
	b := Verified(2)
	require.True(t, a.Intersect(b).IsEmpty())
	require.True(t, Empty().Intersect(a).IsEmpty())
}
