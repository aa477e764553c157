package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maticnetwork/dice/internal/activation"
)

func TestParseBackendNameAccepted(t *testing.T) {
	for _, name := range []string{"longest-path-graph", "default"} {
		got, err := ParseBackendName(name)
		require.NoError(t, err)
		require.Equal(t, BackendName(name), got)
	}
}

func TestParseBackendNameRejected(t *testing.T) {
	_, err := ParseBackendName("bogus")
	require.Error(t, err)
}

func TestLongestPathBackendTracksCriticalPath(t *testing.T) {
	b := NewBackend(BackendLongestPathGraph)

	// leaf (10ms) -> mid (20ms) -> root (5ms); other (no sleep) has no deps
	// and isn't on the path to root.
	b.(interface{ Started(any) }).Started("leaf")
	time.Sleep(10 * time.Millisecond)
	b.(interface{ Finished(any) }).Finished("leaf")

	b.(interface{ Started(any) }).Started("mid")
	time.Sleep(20 * time.Millisecond)
	b.(interface{ Finished(any) }).Finished("mid")

	b.(interface{ Started(any) }).Started("root")
	time.Sleep(5 * time.Millisecond)
	b.(interface{ Finished(any) }).Finished("root")

	b.(interface{ Started(any) }).Started("other")
	b.(interface{ Finished(any) }).Finished("other")

	tracker := b.(activation.Tracker)
	tracker.KeyActivated("mid", []any{"leaf"}, activation.Data{Kind: activation.Evaluated})
	tracker.KeyActivated("root", []any{"mid"}, activation.Data{Kind: activation.Evaluated})
	tracker.KeyActivated("other", nil, activation.Data{Kind: activation.Reused})

	report := b.Report()
	require.Equal(t, BackendLongestPathGraph, report.Backend)
	require.Equal(t, []any{"leaf", "mid", "root"}, report.CriticalPath)
	require.Equal(t, 2, report.Computed)
	require.Equal(t, 1, report.Reused)
	require.Greater(t, report.CriticalPathWeight, 0.03)
}

func TestDefaultBackendTalliesWithoutPath(t *testing.T) {
	b := NewBackend(BackendDefault)

	b.(interface{ Started(any) }).Started("k")
	time.Sleep(5 * time.Millisecond)
	b.(interface{ Finished(any) }).Finished("k")

	tracker := b.(activation.Tracker)
	tracker.KeyActivated("k", nil, activation.Data{Kind: activation.Evaluated})

	report := b.Report()
	require.Equal(t, BackendDefault, report.Backend)
	require.Nil(t, report.CriticalPath)
	require.Equal(t, 1, report.Computed)
	require.Greater(t, report.SerialWeight, 0.0)
}
