package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maticnetwork/dice/internal/core"
)

func runningStore(t *testing.T, epoch core.VersionEpoch) (*Store, context.CancelFunc) {
	t.Helper()
	s := New(epoch)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	return s, cancel
}

func TestLookupUnknownKeyIsCompute(t *testing.T) {
	s, cancel := runningStore(t, 0)
	defer cancel()

	gr, err := s.Lookup(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, core.ResultCompute, gr.Kind)
}

func TestUpdateThenLookupSameVersionIsMatch(t *testing.T) {
	s, cancel := runningStore(t, 0)
	defer cancel()

	ctx := context.Background()
	_, err := s.Update(ctx, 1, 5, 0, core.StorageNormal, core.Value{Data: "v"}, nil)
	require.NoError(t, err)

	gr, err := s.Lookup(ctx, 1, 5)
	require.NoError(t, err)
	require.Equal(t, core.ResultMatch, gr.Kind)
	require.Equal(t, "v", gr.Match.Value.Data)
}

func TestLookupNewerVersionIsCheckDeps(t *testing.T) {
	s, cancel := runningStore(t, 0)
	defer cancel()

	ctx := context.Background()
	_, err := s.Update(ctx, 1, 5, 0, core.StorageNormal, core.Value{Data: "v"}, []core.KeyID{2})
	require.NoError(t, err)

	gr, err := s.Lookup(ctx, 1, 6)
	require.NoError(t, err)
	require.Equal(t, core.ResultCheckDeps, gr.Kind)
	require.Equal(t, []core.KeyID{2}, gr.CheckDeps.DepsToValidate)
	require.True(t, gr.CheckDeps.VerifiedVersions.Contains(5))
}

func TestExtendAndUpdateWidensHistory(t *testing.T) {
	s, cancel := runningStore(t, 0)
	defer cancel()

	ctx := context.Background()
	cv, err := s.Update(ctx, 1, 5, 0, core.StorageNormal, core.Value{Data: "v"}, nil)
	require.NoError(t, err)

	cv, err = s.ExtendAndUpdate(ctx, 1, 6, 0, core.StorageNormal, cv.Value, nil)
	require.NoError(t, err)
	require.True(t, cv.History.Live(5))
	require.True(t, cv.History.Live(6))

	gr, err := s.Lookup(ctx, 1, 6)
	require.NoError(t, err)
	require.Equal(t, core.ResultMatch, gr.Kind)
}

func TestUpdateRejectsStaleEpoch(t *testing.T) {
	s, cancel := runningStore(t, 3)
	defer cancel()

	_, err := s.Update(context.Background(), 1, 1, 2, core.StorageNormal, core.Value{Data: "v"}, nil)
	require.ErrorIs(t, err, ErrStaleEpoch)
}

func TestStoragePolicyInjectedAppendsDeps(t *testing.T) {
	s, cancel := runningStore(t, 0)
	defer cancel()

	ctx := context.Background()
	_, err := s.Update(ctx, 1, 1, 0, core.StorageInjected, core.Value{Data: "v"}, []core.KeyID{10})
	require.NoError(t, err)
	_, err = s.Update(ctx, 1, 2, 0, core.StorageInjected, core.Value{Data: "v2"}, []core.KeyID{11})
	require.NoError(t, err)

	gr, err := s.Lookup(ctx, 1, 3)
	require.NoError(t, err)
	require.Equal(t, core.ResultCheckDeps, gr.Kind)
	require.ElementsMatch(t, []core.KeyID{10, 11}, gr.CheckDeps.DepsToValidate)
}

func TestLookupContextCancelled(t *testing.T) {
	s := New(0) // never started: Run never drains reqCh
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Lookup(ctx, 1, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
