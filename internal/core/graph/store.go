// Package graph implements the VersionedGraphStore (spec component C1): the
// single-writer, message-driven owner of the (key, version) → value map.
//
// Grounded on core/blockstm's own pattern of a private struct mutated only
// from one goroutine while every other goroutine talks to it over channels
// (ParallelExecutor's chResults/chSettle loop in executor.go); here the
// "only goroutine" is Store.Run, and LookupKey/UpdateComputed are the two
// request shapes, matching spec §4.1 and §6.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/maticnetwork/dice/internal/core"
)

// ErrStaleEpoch is returned by Update when the caller's epoch no longer
// matches the store's current epoch (invariant I4). The store itself is
// left completely unchanged.
var ErrStaleEpoch = errors.New("dice: update rejected, stale version epoch")

type entry struct {
	value core.ComputedValue
	deps  []core.KeyID
}

type lookupRequest struct {
	key     core.KeyID
	version core.VersionNumber
	resp    chan core.GraphResult
}

type updateRequest struct {
	key     core.KeyID
	version core.VersionNumber
	epoch   core.VersionEpoch
	storage core.StoragePolicy
	value   core.Value
	deps    []core.KeyID
	extend  bool
	resp    chan updateResponse
}

type updateResponse struct {
	value core.ComputedValue
	err   error
}

// Store owns the versioned (key → value) map. All mutation happens inside
// Run's goroutine; everything else communicates over the request channel,
// so no lock ever guards entries itself.
type Store struct {
	epoch   core.VersionEpoch
	reqCh   chan any
	entries map[core.KeyID]*entry
}

// New constructs a store pinned to epoch. A fresh Store should be created
// per engine instance/epoch — there is no cross-epoch state to preserve
// (spec §9: "tests create fresh instances").
func New(epoch core.VersionEpoch) *Store {
	return &Store{
		epoch:   epoch,
		reqCh:   make(chan any, 64),
		entries: make(map[core.KeyID]*entry),
	}
}

// Run drives the store's single-writer loop until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.reqCh:
			switch r := req.(type) {
			case lookupRequest:
				r.resp <- s.lookup(r.key, r.version)
			case updateRequest:
				v, err := s.update(r)
				r.resp <- updateResponse{value: v, err: err}
			default:
				panic(fmt.Sprintf("graph: unknown request type %T", req))
			}
		}
	}
}

func (s *Store) lookup(key core.KeyID, version core.VersionNumber) core.GraphResult {
	e, ok := s.entries[key]
	if !ok {
		return core.GraphResult{Kind: core.ResultCompute}
	}
	if e.value.History.Live(version) {
		return core.GraphResult{Kind: core.ResultMatch, Match: e.value}
	}
	return core.GraphResult{
		Kind: core.ResultCheckDeps,
		CheckDeps: core.CheckDepsMismatch{
			Entry:            e.value,
			VerifiedVersions: e.value.History.Verified,
			DepsToValidate:   e.deps,
		},
	}
}

func (s *Store) update(r updateRequest) (core.ComputedValue, error) {
	if r.epoch != s.epoch {
		return core.ComputedValue{}, ErrStaleEpoch
	}

	e, ok := s.entries[r.key]
	if !ok {
		e = &entry{}
		s.entries[r.key] = e
	}

	history := core.VerifiedAt(r.version)
	if ok && r.extend {
		// No-dep-change reuse: extend the existing history instead of
		// resetting it to a single-version range (I3).
		history = e.value.History.Extend(r.version)
	}

	switch r.storage {
	case core.StorageInjected:
		e.deps = append(append([]core.KeyID{}, e.deps...), r.deps...)
	default:
		e.deps = r.deps
	}

	e.value = core.ComputedValue{Value: r.value, History: history}
	return e.value, nil
}

// Lookup sends a LookupKey request and waits for the reply, or for ctx to
// be cancelled.
func (s *Store) Lookup(ctx context.Context, key core.KeyID, version core.VersionNumber) (core.GraphResult, error) {
	resp := make(chan core.GraphResult, 1)
	select {
	case s.reqCh <- lookupRequest{key: key, version: version, resp: resp}:
	case <-ctx.Done():
		return core.GraphResult{}, ctx.Err()
	}
	select {
	case r := <-resp:
		return r, nil
	case <-ctx.Done():
		return core.GraphResult{}, ctx.Err()
	}
}

// Update sends an UpdateComputed request for a freshly computed value and
// waits for the reply, or for ctx to be cancelled. A stale epoch yields
// ErrStaleEpoch and leaves the store's state untouched.
func (s *Store) Update(
	ctx context.Context,
	key core.KeyID,
	version core.VersionNumber,
	epoch core.VersionEpoch,
	storage core.StoragePolicy,
	value core.Value,
	deps []core.KeyID,
) (core.ComputedValue, error) {
	return s.send(ctx, updateRequest{
		key: key, version: version, epoch: epoch,
		storage: storage, value: value, deps: deps,
	})
}

// ExtendAndUpdate is the reuse-path counterpart to Update: it is sent after
// DependencyChecker finds no change, and extends the existing entry's
// history to cover version instead of resetting it (spec §4.4,
// DidDepsChange::NoChange branch).
func (s *Store) ExtendAndUpdate(
	ctx context.Context,
	key core.KeyID,
	version core.VersionNumber,
	epoch core.VersionEpoch,
	storage core.StoragePolicy,
	value core.Value,
	deps []core.KeyID,
) (core.ComputedValue, error) {
	return s.send(ctx, updateRequest{
		key: key, version: version, epoch: epoch,
		storage: storage, value: value, deps: deps, extend: true,
	})
}

func (s *Store) send(ctx context.Context, req updateRequest) (core.ComputedValue, error) {
	resp := make(chan updateResponse, 1)
	req.resp = resp
	select {
	case s.reqCh <- req:
	case <-ctx.Done():
		return core.ComputedValue{}, ctx.Err()
	}
	select {
	case r := <-resp:
		return r.value, r.err
	case <-ctx.Done():
		return core.ComputedValue{}, ctx.Err()
	}
}
