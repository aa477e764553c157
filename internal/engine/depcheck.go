package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/maticnetwork/dice/internal/core"
	"github.com/maticnetwork/dice/internal/cycle"
)

// depsVerdict is DidDepsChange from the original Rust (spec §4.5/§4.4),
// renamed to fit Go's unexported-enum idiom.
type depsVerdict int

const (
	verdictNoDeps depsVerdict = iota
	verdictChanged
	verdictNoChange
)

// checkDependencies is the DependencyChecker (spec C5/§4.5). It drives
// every dep concurrently — bounded by a semaphore the way
// bufbuild-protocompile's incremental.Executor bounds its own fan-out —
// intersecting the running verified-version range as results arrive and
// short-circuiting the moment that intersection goes empty or any
// dependency errors. A dependency error is treated as Changed rather than
// propagated (spec §4.5: "we don't cache DiceErrors, so this must be
// because the dependency changed").
func (e *Engine) checkDependencies(
	ctx context.Context,
	parent core.KeyID,
	verified core.VersionRanges,
	deps []core.KeyID,
	version core.VersionNumber,
	_ Computation,
	cycles cycle.Detector,
) (depsVerdict, []core.KeyID, error) {
	if len(deps) == 0 {
		return verdictNoDeps, nil, nil
	}

	gctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(gctx)
	sem := semaphore.NewWeighted(e.parallelism)

	var (
		mu      sync.Mutex
		cur     = verified
		changed bool
	)

	for _, dep := range deps {
		dep := dep
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			cv, err := e.resolve(gctx, dep, version, cycles.Subrequest(e.keys.Get(dep)))

			mu.Lock()
			defer mu.Unlock()
			if changed {
				return nil
			}
			if err != nil {
				changed = true
				cancel()
				return nil
			}
			cur = cur.Intersect(cv.History.Verified)
			if !cur.Contains(version) {
				changed = true
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()

	if changed {
		return verdictChanged, nil, nil
	}
	return verdictNoChange, deps, nil
}
