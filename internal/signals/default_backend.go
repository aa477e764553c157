package signals

import (
	"sync"
	"time"

	"github.com/maticnetwork/dice/internal/activation"
)

// defaultBackend is the "default" critical-path backend: it tallies
// aggregate recompute/reuse counts and total serial time without building
// a dependency DAG at all, the cheap option when a caller doesn't need a
// critical path, only a summary.
type defaultBackend struct {
	mu               sync.Mutex
	start            map[any]time.Time
	serial           float64
	computed, reused int
}

func newDefaultBackend() *defaultBackend {
	return &defaultBackend{start: make(map[any]time.Time)}
}

func (b *defaultBackend) Name() BackendName { return BackendDefault }

func (b *defaultBackend) Started(key any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start[key] = time.Now()
}

func (b *defaultBackend) Finished(key any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if started, ok := b.start[key]; ok {
		b.serial += time.Since(started).Seconds()
	}
}

func (b *defaultBackend) CheckDepsStarted(any)  {}
func (b *defaultBackend) CheckDepsFinished(any) {}

func (b *defaultBackend) KeyActivated(_ any, _ []any, data activation.Data) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if data.Kind == activation.Reused {
		b.reused++
	} else {
		b.computed++
	}
}

func (b *defaultBackend) Report() Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Report{
		Backend:      BackendDefault,
		SerialWeight: b.serial,
		Computed:     b.computed,
		Reused:       b.reused,
	}
}
