package signals

import (
	"sync"
	"time"

	"github.com/heimdalr/dag"

	"github.com/maticnetwork/dice/internal/activation"
)

type longestPathBackend struct {
	mu    sync.Mutex
	graph *dag.DAG
	ids   map[any]string
	start map[any]time.Time
	secs  map[any]float64

	computed, reused int
}

func newLongestPathBackend() *longestPathBackend {
	return &longestPathBackend{
		graph: dag.NewDAG(),
		ids:   make(map[any]string),
		start: make(map[any]time.Time),
		secs:  make(map[any]float64),
	}
}

func (b *longestPathBackend) Name() BackendName { return BackendLongestPathGraph }

func (b *longestPathBackend) vertexID(key any) string {
	if id, ok := b.ids[key]; ok {
		return id
	}
	id, _ := b.graph.AddVertex(key)
	b.ids[key] = id
	return id
}

// Started/Finished implement events.Dispatcher so the engine can feed this
// backend timing signals the same way it feeds the default event sink.
func (b *longestPathBackend) Started(key any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start[key] = time.Now()
}

func (b *longestPathBackend) Finished(key any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if started, ok := b.start[key]; ok {
		b.secs[key] = time.Since(started).Seconds()
	}
	b.vertexID(key)
}

func (b *longestPathBackend) CheckDepsStarted(any)  {}
func (b *longestPathBackend) CheckDepsFinished(any) {}

// KeyActivated implements activation.Tracker: it records the dependency
// edges (dep → key, matching core/blockstm/dag.go's convention that an
// edge runs from the producer to the consumer) and tallies
// computed-vs-reused counts for Report.
func (b *longestPathBackend) KeyActivated(key any, deps []any, data activation.Data) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if data.Kind == activation.Reused {
		b.reused++
	} else {
		b.computed++
	}

	toID := b.vertexID(key)
	for _, dep := range deps {
		fromID := b.vertexID(dep)
		_ = b.graph.AddEdge(fromID, toID)
	}
}

// Report walks the DAG for the longest weighted path, exactly as
// core/blockstm/dag.go's DAG.LongestPath does over transaction indices:
// each vertex's path weight is its own duration plus the best path weight
// among its parents.
func (b *longestPathBackend) Report() Report {
	b.mu.Lock()
	defer b.mu.Unlock()

	vertices := b.graph.GetVertices()

	keyByID := make(map[string]any, len(vertices))
	for id, v := range vertices {
		keyByID[id] = v
	}

	weight := make(map[string]float64, len(vertices))
	prev := make(map[string]string, len(vertices))
	var serial float64

	var maxID string
	var maxWeight float64

	// heimdalr/dag.GetVertices has no defined iteration order; that's fine
	// here since weight/prev are computed independently per vertex using
	// only already-populated parent weights, and DAGs can be topologically
	// walked in any order that respects "parents before children" — which
	// GetParents gives us transitively via the recursive max below.
	var resolve func(id string) float64
	resolved := make(map[string]bool, len(vertices))
	resolve = func(id string) float64 {
		if resolved[id] {
			return weight[id]
		}
		resolved[id] = true

		own := b.secs[keyByID[id]]
		serial += own

		parents, _ := b.graph.GetParents(id)
		best := 0.0
		bestParent := ""
		for pid := range parents {
			w := resolve(pid)
			if w > best {
				best = w
				bestParent = pid
			}
		}
		weight[id] = best + own
		prev[id] = bestParent
		return weight[id]
	}

	for id := range vertices {
		w := resolve(id)
		if w > maxWeight {
			maxWeight = w
			maxID = id
		}
	}

	var path []any
	for id := maxID; id != ""; id = prev[id] {
		path = append(path, keyByID[id])
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return Report{
		Backend:            BackendLongestPathGraph,
		CriticalPath:       path,
		CriticalPathWeight: maxWeight,
		SerialWeight:       serial,
		Computed:           b.computed,
		Reused:             b.reused,
	}
}
