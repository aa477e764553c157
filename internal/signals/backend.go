// Package signals implements the engine's critical-path reporting, the
// "only user-visible configuration surface of the build-signals layer the
// engine is embedded in" per spec §6: a backend name from the set
// {"longest-path-graph", "default"}, rejected at the config boundary if
// unrecognized (§7: configuration errors never reach the engine).
//
// Grounded directly on core/blockstm/dag.go's DAG.LongestPath, which
// builds a heimdalr/dag.DAG over transaction dependencies and walks it for
// the longest weighted path; here the vertices are keys instead of
// transaction indices and the edges come from ActivationReporter/
// EventDispatcher signals instead of MVHashMap read/write sets.
package signals

import "fmt"

// BackendName is the critical-path backend selector (spec §6).
type BackendName string

const (
	BackendLongestPathGraph BackendName = "longest-path-graph"
	BackendDefault          BackendName = "default"
)

// ParseBackendName validates s against the known backend set. An unknown
// name is a configuration error (spec §7), rejected here at the boundary
// before any Recorder is built.
func ParseBackendName(s string) (BackendName, error) {
	switch BackendName(s) {
	case BackendLongestPathGraph:
		return BackendLongestPathGraph, nil
	case BackendDefault:
		return BackendDefault, nil
	default:
		return "", fmt.Errorf("dice: invalid backend name: %q", s)
	}
}

// Report is what a Backend produces once the engine run it is observing
// has gone quiet.
type Report struct {
	// Backend names which backend produced this report.
	Backend BackendName
	// CriticalPath is the ordered chain of keys that gated end-to-end
	// latency. Empty for BackendDefault, which does not track a path.
	CriticalPath []any
	// CriticalPathWeight is the summed duration, in seconds, along
	// CriticalPath.
	CriticalPathWeight float64
	// SerialWeight is the sum of every recorded compute duration, i.e.
	// what total latency would have been with no concurrency at all.
	SerialWeight float64
	Computed     int
	Reused       int
}

// Backend accumulates per-key timing and dependency signals and produces a
// Report on demand. Both Backend implementations are also valid
// events.Dispatcher/activation.Tracker targets; NewBackend wires the
// concrete type matching name.
type Backend interface {
	Name() BackendName
	Report() Report
}

// NewBackend constructs the Backend for an already-validated name.
func NewBackend(name BackendName) Backend {
	switch name {
	case BackendLongestPathGraph:
		return newLongestPathBackend()
	default:
		return newDefaultBackend()
	}
}
