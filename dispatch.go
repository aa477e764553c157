package dice

import (
	"github.com/maticnetwork/dice/internal/activation"
	"github.com/maticnetwork/dice/internal/events"
)

// multiDispatcher fans the four lifecycle events out to every sink in
// order — the selected signals.Backend (which needs Started/Finished
// timing to compute its report) and the default zerolog sink.
type multiDispatcher []events.Dispatcher

func (m multiDispatcher) Started(key any) {
	for _, d := range m {
		d.Started(key)
	}
}

func (m multiDispatcher) Finished(key any) {
	for _, d := range m {
		d.Finished(key)
	}
}

func (m multiDispatcher) CheckDepsStarted(key any) {
	for _, d := range m {
		d.CheckDepsStarted(key)
	}
}

func (m multiDispatcher) CheckDepsFinished(key any) {
	for _, d := range m {
		d.CheckDepsFinished(key)
	}
}

// multiTracker fans KeyActivated out to every activation.Tracker — the
// selected signals.Backend (building its dependency DAG) and the
// recent-activations ring (internal/activation.RingTracker).
type multiTracker []activation.Tracker

func (m multiTracker) KeyActivated(key any, deps []any, data activation.Data) {
	for _, t := range m {
		t.KeyActivated(key, deps, data)
	}
}
