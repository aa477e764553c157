// Package events implements the EventDispatcher coupling (spec C8, §4.7):
// lifecycle callbacks bracketing computation and dependency checking.
package events

import (
	"github.com/rs/zerolog"
)

// Dispatcher receives the four lifecycle events from spec §4.7. started
// and finished bracket the compute path; check_deps_started and
// check_deps_finished bracket dependency validation. The engine emits the
// check-deps pair before, never inside, a started/finished pair: when
// validation leads to a recompute, started/finished follow the finished
// check-deps pair. A nil Dispatcher is never called — see Maybe.
type Dispatcher interface {
	Started(key any)
	Finished(key any)
	CheckDepsStarted(key any)
	CheckDepsFinished(key any)
}

// Maybe wraps a possibly-nil Dispatcher so call sites never need a nil
// check of their own (spec §4.7: "Both sinks are Optional").
type Maybe struct{ D Dispatcher }

func (m Maybe) Started(key any) {
	if m.D != nil {
		m.D.Started(key)
	}
}

func (m Maybe) Finished(key any) {
	if m.D != nil {
		m.D.Finished(key)
	}
}

func (m Maybe) CheckDepsStarted(key any) {
	if m.D != nil {
		m.D.CheckDepsStarted(key)
	}
}

func (m Maybe) CheckDepsFinished(key any) {
	if m.D != nil {
		m.D.CheckDepsFinished(key)
	}
}

// ZerologDispatcher is the default Dispatcher: structured debug-level
// logging of every lifecycle event, in the teacher's own key-value idiom
// (github.com/ethereum/go-ethereum/log's `log.Debug("msg", "key", v)`
// translated to zerolog's equivalent chained-field form).
type ZerologDispatcher struct {
	Log zerolog.Logger
}

func (z ZerologDispatcher) Started(key any) {
	z.Log.Debug().Interface("key", key).Msg("computing started")
}

func (z ZerologDispatcher) Finished(key any) {
	z.Log.Debug().Interface("key", key).Msg("computing finished")
}

func (z ZerologDispatcher) CheckDepsStarted(key any) {
	z.Log.Debug().Interface("key", key).Msg("check-deps started")
}

func (z ZerologDispatcher) CheckDepsFinished(key any) {
	z.Log.Debug().Interface("key", key).Msg("check-deps finished")
}
