// Package metrics exposes the engine's cross-cutting observability surface
// via prometheus, mirroring the optionality of ActivationTracker and
// EventDispatcher: a Recorder built with a nil Registerer records nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder owns the engine's prometheus instrumentation.
type Recorder struct {
	tasksComputed   prometheus.Counter
	tasksReused     prometheus.Counter
	tasksCancelled  prometheus.Counter
	depCheckChanged prometheus.Counter
	computeSeconds  prometheus.Histogram
}

// New registers the engine's metrics against reg. A nil reg yields a
// Recorder whose methods are all safe no-ops, so instrumentation can be
// wired unconditionally without a "metrics enabled" branch at every call
// site.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		return &Recorder{}
	}
	r := &Recorder{
		tasksComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dice_tasks_computed_total",
			Help: "Keys whose evaluator actually ran, rather than being reused or matched.",
		}),
		tasksReused: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dice_tasks_reused_total",
			Help: "Keys whose cached value was reused after a successful dependency check.",
		}),
		tasksCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dice_tasks_cancelled_total",
			Help: "Tasks whose computed result was discarded because cancellation won the race.",
		}),
		depCheckChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dice_dep_check_changed_total",
			Help: "Dependency checks that found a changed or errored dependency, forcing recompute.",
		}),
		computeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dice_compute_duration_seconds",
			Help:    "Wall-clock duration of evaluator invocations.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(r.tasksComputed, r.tasksReused, r.tasksCancelled, r.depCheckChanged, r.computeSeconds)
	return r
}

func (r *Recorder) TaskComputed()  { r.inc(r.tasksComputed) }
func (r *Recorder) TaskReused()    { r.inc(r.tasksReused) }
func (r *Recorder) TaskCancelled() { r.inc(r.tasksCancelled) }
func (r *Recorder) DepCheckChanged() { r.inc(r.depCheckChanged) }

func (r *Recorder) ObserveComputeSeconds(seconds float64) {
	if r != nil && r.computeSeconds != nil {
		r.computeSeconds.Observe(seconds)
	}
}

func (r *Recorder) inc(c prometheus.Counter) {
	if r != nil && c != nil {
		c.Inc()
	}
}
