package main

import (
	"context"
	"fmt"

	"github.com/maticnetwork/dice"
	"github.com/maticnetwork/dice/internal/config"
	"github.com/maticnetwork/dice/internal/core"
)

// leafKey and sumKey are the toy key types the demo evaluates. Both are
// plain strings: keys must have value semantics (spec §3) so they can
// back a KeyIndex map, so a sumKey's fan-in lives in a side table rather
// than inline on the key itself.
type leafKey string
type sumKey string

// leaves is the external input the demo's "new version" step mutates,
// mirroring spec §3's "a new version is introduced whenever the caller
// declares external state has changed".
type leaves map[leafKey]int

// sums maps a sumKey to the keys it adds up.
type sums map[sumKey][]any

type leafComputation struct{ table leaves }

func (c leafComputation) Evaluate(_ context.Context, key any, _ *dice.EvalContext) (dice.EvalOutput, error) {
	lk := key.(leafKey)
	return dice.EvalOutput{Value: c.table[lk]}, nil
}

func (leafComputation) StorageType(any) core.StoragePolicy { return core.StorageNormal }

type sumComputation struct{ graph sums }

func (c sumComputation) Evaluate(ctx context.Context, key any, ec *dice.EvalContext) (dice.EvalOutput, error) {
	sk := key.(sumKey)
	total := 0
	for _, dep := range c.graph[sk] {
		v, err := ec.Get(ctx, dep)
		if err != nil {
			return dice.EvalOutput{}, err
		}
		total += v.(int)
	}
	return dice.EvalOutput{Value: total}, nil
}

func (sumComputation) StorageType(any) core.StoragePolicy { return core.StorageNormal }

// resolver closes over the mutable leaf table and the sum graph so
// leafComputation always reads whatever the demo's driver most recently
// wrote into it.
func resolver(table leaves, graph sums) dice.Resolver {
	return func(key any) dice.Computation {
		switch key.(type) {
		case leafKey:
			return leafComputation{table: table}
		case sumKey:
			return sumComputation{graph: graph}
		default:
			return nil
		}
	}
}

func buildDemoGraph() (leaves, sums, sumKey, sumKey) {
	table := leaves{"a": 1, "b": 2, "c": 3, "d": 4}

	const left, right, total sumKey = "left", "right", "total"
	graph := sums{
		left:  {leafKey("a"), leafKey("b")},
		right: {leafKey("c"), leafKey("d")},
		total: {left, right},
	}
	return table, graph, total, left
}

// runDemo evaluates total = (a+b) + (c+d) at an initial version, bumps
// leaf "a" and asks again at a new version — left and total recompute,
// right is reused untouched — then prints the signals backend's report.
func runDemo(ctx context.Context, cfg config.Config) error {
	table, graph, total, left := buildDemoGraph()

	d, err := dice.New(cfg, resolver(table, graph))
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}
	defer d.Shutdown()

	v1 := d.NewVersion()
	result, err := d.Get(ctx, total, v1)
	if err != nil {
		return fmt.Errorf("get total at v%d: %w", v1, err)
	}
	fmt.Printf("version %d: total = %v\n", v1, result)

	table["a"] = 100

	v2 := d.NewVersion()
	result, err = d.Get(ctx, total, v2)
	if err != nil {
		return fmt.Errorf("get total at v%d: %w", v2, err)
	}
	fmt.Printf("version %d: total = %v (left=%v recomputed, right reused)\n", v2, result, left)

	report := d.Report()
	fmt.Printf("backend=%s computed=%d reused=%d serial_weight=%.6fs\n",
		report.Backend, report.Computed, report.Reused, report.SerialWeight)
	if len(report.CriticalPath) > 0 {
		fmt.Printf("critical path (%.6fs): %v\n", report.CriticalPathWeight, report.CriticalPath)
	}
	return nil
}

// runActivations runs the same scenario and additionally prints the
// bounded recent-activation ring.
func runActivations(ctx context.Context, cfg config.Config) error {
	table, graph, total, _ := buildDemoGraph()

	d, err := dice.New(cfg, resolver(table, graph))
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}
	defer d.Shutdown()

	v1 := d.NewVersion()
	if _, err := d.Get(ctx, total, v1); err != nil {
		return err
	}

	table["a"] = 100
	v2 := d.NewVersion()
	if _, err := d.Get(ctx, total, v2); err != nil {
		return err
	}

	for _, rec := range d.RecentActivations() {
		fmt.Printf("%v kind=%d deps=%v\n", rec.Key, rec.Data.Kind, rec.Deps)
	}
	return nil
}
