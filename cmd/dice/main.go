// Command dice is a small demo harness over the engine: it evaluates a
// toy key graph across a few versions and prints what got recomputed,
// what got reused, and (with the longest-path-graph backend) the critical
// path that gated total latency.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/maticnetwork/dice/internal/config"
)

func main() {
	app := &cli.App{
		Name:  "dice",
		Usage: "incremental computation engine demo harness",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "parallelism", Value: 0, Usage: "dependency-check fan-out bound; 0 uses GOMAXPROCS"},
			&cli.StringFlag{Name: "backend", Value: "longest-path-graph", Usage: `critical-path backend: "longest-path-graph" or "default"`},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "zerolog level: debug, info, warn, error, disabled"},
			&cli.IntFlag{Name: "activation-ring-size", Value: 256, Usage: "bounded recent-activation history size"},
		},
		Commands: []*cli.Command{
			runCommand,
			activationsCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "dice:", err)
		os.Exit(1)
	}
}

func configFromFlags(c *cli.Context) config.Config {
	cfg := config.Default()
	cfg.Parallelism = c.Int("parallelism")
	cfg.Backend = c.String("backend")
	cfg.LogLevel = c.String("log-level")
	cfg.ActivationRingSize = c.Int("activation-ring-size")
	return cfg
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "evaluate a toy fan-out graph across a few versions and print a report",
	Action: func(c *cli.Context) error {
		cfg := configFromFlags(c)
		return runDemo(context.Background(), cfg)
	},
}

var activationsCommand = &cli.Command{
	Name:  "activations",
	Usage: "run the same demo and print the recent-activation ring afterward",
	Action: func(c *cli.Context) error {
		cfg := configFromFlags(c)
		return runActivations(context.Background(), cfg)
	},
}

