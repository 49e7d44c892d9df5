// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jeranaias/jeeves/internal/benchmark"
	"github.com/jeranaias/jeeves/internal/config"
	"github.com/jeranaias/jeeves/internal/ondevice"
	"github.com/jeranaias/jeeves/internal/router"
)

// =============================================================================
// BENCH COMMAND
// =============================================================================

// BenchArgs holds the arguments of the bench command.
type BenchArgs struct {
	// Providers is a comma-separated list (empty = every tier plus router)
	Providers string

	// Dataset is a JSON sample file (empty = config, then built-in set)
	Dataset string

	// RatePerSecond overrides the configured pacing when > 0
	RatePerSecond float64

	// NoSave skips the JSON file and the history row
	NoSave bool

	// Misses lists wrong and failed samples after the table
	Misses bool
}

// BenchOutput is the payload of the bench command.
type BenchOutput struct {
	Comparison *benchmark.Comparison `json:"comparison"`
	File       string                `json:"file,omitempty"`
}

// HandleBench runs the benchmark and records it.
func HandleBench(ctx context.Context, out Output, s *Stack, args BenchArgs) error {
	return out.Emit("bench", func() (any, error) {
		return runBench(ctx, out, s, args)
	}, func(w io.Writer, data any) {
		o := data.(*BenchOutput)
		rep := benchmark.NewReport(GetTerminalWidth())
		fmt.Fprintln(w, rep.RenderComparison(o.Comparison))
		if args.Misses {
			fmt.Fprint(w, rep.RenderMisses(o.Comparison))
		}
		if o.File != "" {
			fmt.Fprintln(w, DimStyle.Render("saved "+o.File))
		}
	})
}

func runBench(ctx context.Context, out Output, s *Stack, args BenchArgs) (*BenchOutput, error) {
	cfg := s.Config
	providers, err := s.Select(args.Providers)
	if err != nil {
		return nil, err
	}

	dataset := args.Dataset
	if dataset == "" {
		dataset = cfg.Benchmark.Dataset
	}
	samples := benchmark.StandardSamples()
	if dataset != "" {
		if samples, err = benchmark.LoadDataset(dataset); err != nil {
			return nil, err
		}
	}

	rate := cfg.Benchmark.RatePerSecond
	if args.RatePerSecond > 0 {
		rate = args.RatePerSecond
	}

	runner := benchmark.NewRunner(benchmark.RunnerConfig{
		Dataset:       dataset,
		RatePerSecond: rate,
		Options:       cfg.RequestOptions(),
		// The router reaches the on-device engine too, so neither may be
		// timed while the other holds the engine lock.
		Exclusive: []string{ondevice.ProviderID, router.ProviderID},
		OnSample: func(id string, sr benchmark.SampleResult) {
			mark := "."
			switch {
			case sr.Error != "":
				mark = "x"
			case !sr.Correct:
				mark = "?"
			}
			out.Printf("%s", mark)
		},
	})

	out.Printf("%s\n", DimStyle.Render(fmt.Sprintf("benchmarking %d providers on %d samples", len(providers), len(samples))))
	cmp, err := runner.Run(ctx, samples, providers...)
	out.Printf("\n")
	if err != nil {
		return nil, err
	}

	result := &BenchOutput{Comparison: cmp}
	if args.NoSave {
		return result, nil
	}
	if result.File, err = saveBench(ctx, cfg, cmp); err != nil {
		return nil, err
	}
	return result, nil
}

// saveBench writes the JSON result and appends the run to the history.
func saveBench(ctx context.Context, cfg *config.Config, cmp *benchmark.Comparison) (string, error) {
	dir, err := cfg.BenchmarkDir()
	if err != nil {
		return "", err
	}
	store, err := benchmark.NewStorageWithDir(dir)
	if err != nil {
		return "", err
	}
	name, err := store.Save(cmp)
	if err != nil {
		return "", err
	}

	dbPath, err := cfg.HistoryPath()
	if err != nil {
		return "", err
	}
	hist, err := benchmark.OpenHistory(dbPath)
	if err != nil {
		return "", err
	}
	defer hist.Close()
	if err := hist.Record(ctx, cmp); err != nil {
		return "", err
	}
	return filepath.Join(store.Dir(), name), nil
}

// =============================================================================
// HISTORY COMMAND
// =============================================================================

// HistoryArgs holds the arguments of the history command.
type HistoryArgs struct {
	Provider string
	Limit    int
}

// HandleHistory prints recent benchmark runs.
func HandleHistory(ctx context.Context, out Output, cfg *config.Config, args HistoryArgs) error {
	return out.Emit("history", func() (any, error) {
		dbPath, err := cfg.HistoryPath()
		if err != nil {
			return nil, err
		}
		hist, err := benchmark.OpenHistory(dbPath)
		if err != nil {
			return nil, err
		}
		defer hist.Close()
		return hist.Recent(ctx, args.Provider, args.Limit)
	}, func(w io.Writer, data any) {
		fmt.Fprintln(w, benchmark.NewReport(GetTerminalWidth()).RenderHistory(data.([]benchmark.HistoryRow)))
	})
}
