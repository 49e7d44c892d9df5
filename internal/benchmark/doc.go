// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package benchmark measures classification quality and latency of
// inference providers.
//
// A run feeds labeled Eisenhower samples through one or more ai.Provider
// values and reports, per provider, accuracy against the labels, failure
// count, mean confidence and p50/p90/p99 latency.
//
// # Key Types
//
//   - Runner: paces samples through providers and aggregates results
//   - Sample: one labeled input (built-in set or a JSON dataset)
//   - Result: aggregated metrics for one provider
//   - Comparison: all provider results for one run
//   - Storage: JSON result files
//   - History: SQLite table of past runs
//   - Report: terminal rendering
//
// # Usage
//
//	runner := benchmark.NewRunner(benchmark.RunnerConfig{
//	    RatePerSecond: 2,
//	    Exclusive:     []string{ondevice.ProviderID},
//	})
//	cmp, err := runner.Run(ctx, benchmark.StandardSamples(), rulesProvider, router)
//	fmt.Println(benchmark.NewReport(100).RenderComparison(cmp))
//
// Providers that share the native engine should be listed in Exclusive so
// their latencies are not measured while another provider holds the lock.
package benchmark
