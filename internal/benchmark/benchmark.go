// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jeranaias/jeeves/internal/ai"
)

var (
	// ErrNoProviders is returned by Run when no provider is given.
	ErrNoProviders = errors.New("benchmark: no providers")

	// ErrNoSamples is returned by Run when the sample set is empty.
	ErrNoSamples = errors.New("benchmark: no samples")
)

// =============================================================================
// BENCHMARK RUNNER
// =============================================================================

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Dataset labels the sample set in results ("standard" or a file path).
	Dataset string

	// RatePerSecond paces requests per provider (0 = unpaced).
	RatePerSecond float64

	// Options is applied to every request. Zero value means ai.DefaultOptions.
	Options ai.Options

	// Exclusive lists provider ids that must not run alongside any other
	// provider, such as tiers sharing the native engine lock.
	Exclusive []string

	// OnSample is called after each sample, from the provider's goroutine.
	OnSample func(providerID string, s SampleResult)
}

// Runner feeds labeled samples through providers and aggregates the results.
type Runner struct {
	config RunnerConfig
}

// NewRunner creates a new benchmark runner.
func NewRunner(config RunnerConfig) *Runner {
	if config.Options == (ai.Options{}) {
		config.Options = ai.DefaultOptions()
	}
	if config.Dataset == "" {
		config.Dataset = "standard"
	}
	return &Runner{config: config}
}

// Run sends every sample to every provider. Non-exclusive providers run
// concurrently; exclusive providers run one at a time afterwards. The
// returned error is non-nil only when ctx ends the run early.
func (r *Runner) Run(ctx context.Context, samples []Sample, providers ...ai.Provider) (*Comparison, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	c := &Comparison{
		RunID:     uuid.New().String(),
		Dataset:   r.config.Dataset,
		Providers: make([]string, 0, len(providers)),
		Results:   make(map[string]*Result, len(providers)),
		StartTime: time.Now(),
	}
	log.Printf("BENCH | run=%s dataset=%s samples=%d providers=%d", shortID(c.RunID), c.Dataset, len(samples), len(providers))

	var mu sync.Mutex
	record := func(res *Result) {
		mu.Lock()
		c.Results[res.ProviderID] = res
		mu.Unlock()
	}

	var shared, exclusive []ai.Provider
	for _, p := range providers {
		c.Providers = append(c.Providers, p.ID())
		if slices.Contains(r.config.Exclusive, p.ID()) {
			exclusive = append(exclusive, p)
		} else {
			shared = append(shared, p)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range shared {
		g.Go(func() error {
			res, err := r.runProvider(gctx, p, samples)
			record(res)
			return err
		})
	}
	err := g.Wait()

	for _, p := range exclusive {
		if err != nil {
			break
		}
		var res *Result
		res, err = r.runProvider(ctx, p, samples)
		record(res)
	}

	c.EndTime = time.Now()
	c.Duration = c.EndTime.Sub(c.StartTime)
	log.Printf("BENCH | run=%s done ms=%d err=%v", shortID(c.RunID), c.Duration.Milliseconds(), err)
	return c, err
}

// runProvider runs all samples through one provider. It always returns a
// result holding whatever finished before ctx ended.
func (r *Runner) runProvider(ctx context.Context, p ai.Provider, samples []Sample) (*Result, error) {
	result := &Result{
		ProviderID: p.ID(),
		StartTime:  time.Now(),
		Samples:    make([]SampleResult, 0, len(samples)),
	}
	defer func() {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
		result.computeAggregates()
		log.Printf("BENCH | provider=%s samples=%d correct=%d failures=%d p50=%s",
			result.ProviderID, result.Total, result.Correct, result.Failures, FormatLatency(result.P50))
	}()

	var limiter *rate.Limiter
	if r.config.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.config.RatePerSecond), 1)
	}

	for _, sample := range samples {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return result, err
			}
		} else if err := ctx.Err(); err != nil {
			return result, err
		}

		sr := r.runSample(ctx, p, sample)
		result.Samples = append(result.Samples, sr)
		if r.config.OnSample != nil {
			r.config.OnSample(result.ProviderID, sr)
		}
	}
	return result, nil
}

// runSample sends one sample and scores the classification.
func (r *Runner) runSample(ctx context.Context, p ai.Provider, sample Sample) SampleResult {
	sr := SampleResult{Name: sample.Name, Expected: sample.Expected}

	start := time.Now()
	resp := complete(ctx, p, sample.Request(r.config.Options))
	sr.Latency = time.Since(start)

	sr.Route = resp.Metadata.Route
	sr.ModelID = resp.Metadata.ModelID
	if !resp.Success {
		sr.Error = resp.Err().Error()
		return sr
	}
	pc, ok := resp.Classification()
	if !ok {
		sr.Error = fmt.Sprintf("unexpected result type %T", resp.Result)
		return sr
	}
	sr.Got = pc.Quadrant
	sr.Confidence = pc.Confidence
	sr.Correct = pc.Quadrant == sample.Expected
	return sr
}

// complete calls the provider, converting a panic or nil response into a
// failed response.
func complete(ctx context.Context, p ai.Provider, req *ai.Request) (resp *ai.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = ai.Fail(req, p.ID(), ai.Errorf(ai.CodeProviderPanic, "%s panicked: %v", p.ID(), rec))
		}
	}()
	resp = p.Complete(ctx, req)
	if resp == nil {
		resp = ai.Fail(req, p.ID(), ai.Errorf(ai.CodeGenerationFailed, "%s returned no response", p.ID()))
	}
	return resp
}
