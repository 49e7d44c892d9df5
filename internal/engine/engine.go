// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/jeeves/internal/ai"
)

// =============================================================================
// STATE
// =============================================================================

// State is the engine lifecycle state. Generation is not a separate state.
type State int32

const (
	StateUninitialized State = iota
	StateInitialized
	StateModelLoaded
	StateUnloaded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateModelLoaded:
		return "model_loaded"
	case StateUnloaded:
		return "unloaded"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Defaults applied when callers pass zero values.
const (
	DefaultContextSize = 2048
	DefaultThreads     = 4
	DefaultMaxTokens   = 256
)

// =============================================================================
// RESULTS
// =============================================================================

// LoadResult reports the outcome of LoadModel.
type LoadResult struct {
	Success     bool
	LoadTime    time.Duration
	MemoryBytes int64
	IsStub      bool
	Err         error
}

// GenerateResult reports the outcome of Generate. TokensGenerated is zero on
// every failure that happens before the native call.
type GenerateResult struct {
	Text            string
	InferenceTime   time.Duration
	TokensGenerated int
	TokensPerSecond float64
	Err             error
}

// Metrics are the figures of the last load and last generation.
type Metrics struct {
	LoadTime          time.Duration
	MemoryBytes       int64
	LastInferenceTime time.Duration
	LastTokens        int
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine wraps a native backend behind a single exclusive lock. Every state
// transition and every native call happens under mu; state and the stub flag
// are mirrored into atomics so readers never block behind a generation.
type Engine struct {
	mu sync.Mutex

	backend       Backend
	backendForced bool
	model         Model

	state     atomic.Int32
	stub      atomic.Bool
	modelPath atomic.Pointer[string]

	loadTime      atomic.Int64
	memBytes      atomic.Int64
	lastInference atomic.Int64
	lastTokens    atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithBackend replaces the compiled-in backend. A nil backend forces stub mode.
func WithBackend(b Backend) Option {
	return func(e *Engine) {
		e.backend = b
		e.backendForced = true
	}
}

// New creates an uninitialized engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state without blocking.
func (e *Engine) State() State { return State(e.state.Load()) }

// IsStub reports whether the engine runs without a native backend.
func (e *Engine) IsStub() bool { return e.stub.Load() }

// IsLoaded reports whether a model is ready for generation.
func (e *Engine) IsLoaded() bool { return e.State() == StateModelLoaded }

// ModelPath returns the path of the loaded model, or "".
func (e *Engine) ModelPath() string {
	if p := e.modelPath.Load(); p != nil {
		return *p
	}
	return ""
}

// Metrics returns the last load and generation figures.
func (e *Engine) Metrics() Metrics {
	return Metrics{
		LoadTime:          time.Duration(e.loadTime.Load()),
		MemoryBytes:       e.memBytes.Load(),
		LastInferenceTime: time.Duration(e.lastInference.Load()),
		LastTokens:        int(e.lastTokens.Load()),
	}
}

// Initialize probes and initializes the backend. It is idempotent; with no
// backend the engine enters stub mode for the rest of its life and returns
// nil.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initLocked()
}

func (e *Engine) initLocked() (err error) {
	if e.State() != StateUninitialized {
		return nil
	}

	if !e.backendForced {
		e.backend = DefaultBackend()
	}
	if e.backend == nil || e.stub.Load() {
		e.stub.Store(true)
		e.state.Store(int32(StateInitialized))
		log.Printf("ENGINE | init backend=none stub=true")
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = ai.NewError(ai.CodeBackendUnavailable, "backend init panicked", fmt.Errorf("%v", r))
		}
		if err != nil {
			e.stub.Store(true)
			e.state.Store(int32(StateInitialized))
			log.Printf("ENGINE | init backend=%s failed err=%v stub=true", e.backend.Name(), err)
		}
	}()

	if initErr := e.backend.Init(); initErr != nil {
		return ai.NewError(ai.CodeBackendUnavailable, "backend init failed", initErr)
	}
	e.state.Store(int32(StateInitialized))
	log.Printf("ENGINE | init backend=%s stub=false", e.backend.Name())
	return nil
}

// LoadModel loads the model at path, replacing any loaded model. The order is
// stub check, file check, unload current, native load; a missing file leaves
// the engine untouched.
func (e *Engine) LoadModel(path string, contextSize, threads int) (res LoadResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.initLocked(); err != nil {
		return LoadResult{IsStub: true, Err: err}
	}
	if e.stub.Load() {
		return LoadResult{IsStub: true, Err: ai.NewError(ai.CodeBackendUnavailable, "no native backend compiled in", nil)}
	}

	info, statErr := os.Stat(path)
	if statErr != nil || info.IsDir() {
		if statErr == nil {
			statErr = fmt.Errorf("%s is a directory", path)
		}
		return LoadResult{Err: ai.NewError(ai.CodeModelNotFound, "model file not found: "+path, statErr)}
	}

	e.unloadLocked()

	if contextSize <= 0 {
		contextSize = DefaultContextSize
	}
	if threads <= 0 {
		threads = DefaultThreads
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = LoadResult{Err: ai.NewError(ai.CodeModelLoadFailed, "native load panicked", fmt.Errorf("%v", r))}
			log.Printf("ENGINE | load path=%s panic=%v", path, r)
		}
	}()

	model, err := e.backend.Load(path, LoadParams{ContextSize: contextSize, Threads: threads})
	if err != nil || model == nil {
		if err == nil {
			err = fmt.Errorf("backend returned no model")
		}
		log.Printf("ENGINE | load path=%s failed err=%v", path, err)
		return LoadResult{Err: ai.NewError(ai.CodeModelLoadFailed, "native load failed", err)}
	}

	elapsed := time.Since(start)
	e.model = model
	e.modelPath.Store(&path)
	e.loadTime.Store(int64(elapsed))
	e.memBytes.Store(model.MemoryBytes())
	e.state.Store(int32(StateModelLoaded))

	log.Printf("ENGINE | loaded path=%s ctx=%d threads=%d load_ms=%d mem_bytes=%d",
		path, contextSize, threads, elapsed.Milliseconds(), model.MemoryBytes())

	return LoadResult{Success: true, LoadTime: elapsed, MemoryBytes: model.MemoryBytes()}
}

// Generate runs one exclusive generation. ctx is only consulted before the
// native call; a started generation always runs to completion.
func (e *Engine) Generate(ctx context.Context, prompt string, p GenerateParams) GenerateResult {
	var b strings.Builder
	res := e.generate(ctx, prompt, p, func(piece string) { b.WriteString(piece) })
	res.Text = b.String()
	return res
}

// GenerateStream is Generate with each decoded piece passed to onPiece while
// the lock is held. onPiece must not call back into the engine.
func (e *Engine) GenerateStream(ctx context.Context, prompt string, p GenerateParams, onPiece func(string)) GenerateResult {
	var b strings.Builder
	res := e.generate(ctx, prompt, p, func(piece string) {
		b.WriteString(piece)
		onPiece(piece)
	})
	res.Text = b.String()
	return res
}

func (e *Engine) generate(ctx context.Context, prompt string, p GenerateParams, onPiece func(string)) (res GenerateResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stub.Load() {
		return GenerateResult{Err: ai.NewError(ai.CodeBackendUnavailable, "no native backend compiled in", nil)}
	}
	if e.model == nil {
		return GenerateResult{Err: ai.ErrModelNotLoaded}
	}
	if err := ctx.Err(); err != nil {
		return GenerateResult{Err: ai.NewError(ai.CodeGenerationFailed, "request cancelled before generation", err)}
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = DefaultMaxTokens
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = GenerateResult{Err: ai.NewError(ai.CodeGenerationFailed, "native generation panicked", fmt.Errorf("%v", r))}
			log.Printf("ENGINE | generate panic=%v", r)
		}
	}()

	tokens, err := e.model.Generate(prompt, p, onPiece)
	elapsed := time.Since(start)
	e.lastInference.Store(int64(elapsed))
	e.lastTokens.Store(int64(tokens))

	res = GenerateResult{InferenceTime: elapsed, TokensGenerated: tokens}
	if secs := elapsed.Seconds(); secs > 0 {
		res.TokensPerSecond = float64(tokens) / secs
	}
	if err != nil {
		res.Err = ai.NewError(ai.CodeGenerationFailed, "native generation failed", err)
	}

	log.Printf("ENGINE | generate tokens=%d ms=%d tps=%.1f err=%v",
		tokens, elapsed.Milliseconds(), res.TokensPerSecond, err)
	return res
}

// Unload frees the loaded model. It is idempotent.
func (e *Engine) Unload() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unloadLocked()
}

func (e *Engine) unloadLocked() {
	if e.model != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("ENGINE | unload panic=%v", r)
				}
			}()
			if err := e.model.Close(); err != nil {
				log.Printf("ENGINE | unload err=%v", err)
			}
		}()
		e.model = nil
		log.Printf("ENGINE | unloaded path=%s", e.ModelPath())
	}
	if e.State() == StateModelLoaded {
		e.state.Store(int32(StateUnloaded))
	}
	e.modelPath.Store(nil)
	e.loadTime.Store(0)
	e.memBytes.Store(0)
	e.lastInference.Store(0)
	e.lastTokens.Store(0)
}

// Cleanup unloads any model, frees the backend and returns the engine to
// StateUninitialized. It is idempotent.
func (e *Engine) Cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.unloadLocked()
	if e.State() == StateUninitialized {
		return
	}
	if e.backend != nil && !e.stub.Load() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("ENGINE | cleanup panic=%v", r)
				}
			}()
			e.backend.Free()
		}()
	}
	e.state.Store(int32(StateUninitialized))
	log.Printf("ENGINE | cleanup done")
}
