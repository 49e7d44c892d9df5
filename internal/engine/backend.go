// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import "sync"

// LoadParams configures a native model load.
type LoadParams struct {
	ContextSize int
	Threads     int
}

// GenerateParams configures one native generation.
type GenerateParams struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Backend is the native library boundary. Implementations are only ever
// called with the engine lock held.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Init prepares process-wide native state.
	Init() error
	// Load opens a model file and creates an inference context.
	Load(path string, p LoadParams) (Model, error)
	// Free releases process-wide native state.
	Free()
}

// Model is an owned native model handle. It never leaves this package's
// callers except through the Engine.
type Model interface {
	// Generate runs sampling until end-of-generation or MaxTokens, calling
	// onPiece for each decoded piece. It returns the number of tokens sampled.
	Generate(prompt string, p GenerateParams, onPiece func(string)) (int, error)
	// MemoryBytes reports the native footprint.
	MemoryBytes() int64
	// Close frees the native handle.
	Close() error
}

var (
	probeOnce sync.Once
	probed    Backend
)

// DefaultBackend returns the backend compiled into this binary, or nil when
// none is. The probe runs once per process.
func DefaultBackend() Backend {
	probeOnce.Do(func() {
		probed = nativeBackend()
	})
	return probed
}
