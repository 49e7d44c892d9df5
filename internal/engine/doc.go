// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine wraps the native llama.cpp library behind an exclusive lock.
//
// The native binding is compiled only with the llamacpp build tag and cgo
// enabled; every other build has no backend and the engine runs in stub mode,
// where loads and generations fail with BACKEND_UNAVAILABLE.
//
// # Key Types
//
//   - Engine: lifecycle state machine (Uninitialized, Initialized,
//     ModelLoaded, Unloaded) guarding every native call with one mutex
//   - Backend / Model: the native boundary, replaceable in tests
//   - LoadResult / GenerateResult / Metrics: outcome and timing figures
//
// # Usage
//
//	e := engine.New()
//	if err := e.Initialize(); err != nil {
//	    log.Printf("ENGINE | %v", err)
//	}
//	if res := e.LoadModel("/models/phi-3-mini-q4.gguf", 2048, 4); !res.Success {
//	    return res.Err
//	}
//	out := e.Generate(ctx, prompt, engine.GenerateParams{MaxTokens: 256, Temperature: 0.1, TopP: 0.9})
//
// Build with the native library:
//
//	CGO_ENABLED=1 go build -tags llamacpp ./cmd/jeeves
package engine
