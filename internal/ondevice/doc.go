// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ondevice adapts the native inference engine to the ai.Provider
// contract.
//
// A request is rendered with the prompt template of the loaded model's
// family, generated under the engine lock, and parsed back into a typed
// result. The provider is available only while a model is loaded and the
// engine has a real backend.
//
// # Usage
//
//	eng := engine.New()
//	p := ondevice.New(eng, ondevice.Config{ModelPath: path, ContextSize: 2048, Threads: 4})
//	if err := p.Initialize(ctx); err != nil {
//	    log.Printf("ONDEVICE | init failed: %v", err)
//	}
//	resp := p.Complete(ctx, ai.NewRequest(ai.OpClassifyPriority, "Renew passport"))
package ondevice
