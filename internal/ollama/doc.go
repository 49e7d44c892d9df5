// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama is the secondary inference tier: a small model served by
// the Ollama daemon on the loopback interface.
//
// The client speaks the daemon's /api/generate, /api/tags and /api/show
// endpoints with raw, fully templated prompts so the same prompt catalog and
// output parser serve both model tiers. Every call validates the base URL
// against offline mode and passes through a token-bucket limiter.
//
// # Key Types
//
//   - Client: HTTP client for the daemon API
//   - StreamReader: NDJSON reader for streaming generate responses
//   - Provider: ai.Provider for the secondary tier
//
// # Usage
//
//	p := ollama.NewProvider(ollama.ProviderConfig{Model: "qwen2.5:0.5b"})
//	if err := p.Initialize(ctx); err != nil {
//	    // daemon not running or model not pulled; tier stays unavailable
//	}
//	resp := p.Complete(ctx, ai.NewRequest(ai.OpClassifyPriority, "Book flights"))
package ollama
