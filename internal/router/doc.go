// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router runs inference requests through a tiered fallback chain.
//
// Tiers are ordered from cheapest to heaviest:
// Rules -> Secondary (platform daemon) -> Primary (on-device model)
//
// # Key Types
//
//   - Router: the chain itself; it also implements ai.Provider
//   - Tier: chain position (Rule, Secondary, Primary)
//   - Mode: rule_based_only, model_only, hybrid, hybrid_secondary
//   - Stats: routing counters snapshot
//
// # Routing
//
// In the hybrid modes the rule tier always answers first. Its answer is
// returned directly when its confidence reaches the request threshold;
// otherwise each usable model tier is tried in order. When every model
// tier fails or is skipped, the rule answer is returned as a fallback.
// Exactly one outcome is counted per call.
//
// Initialize probes the secondary tier once. Success upgrades hybrid to
// hybrid_secondary; failure leaves the mode alone.
//
// # Usage
//
//	r, err := router.New(router.Config{
//	    Rules:     rules.New(),
//	    Secondary: secondary,
//	    Primary:   onDevice,
//	    Mode:      router.ModeHybrid,
//	})
//	if err != nil {
//	    return err
//	}
//	_ = r.Initialize(ctx)
//	defer r.Release()
//
//	resp := r.Complete(ctx, ai.NewRequest(ai.OpClassifyPriority, "Server down"))
package router
