// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ai defines the request/response contract shared by every inference tier.
//
// A caller builds a Request, hands it to a Provider (usually the router) and
// receives a Response carrying exactly one typed Result variant or a typed
// Error. Providers never panic across this boundary; failures are reported
// through Response.Error with a stable ErrorCode.
//
// # Key Types
//
//   - Request / Options / RequestContext: per-call input, never persisted
//   - Result: closed set of typed variants (PriorityClassification, ParsedTask,
//     GoalSuggestion, Briefing, ActionItems, Summary, ChatReply)
//   - Response / Metadata: outcome plus which tier answered and how fast
//   - Provider / Streamer: the tier contract
//   - Availability: observable availability flag
//   - Error / ErrorCode: typed failure model
//
// # Usage
//
//	req := ai.NewRequest(ai.OpClassifyPriority, "Call the client about the outage")
//	resp := provider.Complete(ctx, req)
//	if !resp.Success {
//	    log.Printf("failed: %v", resp.Error)
//	}
//	if pc, ok := resp.Result.(*ai.PriorityClassification); ok {
//	    fmt.Println(pc.Quadrant, pc.GetConfidence())
//	}
package ai
