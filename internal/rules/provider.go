// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package rules

import (
	"context"
	"time"

	"github.com/jeranaias/jeeves/internal/ai"
)

// ProviderID is the registry key of the rule-based tier.
const ProviderID = "rule-based"

// Provider is the deterministic, always-available bottom tier.
type Provider struct {
	avail *ai.Availability
}

// New creates the rule-based provider.
func New() *Provider {
	return &Provider{avail: ai.NewAvailability(true)}
}

// ID implements ai.Provider.
func (p *Provider) ID() string { return ProviderID }

// Capabilities implements ai.Provider. Every operation has a heuristic.
func (p *Provider) Capabilities() ai.Capabilities { return ai.AllCapabilities() }

// Availability implements ai.Provider. It never changes.
func (p *Provider) Availability() *ai.Availability { return p.avail }

// Initialize implements ai.Provider.
func (p *Provider) Initialize(context.Context) error { return nil }

// Release implements ai.Provider.
func (p *Provider) Release() error { return nil }

// Complete implements ai.Provider. It never blocks and never touches I/O.
func (p *Provider) Complete(_ context.Context, req *ai.Request) *ai.Response {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return p.finish(ai.Fail(req, ProviderID, err), start)
	}

	var result ai.Result
	switch req.Operation {
	case ai.OpClassifyPriority:
		result = Classify(req.Input, req.Context)
	case ai.OpParseTask:
		result = ParseTask(req.Input, req.Context)
	case ai.OpSuggestGoal:
		result = SuggestGoal(req.Input, req.Context)
	case ai.OpGenerateBriefing:
		result = Briefing(req.Input, req.Context)
	case ai.OpExtractActionItems:
		result = ExtractActionItems(req.Input, req.Context)
	case ai.OpSummarize:
		result = Summarize(req.Input)
	case ai.OpChat:
		result = Chat(req.Input)
	default:
		return p.finish(ai.Fail(req, ProviderID, ai.Errorf(ai.CodeUnsupportedOperation, "operation %s", req.Operation)), start)
	}
	return p.finish(ai.Succeed(req, ProviderID, result), start)
}

func (p *Provider) finish(resp *ai.Response, start time.Time) *ai.Response {
	resp.Metadata.FromRuleBased = true
	resp.Metadata.ModelID = "rules-v1"
	resp.Metadata.Latency = time.Since(start)
	return resp
}

var _ ai.Provider = (*Provider)(nil)
