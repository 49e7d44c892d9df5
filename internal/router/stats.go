// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"sync/atomic"
)

// Stats is a point-in-time copy of the routing counters. Outside of a
// concurrent snapshot, TotalRequests equals the sum of the other four.
type Stats struct {
	TotalRequests     uint64 `json:"total_requests"`
	RuleBasedDirect   uint64 `json:"rule_based_direct"`
	EscalatedSuccess  uint64 `json:"escalated_success"`
	EscalatedFailure  uint64 `json:"escalated_failure"`
	EscalationSkipped uint64 `json:"escalation_skipped"`
}

// EscalationRate is the share of calls that invoked a model tier.
func (s Stats) EscalationRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.EscalatedSuccess+s.EscalatedFailure) / float64(s.TotalRequests)
}

func (s Stats) String() string {
	return fmt.Sprintf("total=%d rule_direct=%d escalated_ok=%d escalated_fail=%d skipped=%d",
		s.TotalRequests, s.RuleBasedDirect, s.EscalatedSuccess, s.EscalatedFailure, s.EscalationSkipped)
}

// outcome is the path a single call took. Exactly one is recorded per call.
type outcome int

const (
	outcomeRuleDirect outcome = iota
	outcomeEscalatedSuccess
	outcomeEscalatedFailure
	outcomeSkipped
)

func (o outcome) String() string {
	switch o {
	case outcomeRuleDirect:
		return "rule_direct"
	case outcomeEscalatedSuccess:
		return "escalated_success"
	case outcomeEscalatedFailure:
		return "escalated_failure"
	default:
		return "escalation_skipped"
	}
}

type counters struct {
	total      atomic.Uint64
	ruleDirect atomic.Uint64
	escalOK    atomic.Uint64
	escalFail  atomic.Uint64
	skipped    atomic.Uint64
}

func (c *counters) record(o outcome) {
	c.total.Add(1)
	switch o {
	case outcomeRuleDirect:
		c.ruleDirect.Add(1)
	case outcomeEscalatedSuccess:
		c.escalOK.Add(1)
	case outcomeEscalatedFailure:
		c.escalFail.Add(1)
	case outcomeSkipped:
		c.skipped.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		TotalRequests:     c.total.Load(),
		RuleBasedDirect:   c.ruleDirect.Load(),
		EscalatedSuccess:  c.escalOK.Load(),
		EscalatedFailure:  c.escalFail.Load(),
		EscalationSkipped: c.skipped.Load(),
	}
}
