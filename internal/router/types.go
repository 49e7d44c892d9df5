// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"strings"
)

// ============================================================================
// TIER TYPE
// ============================================================================

// Tier is one position in the fallback chain, ordered from cheapest to
// heaviest: Rule < Secondary < Primary.
type Tier int

const (
	// TierRule is the deterministic rule-based classifier.
	TierRule Tier = iota
	// TierSecondary is the lightweight model served by the platform daemon.
	TierSecondary
	// TierPrimary is the general on-device model.
	TierPrimary
)

// String returns the human-readable name of the tier.
func (t Tier) String() string {
	switch t {
	case TierRule:
		return "rule"
	case TierSecondary:
		return "secondary"
	case TierPrimary:
		return "primary"
	default:
		return fmt.Sprintf("Tier(%d)", t)
	}
}

// IsModel reports whether the tier runs a model.
func (t Tier) IsModel() bool {
	return t == TierSecondary || t == TierPrimary
}

// Escalate returns the next tier up, or nil at the top of the chain.
func (t Tier) Escalate() *Tier {
	var next Tier
	switch t {
	case TierRule:
		next = TierSecondary
	case TierSecondary:
		next = TierPrimary
	default:
		return nil
	}
	return &next
}

// ============================================================================
// ROUTING MODE
// ============================================================================

// Mode selects which tiers participate in a call and in what order.
type Mode int32

const (
	// ModeRuleBasedOnly never invokes a model tier.
	ModeRuleBasedOnly Mode = iota
	// ModeModelOnly asks the primary tier and falls back to rules on failure.
	ModeModelOnly
	// ModeHybrid asks rules first and escalates to the primary tier.
	ModeHybrid
	// ModeHybridSecondary asks rules, then the secondary tier, then the primary.
	ModeHybridSecondary
)

var modeNames = [...]string{
	ModeRuleBasedOnly:   "rule_based_only",
	ModeModelOnly:       "model_only",
	ModeHybrid:          "hybrid",
	ModeHybridSecondary: "hybrid_secondary",
}

// String returns the config name of the mode.
func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int32(m))
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m >= 0 && int(m) < len(modeNames) }

// ParseMode accepts the config names plus a few spellings seen in the wild.
func ParseMode(s string) (Mode, error) {
	key := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "rule_based_only", "rules", "rule_based", "rules_only":
		return ModeRuleBasedOnly, nil
	case "model_only", "model":
		return ModeModelOnly, nil
	case "hybrid", "":
		return ModeHybrid, nil
	case "hybrid_secondary", "hybrid_with_secondary":
		return ModeHybridSecondary, nil
	}
	return ModeHybrid, fmt.Errorf("unknown routing mode %q", s)
}

// escalation returns the model tiers a hybrid mode tries, lightest first.
func (m Mode) escalation() []Tier {
	var chain []Tier
	first := TierRule
	for t := &first; t != nil; t = t.Escalate() {
		if !t.IsModel() || (*t == TierSecondary && m != ModeHybridSecondary) {
			continue
		}
		chain = append(chain, *t)
	}
	return chain
}
