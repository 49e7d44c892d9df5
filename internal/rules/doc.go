// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package rules provides the deterministic rule-based inference tier.
//
// It answers every operation with keyword heuristics and never blocks, so it
// is always available and always tried first by the router. Priority
// classification scores urgency and importance from word-boundary matched
// cues on NFKC-normalized, lower-cased input and maps the pair onto an
// Eisenhower quadrant.
//
// # Key Types
//
//   - Provider: ai.Provider implementation, always available
//   - Classify: urgency/importance scoring and quadrant mapping
//   - ParseTask, SuggestGoal, Briefing, ExtractActionItems, Summarize, Chat:
//     lower-confidence heuristics for the remaining operations
//
// # Scoring
//
// Without cues urgency is 0.35 and importance 0.45. A matched cue sets the
// score to its weight, each extra cue adds 0.05. Low-urgency words and
// recreational or administrative vocabulary pull scores down. A score of
// 0.5 or more sets the flag. Confidence is 0.4 + 0.55 times the mean
// distance of both scores from 0.5 (scaled to [0,1]).
//
// # Usage
//
//	pc := rules.Classify("Production server down NOW!", nil)
//	fmt.Println(pc.Quadrant) // DO_FIRST
package rules
