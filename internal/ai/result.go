// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ai

import "time"

// Result is the closed set of typed answers. Only types in this package
// implement it, so a Response can never carry an unknown variant.
type Result interface {
	// Operation is the request operation this variant answers.
	Operation() Operation
	// GetConfidence returns the confidence in [0,1].
	GetConfidence() float64
	// Normalize clamps confidence values into range.
	Normalize()

	isResult()
}

// =============================================================================
// PRIORITY CLASSIFICATION
// =============================================================================

// PriorityClassification answers OpClassifyPriority.
type PriorityClassification struct {
	Quadrant        Quadrant `json:"quadrant"`
	Confidence      float64  `json:"confidence"`
	Explanation     string   `json:"explanation"`
	IsUrgent        bool     `json:"is_urgent"`
	IsImportant     bool     `json:"is_important"`
	UrgencyScore    float64  `json:"urgency_score"`
	ImportanceScore float64  `json:"importance_score"`
	Signals         []string `json:"signals,omitempty"`
}

func (*PriorityClassification) Operation() Operation     { return OpClassifyPriority }
func (p *PriorityClassification) GetConfidence() float64 { return p.Confidence }
func (*PriorityClassification) isResult()                {}

func (p *PriorityClassification) Normalize() {
	p.Confidence = ClampConfidence(p.Confidence)
	p.UrgencyScore = ClampConfidence(p.UrgencyScore)
	p.ImportanceScore = ClampConfidence(p.ImportanceScore)
}

// =============================================================================
// PARSED TASK
// =============================================================================

// ParsedTask answers OpParseTask.
type ParsedTask struct {
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	Quadrant         Quadrant   `json:"quadrant,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	EstimatedMinutes int        `json:"estimated_minutes,omitempty"`
	Confidence       float64    `json:"confidence"`
}

func (*ParsedTask) Operation() Operation     { return OpParseTask }
func (p *ParsedTask) GetConfidence() float64 { return p.Confidence }
func (p *ParsedTask) Normalize()             { p.Confidence = ClampConfidence(p.Confidence) }
func (*ParsedTask) isResult()                {}

// =============================================================================
// GOAL SUGGESTION
// =============================================================================

// GoalSuggestion answers OpSuggestGoal with a SMART goal.
type GoalSuggestion struct {
	Title      string     `json:"title"`
	Specific   string     `json:"specific"`
	Measurable string     `json:"measurable"`
	Achievable string     `json:"achievable"`
	Relevant   string     `json:"relevant"`
	TimeBound  string     `json:"time_bound"`
	TargetDate *time.Time `json:"target_date,omitempty"`
	Milestones []string   `json:"milestones,omitempty"`
	Confidence float64    `json:"confidence"`
}

func (*GoalSuggestion) Operation() Operation     { return OpSuggestGoal }
func (g *GoalSuggestion) GetConfidence() float64 { return g.Confidence }
func (g *GoalSuggestion) Normalize()             { g.Confidence = ClampConfidence(g.Confidence) }
func (*GoalSuggestion) isResult()                {}

// =============================================================================
// BRIEFING
// =============================================================================

// Briefing answers OpGenerateBriefing.
type Briefing struct {
	Greeting   string   `json:"greeting"`
	FocusItems []string `json:"focus_items"`
	Summary    string   `json:"summary"`
	Confidence float64  `json:"confidence"`
}

func (*Briefing) Operation() Operation     { return OpGenerateBriefing }
func (b *Briefing) GetConfidence() float64 { return b.Confidence }
func (b *Briefing) Normalize()             { b.Confidence = ClampConfidence(b.Confidence) }
func (*Briefing) isResult()                {}

// =============================================================================
// ACTION ITEMS
// =============================================================================

// ActionItem is one extracted follow-up.
type ActionItem struct {
	Text    string `json:"text"`
	Owner   string `json:"owner,omitempty"`
	DueHint string `json:"due_hint,omitempty"`
}

// ActionItems answers OpExtractActionItems.
type ActionItems struct {
	Items      []ActionItem `json:"items"`
	Confidence float64      `json:"confidence"`
}

func (*ActionItems) Operation() Operation     { return OpExtractActionItems }
func (a *ActionItems) GetConfidence() float64 { return a.Confidence }
func (a *ActionItems) Normalize()             { a.Confidence = ClampConfidence(a.Confidence) }
func (*ActionItems) isResult()                {}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary answers OpSummarize.
type Summary struct {
	Text       string   `json:"summary"`
	KeyPoints  []string `json:"key_points,omitempty"`
	Confidence float64  `json:"confidence"`
}

func (*Summary) Operation() Operation     { return OpSummarize }
func (s *Summary) GetConfidence() float64 { return s.Confidence }
func (s *Summary) Normalize()             { s.Confidence = ClampConfidence(s.Confidence) }
func (*Summary) isResult()                {}

// =============================================================================
// CHAT REPLY
// =============================================================================

// ChatReply answers OpChat.
type ChatReply struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func (*ChatReply) Operation() Operation     { return OpChat }
func (c *ChatReply) GetConfidence() float64 { return c.Confidence }
func (c *ChatReply) Normalize()             { c.Confidence = ClampConfidence(c.Confidence) }
func (*ChatReply) isResult()                {}

// ResultText renders the human-facing text of a result, used when a
// non-streaming answer has to be delivered as a single stream chunk.
func ResultText(r Result) string {
	switch v := r.(type) {
	case *PriorityClassification:
		return string(v.Quadrant) + ": " + v.Explanation
	case *ParsedTask:
		return v.Title
	case *GoalSuggestion:
		return v.Title
	case *Briefing:
		return v.Greeting + " " + v.Summary
	case *ActionItems:
		out := ""
		for i, it := range v.Items {
			if i > 0 {
				out += "\n"
			}
			out += "- " + it.Text
		}
		return out
	case *Summary:
		return v.Text
	case *ChatReply:
		return v.Text
	default:
		return ""
	}
}
