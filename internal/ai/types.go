// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// OPERATION TYPE
// =============================================================================

// Operation is the kind of NLP work a request asks for.
type Operation int

const (
	// OpClassifyPriority sorts a task into an Eisenhower quadrant.
	OpClassifyPriority Operation = iota
	// OpParseTask extracts structured task fields from free text.
	OpParseTask
	// OpSuggestGoal turns a vague intention into a SMART goal.
	OpSuggestGoal
	// OpGenerateBriefing builds a daily briefing from existing tasks.
	OpGenerateBriefing
	// OpExtractActionItems pulls action items out of notes.
	OpExtractActionItems
	// OpSummarize produces a short summary.
	OpSummarize
	// OpChat is free-form conversation.
	OpChat

	numOperations
)

var operationNames = [...]string{
	OpClassifyPriority:   "classify_priority",
	OpParseTask:          "parse_task",
	OpSuggestGoal:        "suggest_goal",
	OpGenerateBriefing:   "generate_briefing",
	OpExtractActionItems: "extract_action_items",
	OpSummarize:          "summarize",
	OpChat:               "chat",
}

// String returns the wire name of the operation.
func (o Operation) String() string {
	if o >= 0 && o < numOperations {
		return operationNames[o]
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// Valid reports whether o is one of the defined operations.
func (o Operation) Valid() bool {
	return o >= 0 && o < numOperations
}

// AllOperations returns every defined operation in declaration order.
func AllOperations() []Operation {
	ops := make([]Operation, 0, numOperations)
	for o := Operation(0); o < numOperations; o++ {
		ops = append(ops, o)
	}
	return ops
}

// ParseOperation converts a wire name back into an Operation.
func ParseOperation(s string) (Operation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for o := Operation(0); o < numOperations; o++ {
		if operationNames[o] == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Operation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operation) UnmarshalText(b []byte) error {
	op, err := ParseOperation(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// =============================================================================
// QUADRANT
// =============================================================================

// Quadrant is an Eisenhower matrix cell.
type Quadrant string

const (
	QuadrantDoFirst   Quadrant = "DO_FIRST"
	QuadrantSchedule  Quadrant = "SCHEDULE"
	QuadrantDelegate  Quadrant = "DELEGATE"
	QuadrantEliminate Quadrant = "ELIMINATE"
)

// QuadrantFor maps the urgent/important flags onto a quadrant.
// The mapping is total over all four combinations.
func QuadrantFor(urgent, important bool) Quadrant {
	switch {
	case urgent && important:
		return QuadrantDoFirst
	case !urgent && important:
		return QuadrantSchedule
	case urgent && !important:
		return QuadrantDelegate
	default:
		return QuadrantEliminate
	}
}

// ParseQuadrant accepts canonical names plus the short aliases models tend
// to emit ("DO", "Q1".."Q4", "do first").
func ParseQuadrant(s string) (Quadrant, bool) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	switch key {
	case "DO_FIRST", "DO", "DO_NOW", "Q1", "URGENT_IMPORTANT":
		return QuadrantDoFirst, true
	case "SCHEDULE", "PLAN", "Q2", "NOT_URGENT_IMPORTANT":
		return QuadrantSchedule, true
	case "DELEGATE", "Q3", "URGENT_NOT_IMPORTANT":
		return QuadrantDelegate, true
	case "ELIMINATE", "DELETE", "DROP", "Q4", "NOT_URGENT_NOT_IMPORTANT":
		return QuadrantEliminate, true
	}
	return "", false
}

// Urgent reports whether the quadrant implies urgency.
func (q Quadrant) Urgent() bool {
	return q == QuadrantDoFirst || q == QuadrantDelegate
}

// Important reports whether the quadrant implies importance.
func (q Quadrant) Important() bool {
	return q == QuadrantDoFirst || q == QuadrantSchedule
}

// =============================================================================
// REQUEST
// =============================================================================

// DefaultMinConfidence is the escalation threshold used when a request does
// not set one.
const DefaultMinConfidence = 0.7

// Options tunes generation and routing for a single request.
type Options struct {
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`

	// MinConfidence is the lowest confidence accepted from the rule tier
	// before escalating. Zero means DefaultMinConfidence.
	MinConfidence float64 `json:"min_confidence"`

	// AllowModelTiers permits escalation to model-backed tiers.
	AllowModelTiers bool `json:"allow_model_tiers"`

	// AllowRuleFallback permits returning the rule-based answer when every
	// model tier failed.
	AllowRuleFallback bool `json:"allow_rule_fallback"`
}

// DefaultOptions returns the options used by NewRequest.
func DefaultOptions() Options {
	return Options{
		MaxTokens:         256,
		Temperature:       0.1,
		TopP:              0.9,
		MinConfidence:     DefaultMinConfidence,
		AllowModelTiers:   true,
		AllowRuleFallback: true,
	}
}

// Threshold returns the effective minimum confidence.
func (o Options) Threshold() float64 {
	if o.MinConfidence <= 0 {
		return DefaultMinConfidence
	}
	return ClampConfidence(o.MinConfidence)
}

// RequestContext carries optional signals that help a tier answer.
type RequestContext struct {
	PriorSignals  []string   `json:"prior_signals,omitempty"`
	GoalText      string     `json:"goal_text,omitempty"`
	TaskText      string     `json:"task_text,omitempty"`
	ExistingTasks []string   `json:"existing_tasks,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
	Deadline      *time.Time `json:"deadline,omitempty"`
}

// Now returns the context timestamp, or the wall clock when unset.
func (c *RequestContext) Now() time.Time {
	if c == nil || c.Timestamp.IsZero() {
		return time.Now()
	}
	return c.Timestamp
}

// Request is a single unit of work for a provider. It is created per call and
// never persisted.
type Request struct {
	ID        string          `json:"id"`
	Operation Operation       `json:"operation"`
	Input     string          `json:"input"`
	Context   *RequestContext `json:"context,omitempty"`
	Options   Options         `json:"options"`
}

// NewRequest creates a request with a fresh id and default options.
func NewRequest(op Operation, input string) *Request {
	return &Request{
		ID:        uuid.New().String(),
		Operation: op,
		Input:     input,
		Options:   DefaultOptions(),
	}
}

// WithContext attaches context and returns the request for chaining.
func (r *Request) WithContext(ctx *RequestContext) *Request {
	r.Context = ctx
	return r
}

// WithMinConfidence overrides the escalation threshold.
func (r *Request) WithMinConfidence(v float64) *Request {
	r.Options.MinConfidence = v
	return r
}

// Validate checks the request is well formed.
func (r *Request) Validate() error {
	if r == nil {
		return NewError(CodeInvalidRequest, "request is nil", nil)
	}
	if !r.Operation.Valid() {
		return NewError(CodeInvalidRequest, fmt.Sprintf("unknown operation %d", int(r.Operation)), nil)
	}
	if strings.TrimSpace(r.Input) == "" && r.Operation != OpGenerateBriefing {
		return NewError(CodeInvalidRequest, "input is empty", nil)
	}
	return nil
}

// ClampConfidence forces v into [0,1]. NaN becomes 0.
func ClampConfidence(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
