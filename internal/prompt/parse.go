// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/jeeves/internal/ai"
)

// DefaultModelConfidence is used when the model omits a confidence.
const DefaultModelConfidence = 0.8

// =============================================================================
// LENIENT JSON FIELDS
// =============================================================================

// flexFloat accepts 0.9, "0.9" and "90%".
type flexFloat struct {
	v   float64
	set bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	pct := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	if pct {
		v /= 100
	}
	f.v, f.set = v, true
	return nil
}

func (f flexFloat) or(def float64) float64 {
	if !f.set {
		return def
	}
	return ai.ClampConfidence(f.v)
}

// flexInt accepts 30 and "30".
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %s", b)
	}
	*n = flexInt(v)
	return nil
}

// parseDate accepts YYYY-MM-DD and RFC 3339; anything else is dropped.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// =============================================================================
// EXTRACTION
// =============================================================================

// ExtractJSON returns the substring from the first '{' to the last '}'.
func ExtractJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func parseFailed(op ai.Operation, format string, args ...any) error {
	return ai.NewError(ai.CodeParseFailed, fmt.Sprintf("%s: ", op)+fmt.Sprintf(format, args...), nil)
}

// Parse converts raw model output into the typed result for op. Chat replies
// are the trimmed text; every other operation expects a JSON object with its
// required fields present.
func Parse(op ai.Operation, raw string) (ai.Result, error) {
	if op == ai.OpChat {
		text := strings.TrimSpace(raw)
		if text == "" {
			return nil, parseFailed(op, "empty reply")
		}
		return &ai.ChatReply{Text: text, Confidence: DefaultModelConfidence}, nil
	}

	body, ok := ExtractJSON(raw)
	if !ok {
		return nil, parseFailed(op, "no JSON object in output")
	}

	var (
		res ai.Result
		err error
	)
	switch op {
	case ai.OpClassifyPriority:
		res, err = parseClassification([]byte(body))
	case ai.OpParseTask:
		res, err = parseTask([]byte(body))
	case ai.OpSuggestGoal:
		res, err = parseGoal([]byte(body))
	case ai.OpGenerateBriefing:
		res, err = parseBriefing([]byte(body))
	case ai.OpExtractActionItems:
		res, err = parseActionItems([]byte(body))
	case ai.OpSummarize:
		res, err = parseSummary([]byte(body))
	default:
		return nil, ai.Errorf(ai.CodeUnsupportedOperation, "operation %s", op)
	}
	if err != nil {
		if _, typed := err.(*ai.Error); typed {
			return nil, err
		}
		return nil, ai.NewError(ai.CodeParseFailed, op.String()+": invalid JSON", err)
	}
	res.Normalize()
	return res, nil
}

// =============================================================================
// PER-OPERATION DECODERS
// =============================================================================

func parseClassification(b []byte) (ai.Result, error) {
	var w struct {
		Quadrant        string    `json:"quadrant"`
		Confidence      flexFloat `json:"confidence"`
		Explanation     string    `json:"explanation"`
		Reasoning       string    `json:"reasoning"`
		UrgencyScore    flexFloat `json:"urgency_score"`
		ImportanceScore flexFloat `json:"importance_score"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	q, ok := ai.ParseQuadrant(w.Quadrant)
	if !ok {
		return nil, parseFailed(ai.OpClassifyPriority, "unknown quadrant %q", w.Quadrant)
	}

	explanation := w.Explanation
	if explanation == "" {
		explanation = w.Reasoning
	}

	// The quadrant is authoritative; flags are derived from it.
	flagScore := func(on bool) float64 {
		if on {
			return 0.75
		}
		return 0.25
	}
	return &ai.PriorityClassification{
		Quadrant:        q,
		Confidence:      w.Confidence.or(DefaultModelConfidence),
		Explanation:     explanation,
		IsUrgent:        q.Urgent(),
		IsImportant:     q.Important(),
		UrgencyScore:    w.UrgencyScore.or(flagScore(q.Urgent())),
		ImportanceScore: w.ImportanceScore.or(flagScore(q.Important())),
	}, nil
}

func parseTask(b []byte) (ai.Result, error) {
	var w struct {
		Title            string    `json:"title"`
		Description      string    `json:"description"`
		DueDate          string    `json:"due_date"`
		Quadrant         string    `json:"quadrant"`
		Tags             []string  `json:"tags"`
		EstimatedMinutes flexInt   `json:"estimated_minutes"`
		Confidence       flexFloat `json:"confidence"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	if strings.TrimSpace(w.Title) == "" {
		return nil, parseFailed(ai.OpParseTask, "missing title")
	}
	q, _ := ai.ParseQuadrant(w.Quadrant)
	minutes := int(w.EstimatedMinutes)
	if minutes < 0 {
		minutes = 0
	}
	return &ai.ParsedTask{
		Title:            strings.TrimSpace(w.Title),
		Description:      w.Description,
		DueDate:          parseDate(w.DueDate),
		Quadrant:         q,
		Tags:             w.Tags,
		EstimatedMinutes: minutes,
		Confidence:       w.Confidence.or(DefaultModelConfidence),
	}, nil
}

func parseGoal(b []byte) (ai.Result, error) {
	var w struct {
		Title      string    `json:"title"`
		Specific   string    `json:"specific"`
		Measurable string    `json:"measurable"`
		Achievable string    `json:"achievable"`
		Relevant   string    `json:"relevant"`
		TimeBound  string    `json:"time_bound"`
		TargetDate string    `json:"target_date"`
		Milestones []string  `json:"milestones"`
		Confidence flexFloat `json:"confidence"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	if strings.TrimSpace(w.Title) == "" {
		return nil, parseFailed(ai.OpSuggestGoal, "missing title")
	}
	return &ai.GoalSuggestion{
		Title:      strings.TrimSpace(w.Title),
		Specific:   w.Specific,
		Measurable: w.Measurable,
		Achievable: w.Achievable,
		Relevant:   w.Relevant,
		TimeBound:  w.TimeBound,
		TargetDate: parseDate(w.TargetDate),
		Milestones: w.Milestones,
		Confidence: w.Confidence.or(DefaultModelConfidence),
	}, nil
}

func parseBriefing(b []byte) (ai.Result, error) {
	var w struct {
		Greeting   string    `json:"greeting"`
		FocusItems []string  `json:"focus_items"`
		Summary    string    `json:"summary"`
		Confidence flexFloat `json:"confidence"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	if w.Summary == "" && len(w.FocusItems) == 0 {
		return nil, parseFailed(ai.OpGenerateBriefing, "missing summary and focus_items")
	}
	return &ai.Briefing{
		Greeting:   w.Greeting,
		FocusItems: w.FocusItems,
		Summary:    w.Summary,
		Confidence: w.Confidence.or(DefaultModelConfidence),
	}, nil
}

func parseActionItems(b []byte) (ai.Result, error) {
	var w struct {
		Items       *[]ai.ActionItem `json:"items"`
		ActionItems *[]ai.ActionItem `json:"action_items"`
		Confidence  flexFloat        `json:"confidence"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	items := w.Items
	if items == nil {
		items = w.ActionItems
	}
	if items == nil {
		return nil, parseFailed(ai.OpExtractActionItems, "missing items")
	}
	kept := make([]ai.ActionItem, 0, len(*items))
	for _, it := range *items {
		if strings.TrimSpace(it.Text) != "" {
			kept = append(kept, it)
		}
	}
	return &ai.ActionItems{Items: kept, Confidence: w.Confidence.or(DefaultModelConfidence)}, nil
}

func parseSummary(b []byte) (ai.Result, error) {
	var w struct {
		Summary    string    `json:"summary"`
		KeyPoints  []string  `json:"key_points"`
		Confidence flexFloat `json:"confidence"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	if strings.TrimSpace(w.Summary) == "" {
		return nil, parseFailed(ai.OpSummarize, "missing summary")
	}
	return &ai.Summary{
		Text:       strings.TrimSpace(w.Summary),
		KeyPoints:  w.KeyPoints,
		Confidence: w.Confidence.or(DefaultModelConfidence),
	}, nil
}
