// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/jeeves/internal/ai"
)

// ErrEmptyDataset is returned when a dataset file holds no usable samples.
var ErrEmptyDataset = errors.New("benchmark: dataset has no samples")

// =============================================================================
// SAMPLE DEFINITIONS
// =============================================================================

// Sample is one labeled classification input.
type Sample struct {
	Name     string      `json:"name"`
	Input    string      `json:"input"`
	Expected ai.Quadrant `json:"expected"`
	Tags     []string    `json:"tags,omitempty"`
}

// Request builds the classify_priority request for the sample.
func (s Sample) Request(opts ai.Options) *ai.Request {
	req := ai.NewRequest(ai.OpClassifyPriority, s.Input)
	req.Options = opts
	return req
}

// =============================================================================
// STANDARD SAMPLE SET
// =============================================================================

// StandardSamples returns the built-in Eisenhower sample set. It covers all
// four quadrants plus a few inputs with weak or no signals.
func StandardSamples() []Sample {
	return []Sample{
		// Urgent and important
		{Name: "prod-outage", Input: "URGENT EMERGENCY: Production server down NOW!", Expected: ai.QuadrantDoFirst, Tags: []string{"strong"}},
		{Name: "client-deadline", Input: "Client contract deadline today, legal needs the signed copy ASAP", Expected: ai.QuadrantDoFirst},
		{Name: "security-breach", Input: "Critical security breach on the payments API, fix immediately", Expected: ai.QuadrantDoFirst, Tags: []string{"strong"}},
		{Name: "tax-filing", Input: "Tax filing is due tomorrow and the accountant is waiting", Expected: ai.QuadrantDoFirst},

		// Important, not urgent
		{Name: "strategy", Input: "Plan next quarter's product strategy and long-term goals", Expected: ai.QuadrantSchedule},
		{Name: "learning", Input: "Learn Go concurrency patterns for career growth", Expected: ai.QuadrantSchedule},
		{Name: "health", Input: "Schedule annual health checkup and start an exercise routine", Expected: ai.QuadrantSchedule},
		{Name: "mentoring", Input: "Prepare mentoring session notes for the new team lead", Expected: ai.QuadrantSchedule},

		// Urgent, not important
		{Name: "meeting-invite", Input: "Reply to meeting invite for the office party, RSVP today", Expected: ai.QuadrantDelegate},
		{Name: "phone-call", Input: "Return vendor phone call about the coffee machine quickly", Expected: ai.QuadrantDelegate},
		{Name: "routine-email", Input: "Answer routine emails from the newsletter list right now", Expected: ai.QuadrantDelegate},

		// Neither
		{Name: "social-media", Input: "Scroll social media and watch random videos", Expected: ai.QuadrantEliminate},
		{Name: "vague", Input: "Think about some stuff", Expected: ai.QuadrantEliminate, Tags: []string{"weak"}},
		{Name: "desk", Input: "Reorganize desk drawer someday maybe", Expected: ai.QuadrantEliminate, Tags: []string{"weak"}},
	}
}

// =============================================================================
// DATASET LOADING
// =============================================================================

// LoadDataset reads samples from a JSON file holding either an array of
// samples or an object with a "samples" array. Quadrant labels accept the
// same aliases as model output ("Q1", "do first").
func LoadDataset(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return ParseDataset(data)
}

// ParseDataset decodes dataset JSON. Samples without input are skipped.
func ParseDataset(data []byte) ([]Sample, error) {
	var raw []rawSample
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var wrapper struct {
			Samples []rawSample `json:"samples"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("failed to parse dataset: %w", err)
		}
		raw = wrapper.Samples
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}

	samples := make([]Sample, 0, len(raw))
	for i, r := range raw {
		if strings.TrimSpace(r.Input) == "" {
			continue
		}
		q, ok := ai.ParseQuadrant(r.Expected)
		if !ok {
			return nil, fmt.Errorf("sample %d: unknown quadrant %q", i, r.Expected)
		}
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("sample-%d", i+1)
		}
		samples = append(samples, Sample{Name: name, Input: r.Input, Expected: q, Tags: r.Tags})
	}
	if len(samples) == 0 {
		return nil, ErrEmptyDataset
	}
	return samples, nil
}

type rawSample struct {
	Name     string   `json:"name"`
	Input    string   `json:"input"`
	Expected string   `json:"expected"`
	Tags     []string `json:"tags"`
}
