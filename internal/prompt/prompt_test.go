// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/jeeves/internal/ai"
	"github.com/jeranaias/jeeves/internal/detect"
)

func TestLookupByModelID(t *testing.T) {
	assert.Equal(t, detect.FamilyPhi3, Lookup("/models/Phi-3-mini-4k-instruct-q4.gguf").Family)
	assert.Equal(t, detect.FamilyChatML, Lookup("qwen2.5:0.5b").Family)
	assert.Equal(t, detect.FamilyPlain, Lookup("unknown.bin").Family)
	assert.Equal(t, detect.FamilyPlain, ForFamily("nonsense").Family)
}

func TestRenderDelimitersPerFamily(t *testing.T) {
	req := ai.NewRequest(ai.OpClassifyPriority, "Fix the prod outage")
	tests := map[detect.Family][]string{
		detect.FamilyPhi3:    {"<|system|>", "<|user|>", "<|assistant|>"},
		detect.FamilyChatML:  {"<|im_start|>system", "<|im_start|>assistant"},
		detect.FamilyLlama3:  {"<|start_header_id|>system", "<|start_header_id|>assistant"},
		detect.FamilyGemma:   {"<start_of_turn>user", "<start_of_turn>model"},
		detect.FamilyMistral: {"[INST]", "[/INST]"},
		detect.FamilyPlain:   {"Response:"},
	}
	for fam, markers := range tests {
		t.Run(string(fam), func(t *testing.T) {
			out := Render(ForFamily(fam), req)
			for _, m := range markers {
				assert.Contains(t, out, m)
			}
			assert.Contains(t, out, "Eisenhower")
		})
	}
}

func TestRenderClassificationCarriesTaskLine(t *testing.T) {
	deadline := time.Date(2025, 3, 6, 17, 0, 0, 0, time.UTC)
	req := ai.NewRequest(ai.OpClassifyPriority, "  Send the quarterly report  ").WithContext(&ai.RequestContext{
		Timestamp: time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC),
		Deadline:  &deadline,
		GoalText:  "Get promoted",
	})
	out := Render(Lookup("phi-3-mini.gguf"), req)
	assert.Contains(t, out, "Task: Send the quarterly report\n")
	assert.Contains(t, out, "Deadline: 2025-03-06T17:00:00Z")
	assert.Contains(t, out, "Related goal: Get promoted")
	assert.Contains(t, out, "quadrant")
}

func TestRenderTruncatesInput(t *testing.T) {
	req := ai.NewRequest(ai.OpSummarize, strings.Repeat("é", MaxInputRunes*2))
	out := Render(ForFamily(detect.FamilyPlain), req)
	assert.Less(t, len([]rune(out)), MaxInputRunes+1000)
}

func TestRenderBriefingListsTasks(t *testing.T) {
	req := ai.NewRequest(ai.OpGenerateBriefing, "").WithContext(&ai.RequestContext{
		ExistingTasks: []string{"Pay rent", "Call mom"},
	})
	out := Render(ForFamily(detect.FamilyChatML), req)
	assert.Contains(t, out, "- Pay rent\n- Call mom\n")
}

// =============================================================================
// PARSE
// =============================================================================

func TestParseClassification(t *testing.T) {
	raw := "Sure! Here is the answer:\n```json\n" +
		`{"quadrant": "DO", "confidence": "92%", "reasoning": "Production is down"}` + "\n```"
	res, err := Parse(ai.OpClassifyPriority, raw)
	require.NoError(t, err)

	pc, ok := res.(*ai.PriorityClassification)
	require.True(t, ok)
	assert.Equal(t, ai.QuadrantDoFirst, pc.Quadrant)
	assert.InDelta(t, 0.92, pc.Confidence, 1e-9)
	assert.Equal(t, "Production is down", pc.Explanation)
	assert.True(t, pc.IsUrgent)
	assert.True(t, pc.IsImportant)
}

func TestParseClampsConfidence(t *testing.T) {
	res, err := Parse(ai.OpClassifyPriority, `{"quadrant": "Q2", "confidence": 7.5}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.GetConfidence())

	res, err = Parse(ai.OpClassifyPriority, `{"quadrant": "Q4", "confidence": -2}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.GetConfidence())

	res, err = Parse(ai.OpClassifyPriority, `{"quadrant": "schedule"}`)
	require.NoError(t, err)
	assert.Equal(t, DefaultModelConfidence, res.GetConfidence())
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name string
		op   ai.Operation
		raw  string
	}{
		{"no json", ai.OpClassifyPriority, "I think this is urgent."},
		{"bad json", ai.OpClassifyPriority, `{"quadrant": DO_FIRST}`},
		{"unknown quadrant", ai.OpClassifyPriority, `{"quadrant": "SOMEDAY"}`},
		{"reversed braces", ai.OpSummarize, "} oops {"},
		{"missing title", ai.OpParseTask, `{"due_date": "2025-03-07"}`},
		{"missing goal title", ai.OpSuggestGoal, `{"specific": "x"}`},
		{"empty briefing", ai.OpGenerateBriefing, `{"greeting": "Hi"}`},
		{"missing items", ai.OpExtractActionItems, `{"confidence": 0.9}`},
		{"missing summary", ai.OpSummarize, `{"key_points": ["a"]}`},
		{"empty chat", ai.OpChat, "   \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.op, tt.raw)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ai.ErrParseFailed)
		})
	}
}

func TestParseTask(t *testing.T) {
	raw := `{"title": "Submit report", "due_date": "2025-03-07", "quadrant": "schedule", ` +
		`"tags": ["work"], "estimated_minutes": "45", "confidence": 0.85}`
	res, err := Parse(ai.OpParseTask, raw)
	require.NoError(t, err)
	pt := res.(*ai.ParsedTask)
	assert.Equal(t, "Submit report", pt.Title)
	require.NotNil(t, pt.DueDate)
	assert.Equal(t, time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), *pt.DueDate)
	assert.Equal(t, ai.QuadrantSchedule, pt.Quadrant)
	assert.Equal(t, 45, pt.EstimatedMinutes)
	assert.Equal(t, []string{"work"}, pt.Tags)
}

func TestParseActionItemsAcceptsAlias(t *testing.T) {
	res, err := Parse(ai.OpExtractActionItems,
		`{"action_items": [{"text": "Send deck", "owner": "sam"}, {"text": " "}]}`)
	require.NoError(t, err)
	items := res.(*ai.ActionItems)
	require.Len(t, items.Items, 1)
	assert.Equal(t, "sam", items.Items[0].Owner)
}

func TestParseOtherOperations(t *testing.T) {
	res, err := Parse(ai.OpSuggestGoal, `{"title": "Run a 10k", "target_date": "2025-06-01T00:00:00Z", "confidence": 0.7}`)
	require.NoError(t, err)
	assert.NotNil(t, res.(*ai.GoalSuggestion).TargetDate)

	res, err = Parse(ai.OpGenerateBriefing, `{"greeting": "Morning", "focus_items": ["Pay rent"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pay rent"}, res.(*ai.Briefing).FocusItems)

	res, err = Parse(ai.OpSummarize, `{"summary": " Billing moved. "}`)
	require.NoError(t, err)
	assert.Equal(t, "Billing moved.", res.(*ai.Summary).Text)

	res, err = Parse(ai.OpChat, "  Hello there.  ")
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", res.(*ai.ChatReply).Text)
}

func TestExtractJSON(t *testing.T) {
	body, ok := ExtractJSON(`noise {"a": {"b": 1}} trailing`)
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, body)

	_, ok = ExtractJSON("no braces")
	assert.False(t, ok)
}
