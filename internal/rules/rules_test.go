// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/jeeves/internal/ai"
)

// Wednesday morning.
var testNow = time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)

func ctxAt(now time.Time) *ai.RequestContext {
	return &ai.RequestContext{Timestamp: now}
}

// ============================================================================
// CLASSIFICATION
// ============================================================================

func TestClassifyQuadrants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ai.Quadrant
	}{
		{"outage", "URGENT EMERGENCY: Production server down NOW!", ai.QuadrantDoFirst},
		{"planning", "Plan quarterly strategy", ai.QuadrantSchedule},
		{"admin today", "Order supplies today", ai.QuadrantDelegate},
		{"recreation", "Scroll social media someday", ai.QuadrantEliminate},
		{"vague", "Think about some stuff", ai.QuadrantEliminate},
		{"client deadline", "Client waiting on invoice, due today", ai.QuadrantDoFirst},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := Classify(tt.input, ctxAt(testNow))
			assert.Equal(t, tt.want, pc.Quadrant, pc.Explanation)
			assert.Equal(t, ai.QuadrantFor(pc.IsUrgent, pc.IsImportant), pc.Quadrant)
		})
	}
}

func TestClassifyEmergencyIsConfident(t *testing.T) {
	pc := Classify("URGENT EMERGENCY: Production server down NOW!", nil)
	assert.Equal(t, ai.QuadrantDoFirst, pc.Quadrant)
	assert.GreaterOrEqual(t, pc.Confidence, 0.7)
	assert.Contains(t, pc.Explanation, "emergency")
	assert.Contains(t, pc.Explanation, "production")
}

func TestClassifyVagueIsNotConfident(t *testing.T) {
	pc := Classify("Think about some stuff", nil)
	assert.Less(t, pc.Confidence, 0.7)
	assert.InDelta(t, urgencyBaseline, pc.UrgencyScore, 1e-9)
	assert.InDelta(t, importanceBaseline, pc.ImportanceScore, 1e-9)
	assert.Empty(t, pc.Signals)
}

func TestClassifyDeterministic(t *testing.T) {
	rc := ctxAt(testNow)
	first := Classify("Call the client about the overdue contract", rc)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Classify("Call the client about the overdue contract", rc))
	}
}

func TestClassifyWordBoundaries(t *testing.T) {
	// "now" must not match inside "acknowledge", "urgent" not inside "insurgent".
	pc := Classify("Acknowledge the insurgent newsletter", nil)
	assert.InDelta(t, urgencyBaseline, pc.UrgencyScore, 1e-9)
	assert.False(t, pc.IsUrgent)
}

func TestClassifyNormalizesUnicode(t *testing.T) {
	ascii := Classify("URGENT client call", nil)
	wide := Classify("ＵＲＧＥＮＴ client call", nil)
	assert.Equal(t, ascii.Quadrant, wide.Quadrant)
	assert.Equal(t, ascii.Confidence, wide.Confidence)
	assert.Equal(t, ai.QuadrantDoFirst, wide.Quadrant)
}

func TestClassifyDeadlineProximity(t *testing.T) {
	soon := testNow.Add(3 * time.Hour)
	pc := Classify("Finish the report", &ai.RequestContext{Timestamp: testNow, Deadline: &soon})
	assert.True(t, pc.IsUrgent)
	assert.Contains(t, pc.Signals, "urgency:deadline within 24h")

	far := testNow.Add(30 * 24 * time.Hour)
	pc = Classify("Finish the report", &ai.RequestContext{Timestamp: testNow, Deadline: &far})
	assert.False(t, pc.IsUrgent)
}

func TestClassifyRelativeTime(t *testing.T) {
	pc := Classify("Call mom in 2 hours", nil)
	assert.True(t, pc.IsUrgent)

	pc = Classify("Call mom in 3 weeks", nil)
	assert.False(t, pc.IsUrgent)
}

func TestClassifyRelativeTimeBeyondHorizon(t *testing.T) {
	plain := Classify("Review budget", nil)
	for _, input := range []string{
		"Review budget in 2562048 hours",
		"Review budget in 9999999 weeks",
		"Review budget in 600 days",
	} {
		pc := Classify(input, nil)
		assert.False(t, pc.IsUrgent, input)
		assert.Equal(t, plain.UrgencyScore, pc.UrgencyScore, input)
		assert.NotContains(t, pc.Signals, "urgency:deadline passed", input)
	}
	assert.Zero(t, relativeWeight("2562048", "hours"))
	assert.Equal(t, 0.9, relativeWeight("2", "hours"))
}

func TestClassifyDeadlineNeedsTimestamp(t *testing.T) {
	past := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2999, 1, 1, 0, 0, 0, 0, time.UTC)

	plain := Classify("Finish the report", &ai.RequestContext{})
	for _, d := range []time.Time{past, future} {
		pc := Classify("Finish the report", &ai.RequestContext{Deadline: &d})
		assert.Equal(t, plain.UrgencyScore, pc.UrgencyScore)
		assert.Equal(t, plain.Signals, pc.Signals)
	}
}

func TestClassifyLowUrgencyPullsDown(t *testing.T) {
	plain := Classify("Renew passport", nil)
	someday := Classify("Renew passport someday", nil)
	assert.Less(t, someday.UrgencyScore, plain.UrgencyScore)
}

func TestClassifyGoalAlignment(t *testing.T) {
	rc := &ai.RequestContext{Timestamp: testNow, GoalText: "Run a marathon this year"}
	pc := Classify("Buy marathon shoes", rc)
	assert.True(t, pc.IsImportant)
	assert.Contains(t, pc.Signals, "importance:goal-aligned")
}

func TestClassifyConfidenceRange(t *testing.T) {
	inputs := []string{
		"", "!!!!!!", "urgent urgent urgent emergency asap now today tonight",
		"youtube netflix tiktok someday maybe whenever",
		"health doctor hospital taxes payroll production security client",
		"Think about some stuff",
	}
	for _, in := range inputs {
		pc := Classify(in, nil)
		assert.GreaterOrEqual(t, pc.Confidence, confidenceFloor, in)
		assert.LessOrEqual(t, pc.Confidence, confidenceFloor+confidenceSpan+1e-9, in)
		assert.True(t, pc.UrgencyScore >= 0 && pc.UrgencyScore <= 1, in)
		assert.True(t, pc.ImportanceScore >= 0 && pc.ImportanceScore <= 1, in)
	}
}

// ============================================================================
// OTHER OPERATIONS
// ============================================================================

func TestParseTask(t *testing.T) {
	pt := ParseTask("Submit report by friday #work 30 min", ctxAt(testNow))
	assert.Equal(t, "Submit report", pt.Title)
	require.NotNil(t, pt.DueDate)
	assert.Equal(t, time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), *pt.DueDate)
	assert.Equal(t, []string{"work"}, pt.Tags)
	assert.Equal(t, 30, pt.EstimatedMinutes)
	assert.InDelta(t, 0.8, pt.Confidence, 1e-9)
}

func TestParseTaskDates(t *testing.T) {
	tests := []struct {
		input string
		title string
		due   time.Time
	}{
		{"Call dentist tomorrow", "Call dentist", time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC)},
		{"Pay rent in 3 days", "Pay rent", time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)},
		{"Review budget on wednesday", "Review budget", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			pt := ParseTask(tt.input, ctxAt(testNow))
			assert.Equal(t, tt.title, pt.Title)
			require.NotNil(t, pt.DueDate)
			assert.Equal(t, tt.due, *pt.DueDate)
			assert.InDelta(t, 0.6, pt.Confidence, 1e-9)
		})
	}
}

func TestParseTaskStartTimeIsNotDuration(t *testing.T) {
	pt := ParseTask("Call mom in 2 hours", ctxAt(testNow))
	assert.Zero(t, pt.EstimatedMinutes)
}

func TestSuggestGoal(t *testing.T) {
	g := SuggestGoal("get healthier with exercise", ctxAt(testNow))
	assert.Equal(t, "Get healthier with exercise", g.Title)
	assert.Equal(t, measurableHints["health"], g.Measurable)
	require.NotNil(t, g.TargetDate)
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), *g.TargetDate)
	assert.Len(t, g.Milestones, 3)
	assert.Equal(t, goalConfidence, g.Confidence)
}

func TestBriefing(t *testing.T) {
	rc := &ai.RequestContext{
		Timestamp: testNow,
		ExistingTasks: []string{
			"Scroll social media",
			"Plan quarterly strategy",
			"Production server down, fix now",
		},
	}
	b := Briefing("", rc)
	assert.Equal(t, "Good morning.", b.Greeting)
	assert.Equal(t, []string{"Production server down, fix now", "Plan quarterly strategy"}, b.FocusItems)
	assert.Contains(t, b.Summary, "3 tasks")
	assert.Equal(t, briefingConfidence, b.Confidence)
}

func TestBriefingGreetingByHour(t *testing.T) {
	assert.Equal(t, "Good afternoon", greeting(time.Date(2025, 1, 1, 14, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Good evening", greeting(time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)))
}

func TestExtractActionItems(t *testing.T) {
	notes := "We discussed the roadmap. @sam will send the deck by friday. Budget looks fine. Please review the contract."
	got := ExtractActionItems(notes, ctxAt(testNow))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "sam", got.Items[0].Owner)
	assert.Equal(t, "by friday", got.Items[0].DueHint)
	assert.Equal(t, "Please review the contract", got.Items[1].Text)
	assert.Equal(t, actionConfidence, got.Confidence)
}

func TestSummarize(t *testing.T) {
	text := "The migration moved the billing database. The billing database now runs on new hosts. " +
		"Lunch was pizza. Billing latency dropped after the migration. Someone left a jacket. The weather was nice."
	s := Summarize(text)
	assert.Len(t, s.KeyPoints, 2)
	assert.NotContains(t, s.Text, "pizza")
	assert.Equal(t, summaryConfidence, s.Confidence)
}

// ============================================================================
// PROVIDER
// ============================================================================

func TestProviderCompletesEveryOperation(t *testing.T) {
	p := New()
	require.NoError(t, p.Initialize(context.Background()))
	assert.True(t, p.Availability().Get())

	for _, op := range ai.AllOperations() {
		t.Run(op.String(), func(t *testing.T) {
			assert.True(t, p.Capabilities().Has(op))
			req := ai.NewRequest(op, "Send the invoice to the client today")
			resp := p.Complete(context.Background(), req)
			require.True(t, resp.Success, "%v", resp.Error)
			assert.Equal(t, op, resp.Result.Operation())
			assert.True(t, resp.Metadata.FromRuleBased)
			assert.Equal(t, ProviderID, resp.Metadata.ProviderID)
			assert.Equal(t, req.ID, resp.RequestID)
			c := resp.Confidence()
			assert.True(t, c >= 0 && c <= 1)
		})
	}
	assert.NoError(t, p.Release())
	assert.True(t, p.Availability().Get())
}

func TestProviderRejectsInvalidRequest(t *testing.T) {
	resp := New().Complete(context.Background(), ai.NewRequest(ai.OpClassifyPriority, "  "))
	assert.False(t, resp.Success)
	assert.Equal(t, ai.CodeInvalidRequest, resp.ErrorCode)
}
