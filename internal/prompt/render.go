// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/jeeves/internal/ai"
	"github.com/jeranaias/jeeves/internal/util"
)

// MaxInputRunes caps the user text placed in a prompt so it fits a small
// context window.
const MaxInputRunes = 4000

const jsonOnly = "Respond with a single JSON object and nothing else."

// system instructions per operation.
var systemText = map[ai.Operation]string{
	ai.OpClassifyPriority: "You are a productivity assistant that sorts tasks on the Eisenhower matrix. " +
		"Urgent means it needs attention soon; important means it serves long-term goals, health, money, " +
		"work obligations or other people depending on it. " + jsonOnly,
	ai.OpParseTask: "You turn a short task note into structured fields. " + jsonOnly,
	ai.OpSuggestGoal: "You turn vague intentions into SMART goals: specific, measurable, achievable, " +
		"relevant and time-bound. " + jsonOnly,
	ai.OpGenerateBriefing:   "You write a short, friendly daily briefing from a task list. " + jsonOnly,
	ai.OpExtractActionItems: "You extract concrete action items from meeting notes. " + jsonOnly,
	ai.OpSummarize:          "You summarize text faithfully in a few sentences. " + jsonOnly,
	ai.OpChat:               "You are Jeeves, a concise and helpful personal assistant. Answer in plain text.",
}

// schemas are the JSON shapes the model is asked to emit.
var schemas = map[ai.Operation]string{
	ai.OpClassifyPriority: `{"quadrant": "DO_FIRST | SCHEDULE | DELEGATE | ELIMINATE", "is_urgent": true, ` +
		`"is_important": true, "confidence": 0.0-1.0, "explanation": "one sentence"}`,
	ai.OpParseTask: `{"title": "short imperative title", "description": "", "due_date": "YYYY-MM-DD or empty", ` +
		`"quadrant": "DO_FIRST | SCHEDULE | DELEGATE | ELIMINATE", "tags": ["tag"], "estimated_minutes": 30, ` +
		`"confidence": 0.0-1.0}`,
	ai.OpSuggestGoal: `{"title": "", "specific": "", "measurable": "", "achievable": "", "relevant": "", ` +
		`"time_bound": "", "target_date": "YYYY-MM-DD", "milestones": [""], "confidence": 0.0-1.0}`,
	ai.OpGenerateBriefing:   `{"greeting": "", "focus_items": [""], "summary": "", "confidence": 0.0-1.0}`,
	ai.OpExtractActionItems: `{"items": [{"text": "", "owner": "", "due_hint": ""}], "confidence": 0.0-1.0}`,
	ai.OpSummarize:          `{"summary": "", "key_points": [""], "confidence": 0.0-1.0}`,
}

// Render builds the full prompt for a request using the template delimiters.
// Classification prompts carry the task on a "Task:" line.
func Render(t Template, req *ai.Request) string {
	return t.Wrap(systemText[req.Operation], userText(req))
}

func userText(req *ai.Request) string {
	input := util.TruncateRunes(strings.TrimSpace(req.Input), MaxInputRunes)
	rc := req.Context

	var b strings.Builder
	if schema, ok := schemas[req.Operation]; ok {
		fmt.Fprintf(&b, "Output format: %s\n\n", schema)
	}

	switch req.Operation {
	case ai.OpClassifyPriority:
		b.WriteString("Classify this task into an Eisenhower quadrant.\n")
		writeTime(&b, rc)
		if rc != nil && rc.Deadline != nil {
			fmt.Fprintf(&b, "Deadline: %s\n", rc.Deadline.Format(time.RFC3339))
		}
		writeGoal(&b, rc)
		fmt.Fprintf(&b, "Task: %s\n", input)

	case ai.OpParseTask:
		b.WriteString("Extract the task fields. Resolve relative dates against the current time.\n")
		writeTime(&b, rc)
		fmt.Fprintf(&b, "Task note: %s\n", input)

	case ai.OpSuggestGoal:
		b.WriteString("Rewrite this intention as one SMART goal.\n")
		writeTime(&b, rc)
		writeGoal(&b, rc)
		fmt.Fprintf(&b, "Intention: %s\n", input)

	case ai.OpGenerateBriefing:
		writeTime(&b, rc)
		b.WriteString("Tasks:\n")
		if rc != nil && len(rc.ExistingTasks) > 0 {
			for _, task := range rc.ExistingTasks {
				fmt.Fprintf(&b, "- %s\n", util.TruncateRunes(task, 200))
			}
		} else if input != "" {
			fmt.Fprintf(&b, "%s\n", input)
		} else {
			b.WriteString("(none)\n")
		}

	case ai.OpExtractActionItems:
		fmt.Fprintf(&b, "Notes:\n%s\n", input)

	case ai.OpSummarize:
		fmt.Fprintf(&b, "Text:\n%s\n", input)

	case ai.OpChat:
		if rc != nil && rc.TaskText != "" {
			fmt.Fprintf(&b, "Current task: %s\n", rc.TaskText)
		}
		b.WriteString(input)
	}
	return b.String()
}

func writeTime(b *strings.Builder, rc *ai.RequestContext) {
	if rc != nil && !rc.Timestamp.IsZero() {
		fmt.Fprintf(b, "Current time: %s\n", rc.Timestamp.Format("Monday 2006-01-02 15:04"))
	}
}

func writeGoal(b *strings.Builder, rc *ai.RequestContext) {
	if rc != nil && rc.GoalText != "" {
		fmt.Fprintf(b, "Related goal: %s\n", rc.GoalText)
	}
}
