// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package rules

import (
	"regexp"
	"strings"
)

// ============================================================================
// SIGNAL LEXICON
// ============================================================================

// signal is one lexical cue with the score it contributes when matched.
type signal struct {
	name   string
	weight float64
	re     *regexp.Regexp
}

// category groups importance cues so explanations can name the area.
type category struct {
	name    string
	signals []signal
}

// phrase compiles a word-boundary matcher that tolerates any run of
// whitespace between words.
func phrase(name string, weight float64) signal {
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return signal{
		name:   name,
		weight: weight,
		re:     regexp.MustCompile(`\b` + strings.Join(words, `\s+`) + `\b`),
	}
}

// pattern compiles a raw expression for cues a phrase cannot express.
func pattern(name string, weight float64, expr string) signal {
	return signal{name: name, weight: weight, re: regexp.MustCompile(expr)}
}

// Urgency cues. Scores above 0.5 mean "urgent" on their own.
var urgencySignals = []signal{
	phrase("emergency", 0.95),
	phrase("urgent", 0.85),
	phrase("urgently", 0.85),
	phrase("asap", 0.85),
	phrase("immediately", 0.85),
	phrase("overdue", 0.85),
	phrase("critical", 0.85),
	phrase("due today", 0.85),
	phrase("server down", 0.9),
	phrase("is down", 0.85),
	phrase("outage", 0.85),
	phrase("client waiting", 0.8),
	phrase("right now", 0.8),
	phrase("now", 0.75),
	phrase("deadline", 0.7),
	phrase("today", 0.7),
	phrase("tonight", 0.7),
	phrase("by tomorrow", 0.7),
	phrase("tomorrow", 0.6),
	phrase("this morning", 0.7),
	phrase("this afternoon", 0.7),
	phrase("end of day", 0.7),
	phrase("eod", 0.7),
	phrase("this week", 0.55),
	pattern("exclamation", 0.6, `!`),
}

// Low-urgency cues pull the urgency score toward lowUrgencyScore.
var lowUrgencySignals = []signal{
	phrase("someday", 0),
	phrase("some day", 0),
	phrase("eventually", 0),
	phrase("no rush", 0),
	phrase("whenever", 0),
	phrase("optional", 0),
	phrase("at some point", 0),
	phrase("one day", 0),
	phrase("maybe", 0),
	phrase("when i have time", 0),
	phrase("low priority", 0),
}

// relativeTime matches "in 2 hours", "in 30 min", "in 3 days".
var relativeTime = regexp.MustCompile(`\bin\s+(\d+|an?|one|two|three)\s*(minutes?|mins?|hours?|hrs?|days?|weeks?)\b`)

// Importance cue categories. Positive areas raise the score.
var importanceCategories = []category{
	{name: "operations", signals: []signal{
		phrase("production", 0.9),
		phrase("server down", 0.9),
		phrase("outage", 0.9),
		phrase("incident", 0.85),
		phrase("security", 0.85),
		phrase("data loss", 0.9),
		phrase("database", 0.75),
		phrase("server", 0.7),
		phrase("deploy", 0.7),
		phrase("bug", 0.65),
	}},
	{name: "emergency", signals: []signal{
		phrase("emergency", 0.85),
		phrase("critical", 0.8),
	}},
	{name: "client", signals: []signal{
		phrase("client", 0.75),
		phrase("customer", 0.75),
		phrase("boss", 0.7),
		phrase("manager", 0.65),
		phrase("stakeholder", 0.7),
		phrase("presentation", 0.7),
		phrase("proposal", 0.7),
		phrase("contract", 0.75),
	}},
	{name: "career", signals: []signal{
		phrase("career", 0.8),
		phrase("promotion", 0.8),
		phrase("interview", 0.8),
		phrase("performance review", 0.8),
		phrase("resume", 0.7),
		phrase("certification", 0.7),
		phrase("learn", 0.65),
		phrase("study", 0.65),
		phrase("skill", 0.6),
	}},
	{name: "financial", signals: []signal{
		phrase("taxes", 0.85),
		phrase("tax", 0.8),
		phrase("invoice", 0.75),
		phrase("payroll", 0.85),
		phrase("payment", 0.75),
		phrase("budget", 0.7),
		phrase("bill", 0.7),
		phrase("bills", 0.7),
		phrase("rent", 0.75),
		phrase("mortgage", 0.8),
		phrase("revenue", 0.75),
	}},
	{name: "health", signals: []signal{
		phrase("health", 0.8),
		phrase("doctor", 0.8),
		phrase("medical", 0.8),
		phrase("medication", 0.85),
		phrase("hospital", 0.9),
		phrase("dentist", 0.7),
		phrase("therapy", 0.75),
		phrase("exercise", 0.65),
		phrase("workout", 0.6),
	}},
	{name: "planning", signals: []signal{
		phrase("strategy", 0.75),
		phrase("goal", 0.7),
		phrase("goals", 0.7),
		phrase("quarterly", 0.7),
		phrase("roadmap", 0.7),
		phrase("plan", 0.6),
		phrase("relationship", 0.7),
		phrase("family", 0.7),
	}},
}

// Recreational cues drop importance to recreationalScore.
var recreationalSignals = []signal{
	phrase("social media", 0),
	phrase("youtube", 0),
	phrase("netflix", 0),
	phrase("tiktok", 0),
	phrase("instagram", 0),
	phrase("facebook", 0),
	phrase("reddit", 0),
	phrase("twitter", 0),
	phrase("browse", 0),
	phrase("browsing", 0),
	phrase("scroll", 0),
	phrase("scrolling", 0),
	phrase("video games", 0),
	phrase("gaming", 0),
	phrase("tv show", 0),
	phrase("gossip", 0),
}

// Administrative cues drop importance to administrativeScore.
var administrativeSignals = []signal{
	phrase("organize", 0),
	phrase("filing", 0),
	phrase("paperwork", 0),
	phrase("routine", 0),
	phrase("order supplies", 0),
	phrase("survey", 0),
	phrase("schedule meeting", 0),
	phrase("errand", 0),
	phrase("errands", 0),
	phrase("tidy", 0),
	phrase("clean up", 0),
	phrase("inbox", 0),
	phrase("expense report", 0),
	phrase("timesheet", 0),
}

// matchAll returns every signal that matches text.
func matchAll(text string, sigs []signal) []signal {
	var out []signal
	for _, s := range sigs {
		if s.re.MatchString(text) {
			out = append(out, s)
		}
	}
	return out
}

// names lists signal names.
func names(sigs []signal) []string {
	out := make([]string, len(sigs))
	for i, s := range sigs {
		out[i] = s.name
	}
	return out
}
