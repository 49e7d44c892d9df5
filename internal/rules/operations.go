// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package rules

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/jeeves/internal/ai"
)

// Fixed confidences for the heuristic operations. They sit below the default
// escalation threshold so model tiers answer when they are available.
const (
	parseTaskBase       = 0.5
	parseTaskPerField   = 0.1
	parseTaskMax        = 0.85
	goalConfidence      = 0.4
	briefingConfidence  = 0.6
	actionConfidence    = 0.55
	summaryConfidence   = 0.4
	chatConfidence      = 0.2
	goalHorizon         = 90 * 24 * time.Hour
	maxBriefingFocus    = 5
	maxSummarySentences = 3
)

// ============================================================================
// PARSE TASK
// ============================================================================

var (
	tagPattern      = regexp.MustCompile(`#(\w+)`)
	minutesPattern  = regexp.MustCompile(`(?i)\b(?:for\s+)?(\d+)\s*(?:minutes|minute|mins|min|m)\b`)
	hoursPattern    = regexp.MustCompile(`(?i)\b(?:for\s+)?(\d+(?:\.\d+)?)\s*(?:hours|hour|hrs|hr|h)\b`)
	inTimePattern   = regexp.MustCompile(`(?i)\bin\s+\d+(?:\.\d+)?\s*(?:minutes|minute|mins|min|hours|hour|hrs|hr|h|m)\b`)
	inDaysPattern   = regexp.MustCompile(`(?i)\b(?:due\s+|by\s+)?in\s+(\d+)\s+(days?|weeks?)\b`)
	dayWordPattern  = regexp.MustCompile(`(?i)\b(?:due\s+|by\s+)?(today|tonight|tomorrow)\b`)
	weekdayPattern  = regexp.MustCompile(`(?i)\b(?:due\s+|by\s+|on\s+|next\s+)*(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	ownerPattern    = regexp.MustCompile(`@(\w+)`)
	actionCue       = regexp.MustCompile(`(?i)\b(need to|needs to|have to|has to|must|should|todo|to-do|will|action item|follow up|remember to|please|let's)\b`)
	imperativeVerbs = map[string]bool{
		"send": true, "call": true, "email": true, "review": true, "schedule": true,
		"book": true, "prepare": true, "fix": true, "update": true, "write": true,
		"finish": true, "submit": true, "check": true, "buy": true, "pay": true,
		"ask": true, "draft": true, "plan": true, "set": true, "share": true,
		"confirm": true, "contact": true, "file": true, "order": true, "renew": true,
	}
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// startOfDay truncates t to local midnight.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// dueDate resolves the first date phrase in text relative to now.
func dueDate(text string, now time.Time) (*time.Time, string) {
	day := startOfDay(now)

	if m := dayWordPattern.FindStringSubmatch(text); m != nil {
		d := day
		if strings.EqualFold(m[1], "tomorrow") {
			d = day.AddDate(0, 0, 1)
		}
		return &d, m[0]
	}
	if m := inDaysPattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if strings.HasPrefix(strings.ToLower(m[2]), "week") {
			n *= 7
		}
		d := day.AddDate(0, 0, n)
		return &d, m[0]
	}
	if m := weekdayPattern.FindStringSubmatch(text); m != nil {
		want := weekdays[strings.ToLower(m[1])]
		ahead := (int(want) - int(day.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		d := day.AddDate(0, 0, ahead)
		return &d, m[0]
	}
	return nil, ""
}

// estimateMinutes reads "30 min" or "2h" style durations. "in 2 hours" is a
// start time, not a duration.
func estimateMinutes(text string) (int, []string) {
	text = inTimePattern.ReplaceAllString(text, " ")
	if m := hoursPattern.FindStringSubmatch(text); m != nil {
		h, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return int(math.Round(h * 60)), []string{m[0]}
		}
	}
	if m := minutesPattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n, []string{m[0]}
		}
	}
	return 0, nil
}

// ParseTask extracts structured fields from a one-line task description.
func ParseTask(text string, rc *ai.RequestContext) *ai.ParsedTask {
	now := rc.Now()
	fields := 0
	title := text

	due, duePhrase := dueDate(text, now)
	if due != nil {
		fields++
		title = strings.Replace(title, duePhrase, " ", 1)
	}

	var tags []string
	seen := make(map[string]bool)
	for _, m := range tagPattern.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(m[1])
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	if len(tags) > 0 {
		fields++
		title = tagPattern.ReplaceAllString(title, " ")
	}

	minutes, durPhrases := estimateMinutes(title)
	if minutes > 0 {
		fields++
		for _, p := range durPhrases {
			title = strings.Replace(title, p, " ", 1)
		}
	}

	classifyCtx := &ai.RequestContext{Timestamp: now, Deadline: due}
	if rc != nil {
		classifyCtx.PriorSignals = rc.PriorSignals
		classifyCtx.GoalText = rc.GoalText
		if rc.Deadline != nil {
			classifyCtx.Deadline = rc.Deadline
		}
	}
	pc := Classify(text, classifyCtx)

	title = capitalize(tidy(title))
	if title == "" {
		title = capitalize(tidy(text))
	}

	pt := &ai.ParsedTask{
		Title:            title,
		DueDate:          due,
		Quadrant:         pc.Quadrant,
		Tags:             tags,
		EstimatedMinutes: minutes,
		Confidence:       math.Min(parseTaskMax, parseTaskBase+parseTaskPerField*float64(fields)),
	}
	if title != strings.TrimSpace(text) {
		pt.Description = strings.TrimSpace(text)
	}
	return pt
}

// ============================================================================
// SUGGEST GOAL
// ============================================================================

var measurableHints = map[string]string{
	"health":     "Track sessions per week and one body metric (weight, resting heart rate or distance).",
	"career":     "Count completed courses, certifications or applications each month.",
	"financial":  "Set a target amount and review the balance every two weeks.",
	"client":     "Track deliverables shipped and client feedback scores.",
	"operations": "Measure incidents and mean time to recovery month over month.",
	"planning":   "Define three milestones and check progress weekly.",
}

// SuggestGoal scaffolds a SMART goal from a vague intention.
func SuggestGoal(text string, rc *ai.RequestContext) *ai.GoalSuggestion {
	now := rc.Now()
	t := normalize(text)
	area := "general"
	for _, c := range importanceCategories {
		if len(matchAll(t, c.signals)) > 0 {
			area = c.name
			break
		}
	}

	intent := tidy(strings.TrimSpace(text))
	measurable, ok := measurableHints[area]
	if !ok {
		measurable = "Pick one number that shows progress and record it weekly."
	}
	relevant := fmt.Sprintf("Supports your %s priorities.", area)
	if rc != nil && rc.GoalText != "" {
		relevant = fmt.Sprintf("Builds toward %q.", rc.GoalText)
	}

	target := startOfDay(now.Add(goalHorizon))
	return &ai.GoalSuggestion{
		Title:      capitalize(intent),
		Specific:   fmt.Sprintf("Define exactly what %q looks like when it is done.", intent),
		Measurable: measurable,
		Achievable: "Break it into weekly steps that fit in under two hours each.",
		Relevant:   relevant,
		TimeBound:  "Complete by " + target.Format("2006-01-02") + ".",
		TargetDate: &target,
		Milestones: []string{
			"Day 30: " + startOfDay(now.AddDate(0, 0, 30)).Format("2006-01-02") + " first checkpoint",
			"Day 60: " + startOfDay(now.AddDate(0, 0, 60)).Format("2006-01-02") + " halfway review",
			"Day 90: " + target.Format("2006-01-02") + " goal complete",
		},
		Confidence: goalConfidence,
	}
}

// ============================================================================
// BRIEFING
// ============================================================================

// greeting picks a salutation for the hour of day.
func greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 17:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// Briefing classifies the existing tasks and lists DO_FIRST items before
// SCHEDULE items. Without context tasks the input lines are used.
func Briefing(text string, rc *ai.RequestContext) *ai.Briefing {
	now := rc.Now()
	var tasks []string
	if rc != nil {
		tasks = rc.ExistingTasks
	}
	if len(tasks) == 0 {
		for _, line := range strings.Split(text, "\n") {
			if line = tidy(strings.TrimLeft(strings.TrimSpace(line), "-*•")); line != "" {
				tasks = append(tasks, line)
			}
		}
	}

	counts := make(map[ai.Quadrant]int)
	var doFirst, schedule []string
	for _, task := range tasks {
		pc := Classify(task, &ai.RequestContext{Timestamp: now})
		counts[pc.Quadrant]++
		switch pc.Quadrant {
		case ai.QuadrantDoFirst:
			doFirst = append(doFirst, task)
		case ai.QuadrantSchedule:
			schedule = append(schedule, task)
		}
	}

	focus := append(doFirst, schedule...)
	if len(focus) > maxBriefingFocus {
		focus = focus[:maxBriefingFocus]
	}

	var summary string
	if len(tasks) == 0 {
		summary = "Nothing on the list today."
	} else {
		summary = fmt.Sprintf("%d tasks: %d to do first, %d to schedule, %d to delegate, %d to drop.",
			len(tasks), counts[ai.QuadrantDoFirst], counts[ai.QuadrantSchedule],
			counts[ai.QuadrantDelegate], counts[ai.QuadrantEliminate])
	}

	return &ai.Briefing{
		Greeting:   greeting(now) + ".",
		FocusItems: focus,
		Summary:    summary,
		Confidence: briefingConfidence,
	}
}

// ============================================================================
// ACTION ITEMS
// ============================================================================

// ExtractActionItems picks sentences that read as commitments or commands.
func ExtractActionItems(text string, rc *ai.RequestContext) *ai.ActionItems {
	now := rc.Now()
	items := []ai.ActionItem{}
	for _, s := range sentences(text) {
		words := tokenize(strings.ToLower(s))
		if len(words) == 0 {
			continue
		}
		if !actionCue.MatchString(s) && !imperativeVerbs[words[0]] {
			continue
		}
		item := ai.ActionItem{Text: capitalize(s)}
		if m := ownerPattern.FindStringSubmatch(s); m != nil {
			item.Owner = m[1]
		}
		if _, phrase := dueDate(s, now); phrase != "" {
			item.DueHint = strings.TrimSpace(phrase)
		}
		items = append(items, item)
	}
	return &ai.ActionItems{Items: items, Confidence: actionConfidence}
}

// ============================================================================
// SUMMARIZE
// ============================================================================

// Summarize keeps the highest-scoring sentences by term frequency, in their
// original order.
func Summarize(text string) *ai.Summary {
	sents := sentences(text)
	if len(sents) == 0 {
		return &ai.Summary{Text: strings.TrimSpace(text), Confidence: summaryConfidence}
	}

	freq := make(map[string]int)
	for _, w := range tokenize(normalize(text)) {
		if !stopwords[w] {
			freq[w]++
		}
	}

	type ranked struct {
		idx   int
		score float64
	}
	rs := make([]ranked, len(sents))
	for i, s := range sents {
		words := tokenize(normalize(s))
		total := 0
		for _, w := range words {
			total += freq[w]
		}
		score := 0.0
		if len(words) > 0 {
			score = float64(total) / float64(len(words))
		}
		rs[i] = ranked{idx: i, score: score}
	}
	sort.SliceStable(rs, func(a, b int) bool { return rs[a].score > rs[b].score })

	keep := len(sents) / 3
	if keep < 1 {
		keep = 1
	}
	if keep > maxSummarySentences {
		keep = maxSummarySentences
	}
	rs = rs[:keep]
	sort.Slice(rs, func(a, b int) bool { return rs[a].idx < rs[b].idx })

	points := make([]string, len(rs))
	for i, r := range rs {
		points[i] = sents[r.idx]
	}
	return &ai.Summary{
		Text:       strings.Join(points, ". ") + ".",
		KeyPoints:  points,
		Confidence: summaryConfidence,
	}
}

// ============================================================================
// CHAT
// ============================================================================

// Chat returns a fixed acknowledgement; real conversation needs a model tier.
func Chat(string) *ai.ChatReply {
	return &ai.ChatReply{
		Text:       "I can sort tasks, draft goals and pull out action items. Longer answers need the on-device model.",
		Confidence: chatConfidence,
	}
}
