// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/jeeves/internal/ai"
)

// ============================================================================
// SCORING CONSTANTS
// ============================================================================

const (
	// Scores when no cue matches.
	urgencyBaseline    = 0.35
	importanceBaseline = 0.45

	// Score a cue-free input gets when it only carries "someday" language.
	lowUrgencyScore = 0.1

	recreationalScore   = 0.1
	administrativeScore = 0.3

	// Added per extra matched cue beyond the strongest one.
	urgencyStep    = 0.05
	importanceStep = 0.05

	// Urgent/important cut-off.
	flagThreshold = 0.5

	// Confidence range is [confidenceFloor, confidenceFloor+confidenceSpan].
	confidenceFloor = 0.4
	confidenceSpan  = 0.55
)

// normalize folds compatibility forms and case so "ＵＲＧＥＮＴ" and "urgent"
// score the same.
func normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// ============================================================================
// CLASSIFICATION
// ============================================================================

// scored is the outcome of one axis of the matrix.
type scored struct {
	score   float64
	signals []string
}

// Classify sorts text into an Eisenhower quadrant. It is deterministic and
// performs no I/O; rc may be nil.
func Classify(text string, rc *ai.RequestContext) *ai.PriorityClassification {
	t := normalize(text)
	if rc != nil && len(rc.PriorSignals) > 0 {
		t += " " + normalize(strings.Join(rc.PriorSignals, " "))
	}

	u := scoreUrgency(t, rc)
	i := scoreImportance(t, rc)

	urgent := u.score >= flagThreshold
	important := i.score >= flagThreshold
	q := ai.QuadrantFor(urgent, important)

	signals := make([]string, 0, len(u.signals)+len(i.signals))
	for _, s := range u.signals {
		signals = append(signals, "urgency:"+s)
	}
	for _, s := range i.signals {
		signals = append(signals, "importance:"+s)
	}

	pc := &ai.PriorityClassification{
		Quadrant:        q,
		Confidence:      confidence(u.score, i.score),
		Explanation:     explain(q, u, i),
		IsUrgent:        urgent,
		IsImportant:     important,
		UrgencyScore:    u.score,
		ImportanceScore: i.score,
		Signals:         signals,
	}
	pc.Normalize()
	return pc
}

// confidence grows with the distance of both scores from the cut-off.
func confidence(urgency, importance float64) float64 {
	mU := math.Abs(urgency-flagThreshold) * 2
	mI := math.Abs(importance-flagThreshold) * 2
	return ai.ClampConfidence(confidenceFloor + confidenceSpan*(mU+mI)/2)
}

// combine returns the strongest weight plus a step per extra cue, capped at 1.
func combine(weights []float64, step float64) float64 {
	best := 0.0
	for _, w := range weights {
		if w > best {
			best = w
		}
	}
	return math.Min(1, best+step*float64(len(weights)-1))
}

func scoreUrgency(t string, rc *ai.RequestContext) scored {
	var (
		weights []float64
		sigs    []string
	)
	for _, s := range matchAll(t, urgencySignals) {
		weights = append(weights, s.weight)
		sigs = append(sigs, s.name)
	}
	if m := relativeTime.FindStringSubmatch(t); m != nil {
		if w := relativeWeight(m[1], m[2]); w > 0 {
			weights = append(weights, w)
			sigs = append(sigs, strings.TrimSpace(m[0]))
		}
	}
	// Deadlines are scored only against the request's own timestamp so the
	// result stays a function of the input.
	if rc != nil && rc.Deadline != nil && !rc.Timestamp.IsZero() {
		w, label := deadlineWeight(rc.Deadline.Sub(rc.Timestamp))
		if w > 0 {
			weights = append(weights, w)
			sigs = append(sigs, label)
		}
	}

	low := matchAll(t, lowUrgencySignals)
	sigs = append(sigs, names(low)...)

	switch {
	case len(weights) == 0 && len(low) == 0:
		return scored{score: urgencyBaseline}
	case len(weights) == 0:
		return scored{score: lowUrgencyScore, signals: sigs}
	case len(low) == 0:
		return scored{score: combine(weights, urgencyStep), signals: sigs}
	default:
		return scored{score: (combine(weights, urgencyStep) + lowUrgencyScore) / 2, signals: sigs}
	}
}

func scoreImportance(t string, rc *ai.RequestContext) scored {
	var (
		weights []float64
		sigs    []string
	)
	for _, c := range importanceCategories {
		for _, s := range matchAll(t, c.signals) {
			weights = append(weights, s.weight)
			sigs = append(sigs, c.name+"/"+s.name)
		}
	}
	if rc != nil && rc.GoalText != "" && sharesKeyword(t, normalize(rc.GoalText)) {
		weights = append(weights, 0.7)
		sigs = append(sigs, "goal-aligned")
	}

	rec := matchAll(t, recreationalSignals)
	adm := matchAll(t, administrativeSignals)
	sigs = append(sigs, names(rec)...)
	sigs = append(sigs, names(adm)...)

	negative := -1.0
	switch {
	case len(rec) > 0:
		negative = recreationalScore
	case len(adm) > 0:
		negative = administrativeScore
	}

	switch {
	case len(weights) == 0 && negative < 0:
		return scored{score: importanceBaseline}
	case len(weights) == 0:
		return scored{score: negative, signals: sigs}
	case negative < 0:
		return scored{score: combine(weights, importanceStep), signals: sigs}
	default:
		return scored{score: (combine(weights, importanceStep) + negative) / 2, signals: sigs}
	}
}

// relativeWeight scores "in N <unit>" phrases.
func relativeWeight(n, unit string) float64 {
	count := 1
	switch n {
	case "a", "an", "one":
	case "two":
		count = 2
	case "three":
		count = 3
	default:
		v, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		count = v
	}
	var unitDur time.Duration
	switch {
	case strings.HasPrefix(unit, "m"):
		unitDur = time.Minute
	case strings.HasPrefix(unit, "h"):
		unitDur = time.Hour
	case strings.HasPrefix(unit, "d"):
		unitDur = 24 * time.Hour
	case strings.HasPrefix(unit, "w"):
		unitDur = 7 * 24 * time.Hour
	default:
		return 0
	}
	// Anything past the horizon scores zero; checked before multiplying so
	// huge counts cannot overflow into a negative duration.
	if count < 0 || int64(count) > int64(relativeHorizon/unitDur) {
		return 0
	}
	w, _ := deadlineWeight(time.Duration(count) * unitDur)
	return w
}

// relativeHorizon bounds the "in N <unit>" phrases worth scoring.
const relativeHorizon = 365 * 24 * time.Hour

// deadlineWeight maps time remaining onto an urgency weight.
func deadlineWeight(left time.Duration) (float64, string) {
	switch {
	case left <= 0:
		return 0.95, "deadline passed"
	case left <= 24*time.Hour:
		return 0.9, "deadline within 24h"
	case left <= 72*time.Hour:
		return 0.6, "deadline within 3 days"
	case left <= 7*24*time.Hour:
		return 0.4, "deadline within a week"
	default:
		return 0, ""
	}
}

// sharesKeyword reports whether a and b share a word of four or more letters
// that is not a stopword.
func sharesKeyword(a, b string) bool {
	words := make(map[string]bool)
	for _, w := range tokenize(b) {
		if len(w) >= 4 && !stopwords[w] {
			words[w] = true
		}
	}
	for _, w := range tokenize(a) {
		if words[w] {
			return true
		}
	}
	return false
}

// explain names every matched cue on each axis.
func explain(q ai.Quadrant, u, i scored) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: ", q)
	if len(u.signals) == 0 {
		fmt.Fprintf(&b, "urgency %.2f (no urgency signals)", u.score)
	} else {
		fmt.Fprintf(&b, "urgency %.2f from %s", u.score, strings.Join(u.signals, ", "))
	}
	b.WriteString("; ")
	if len(i.signals) == 0 {
		fmt.Fprintf(&b, "importance %.2f (no importance signals)", i.score)
	} else {
		fmt.Fprintf(&b, "importance %.2f from %s", i.score, strings.Join(i.signals, ", "))
	}
	return b.String()
}
