package planner

import (
	"strings"
	"unicode/utf8"
)

// expectedCoveredHours is how many distinct hours of the day a full schedule
// is expected to touch.
const expectedCoveredHours = 16

// Score rates one round of drafts in [0, 1]. The base is 0.5; bonuses reward
// activity count, description quality, and day coverage; each validation
// violation costs 0.05, capped at 0.3.
func Score(drafts []Draft, gc *GenContext, r Rules, violations []string) float64 {
	score := 0.5

	// count bonus, full inside the configured range
	n := len(drafts)
	switch {
	case n >= r.MinActivities && n <= r.MaxActivities:
		score += 0.2
	case n > 0 && n < r.MinActivities:
		score += 0.2 * float64(n) / float64(r.MinActivities)
	}

	// description bonus, proportional to in-range descriptions
	if n > 0 {
		good := 0
		for _, d := range drafts {
			if l := utf8.RuneCountInString(d.Description); l >= r.MinDescLen && l <= r.MaxDescLen {
				good++
			}
		}
		score += 0.15 * float64(good) / float64(n)
	}

	score += 0.15 * coverage(drafts, gc)

	penalty := 0.05 * float64(len(violations))
	if penalty > 0.3 {
		penalty = 0.3
	}
	score -= penalty

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// coverage blends three signals: how many hours of the day the schedule
// touches, how many declared anchors (wake, meals, sleep) land inside an
// activity, and whether the custom directive's words show up in the plan.
func coverage(drafts []Draft, gc *GenContext) float64 {
	var parts []float64

	hours := map[int]bool{}
	for _, d := range drafts {
		for h := d.Window.Start / 60; h <= (d.Window.End-1)/60; h++ {
			hours[h] = true
		}
	}
	hc := float64(len(hours)) / expectedCoveredHours
	if hc > 1 {
		hc = 1
	}
	parts = append(parts, hc)

	if gc != nil {
		if ac, ok := anchorCoverage(drafts, gc); ok {
			parts = append(parts, ac)
		}
		if da, ok := directiveAdherence(drafts, gc.CustomDirective); ok {
			parts = append(parts, da)
		}
	}

	var sum float64
	for _, p := range parts {
		sum += p
	}
	return sum / float64(len(parts))
}

func anchorCoverage(drafts []Draft, gc *GenContext) (float64, bool) {
	anchors := []int{gc.Wake, gc.Breakfast, gc.Lunch, gc.Dinner}
	var total, hit int
	for _, a := range anchors {
		if a < 0 {
			continue
		}
		total++
		for _, d := range drafts {
			if d.Window.Contains(a) {
				hit++
				break
			}
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(hit) / float64(total), true
}

func directiveAdherence(drafts []Draft, directive string) (float64, bool) {
	words := keywords(directive)
	if len(words) == 0 {
		return 0, false
	}
	var text strings.Builder
	for _, d := range drafts {
		text.WriteString(strings.ToLower(d.Name))
		text.WriteByte(' ')
		text.WriteString(strings.ToLower(d.Description))
		text.WriteByte(' ')
	}
	hit := 0
	for _, w := range words {
		if strings.Contains(text.String(), w) {
			hit++
		}
	}
	return float64(hit) / float64(len(words)), true
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "today": true,
	"make": true, "sure": true, "please": true, "some": true, "have": true,
	"about": true, "your": true, "this": true, "that": true, "time": true,
}

// keywords extracts the content words of a directive, lowercased.
func keywords(s string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?:;\"'()")
		if len(w) < 4 || stopwords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}
