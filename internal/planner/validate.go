package planner

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/mira/planbot/internal/goal"
)

// Rules are the tunable validation bounds for one generation.
type Rules struct {
	MinActivities int
	MaxActivities int
	MinDescLen    int
	MaxDescLen    int
	GapThreshold  int // minutes of idle time between activities that counts as a gap
}

// Validate checks a round of drafts against the rules and returns every
// violation found, phrased so it can be fed back to the model verbatim. An
// empty result means the round passed. Overlaps and gaps are reported, never
// repaired.
func Validate(drafts []Draft, r Rules) []string {
	var out []string

	if len(drafts) < r.MinActivities {
		out = append(out, fmt.Sprintf("only %d activities, need at least %d", len(drafts), r.MinActivities))
	}
	if len(drafts) > r.MaxActivities {
		out = append(out, fmt.Sprintf("%d activities, maximum is %d", len(drafts), r.MaxActivities))
	}

	seen := make(map[string]bool, len(drafts))
	for _, d := range drafts {
		if d.Window.Start < 0 || d.Window.End > goal.MinutesPerDay {
			out = append(out, fmt.Sprintf("%q (%s) runs outside the day", d.Name, d.Window))
		}
		if d.Window.Start >= d.Window.End {
			out = append(out, fmt.Sprintf("%q has a non-positive window %s", d.Name, d.Window))
		}
		// length bounds are in characters, not bytes
		if n := utf8.RuneCountInString(d.Description); n < r.MinDescLen || n > r.MaxDescLen {
			out = append(out, fmt.Sprintf("%q description is %d characters, must be %d-%d", d.Name, n, r.MinDescLen, r.MaxDescLen))
		}
		if !d.Type.Valid() {
			out = append(out, fmt.Sprintf("%q has unknown activity_type %q", d.Name, d.Type))
		}
		if !d.Priority.Valid() {
			out = append(out, fmt.Sprintf("%q has unknown priority %q", d.Name, d.Priority))
		}
		key := d.DedupKey()
		if seen[key] {
			out = append(out, fmt.Sprintf("duplicate activity %q at %s", d.Name, d.Window))
		}
		seen[key] = true
	}

	sorted := make([]Draft, len(drafts))
	copy(sorted, drafts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Window.Start < sorted[j].Window.Start })

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Window.Overlaps(cur.Window) {
			out = append(out, fmt.Sprintf("%q (%s) overlaps %q (%s)", prev.Name, prev.Window, cur.Name, cur.Window))
			continue
		}
		if gap := cur.Window.Start - prev.Window.End; gap >= r.GapThreshold {
			out = append(out, fmt.Sprintf("%d minute gap between %q (ends %s) and %q (starts %s): fill it or extend a neighbor",
				gap, prev.Name, goal.FormatClock(prev.Window.End), cur.Name, goal.FormatClock(cur.Window.Start)))
		}
	}

	return out
}
