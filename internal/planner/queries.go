package planner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mira/planbot/internal/cache"
	"github.com/mira/planbot/internal/goal"
	"github.com/mira/planbot/internal/store"
)

// Queries is the cache-fronted read side plus the small write operations the
// command surface needs. Every write goes through cache invalidation.
type Queries struct {
	store *store.Store
	cache *cache.Cache
}

func NewQueries(st *store.Store, c *cache.Cache) *Queries {
	return &Queries{store: st, cache: c}
}

// Day returns the day's goals, served from cache when fresh.
func (q *Queries) Day(day string) ([]goal.Goal, error) {
	key := dayKeyPrefix(day) + ":list"
	if v, ok := q.cache.Get(key); ok {
		return v.([]goal.Goal), nil
	}
	goals, err := q.store.GoalsForDay(day)
	if err != nil {
		return nil, err
	}
	q.cache.Put(key, goals)
	return goals, nil
}

// StatusText renders a one-glance summary of the day.
func (q *Queries) StatusText(day string, nowMinute int) (string, error) {
	goals, err := q.Day(day)
	if err != nil {
		return "", err
	}
	if len(goals) == 0 {
		return fmt.Sprintf("No schedule for %s yet.", day), nil
	}

	counts := map[goal.Status]int{}
	for _, g := range goals {
		counts[g.Status]++
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Schedule for %s: %d activities", day, len(goals))
	fmt.Fprintf(&b, " (%d pending, %d active, %d completed, %d cancelled)\n",
		counts[goal.StatusPending], counts[goal.StatusActive], counts[goal.StatusCompleted], counts[goal.StatusCancelled])

	if cur := goal.ActiveAt(goals, nowMinute); cur != nil {
		fmt.Fprintf(&b, "Now: %s %s\n", cur.Window.String(), cur.Name)
	}
	for _, g := range goals {
		if g.Status.Terminal() || g.Window.Start <= nowMinute {
			continue
		}
		fmt.Fprintf(&b, "Next: %s %s", g.Window.String(), g.Name)
		break
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// ListText renders the full day, one activity per line.
func (q *Queries) ListText(day string) (string, error) {
	goals, err := q.Day(day)
	if err != nil {
		return "", err
	}
	if len(goals) == 0 {
		return fmt.Sprintf("No schedule for %s yet.", day), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Schedule for %s:\n", day)
	for i, g := range goals {
		marker := " "
		switch g.Status {
		case goal.StatusActive:
			marker = ">"
		case goal.StatusCompleted:
			marker = "x"
		case goal.StatusCancelled:
			marker = "-"
		}
		fmt.Fprintf(&b, "%2d. [%s] %s %s (%s) %s\n", i+1, marker, g.Window.String(), g.Name, g.Type, g.Description)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// ActiveGoal returns the activity covering the given minute, if any. A warm
// cache answers from the day listing; a cold one goes to the store's own
// lookup without populating the list entry.
func (q *Queries) ActiveGoal(day string, minute int) (goal.Goal, bool, error) {
	if v, ok := q.cache.Get(dayKeyPrefix(day) + ":list"); ok {
		if g := goal.ActiveAt(v.([]goal.Goal), minute); g != nil {
			return *g, true, nil
		}
		return goal.Goal{}, false, nil
	}
	g, err := q.store.ActiveAt(day, minute)
	if errors.Is(err, store.ErrNotFound) {
		return goal.Goal{}, false, nil
	}
	if err != nil {
		return goal.Goal{}, false, err
	}
	return g, true, nil
}

// ClearDay deletes everything on the day and returns the count.
func (q *Queries) ClearDay(day string) (int64, error) {
	n, err := q.store.DeleteDay(day)
	if err != nil {
		return 0, err
	}
	q.cache.Invalidate(dayKeyPrefix(day))
	return n, nil
}

// DeleteByRef deletes one activity by its list position (1-based) or by a
// case-insensitive name prefix.
func (q *Queries) DeleteByRef(day, ref string) (goal.Goal, error) {
	goals, err := q.Day(day)
	if err != nil {
		return goal.Goal{}, err
	}
	target, err := resolveRef(goals, ref)
	if err != nil {
		return goal.Goal{}, err
	}
	if err := q.store.DeleteGoal(target.ID); err != nil {
		return goal.Goal{}, err
	}
	q.cache.Invalidate(dayKeyPrefix(day))
	return target, nil
}

// MarkStatus moves an activity to a new status by reference.
func (q *Queries) MarkStatus(day, ref string, to goal.Status) (goal.Goal, error) {
	goals, err := q.Day(day)
	if err != nil {
		return goal.Goal{}, err
	}
	target, err := resolveRef(goals, ref)
	if err != nil {
		return goal.Goal{}, err
	}
	if err := q.store.UpdateStatus(target.ID, to); err != nil {
		return goal.Goal{}, err
	}
	q.cache.Invalidate(dayKeyPrefix(day))
	target.Status = to
	return target, nil
}

// CompleteExpired closes out stale entries from days before today.
func (q *Queries) CompleteExpired(today string) (int64, error) {
	n, err := q.store.CompleteExpired(today)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		q.cache.Invalidate("goals:")
	}
	return n, nil
}

// CleanupBefore removes finished entries older than the cutoff day.
func (q *Queries) CleanupBefore(day string) (int64, error) {
	n, err := q.store.DeleteFinishedBefore(day)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		q.cache.Invalidate("goals:")
	}
	return n, nil
}

func resolveRef(goals []goal.Goal, ref string) (goal.Goal, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return goal.Goal{}, errors.New("empty reference")
	}
	if idx, err := strconv.Atoi(ref); err == nil {
		if idx < 1 || idx > len(goals) {
			return goal.Goal{}, fmt.Errorf("no activity #%d, the day has %d", idx, len(goals))
		}
		return goals[idx-1], nil
	}
	lower := strings.ToLower(ref)
	var matches []goal.Goal
	for _, g := range goals {
		if strings.HasPrefix(strings.ToLower(g.Name), lower) {
			matches = append(matches, g)
		}
	}
	switch len(matches) {
	case 0:
		return goal.Goal{}, fmt.Errorf("no activity matching %q", ref)
	case 1:
		return matches[0], nil
	default:
		return goal.Goal{}, fmt.Errorf("%q matches %d activities, be more specific", ref, len(matches))
	}
}
