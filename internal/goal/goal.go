package goal

import (
	"fmt"
	"sort"
)

// ActivityType classifies what kind of activity a schedule entry is.
type ActivityType string

const (
	TypeRoutine       ActivityType = "routine"
	TypeMeal          ActivityType = "meal"
	TypeStudy         ActivityType = "study"
	TypeEntertainment ActivityType = "entertainment"
	TypeSocial        ActivityType = "social"
	TypeExercise      ActivityType = "exercise"
	TypeLearning      ActivityType = "learning"
	TypeRest          ActivityType = "rest"
	TypeFreeTime      ActivityType = "free_time"
	TypeCustom        ActivityType = "custom"
)

var activityTypes = map[ActivityType]bool{
	TypeRoutine:       true,
	TypeMeal:          true,
	TypeStudy:         true,
	TypeEntertainment: true,
	TypeSocial:        true,
	TypeExercise:      true,
	TypeLearning:      true,
	TypeRest:          true,
	TypeFreeTime:      true,
	TypeCustom:        true,
}

func (t ActivityType) Valid() bool {
	return activityTypes[t]
}

// Priority is an ordinal rank used for tie-breaking overlapping entries.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns a numeric rank, higher wins.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Status tracks a goal through its lifecycle. Transitions are one-directional:
// pending → active → completed, or → cancelled any time before completed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether moving from one status to another is a legal
// forward transition. Completed and cancelled goals never come back.
func CanTransition(from, to Status) bool {
	if from == to || !to.Valid() {
		return false
	}
	switch from {
	case StatusPending:
		return to == StatusActive || to == StatusCompleted || to == StatusCancelled
	case StatusActive:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}

// Window is a same-day time window in minutes from midnight, start < end.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

const MinutesPerDay = 24 * 60

func (w Window) Duration() int { return w.End - w.Start }

// Contains reports whether the given minute-of-day falls inside the window.
// The end bound is exclusive so back-to-back windows don't both claim it.
func (w Window) Contains(minute int) bool {
	return w.Start <= minute && minute < w.End
}

func (w Window) Overlaps(o Window) bool {
	return w.Start < o.End && o.Start < w.End
}

func (w Window) String() string {
	return FormatClock(w.Start) + "-" + FormatClock(w.End)
}

// ParseClock parses "HH:MM" into minutes from midnight. "24:00" is accepted
// as the end-of-day bound.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// Goal is one schedule entry: a named activity occupying a time window on a
// single day.
type Goal struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Type        ActivityType `json:"activity_type"`
	Priority    Priority     `json:"priority"`
	Status      Status       `json:"status"`
	Day         string       `json:"day"` // YYYY-MM-DD, partition key
	Window      Window       `json:"time_window"`
	CreatedAt   string       `json:"created_at"`
}

// DedupKey identifies a goal within its day. No two entries in one day may
// share it.
func (g Goal) DedupKey() string {
	return g.Name + "@" + g.Window.String()
}

// SortByStart orders goals chronologically by window start, in place.
func SortByStart(goals []Goal) {
	sort.Slice(goals, func(i, j int) bool {
		if goals[i].Window.Start != goals[j].Window.Start {
			return goals[i].Window.Start < goals[j].Window.Start
		}
		return goals[i].Priority.Rank() > goals[j].Priority.Rank()
	})
}

// ActiveAt returns the entry whose window contains the given minute,
// preferring higher priority when windows overlap. Returns nil when nothing
// is scheduled.
func ActiveAt(goals []Goal, minute int) *Goal {
	var best *Goal
	for i := range goals {
		g := &goals[i]
		if g.Status.Terminal() || !g.Window.Contains(minute) {
			continue
		}
		if best == nil || g.Priority.Rank() > best.Priority.Rank() {
			best = g
		}
	}
	return best
}
