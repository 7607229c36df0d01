package planner

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
	"unicode"

	"github.com/mira/planbot/config"
	"github.com/mira/planbot/internal/goal"
)

// GenContext is everything the prompt builder needs to describe one day.
// Loading it touches the store but never the model.
type GenContext struct {
	Day       string // YYYY-MM-DD
	Weekday   string
	IsWeekend bool

	BotName    string
	Persona    string
	ReplyStyle string
	Interests  string

	// Preference anchors, minutes from midnight; -1 when unset.
	Wake      int
	Sleep     int
	Breakfast int
	Lunch     int
	Dinner    int

	CustomDirective string

	Existing         []goal.Goal
	YesterdaySummary string

	// Flavor values derived from the date so the same day always generates
	// with the same disposition.
	Mood   string
	Energy string
}

var moods = []string{"upbeat", "focused", "mellow", "curious", "social", "reflective"}
var energies = []string{"high", "steady", "low-key"}

type GoalReader interface {
	GoalsForDay(day string) ([]goal.Goal, error)
}

// LoadContext assembles the generation context for a day.
func LoadContext(cfg *config.Config, goals GoalReader, day string) (*GenContext, error) {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return nil, &InvalidParametersError{Field: "day", Reason: fmt.Sprintf("expected YYYY-MM-DD, got %q", day)}
	}
	if strings.TrimSpace(cfg.Persona) == "" {
		return nil, &ContextUnavailableError{Missing: "persona"}
	}
	directive, err := sanitizeDirective(cfg.CustomPrompt)
	if err != nil {
		return nil, err
	}

	gc := &GenContext{
		Day:             day,
		Weekday:         t.Weekday().String(),
		IsWeekend:       t.Weekday() == time.Saturday || t.Weekday() == time.Sunday,
		BotName:         cfg.BotName,
		Persona:         cfg.Persona,
		ReplyStyle:      cfg.ReplyStyle,
		Interests:       cfg.Interests,
		Wake:            clockOrUnset(cfg.WakeTime),
		Sleep:           clockOrUnset(cfg.SleepTime),
		Breakfast:       clockOrUnset(cfg.BreakfastTime),
		Lunch:           clockOrUnset(cfg.LunchTime),
		Dinner:          clockOrUnset(cfg.DinnerTime),
		CustomDirective: directive,
	}

	existing, err := goals.GoalsForDay(day)
	if err != nil {
		return nil, fmt.Errorf("loading existing goals: %w", err)
	}
	gc.Existing = existing

	yesterday := t.AddDate(0, 0, -1).Format("2006-01-02")
	prior, err := goals.GoalsForDay(yesterday)
	if err != nil {
		return nil, fmt.Errorf("loading yesterday's goals: %w", err)
	}
	gc.YesterdaySummary = summarize(prior)

	seed := dateSeed(day)
	gc.Mood = moods[seed%uint32(len(moods))]
	gc.Energy = energies[(seed/7)%uint32(len(energies))]

	return gc, nil
}

// sanitizeDirective rejects custom directives carrying control characters or
// obvious instruction-override phrasing. Rejected input is reported, never
// silently trimmed.
func sanitizeDirective(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return "", &InvalidParametersError{Field: "custom_prompt", Reason: "contains control characters"}
		}
	}
	lower := strings.ToLower(s)
	for _, marker := range []string{"ignore previous", "ignore all previous", "disregard the above", "system:", "</system>"} {
		if strings.Contains(lower, marker) {
			return "", &InvalidParametersError{Field: "custom_prompt", Reason: fmt.Sprintf("contains instruction override %q", marker)}
		}
	}
	if len(s) > 500 {
		return "", &InvalidParametersError{Field: "custom_prompt", Reason: "longer than 500 characters"}
	}
	return s, nil
}

func clockOrUnset(s string) int {
	if s == "" {
		return -1
	}
	m, err := goal.ParseClock(s)
	if err != nil {
		return -1
	}
	return m
}

func summarize(goals []goal.Goal) string {
	if len(goals) == 0 {
		return ""
	}
	var done, total int
	var names []string
	for _, g := range goals {
		total++
		if g.Status == goal.StatusCompleted {
			done++
		}
		if len(names) < 5 {
			names = append(names, g.Name)
		}
	}
	return fmt.Sprintf("%d/%d activities completed, including: %s", done, total, strings.Join(names, ", "))
}

func dateSeed(day string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(day))
	return h.Sum32()
}
