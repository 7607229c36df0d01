package planner

import (
	"testing"
)

// fullDay builds a continuous schedule from 07:00 to 22:00 in one-hour
// blocks.
func fullDay() []Draft {
	var out []Draft
	for h := 7; h < 22; h++ {
		out = append(out, draft("block", h*60, (h+1)*60))
	}
	for i := range out {
		out[i].Name = out[i].Name + string(rune('a'+i))
	}
	return out
}

func scoreContext() *GenContext {
	return &GenContext{
		Wake:      7 * 60,
		Breakfast: 8 * 60,
		Lunch:     12 * 60,
		Dinner:    18 * 60,
		Sleep:     23 * 60,
	}
}

func TestScoreFullCleanDay(t *testing.T) {
	s := Score(fullDay(), scoreContext(), testRules(), nil)
	if s < 0.95 {
		t.Errorf("expected near-perfect score for a full clean day, got %.2f", s)
	}
}

func TestScoreViolationPenalty(t *testing.T) {
	drafts := fullDay()
	clean := Score(drafts, scoreContext(), testRules(), nil)
	two := Score(drafts, scoreContext(), testRules(), []string{"a", "b"})
	if diff := clean - two; diff < 0.099 || diff > 0.101 {
		t.Errorf("expected two violations to cost 0.10, cost %.3f", diff)
	}

	many := make([]string, 20)
	capped := Score(drafts, scoreContext(), testRules(), many)
	if diff := clean - capped; diff < 0.299 || diff > 0.301 {
		t.Errorf("expected penalty capped at 0.30, cost %.3f", diff)
	}
}

func TestScoreBounds(t *testing.T) {
	if s := Score(nil, nil, testRules(), make([]string, 50)); s < 0 || s > 1 {
		t.Errorf("score out of bounds: %.2f", s)
	}
	if s := Score(fullDay(), scoreContext(), testRules(), nil); s > 1 {
		t.Errorf("score out of bounds: %.2f", s)
	}
}

func TestScoreRewardsAnchorCoverage(t *testing.T) {
	// same shape shifted into the night, missing every anchor
	var night []Draft
	for h := 0; h < 7; h++ {
		night = append(night, draft("owl", h*60, (h+1)*60))
	}
	dayScore := Score(fullDay(), scoreContext(), testRules(), nil)
	nightScore := Score(night, scoreContext(), testRules(), nil)
	if nightScore >= dayScore {
		t.Errorf("expected anchor-covering day to outscore the night: %.2f vs %.2f", dayScore, nightScore)
	}
}

func TestScoreDirectiveAdherence(t *testing.T) {
	gc := scoreContext()
	gc.CustomDirective = "spend the afternoon painting"

	without := fullDay()
	with := fullDay()
	with[8].Name = "Painting session"
	with[8].Description = "watercolor painting practice by the window"

	if Score(with, gc, testRules(), nil) <= Score(without, gc, testRules(), nil) {
		t.Error("expected directive-following schedule to score higher")
	}
}
