package planner

import (
	"strings"
	"testing"

	"github.com/mira/planbot/internal/goal"
)

func TestBuildPromptDeterministic(t *testing.T) {
	gc, err := LoadContext(testConfig(), fakeReader{}, "2026-08-24")
	if err != nil {
		t.Fatalf("LoadContext: %v", err)
	}
	a := BuildPrompt(gc, 8, 15, 15, 60, nil)
	b := BuildPrompt(gc, 8, 15, 15, 60, nil)
	if a != b {
		t.Error("expected identical prompts for identical input")
	}
	for _, want := range []string{"2026-08-24", "Monday", "weekday", "between 8 and 15", "07:30", "18:00"} {
		if !strings.Contains(a, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.Contains(a, "schedule_items") {
		t.Error("prompt missing the worked example")
	}
}

func TestBuildPromptFeedback(t *testing.T) {
	gc, err := LoadContext(testConfig(), fakeReader{}, "2026-08-24")
	if err != nil {
		t.Fatalf("LoadContext: %v", err)
	}
	feedback := []string{"one", "two", "three", "four", "five", "six", "seven"}
	p := BuildPrompt(gc, 8, 15, 15, 60, feedback)
	if !strings.Contains(p, "previous attempt had problems") {
		t.Error("expected feedback header on retry prompt")
	}
	for _, f := range feedback[:5] {
		if !strings.Contains(p, "- "+f) {
			t.Errorf("expected feedback item %q", f)
		}
	}
	if strings.Contains(p, "- six") {
		t.Error("expected feedback capped at 5 items")
	}
}

func TestBuildPromptExistingEntries(t *testing.T) {
	reader := fakeReader{
		"2026-08-24": {
			{Name: "dentist", Window: goal.Window{Start: 10 * 60, End: 11 * 60}},
		},
	}
	gc, err := LoadContext(testConfig(), reader, "2026-08-24")
	if err != nil {
		t.Fatalf("LoadContext: %v", err)
	}
	p := BuildPrompt(gc, 8, 15, 15, 60, nil)
	if !strings.Contains(p, "dentist") || !strings.Contains(p, "10:00-11:00") {
		t.Error("expected existing entry listed in prompt")
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	cfg := testConfig()
	cfg.ReplyStyle = "casual and warm"
	cfg.Interests = "astronomy, baking"
	gc, err := LoadContext(cfg, fakeReader{}, "2026-08-24")
	if err != nil {
		t.Fatalf("LoadContext: %v", err)
	}
	s := BuildSystemPrompt(gc)
	for _, want := range []string{"mira", "cheerful college student", "casual and warm", "astronomy"} {
		if !strings.Contains(s, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}
