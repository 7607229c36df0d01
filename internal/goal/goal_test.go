package goal

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusActive, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusCancelled, true},
		{StatusActive, StatusPending, false},
		{StatusCompleted, StatusActive, false},
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusActive, false},
		{StatusPending, StatusPending, false},
		{StatusPending, Status("paused"), false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"07:30", 450},
		{"23:59", 1439},
		{"24:00", 1440},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if err != nil {
			t.Errorf("ParseClock(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"", "25:00", "24:01", "12:75", "noon"} {
		if _, err := ParseClock(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestWindow(t *testing.T) {
	w := Window{Start: 600, End: 660} // 10:00-11:00
	if w.Duration() != 60 {
		t.Errorf("Duration = %d, want 60", w.Duration())
	}
	if !w.Contains(600) || !w.Contains(659) {
		t.Error("expected window to contain its span")
	}
	if w.Contains(660) {
		t.Error("end bound must be exclusive")
	}
	if w.String() != "10:00-11:00" {
		t.Errorf("String = %q", w.String())
	}

	if !w.Overlaps(Window{Start: 630, End: 700}) {
		t.Error("expected overlap detected")
	}
	if w.Overlaps(Window{Start: 660, End: 720}) {
		t.Error("back-to-back windows must not overlap")
	}
}

func TestActiveAtPrefersPriority(t *testing.T) {
	goals := []Goal{
		{Name: "reading", Priority: PriorityLow, Status: StatusPending, Window: Window{Start: 540, End: 720}},
		{Name: "standup", Priority: PriorityHigh, Status: StatusPending, Window: Window{Start: 600, End: 630}},
		{Name: "dropped", Priority: PriorityHigh, Status: StatusCancelled, Window: Window{Start: 600, End: 660}},
	}
	g := ActiveAt(goals, 615)
	if g == nil || g.Name != "standup" {
		t.Fatalf("expected standup, got %+v", g)
	}
	g = ActiveAt(goals, 700)
	if g == nil || g.Name != "reading" {
		t.Fatalf("expected reading, got %+v", g)
	}
	if g := ActiveAt(goals, 60); g != nil {
		t.Errorf("expected nothing at night, got %+v", g)
	}
}

func TestSortByStart(t *testing.T) {
	goals := []Goal{
		{Name: "b", Priority: PriorityLow, Window: Window{Start: 600, End: 660}},
		{Name: "a", Priority: PriorityHigh, Window: Window{Start: 600, End: 630}},
		{Name: "c", Priority: PriorityMedium, Window: Window{Start: 540, End: 600}},
	}
	SortByStart(goals)
	if goals[0].Name != "c" || goals[1].Name != "a" || goals[2].Name != "b" {
		t.Errorf("unexpected order: %s, %s, %s", goals[0].Name, goals[1].Name, goals[2].Name)
	}
}
