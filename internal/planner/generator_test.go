package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mira/planbot/config"
	"github.com/mira/planbot/internal/cache"
	"github.com/mira/planbot/internal/goal"
	"github.com/mira/planbot/internal/llm"
	"github.com/mira/planbot/internal/store"
)

type fakeClient struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (f *fakeClient) Generate(_ context.Context, req llm.Request) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, req.Prompt)
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	return f.replies[i], nil
}

// hourlyJSON renders a schedule of one-hour blocks at the given start hours.
func hourlyJSON(hours []int) string {
	type item struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Type        string `json:"activity_type"`
		Priority    string `json:"priority"`
		StartTime   string `json:"start_time"`
		Duration    int    `json:"duration_minutes"`
	}
	items := make([]item, len(hours))
	for i, h := range hours {
		items[i] = item{
			Name:        fmt.Sprintf("block %02d", h),
			Description: "an hour of something worthwhile",
			Type:        "routine",
			Priority:    "medium",
			StartTime:   fmt.Sprintf("%02d:00", h),
			Duration:    60,
		}
	}
	out, _ := json.Marshal(map[string]any{"schedule_items": items})
	return string(out)
}

func contiguousHours() []int {
	var hs []int
	for h := 7; h < 22; h++ {
		hs = append(hs, h)
	}
	return hs
}

func gappyHours() []int {
	var hs []int
	for _, h := range contiguousHours() {
		if h == 9 {
			continue // hole from 09:00 to 10:00
		}
		hs = append(hs, h)
	}
	return hs
}

func testGenerator(t *testing.T, cfg *config.Config, client *fakeClient) (*Generator, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	g := NewGenerator(cfg, st, cache.New(100, 5*time.Minute), client)
	g.sleep = func(time.Duration) {}
	return g, st
}

func TestGenerateAcceptsAfterFeedback(t *testing.T) {
	client := &fakeClient{replies: []string{hourlyJSON(gappyHours()), hourlyJSON(contiguousHours())}}
	g, st := testGenerator(t, testConfig(), client)

	res, err := g.Generate(context.Background(), "2026-08-24", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Rounds != 2 {
		t.Errorf("expected 2 rounds, got %d", res.Rounds)
	}
	if res.Warning != "" {
		t.Errorf("expected clean acceptance, got warning %q", res.Warning)
	}
	if len(res.Goals) != 15 {
		t.Errorf("expected 15 goals stored, got %d", len(res.Goals))
	}

	if len(client.prompts) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(client.prompts))
	}
	if !strings.Contains(client.prompts[1], "minute gap") {
		t.Error("expected second prompt to carry the gap feedback")
	}

	stored, err := st.GoalsForDay("2026-08-24")
	if err != nil {
		t.Fatalf("GoalsForDay: %v", err)
	}
	if len(stored) != 15 {
		t.Errorf("expected 15 goals in store, got %d", len(stored))
	}
	runs, err := st.RunsForDay("2026-08-24")
	if err != nil {
		t.Fatalf("RunsForDay: %v", err)
	}
	if len(runs) != 1 || !runs[0].Accepted {
		t.Errorf("expected one accepted run, got %+v", runs)
	}
}

func TestGenerateShortCircuitsPopulatedDay(t *testing.T) {
	client := &fakeClient{replies: []string{hourlyJSON(contiguousHours())}}
	g, st := testGenerator(t, testConfig(), client)

	seed := goal.Goal{
		ID: uuid.NewString(), Name: "already here", Type: goal.TypeRest,
		Priority: goal.PriorityLow, Status: goal.StatusPending,
		Day: "2026-08-24", Window: goal.Window{Start: 9 * 60, End: 10 * 60},
	}
	if err := st.PutGoals([]goal.Goal{seed}); err != nil {
		t.Fatalf("PutGoals: %v", err)
	}

	res, err := g.Generate(context.Background(), "2026-08-24", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.Skipped {
		t.Error("expected skip on populated day")
	}
	if client.calls != 0 {
		t.Errorf("expected zero model calls, got %d", client.calls)
	}
	if len(res.Goals) != 1 || res.Goals[0].Name != "already here" {
		t.Errorf("expected existing goals returned, got %+v", res.Goals)
	}
}

func TestGenerateForceReplacesDay(t *testing.T) {
	client := &fakeClient{replies: []string{hourlyJSON(contiguousHours())}}
	g, st := testGenerator(t, testConfig(), client)

	seed := goal.Goal{
		ID: uuid.NewString(), Name: "stale entry", Type: goal.TypeRest,
		Priority: goal.PriorityLow, Status: goal.StatusPending,
		Day: "2026-08-24", Window: goal.Window{Start: 9 * 60, End: 10 * 60},
	}
	if err := st.PutGoals([]goal.Goal{seed}); err != nil {
		t.Fatalf("PutGoals: %v", err)
	}

	res, err := g.Generate(context.Background(), "2026-08-24", true)
	if err != nil {
		t.Fatalf("Generate force: %v", err)
	}
	if res.Skipped {
		t.Error("expected force to regenerate")
	}
	stored, err := st.GoalsForDay("2026-08-24")
	if err != nil {
		t.Fatalf("GoalsForDay: %v", err)
	}
	if len(stored) != 15 {
		t.Errorf("expected day replaced with 15 goals, got %d", len(stored))
	}
	for _, g := range stored {
		if g.Name == "stale entry" {
			t.Error("expected stale entry superseded")
		}
	}
}

func TestGenerateQuotaIsFatal(t *testing.T) {
	client := &fakeClient{
		replies: []string{""},
		errs:    []error{&llm.QuotaError{Provider: "anthropic", Detail: "rate limited"}},
	}
	g, st := testGenerator(t, testConfig(), client)

	_, err := g.Generate(context.Background(), "2026-08-24", false)
	if !llm.IsQuota(err) {
		t.Fatalf("expected quota error surfaced, got %v", err)
	}
	if client.calls != 1 {
		t.Errorf("expected no retries after quota failure, got %d calls", client.calls)
	}
	n, err := st.CountDay("2026-08-24")
	if err != nil {
		t.Fatalf("CountDay: %v", err)
	}
	if n != 0 {
		t.Errorf("expected nothing written, got %d goals", n)
	}
}

func TestGenerateRetriesTimeouts(t *testing.T) {
	timeout := &llm.TimeoutError{Provider: "anthropic", Err: context.DeadlineExceeded}
	client := &fakeClient{
		replies: []string{"", "", ""},
		errs:    []error{timeout, timeout, timeout},
	}
	cfg := testConfig()
	cfg.UseMultiRound = false

	var slept []time.Duration
	g, _ := testGenerator(t, cfg, client)
	g.sleep = func(d time.Duration) { slept = append(slept, d) }

	_, err := g.Generate(context.Background(), "2026-08-24", false)
	if err == nil {
		t.Fatal("expected failure when every attempt times out")
	}
	if client.calls != 3 {
		t.Errorf("expected 1 call + 2 retries, got %d", client.calls)
	}
	if len(slept) != 2 || slept[1] <= slept[0] {
		t.Errorf("expected growing backoff between retries, got %v", slept)
	}
}

func TestGenerateExhaustedReturnsWithoutWriting(t *testing.T) {
	client := &fakeClient{replies: []string{hourlyJSON(gappyHours())}}
	g, st := testGenerator(t, testConfig(), client)

	res, err := g.Generate(context.Background(), "2026-08-24", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Warning == "" {
		t.Error("expected a quality warning on the returned round")
	}
	if !strings.Contains(res.Warning, "violation") {
		t.Errorf("score beat the bar, so the warning should name violations: %q", res.Warning)
	}
	if res.Rounds != 2 {
		t.Errorf("expected both rounds used, got %d", res.Rounds)
	}
	if len(res.Goals) != 14 {
		t.Errorf("expected best round returned, got %d goals", len(res.Goals))
	}

	n, err := st.CountDay("2026-08-24")
	if err != nil {
		t.Fatalf("CountDay: %v", err)
	}
	if n != 0 {
		t.Errorf("exhaustion must not write, found %d goals in store", n)
	}
	runs, err := st.RunsForDay("2026-08-24")
	if err != nil {
		t.Fatalf("RunsForDay: %v", err)
	}
	if len(runs) != 1 || runs[0].Accepted {
		t.Errorf("expected one rejected run, got %+v", runs)
	}

	// the day stayed open, so a later attempt still generates
	res, err = g.Generate(context.Background(), "2026-08-24", false)
	if err != nil {
		t.Fatalf("Generate retry: %v", err)
	}
	if res.Skipped {
		t.Error("expected the day still open for regeneration")
	}
}

func TestGenerateExhaustedSelectsBestRound(t *testing.T) {
	// round 1 scores well despite one gap; round 2 is sparse and much worse
	client := &fakeClient{replies: []string{
		hourlyJSON(gappyHours()),
		hourlyJSON([]int{0, 2, 4, 6}),
	}}
	g, _ := testGenerator(t, testConfig(), client)

	res, err := g.Generate(context.Background(), "2026-08-24", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Rounds != 2 {
		t.Errorf("expected both rounds used, got %d", res.Rounds)
	}
	if len(res.Goals) != 14 {
		t.Fatalf("expected round 1's 14 entries, got %d", len(res.Goals))
	}
	for _, g := range res.Goals {
		if g.Name == "block 00" || g.Name == "block 02" {
			t.Errorf("round 2 entry %q returned instead of the best round", g.Name)
		}
	}
	if res.Score < 0.9 {
		t.Errorf("expected the best round's score reported, got %.2f", res.Score)
	}
}

func TestPersistForceInvalidatesCacheOnError(t *testing.T) {
	cfg := testConfig()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	c := cache.New(100, 5*time.Minute)
	g := NewGenerator(cfg, st, c, nil)

	c.Put("goals:2026-08-24:list", []goal.Goal{{Name: "stale"}})
	st.Close() // force the write to fail

	drafts, err := ParseSchedule(hourlyJSON(contiguousHours()), 15)
	if err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}
	if _, err := g.persist("2026-08-24", drafts, true); err == nil {
		t.Fatal("expected write on a closed store to fail")
	}
	if _, ok := c.Get("goals:2026-08-24:list"); ok {
		t.Error("expected the day's cache entries dropped on a failed write")
	}
}

func TestGenerateFailsWhenNothingParses(t *testing.T) {
	client := &fakeClient{replies: []string{"sorry, I cannot help with that"}}
	g, st := testGenerator(t, testConfig(), client)

	_, err := g.Generate(context.Background(), "2026-08-24", false)
	if err == nil {
		t.Fatal("expected hard failure when no round parses")
	}
	var me *MalformedResponseError
	if !errors.As(err, &me) {
		t.Errorf("expected the parse failure preserved in the chain, got %v", err)
	}
	n, _ := st.CountDay("2026-08-24")
	if n != 0 {
		t.Errorf("expected nothing written, got %d goals", n)
	}
}

func TestGenerateRejectsConcurrentDay(t *testing.T) {
	client := &fakeClient{replies: []string{hourlyJSON(contiguousHours())}}
	g, _ := testGenerator(t, testConfig(), client)

	if !g.lockDay("2026-08-24") {
		t.Fatal("expected to take the day lock")
	}
	defer g.unlockDay("2026-08-24")

	_, err := g.Generate(context.Background(), "2026-08-24", false)
	if !errors.Is(err, ErrGenerationInProgress) {
		t.Errorf("expected ErrGenerationInProgress, got %v", err)
	}

	// other days are unaffected
	if _, err := g.Generate(context.Background(), "2026-08-25", false); err != nil {
		t.Errorf("expected other day to generate, got %v", err)
	}
}

func TestPersistDedupsAgainstExisting(t *testing.T) {
	client := &fakeClient{}
	g, st := testGenerator(t, testConfig(), client)

	seed := goal.Goal{
		ID: uuid.NewString(), Name: "block 07", Type: goal.TypeRoutine,
		Priority: goal.PriorityMedium, Status: goal.StatusActive,
		Day: "2026-08-24", Window: goal.Window{Start: 7 * 60, End: 8 * 60},
	}
	if err := st.PutGoals([]goal.Goal{seed}); err != nil {
		t.Fatalf("PutGoals: %v", err)
	}

	drafts, err := ParseSchedule(hourlyJSON(contiguousHours()), 15)
	if err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}
	added, err := g.persist("2026-08-24", drafts, false)
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if len(added) != 14 {
		t.Errorf("expected the colliding draft dropped, got %d added", len(added))
	}
	got, err := st.GetGoal(seed.ID)
	if err != nil {
		t.Fatalf("GetGoal: %v", err)
	}
	if got.Status != goal.StatusActive {
		t.Errorf("expected existing entry untouched, got status %q", got.Status)
	}
}
