package planner

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mira/planbot/config"
	"github.com/mira/planbot/internal/cache"
	"github.com/mira/planbot/internal/goal"
	"github.com/mira/planbot/internal/llm"
	"github.com/mira/planbot/internal/store"
)

// maxTimeoutRetries bounds how many times a timed-out model call is retried
// within a single round.
const maxTimeoutRetries = 2

// Generator runs the multi-round generate/validate/score loop and owns the
// write path into the store.
type Generator struct {
	cfg    *config.Config
	store  *store.Store
	cache  *cache.Cache
	client llm.Client

	mu       sync.Mutex
	inFlight map[string]bool

	sleep func(time.Duration) // swapped in tests
}

func NewGenerator(cfg *config.Config, st *store.Store, c *cache.Cache, client llm.Client) *Generator {
	return &Generator{
		cfg:      cfg,
		store:    st,
		cache:    c,
		client:   client,
		inFlight: make(map[string]bool),
		sleep:    time.Sleep,
	}
}

// Result describes the outcome of one Generate call.
type Result struct {
	Day     string
	Goals   []goal.Goal
	Rounds  int     // model rounds actually run, 0 when skipped
	Score   float64 // score of the stored round
	Skipped bool    // day already populated and force was off
	Warning string  // set when the returned round missed the quality bar
}

type round struct {
	drafts     []Draft
	score      float64
	violations []string
}

// Generate produces and stores a schedule for the given day. Only one
// generation per day runs at a time; concurrent callers for the same day get
// ErrGenerationInProgress. With force off, a day that already has entries is
// returned as-is with no model calls.
func (g *Generator) Generate(ctx context.Context, day string, force bool) (*Result, error) {
	if !g.lockDay(day) {
		return nil, ErrGenerationInProgress
	}
	defer g.unlockDay(day)

	if !force {
		n, err := g.store.CountDay(day)
		if err != nil {
			return nil, fmt.Errorf("checking day %s: %w", day, err)
		}
		if n > 0 {
			existing, err := g.store.GoalsForDay(day)
			if err != nil {
				return nil, err
			}
			return &Result{Day: day, Goals: existing, Skipped: true}, nil
		}
	}

	gc, err := LoadContext(g.cfg, g.store, day)
	if err != nil {
		return nil, err
	}

	rules := Rules{
		MinActivities: g.cfg.MinActivities,
		MaxActivities: g.cfg.MaxActivities,
		MinDescLen:    g.cfg.MinDescLen,
		MaxDescLen:    g.cfg.MaxDescLen,
		GapThreshold:  g.cfg.GapThresholdMin,
	}
	schema := ScheduleSchema(rules.MinActivities, rules.MaxActivities, rules.MinDescLen, rules.MaxDescLen)
	system := BuildSystemPrompt(gc)

	maxRounds := g.cfg.MaxRounds
	if !g.cfg.UseMultiRound {
		maxRounds = 1
	}

	var best *round
	var feedback []string
	var lastErr error
	roundsRun := 0
	accepted := false

	for r := 1; r <= maxRounds; r++ {
		roundsRun = r
		prompt := BuildPrompt(gc, rules.MinActivities, rules.MaxActivities, rules.MinDescLen, rules.MaxDescLen, feedback)

		raw, err := g.callModel(ctx, llm.Request{System: system, Prompt: prompt, Schema: schema})
		if err != nil {
			if llm.IsQuota(err) {
				g.recordRun(day, roundsRun, 0, false, "quota exhausted")
				return nil, err
			}
			lastErr = err
			log.Printf("generation round %d for %s failed: %v", r, day, err)
			continue
		}

		drafts, err := ParseSchedule(raw, rules.MaxActivities)
		if err != nil {
			lastErr = err
			feedback = []string{"the reply was not valid JSON matching the schema, output only the JSON object"}
			log.Printf("generation round %d for %s unparseable: %v (raw: %s)", r, day, err, trimForLog(raw))
			continue
		}

		violations := Validate(drafts, rules)
		score := Score(drafts, gc, rules, violations)
		log.Printf("generation round %d for %s: %d activities, %d violations, score %.2f",
			r, day, len(drafts), len(violations), score)

		cur := &round{drafts: drafts, score: score, violations: violations}
		if best == nil || score > best.score {
			best = cur
		}
		if len(violations) == 0 && score >= g.cfg.QualityThreshold {
			// a passing round always wins, even against a higher-scoring
			// earlier round that carried violations
			best = cur
			accepted = true
			break
		}
		feedback = violations
	}

	if best == nil {
		g.recordRun(day, roundsRun, 0, false, fmt.Sprintf("no usable round: %v", lastErr))
		if lastErr != nil {
			return nil, fmt.Errorf("generation for %s produced nothing usable: %w", day, lastErr)
		}
		return nil, fmt.Errorf("generation for %s produced nothing usable", day)
	}

	result := &Result{Day: day, Rounds: roundsRun, Score: best.score}

	// Exhausted: every round kept violations or scored under the bar. The
	// best round goes back to the caller with a warning, but nothing is
	// written, so the day stays open for another attempt.
	if !accepted {
		if best.score < g.cfg.QualityThreshold {
			result.Warning = fmt.Sprintf("best of %d rounds scored %.2f, below the %.2f bar",
				roundsRun, best.score, g.cfg.QualityThreshold)
		} else {
			result.Warning = fmt.Sprintf("best of %d rounds kept %d unresolved violation(s) at score %.2f",
				roundsRun, len(best.violations), best.score)
		}
		result.Goals = draftGoals(day, best.drafts)
		g.recordRun(day, roundsRun, best.score, false, result.Warning)
		return result, nil
	}

	goals, err := g.persist(day, best.drafts, force)
	if err != nil {
		g.recordRun(day, roundsRun, best.score, false, "store write failed: "+err.Error())
		return nil, err
	}
	result.Goals = goals

	g.recordRun(day, roundsRun, best.score, true, fmt.Sprintf("%d activities", len(goals)))
	return result, nil
}

// callModel runs one model call, retrying timeouts with exponential backoff.
// Quota failures are returned immediately.
func (g *Generator) callModel(ctx context.Context, req llm.Request) (string, error) {
	timeout := time.Duration(g.cfg.LLMTimeoutSec) * time.Second
	var lastErr error
	for attempt := 0; attempt <= maxTimeoutRetries; attempt++ {
		if attempt > 0 {
			g.sleep(time.Duration(1<<(attempt-1)) * 2 * time.Second)
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		raw, err := g.client.Generate(callCtx, req)
		cancel()
		if err == nil {
			return raw, nil
		}
		if !llm.IsTimeout(err) {
			return "", err
		}
		lastErr = err
		log.Printf("model call timed out (attempt %d/%d): %v", attempt+1, maxTimeoutRetries+1, err)
	}
	return "", lastErr
}

// persist turns drafts into goals and writes them in one transaction. With
// force on, the day is replaced wholesale; otherwise drafts duplicating an
// existing entry are dropped. The day's cache entries are invalidated even
// when the write fails, so a reader never sees state the store may have
// diverged from.
func (g *Generator) persist(day string, drafts []Draft, force bool) ([]goal.Goal, error) {
	if force {
		goals := draftGoals(day, drafts)
		err := g.store.ReplaceDay(day, goals)
		g.cache.Invalidate(dayKeyPrefix(day))
		if err != nil {
			return nil, err
		}
		return goals, nil
	}

	prior, err := g.store.GoalsForDay(day)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(prior))
	for _, p := range prior {
		existing[p.DedupKey()] = true
	}
	var kept []Draft
	for _, d := range drafts {
		if !existing[d.DedupKey()] {
			kept = append(kept, d)
		}
	}

	goals := draftGoals(day, kept)
	err = g.store.PutGoals(goals)
	g.cache.Invalidate(dayKeyPrefix(day))
	if err != nil {
		return nil, err
	}
	return goals, nil
}

// draftGoals assigns IDs and the pending status to a round's drafts.
func draftGoals(day string, drafts []Draft) []goal.Goal {
	goals := make([]goal.Goal, 0, len(drafts))
	for _, d := range drafts {
		goals = append(goals, goal.Goal{
			ID:          uuid.NewString(),
			Name:        d.Name,
			Description: d.Description,
			Type:        d.Type,
			Priority:    d.Priority,
			Status:      goal.StatusPending,
			Day:         day,
			Window:      d.Window,
		})
	}
	return goals
}

func (g *Generator) recordRun(day string, rounds int, score float64, accepted bool, detail string) {
	if len(detail) > 500 {
		detail = detail[:500]
	}
	if err := g.store.RecordRun(day, rounds, score, accepted, detail); err != nil {
		log.Printf("recording generation run for %s: %v", day, err)
	}
}

func (g *Generator) lockDay(day string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight[day] {
		return false
	}
	g.inFlight[day] = true
	return true
}

func (g *Generator) unlockDay(day string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, day)
}

func dayKeyPrefix(day string) string {
	return "goals:" + day
}

// trimForLog keeps raw model output loggable.
func trimForLog(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
