package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mira/planbot/config"
	"github.com/mira/planbot/internal/planner"
)

// Scheduler drives the daily automatic generation and the maintenance
// sweeps. Every job logs failures and moves on; nothing here crashes the
// process.
type Scheduler struct {
	cron    *cron.Cron
	cfg     *config.Config
	gen     *planner.Generator
	queries *planner.Queries
	loc     *time.Location

	now func() time.Time // swapped in tests
}

func New(cfg *config.Config, gen *planner.Generator, queries *planner.Queries) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		cfg:     cfg,
		gen:     gen,
		queries: queries,
		loc:     loc,
		now:     time.Now,
	}, nil
}

func (s *Scheduler) Start() error {
	if s.cfg.AutoGenerate {
		spec, err := dailyCronSpec(s.cfg.AutoScheduleTime)
		if err != nil {
			return fmt.Errorf("auto schedule time: %w", err)
		}
		if _, err := s.cron.AddFunc(spec, s.runDaily); err != nil {
			return fmt.Errorf("registering daily generation: %w", err)
		}
	}
	if _, err := s.cron.AddFunc("0 * * * *", s.runMaintenance); err != nil {
		return fmt.Errorf("registering maintenance sweep: %w", err)
	}
	s.cron.Start()
	log.Printf("scheduler started (tz %s, daily at %s)", s.cfg.Timezone, s.cfg.AutoScheduleTime)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// runDaily generates today's schedule if it doesn't exist yet. Force stays
// off so a populated day is never overwritten.
func (s *Scheduler) runDaily() {
	day := s.now().In(s.loc).Format("2006-01-02")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	res, err := s.gen.Generate(ctx, day, false)
	if err != nil {
		log.Printf("scheduler: daily generation for %s: %v", day, err)
		return
	}
	if res.Skipped {
		log.Printf("scheduler: %s already has a schedule, skipping", day)
		return
	}
	if res.Warning != "" {
		log.Printf("scheduler: schedule for %s not stored: %s", day, res.Warning)
		return
	}
	log.Printf("scheduler: generated %d activities for %s (score %.2f)", len(res.Goals), day, res.Score)
}

// runMaintenance closes out stale entries and enforces retention.
func (s *Scheduler) runMaintenance() {
	today := s.now().In(s.loc).Format("2006-01-02")

	if n, err := s.queries.CompleteExpired(today); err != nil {
		log.Printf("scheduler: completing expired goals: %v", err)
	} else if n > 0 {
		log.Printf("scheduler: completed %d expired goal(s)", n)
	}

	cutoff := s.now().In(s.loc).AddDate(0, 0, -s.cfg.CleanupDays).Format("2006-01-02")
	if n, err := s.queries.CleanupBefore(cutoff); err != nil {
		log.Printf("scheduler: cleaning up old goals: %v", err)
	} else if n > 0 {
		log.Printf("scheduler: removed %d old goal(s)", n)
	}
}

// dailyCronSpec converts "HH:MM" into a standard five-field cron line.
func dailyCronSpec(hhmm string) (string, error) {
	minute, err := config.ParseClock(hhmm)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", minute%60, minute/60), nil
}
