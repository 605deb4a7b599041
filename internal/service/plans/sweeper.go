package plans

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = time.Minute

// StatusSweeper runs AdvanceStatuses on a cron schedule.
type StatusSweeper struct {
	plans PlanUseCase
	cron  *cron.Cron
	now   func() time.Time
}

type SweeperOption func(*StatusSweeper)

func WithSweepClock(now func() time.Time) SweeperOption {
	return func(s *StatusSweeper) {
		s.now = now
	}
}

func NewStatusSweeper(plans PlanUseCase, schedule string, opts ...SweeperOption) (*StatusSweeper, error) {
	s := &StatusSweeper{plans: plans, cron: cron.New(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.Sweep(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Sweep advances statuses once. Errors are logged.
func (s *StatusSweeper) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	changed, err := s.plans.AdvanceStatuses(ctx, s.now())
	if err != nil {
		log.Printf("advance plan statuses error: %v", err)
		return
	}
	if len(changed) > 0 {
		log.Printf("advanced %d plans", len(changed))
	}
}

func (s *StatusSweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *StatusSweeper) Stop() {
	<-s.cron.Stop().Done()
}
