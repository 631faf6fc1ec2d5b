package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper reaps zombie rows: jobs stuck in queued with no durable job id,
// left behind when a publish failed and the compensating delete failed too.
// The grace period keeps it from racing a Schedule call between its insert
// and its durable-id patch.
type Sweeper struct {
	repo     Repo
	log      *slog.Logger
	interval time.Duration
	grace    time.Duration
	cron     *cron.Cron
	clock    func() time.Time
}

func NewSweeper(repo Repo, log *slog.Logger, interval, grace time.Duration) *Sweeper {
	return &Sweeper{
		repo:     repo,
		log:      log,
		interval: interval,
		grace:    grace,
		cron:     cron.New(),
		clock:    time.Now,
	}
}

// Start schedules the periodic sweep. Call Stop for a clean shutdown.
func (s *Sweeper) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return fmt.Errorf("register sweep job: %w", err)
	}
	s.cron.Start()
	s.log.Info("zombie sweeper started", "interval", s.interval, "grace", s.grace)
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := s.clock().Add(-s.grace)
	n, err := s.repo.DeleteZombies(ctx, cutoff)
	if err != nil {
		s.log.Error("zombie sweep failed", "err", err)
		return
	}
	if n > 0 {
		s.log.Info("zombie rows reaped", "count", n)
	}
}
