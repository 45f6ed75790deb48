// Package sweeper periodically nulls out expired token fields. The
// redeem path never matches an expired token as valid regardless, so
// the sweep is hygiene, not correctness.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/socraticschool/accounts/internal/metrics"
	"github.com/socraticschool/accounts/internal/repository"
)

type Sweeper struct {
	users    repository.UserRepository
	logger   *slog.Logger
	cron     *cron.Cron
	interval time.Duration
}

func New(users repository.UserRepository, logger *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		users:    users,
		logger:   logger.With("component", "sweeper"),
		cron:     cron.New(),
		interval: interval,
	}
}

func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.sweep); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	s.cron.Start()
	s.logger.Info("sweeper started", "interval", s.interval.String())
	return nil
}

// Stop halts scheduling and returns once the in-flight sweep, if any,
// has finished.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	verification, reset, err := s.users.ClearExpiredTokens(ctx)
	metrics.SweepCycleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("sweep cycle", "error", err)
		return
	}

	metrics.SweepClearedTotal.WithLabelValues("verification").Add(float64(verification))
	metrics.SweepClearedTotal.WithLabelValues("reset").Add(float64(reset))
	if verification > 0 || reset > 0 {
		s.logger.Info("cleared expired tokens",
			"verification", verification, "reset", reset)
	}
}
