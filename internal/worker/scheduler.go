package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/mediguard/internal/model"
	"github.com/jwalitptl/mediguard/pkg/logger"
	"github.com/jwalitptl/mediguard/pkg/metrics"
)

// Engine is the part of the compliance engine the scheduler drives.
type Engine interface {
	Now() time.Time
	NextDose() time.Time
	TimeCheck(ctx context.Context) (model.ComplianceEvent, bool)
	RecomputeNextDose() (time.Time, bool)
}

type SchedulerConfig struct {
	PollInterval time.Duration
	Cooldown     time.Duration
}

// Scheduler polls the engine clock and runs a check once the next dose is
// due. After a check it sleeps for Cooldown, and a next-dose time that was
// already handled is never checked again. The engine leaves next-dose stale
// after the last dose of the day until the rollover job moves it.
type Scheduler struct {
	engine  Engine
	config  SchedulerConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	sleep   func(ctx context.Context, d time.Duration) bool

	// handled is only touched from Tick, which runs on one goroutine.
	handled time.Time
}

func NewScheduler(engine Engine, config SchedulerConfig, log *logger.Logger, m *metrics.Metrics) *Scheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 10 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		engine:  engine,
		config:  config,
		logger:  log.WithComponent("scheduler"),
		metrics: m,
		sleep:   sleepCtx,
	}
}

// Start blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("starting scheduler",
		"poll_interval", s.config.PollInterval.String(),
		"cooldown", s.config.Cooldown.String(),
	)

	for {
		if !s.sleep(ctx, s.config.PollInterval) {
			s.logger.Info("shutting down scheduler")
			return
		}
		if s.Tick(ctx) && !s.sleep(ctx, s.config.Cooldown) {
			s.logger.Info("shutting down scheduler")
			return
		}
	}
}

// Tick runs one poll and reports whether a check was recorded.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if s.metrics != nil {
		s.metrics.SchedulerTicks.Inc()
	}

	next := s.engine.NextDose()
	if next.IsZero() || next.Equal(s.handled) || s.engine.Now().Before(next) {
		return false
	}

	ev, ok := s.engine.TimeCheck(ctx)
	if !ok {
		// the due minute was skipped over; move on to the next dose
		if _, found := s.engine.RecomputeNextDose(); !found {
			s.handled = next
			s.logger.Debug("no further doses today", "stale_next_dose", next.Format(time.RFC3339))
		}
		return false
	}
	s.handled = next
	s.logger.Debug("check recorded", "event_id", ev.ID.String(), "outcome", string(ev.Status))
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
