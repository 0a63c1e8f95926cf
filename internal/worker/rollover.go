package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jwalitptl/mediguard/pkg/logger"
	"github.com/jwalitptl/mediguard/pkg/metrics"
)

// DayStarter is satisfied by the compliance engine.
type DayStarter interface {
	StartDay() (time.Time, bool)
}

// Rollover moves the next-dose time to the first dose of the new day on a
// cron schedule, by default at midnight. The engine keeps the stale
// next-dose once today's doses are over; this job is what moves it on.
type Rollover struct {
	engine  DayStarter
	cron    *cron.Cron
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewRollover(engine DayStarter, spec string, loc *time.Location, log *logger.Logger, m *metrics.Metrics) (*Rollover, error) {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	r := &Rollover{
		engine:  engine,
		cron:    cron.New(cron.WithLocation(loc)),
		logger:  log.WithComponent("rollover"),
		metrics: m,
	}
	if _, err := r.cron.AddFunc(spec, r.Run); err != nil {
		return nil, fmt.Errorf("invalid rollover schedule %q: %w", spec, err)
	}
	return r, nil
}

func (r *Rollover) Start() {
	r.cron.Start()
	r.logger.Info("rollover job scheduled", "entries", len(r.cron.Entries()))
}

// Stop halts the schedule; the returned context is done once a running job finishes.
func (r *Rollover) Stop() context.Context {
	return r.cron.Stop()
}

// Run schedules the first dose of the current day.
func (r *Rollover) Run() {
	if r.metrics != nil {
		r.metrics.SchedulerRollover.Inc()
	}
	next, ok := r.engine.StartDay()
	if !ok {
		r.logger.Warn("no dose scheduled after rollover")
		return
	}
	r.logger.Info("next dose recomputed", "next_dose", next.Format(time.RFC3339))
}
