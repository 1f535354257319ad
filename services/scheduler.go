package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cdp-analytics/etl"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// scheduledRunTimeout bounds a single scheduled rebuild.
const scheduledRunTimeout = 30 * time.Minute

type Scheduler struct {
	cron      *cron.Cron
	schedule  cron.Schedule
	transform *TransformService
	logger    *zap.Logger
}

// NewScheduler registers a rebuild at the standard five-field cron spec,
// e.g. "0 2 * * *" for every day at 2 AM.
func NewScheduler(spec string, transform *TransformService, logger *zap.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid etl schedule %q: %w", spec, err)
	}
	s := &Scheduler{
		cron:      cron.New(),
		schedule:  schedule,
		transform: transform,
		logger:    logger,
	}
	s.cron.Schedule(schedule, cron.FuncJob(s.runOnce))
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("ETL scheduler started", zap.Time("next_run", s.NextRun()))
}

// Stop halts scheduling and returns a context done once any running job
// has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) NextRun() time.Time {
	return s.schedule.Next(time.Now())
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), scheduledRunTimeout)
	defer cancel()

	s.logger.Info("Starting scheduled customer_360 rebuild...")
	run, _, err := s.transform.Run(ctx, TriggerSchedule)
	switch {
	case errors.Is(err, etl.ErrRunInProgress):
		s.logger.Info("Skipping scheduled rebuild, another run is in progress")
	case err != nil:
		s.logger.Error("Scheduled rebuild failed", zap.String("run_id", run.ID.String()), zap.Error(err))
	default:
		s.logger.Info("Scheduled rebuild completed",
			zap.String("run_id", run.ID.String()),
			zap.Int64("rows", run.RowsWritten))
	}
}
