package services

import (
	"context"
	"errors"
	"time"

	"cdp-analytics/etl"
	"cdp-analytics/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Run triggers recorded in the audit log.
const (
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
	TriggerCLI      = "cli"
)

const defaultRunHistory = 20

type Rebuilder interface {
	Run(ctx context.Context) (*etl.Result, error)
}

type IntegrityChecker interface {
	Verify(ctx context.Context) (*etl.IntegrityReport, error)
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

type SnapshotArchiver interface {
	Archive(ctx context.Context, run *models.TransformRun) (string, error)
}

// TransformService wraps a pipeline run with the audit log, post-run
// verification, alerting, cache invalidation and archiving.
type TransformService struct {
	pipeline Rebuilder
	verifier IntegrityChecker
	runs     RunStore
	notifier Notifier
	cache    CacheInvalidator
	archiver SnapshotArchiver
	logger   *zap.Logger

	VerifyAfterRun bool
	now            func() time.Time
}

type TransformDeps struct {
	Pipeline Rebuilder
	Verifier IntegrityChecker
	Runs     RunStore
	Notifier Notifier
	Cache    CacheInvalidator // optional
	Archiver SnapshotArchiver // optional
	Logger   *zap.Logger
}

func NewTransformService(deps TransformDeps, verifyAfterRun bool) *TransformService {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: deps.Logger}
	}
	return &TransformService{
		pipeline:       deps.Pipeline,
		verifier:       deps.Verifier,
		runs:           deps.Runs,
		notifier:       notifier,
		cache:          deps.Cache,
		archiver:       deps.Archiver,
		logger:         deps.Logger,
		VerifyAfterRun: verifyAfterRun,
		now:            time.Now,
	}
}

// Run rebuilds customer_360 and records the outcome. The returned run is
// always non-nil; report is nil when verification was skipped or failed to
// execute. A concurrent rebuild yields etl.ErrRunInProgress.
func (s *TransformService) Run(ctx context.Context, trigger string) (*models.TransformRun, *etl.IntegrityReport, error) {
	run := &models.TransformRun{
		ID:        uuid.New(),
		Trigger:   trigger,
		Status:    models.RunStatusRunning,
		StartedAt: s.now(),
	}
	if err := s.runs.Start(ctx, run); err != nil {
		s.logger.Warn("failed to record run start", zap.Error(err))
	}

	log := s.logger.With(zap.String("run_id", run.ID.String()), zap.String("trigger", trigger))

	res, err := s.pipeline.Run(ctx)
	if errors.Is(err, etl.ErrRunInProgress) {
		s.finish(ctx, run, models.RunStatusSkipped, err)
		return run, nil, err
	}
	if err != nil {
		s.finish(ctx, run, models.RunStatusFailed, err)
		if nerr := s.notifier.Notify(ctx, runFailedMessage(run)); nerr != nil {
			log.Warn("failed to send run alert", zap.Error(nerr))
		}
		return run, nil, err
	}
	run.RowsWritten = res.RowsWritten

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.Warn("metrics cache invalidation failed", zap.Error(err))
		}
	}

	var report *etl.IntegrityReport
	if s.VerifyAfterRun && s.verifier != nil {
		report, err = s.verifier.Verify(ctx)
		if err != nil {
			log.Error("integrity verification failed to run", zap.Error(err))
		} else {
			passed := report.Passed()
			run.IntegrityPassed = &passed
			if !passed {
				checkErr := report.Err()
				log.Warn("integrity checks failed", zap.Error(checkErr))
				if nerr := s.notifier.Notify(ctx, integrityFailedMessage(run, checkErr)); nerr != nil {
					log.Warn("failed to send integrity alert", zap.Error(nerr))
				}
			}
		}
	}

	if s.archiver != nil {
		if key, err := s.archiver.Archive(ctx, run); err != nil {
			log.Warn("snapshot archive failed", zap.Error(err))
		} else {
			log.Info("snapshot archived", zap.String("object", key))
		}
	}

	finished := s.now()
	run.Status = models.RunStatusSucceeded
	run.FinishedAt = &finished
	if err := s.runs.Finish(ctx, run); err != nil {
		log.Warn("failed to record run finish", zap.Error(err))
	}
	return run, report, nil
}

func (s *TransformService) finish(ctx context.Context, run *models.TransformRun, status string, err error) {
	finished := s.now()
	run.Status = status
	run.ErrorMessage = err.Error()
	run.FinishedAt = &finished
	if ferr := s.runs.Finish(ctx, run); ferr != nil {
		s.logger.Warn("failed to record run failure", zap.Error(ferr))
	}
}

// Verify runs the integrity suite against the current snapshot.
func (s *TransformService) Verify(ctx context.Context) (*etl.IntegrityReport, error) {
	if s.verifier == nil {
		return nil, errors.New("integrity verifier not configured")
	}
	return s.verifier.Verify(ctx)
}

// RecentRuns lists the latest runs, newest first.
func (s *TransformService) RecentRuns(ctx context.Context, limit int) ([]models.TransformRun, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultRunHistory
	}
	return s.runs.Recent(ctx, limit)
}
