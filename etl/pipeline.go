// Package etl rebuilds the customer_360 table from the raw CDP relations.
//
// A run reads every raw table inside one REPEATABLE READ transaction, builds
// typed per-customer aggregates, merges them onto the customer base, derives
// the scoring fields and swaps the result into customer_360 before
// committing. Any failure rolls the whole transaction back, leaving the
// previous snapshot in place.
package etl

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"cdp-analytics/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultBatchSize = 500

	// runLockKey is the advisory lock held for the length of a rebuild.
	runLockKey int64 = 360_360
)

// Result summarizes a committed rebuild.
type Result struct {
	RowsWritten  int64
	ReferenceDay time.Time
	Duration     time.Duration
}

type Pipeline struct {
	db        *gorm.DB
	logger    *zap.Logger
	batchSize int
	now       func() time.Time

	mu sync.Mutex
}

type Option func(*Pipeline)

// WithBatchSize sets how many rows go into one staging insert.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithClock overrides the clock used to compute recency.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(db *gorm.DB, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		db:        db,
		logger:    logger,
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run rebuilds customer_360. Only one run proceeds at a time, in this
// process and across processes sharing the database; others get
// ErrRunInProgress.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if !p.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.mu.Unlock()

	if err := p.ping(ctx); err != nil {
		return nil, err
	}

	started := time.Now()
	today := CalendarDay(p.now())
	var written int64

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := acquireRunLock(tx); err != nil {
			return err
		}

		stageStart := time.Now()
		agg, err := Aggregate(ctx, tx)
		if err != nil {
			return err
		}
		p.logger.Debug("aggregation complete",
			zap.Int("customers", len(agg.Customers)),
			zap.Int("purchasers", len(agg.Purchases)),
			zap.Int("support_contacts", len(agg.Support)),
			zap.Int("web_visitors", len(agg.Web)),
			zap.Int("campaign_responders", len(agg.Campaigns)),
			zap.Duration("elapsed", time.Since(stageStart)),
		)

		profiles, err := Consolidate(agg)
		if err != nil {
			return err
		}
		records := DeriveAll(profiles, today)

		stageStart = time.Now()
		written, err = materialize(ctx, tx, records, p.batchSize)
		if err != nil {
			return err
		}
		p.logger.Debug("materialization complete",
			zap.Int64("rows", written),
			zap.Duration("elapsed", time.Since(stageStart)),
		)
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		p.logger.Error("customer_360 rebuild failed", zap.Error(err))
		return nil, err
	}

	res := &Result{
		RowsWritten:  written,
		ReferenceDay: today,
		Duration:     time.Since(started),
	}
	p.logger.Info("customer_360 rebuilt",
		zap.Int64("rows", res.RowsWritten),
		zap.Time("reference_day", res.ReferenceDay),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// acquireRunLock takes the transaction-scoped advisory lock that keeps
// rebuilds in other processes out until commit or rollback.
func acquireRunLock(tx *gorm.DB) error {
	var locked bool
	if err := tx.Raw("SELECT pg_try_advisory_xact_lock(?)", runLockKey).Scan(&locked).Error; err != nil {
		return stageErr(StageLock, fmt.Errorf("acquire run lock: %w", err))
	}
	if !locked {
		return ErrRunInProgress
	}
	return nil
}

func (p *Pipeline) ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Snapshot returns the current customer_360 rows ordered by customer id.
func Snapshot(ctx context.Context, db *gorm.DB) ([]models.Customer360, error) {
	var rows []models.Customer360
	err := db.WithContext(ctx).Order("customer_id").Find(&rows).Error
	return rows, err
}
