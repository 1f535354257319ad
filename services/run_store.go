package services

import (
	"context"

	"cdp-analytics/models"

	"gorm.io/gorm"
)

// RunStore persists the transform run audit log.
type RunStore interface {
	Start(ctx context.Context, run *models.TransformRun) error
	Finish(ctx context.Context, run *models.TransformRun) error
	Recent(ctx context.Context, limit int) ([]models.TransformRun, error)
}

type GormRunStore struct {
	db *gorm.DB
}

func NewGormRunStore(db *gorm.DB) *GormRunStore {
	return &GormRunStore{db: db}
}

func (s *GormRunStore) Start(ctx context.Context, run *models.TransformRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *GormRunStore) Finish(ctx context.Context, run *models.TransformRun) error {
	return s.db.WithContext(ctx).Model(run).Select(
		"status", "rows_written", "integrity_passed", "error_message", "finished_at",
	).Updates(run).Error
}

func (s *GormRunStore) Recent(ctx context.Context, limit int) ([]models.TransformRun, error) {
	var runs []models.TransformRun
	err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
