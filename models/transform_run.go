package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusSkipped   = "skipped" // another rebuild held the lock
)

// TransformRun is the audit record of one customer_360 rebuild.
type TransformRun struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Trigger         string     `gorm:"type:varchar(20)" json:"trigger"` // api, schedule, cli
	Status          string     `gorm:"type:varchar(20);index" json:"status"`
	RowsWritten     int64      `json:"rows_written"`
	IntegrityPassed *bool      `json:"integrity_passed"`
	ErrorMessage    string     `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt       time.Time  `gorm:"index" json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
}

func (r *TransformRun) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
