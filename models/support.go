package models

import (
	"time"
)

// SupportInteraction is one customer service contact.
type SupportInteraction struct {
	InteractionID     int64     `gorm:"primaryKey" json:"interaction_id"`
	CustomerID        int64     `gorm:"index;not null" json:"customer_id"`
	InteractionDate   time.Time `gorm:"type:date" json:"interaction_date"`
	InteractionType   string    `json:"interaction_type"` // complaint, inquiry, feedback
	ProductID         *int64    `json:"product_id"`
	ResolutionStatus  string    `json:"resolution_status"` // resolved, pending, escalated
	SatisfactionScore int       `json:"satisfaction_score"`
}

func (SupportInteraction) TableName() string { return "customer_service" }
