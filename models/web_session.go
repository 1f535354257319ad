package models

import (
	"time"
)

type WebSession struct {
	SessionID   int64     `gorm:"primaryKey" json:"session_id"`
	CustomerID  int64     `gorm:"index;not null" json:"customer_id"`
	VisitDate   time.Time `gorm:"type:date" json:"visit_date"`
	PagesViewed int       `json:"pages_viewed"`
	TimeSpent   int       `json:"time_spent"` // seconds
	Source      string    `json:"source"`
}

func (WebSession) TableName() string { return "website_behavior" }
