package models

import (
	"time"
)

type MarketingCampaign struct {
	CampaignID     int64      `gorm:"primaryKey" json:"campaign_id"`
	CampaignName   string     `json:"campaign_name"`
	StartDate      *time.Time `gorm:"type:date" json:"start_date"`
	EndDate        *time.Time `gorm:"type:date" json:"end_date"`
	Channel        string     `json:"channel"`
	TargetAudience string     `json:"target_audience"`
}

func (MarketingCampaign) TableName() string { return "marketing_campaigns" }

// Response types counted as positive engagement.
const (
	ResponseClick       = "click"
	ResponsePurchase    = "purchase"
	ResponseUnsubscribe = "unsubscribe"
)

type CampaignResponse struct {
	ResponseID   int64     `gorm:"primaryKey" json:"response_id"`
	CampaignID   int64     `gorm:"index;not null" json:"campaign_id"`
	CustomerID   int64     `gorm:"index;not null" json:"customer_id"`
	ResponseDate time.Time `gorm:"type:date" json:"response_date"`
	ResponseType string    `json:"response_type"`
}

func (CampaignResponse) TableName() string { return "campaign_responses" }
