package models

import (
	"time"
)

// Customer segments, derived from lifetime value.
const (
	SegmentHigh   = "High Value"
	SegmentMedium = "Medium Value"
	SegmentLow    = "Low Value"
)

// Churn risk buckets, derived from purchase recency.
const (
	ChurnHigh   = "High"
	ChurnMedium = "Medium"
	ChurnLow    = "Low"
)

// Customer360 is one row of the consolidated customer view. Nil pointers are
// NULL columns: the customer had no activity in that domain.
type Customer360 struct {
	CustomerID       int64      `gorm:"primaryKey;autoIncrement:false" json:"customer_id"`
	FirstName        *string    `json:"first_name"`
	LastName         *string    `json:"last_name"`
	Email            *string    `json:"email"`
	PhoneNumber      *string    `json:"phone_number"`
	DateOfBirth      *time.Time `gorm:"type:date" json:"date_of_birth"`
	RegistrationDate *time.Time `gorm:"type:date" json:"registration_date"`

	TotalLifetimeValue      float64    `gorm:"type:numeric(14,2);not null" json:"total_lifetime_value"`
	TotalPurchases          int64      `gorm:"not null" json:"total_purchases"`
	LastPurchaseDate        *time.Time `gorm:"type:date" json:"last_purchase_date"`
	AverageOrderValue       *float64   `json:"average_order_value"`
	FavoriteProductCategory *string    `json:"favorite_product_category"`
	FavoriteBrand           *string    `json:"favorite_brand"`

	LastInteractionDate       *time.Time `gorm:"type:date" json:"last_interaction_date"`
	LastInteractionType       *string    `json:"last_interaction_type"`
	AverageSatisfactionScore  *float64   `json:"average_satisfaction_score"`
	TotalWebsiteVisits        *int64     `json:"total_website_visits"`
	AverageTimeSpentOnSite    *float64   `json:"average_time_spent_on_site"`
	MostViewedProductCategory *string    `json:"most_viewed_product_category"`

	CampaignResponseRate      *float64 `json:"campaign_response_rate"`
	PreferredMarketingChannel *string  `json:"preferred_marketing_channel"`

	CustomerSegment string  `gorm:"not null" json:"customer_segment"`
	RecencyScore    *int    `json:"recency_score"`
	FrequencyScore  int64   `gorm:"not null" json:"frequency_score"`
	MonetaryScore   float64 `gorm:"type:numeric(14,2);not null" json:"monetary_score"`
	ChurnRiskScore  string  `gorm:"not null" json:"churn_risk_score"`
}

func (Customer360) TableName() string { return "customer_360" }
