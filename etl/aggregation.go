package etl

import (
	"context"
	"time"

	"cdp-analytics/models"

	"gorm.io/gorm"
)

// PurchaseStats is one customer's purchase totals. Only customers with at
// least one purchase have a row.
type PurchaseStats struct {
	CustomerID         int64
	TotalLifetimeValue float64
	TotalPurchases     int64
	LastPurchaseDate   *time.Time
	AverageOrderValue  float64
}

// Favorites holds the most purchased category and brand.
type Favorites struct {
	CustomerID int64
	Category   *string
	Brand      *string
}

type SupportSummary struct {
	CustomerID               int64
	LastInteractionDate      *time.Time
	LastInteractionType      *string
	AverageSatisfactionScore *float64
}

type WebSummary struct {
	CustomerID             int64
	TotalWebsiteVisits     int64
	AverageTimeSpentOnSite *float64
	MostViewedCategory     *string
}

type CampaignSummary struct {
	CustomerID         int64
	EngagedResponses   int64
	CampaignsResponded int64
	ResponseRate       float64
	PreferredChannel   *string
}

// Aggregates is the complete output of the aggregation stage, keyed by
// customer id. Customers lists the whole base in id order.
type Aggregates struct {
	Customers []models.CustomerInfo
	Purchases map[int64]PurchaseStats
	Favorites map[int64]Favorites
	Support   map[int64]SupportSummary
	Web       map[int64]WebSummary
	Campaigns map[int64]CampaignSummary
}

const baseCustomersSQL = `
SELECT customer_id,
       first_name,
       last_name,
       email,
       phone_number,
       date_of_birth,
       registration_date
FROM customer_info
ORDER BY customer_id`

const purchaseStatsSQL = `
SELECT customer_id,
       COALESCE(SUM(total_amount), 0) AS total_lifetime_value,
       COUNT(DISTINCT transaction_id) AS total_purchases,
       MAX(purchase_date) AS last_purchase_date,
       COALESCE(AVG(total_amount), 0)::float8 AS average_order_value
FROM purchase_transactions
GROUP BY customer_id`

const categoryCountsSQL = `
SELECT pt.customer_id, pc.category AS value, COUNT(*) AS hits
FROM purchase_transactions pt
JOIN product_catalog pc ON pt.product_id = pc.product_id
WHERE pc.category IS NOT NULL
GROUP BY pt.customer_id, pc.category`

const brandCountsSQL = `
SELECT pt.customer_id, pc.brand AS value, COUNT(*) AS hits
FROM purchase_transactions pt
JOIN product_catalog pc ON pt.product_id = pc.product_id
WHERE pc.brand IS NOT NULL
GROUP BY pt.customer_id, pc.brand`

const supportStatsSQL = `
SELECT customer_id,
       MAX(interaction_date) AS last_interaction_date,
       AVG(satisfaction_score)::float8 AS average_satisfaction_score
FROM customer_service
GROUP BY customer_id`

// Latest interaction wins; the higher interaction id breaks same-day ties.
const lastInteractionSQL = `
SELECT DISTINCT ON (customer_id) customer_id, interaction_type AS value
FROM customer_service
ORDER BY customer_id, interaction_date DESC NULLS LAST, interaction_id DESC`

const webStatsSQL = `
SELECT customer_id,
       COUNT(DISTINCT session_id) AS total_website_visits,
       AVG(time_spent)::float8 AS average_time_spent_on_site
FROM website_behavior
GROUP BY customer_id`

// pages_viewed is matched against product_id. Kept as-is so existing
// dashboards keep their numbers; see DESIGN.md.
const viewedCategoryCountsSQL = `
SELECT wb.customer_id, pc.category AS value, COUNT(*) AS hits
FROM website_behavior wb
JOIN product_catalog pc ON wb.pages_viewed = pc.product_id
WHERE pc.category IS NOT NULL
GROUP BY wb.customer_id, pc.category`

const campaignStatsSQL = `
SELECT customer_id,
       SUM(CASE WHEN response_type IN ('click', 'purchase') THEN 1 ELSE 0 END) AS engaged_responses,
       COUNT(DISTINCT campaign_id) AS campaigns_responded
FROM campaign_responses
GROUP BY customer_id`

const channelCountsSQL = `
SELECT cr.customer_id, mc.channel AS value, COUNT(*) AS hits
FROM campaign_responses cr
JOIN marketing_campaigns mc ON cr.campaign_id = mc.campaign_id
WHERE mc.channel IS NOT NULL
GROUP BY cr.customer_id, mc.channel`

// valueCount is one (customer, value) group with its occurrence count.
type valueCount struct {
	CustomerID int64
	Value      string
	Hits       int64
}

// pickModes returns the most frequent value per customer. Ties go to the
// lexicographically smallest value so reruns agree.
func pickModes(rows []valueCount) map[int64]string {
	best := make(map[int64]valueCount, len(rows))
	for _, r := range rows {
		cur, ok := best[r.CustomerID]
		if !ok || r.Hits > cur.Hits || (r.Hits == cur.Hits && r.Value < cur.Value) {
			best[r.CustomerID] = r
		}
	}

	modes := make(map[int64]string, len(best))
	for id, r := range best {
		modes[id] = r.Value
	}
	return modes
}

// ResponseRate is engaged responses over distinct campaigns responded to,
// 0 when the customer responded to none.
func ResponseRate(engaged, campaigns int64) float64 {
	if campaigns == 0 {
		return 0
	}
	return float64(engaged) / float64(campaigns)
}

func strPtr(s string) *string { return &s }

// Aggregate runs every aggregate family against tx. All reads share tx so
// they observe one snapshot of the raw tables.
func Aggregate(ctx context.Context, tx *gorm.DB) (*Aggregates, error) {
	db := tx.WithContext(ctx)
	agg := &Aggregates{}

	if err := db.Raw(baseCustomersSQL).Scan(&agg.Customers).Error; err != nil {
		return nil, stageErr(StageBaseCustomers, err)
	}

	var err error
	if agg.Purchases, err = purchaseStats(db); err != nil {
		return nil, stageErr(StagePurchaseStats, err)
	}
	if agg.Favorites, err = favorites(db); err != nil {
		return nil, stageErr(StageFavorites, err)
	}
	if agg.Support, err = supportSummary(db); err != nil {
		return nil, stageErr(StageSupportSummary, err)
	}
	if agg.Web, err = webSummary(db); err != nil {
		return nil, stageErr(StageWebSummary, err)
	}
	if agg.Campaigns, err = campaignSummary(db); err != nil {
		return nil, stageErr(StageCampaignSummary, err)
	}
	return agg, nil
}

func purchaseStats(db *gorm.DB) (map[int64]PurchaseStats, error) {
	var rows []PurchaseStats
	if err := db.Raw(purchaseStatsSQL).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[int64]PurchaseStats, len(rows))
	for _, r := range rows {
		out[r.CustomerID] = r
	}
	return out, nil
}

func favorites(db *gorm.DB) (map[int64]Favorites, error) {
	var categories, brands []valueCount
	if err := db.Raw(categoryCountsSQL).Scan(&categories).Error; err != nil {
		return nil, err
	}
	if err := db.Raw(brandCountsSQL).Scan(&brands).Error; err != nil {
		return nil, err
	}

	out := make(map[int64]Favorites)
	for id, category := range pickModes(categories) {
		f := out[id]
		f.CustomerID = id
		f.Category = strPtr(category)
		out[id] = f
	}
	for id, brand := range pickModes(brands) {
		f := out[id]
		f.CustomerID = id
		f.Brand = strPtr(brand)
		out[id] = f
	}
	return out, nil
}

func supportSummary(db *gorm.DB) (map[int64]SupportSummary, error) {
	var stats []struct {
		CustomerID               int64
		LastInteractionDate      *time.Time
		AverageSatisfactionScore *float64
	}
	if err := db.Raw(supportStatsSQL).Scan(&stats).Error; err != nil {
		return nil, err
	}

	var latest []struct {
		CustomerID int64
		Value      *string
	}
	if err := db.Raw(lastInteractionSQL).Scan(&latest).Error; err != nil {
		return nil, err
	}

	out := make(map[int64]SupportSummary, len(stats))
	for _, s := range stats {
		out[s.CustomerID] = SupportSummary{
			CustomerID:               s.CustomerID,
			LastInteractionDate:      s.LastInteractionDate,
			AverageSatisfactionScore: s.AverageSatisfactionScore,
		}
	}
	for _, l := range latest {
		s := out[l.CustomerID]
		s.LastInteractionType = l.Value
		out[l.CustomerID] = s
	}
	return out, nil
}

func webSummary(db *gorm.DB) (map[int64]WebSummary, error) {
	var rows []WebSummary
	if err := db.Raw(webStatsSQL).Scan(&rows).Error; err != nil {
		return nil, err
	}

	var viewed []valueCount
	if err := db.Raw(viewedCategoryCountsSQL).Scan(&viewed).Error; err != nil {
		return nil, err
	}
	modes := pickModes(viewed)

	out := make(map[int64]WebSummary, len(rows))
	for _, r := range rows {
		if category, ok := modes[r.CustomerID]; ok {
			r.MostViewedCategory = strPtr(category)
		}
		out[r.CustomerID] = r
	}
	return out, nil
}

func campaignSummary(db *gorm.DB) (map[int64]CampaignSummary, error) {
	var rows []CampaignSummary
	if err := db.Raw(campaignStatsSQL).Scan(&rows).Error; err != nil {
		return nil, err
	}

	var channels []valueCount
	if err := db.Raw(channelCountsSQL).Scan(&channels).Error; err != nil {
		return nil, err
	}
	modes := pickModes(channels)

	out := make(map[int64]CampaignSummary, len(rows))
	for _, r := range rows {
		r.ResponseRate = ResponseRate(r.EngagedResponses, r.CampaignsResponded)
		if channel, ok := modes[r.CustomerID]; ok {
			r.PreferredChannel = strPtr(channel)
		}
		out[r.CustomerID] = r
	}
	return out, nil
}
