package etl

import (
	"time"

	"cdp-analytics/models"
	"cdp-analytics/utils"
)

const (
	highValueThreshold   = 1000.0
	mediumValueThreshold = 500.0

	highChurnDays   = 180
	mediumChurnDays = 90
)

// Segment buckets lifetime value. Nil counts as 0. Both thresholds are strict.
func Segment(ltv *float64) string {
	var v float64
	if ltv != nil {
		v = *ltv
	}
	switch {
	case v > highValueThreshold:
		return models.SegmentHigh
	case v > mediumValueThreshold:
		return models.SegmentMedium
	default:
		return models.SegmentLow
	}
}

// Recency is the number of whole days between the last purchase and today,
// nil when the customer never purchased.
func Recency(lastPurchase *time.Time, today time.Time) *int {
	if lastPurchase == nil {
		return nil
	}
	days := utils.DaysBetween(*lastPurchase, today)
	return &days
}

// ChurnRisk buckets recency. Customers with no recency are Low.
func ChurnRisk(recency *int) string {
	if recency == nil {
		return models.ChurnLow
	}
	switch {
	case *recency > highChurnDays:
		return models.ChurnHigh
	case *recency > mediumChurnDays:
		return models.ChurnMedium
	default:
		return models.ChurnLow
	}
}

// Derive flattens a consolidated profile into its customer_360 row.
func Derive(p ComprehensiveProfile, today time.Time) models.Customer360 {
	c := p.Customer
	rec := models.Customer360{
		CustomerID:       c.CustomerID,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		Email:            c.Email,
		PhoneNumber:      c.PhoneNumber,
		DateOfBirth:      c.DateOfBirth,
		RegistrationDate: c.RegistrationDate,
	}

	if s := p.Purchases; s != nil {
		rec.TotalLifetimeValue = s.TotalLifetimeValue
		rec.TotalPurchases = s.TotalPurchases
		rec.LastPurchaseDate = s.LastPurchaseDate
		aov := s.AverageOrderValue
		rec.AverageOrderValue = &aov
	}
	if f := p.Favorites; f != nil {
		rec.FavoriteProductCategory = f.Category
		rec.FavoriteBrand = f.Brand
	}

	if e := p.Engagement; e != nil {
		rec.LastInteractionDate = e.Support.LastInteractionDate
		rec.LastInteractionType = e.Support.LastInteractionType
		rec.AverageSatisfactionScore = e.Support.AverageSatisfactionScore
		if w := e.Web; w != nil {
			visits := w.TotalWebsiteVisits
			rec.TotalWebsiteVisits = &visits
			rec.AverageTimeSpentOnSite = w.AverageTimeSpentOnSite
			rec.MostViewedProductCategory = w.MostViewedCategory
		}
	}

	if cs := p.Campaign; cs != nil {
		rate := cs.ResponseRate
		rec.CampaignResponseRate = &rate
		rec.PreferredMarketingChannel = cs.PreferredChannel
	}

	rec.CustomerSegment = Segment(&rec.TotalLifetimeValue)
	rec.RecencyScore = Recency(rec.LastPurchaseDate, today)
	rec.FrequencyScore = rec.TotalPurchases
	rec.MonetaryScore = rec.TotalLifetimeValue
	rec.ChurnRiskScore = ChurnRisk(rec.RecencyScore)
	return rec
}

// DeriveAll derives every profile against the same reference day.
func DeriveAll(profiles []ComprehensiveProfile, today time.Time) []models.Customer360 {
	records := make([]models.Customer360, 0, len(profiles))
	for _, p := range profiles {
		records = append(records, Derive(p, today))
	}
	return records
}

// CalendarDay pins t's local calendar date to UTC midnight, matching how
// DATE columns are scanned.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
