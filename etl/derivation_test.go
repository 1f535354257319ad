package etl

import (
	"testing"
	"time"

	"cdp-analytics/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float(v float64) *float64 { return &v }
func day(v int) *int           { return &v }

func TestSegment(t *testing.T) {
	tests := []struct {
		name string
		ltv  *float64
		want string
	}{
		{"nil is low", nil, models.SegmentLow},
		{"zero is low", float(0), models.SegmentLow},
		{"exactly 500 is low", float(500), models.SegmentLow},
		{"just above 500 is medium", float(500.01), models.SegmentMedium},
		{"exactly 1000 is medium", float(1000), models.SegmentMedium},
		{"just above 1000 is high", float(1000.01), models.SegmentHigh},
		{"large is high", float(25000), models.SegmentHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Segment(tt.ltv))
		})
	}
}

func TestChurnRisk(t *testing.T) {
	tests := []struct {
		name    string
		recency *int
		want    string
	}{
		{"no purchase is low", nil, models.ChurnLow},
		{"today is low", day(0), models.ChurnLow},
		{"exactly 90 is low", day(90), models.ChurnLow},
		{"91 is medium", day(91), models.ChurnMedium},
		{"exactly 180 is medium", day(180), models.ChurnMedium},
		{"181 is high", day(181), models.ChurnHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChurnRisk(tt.recency))
		})
	}
}

func TestRecency(t *testing.T) {
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	assert.Nil(t, Recency(nil, today))

	last := today.AddDate(0, 0, -181)
	got := Recency(&last, today)
	require.NotNil(t, got)
	assert.Equal(t, 181, *got)

	same := today
	got = Recency(&same, today)
	require.NotNil(t, got)
	assert.Equal(t, 0, *got)
}

func TestCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	local := time.Date(2024, 3, 10, 1, 30, 0, 0, loc)

	got := CalendarDay(local)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), got)
}

func TestDeriveNoActivityCustomer(t *testing.T) {
	p := ComprehensiveProfile{
		PurchaseProfile: PurchaseProfile{
			Customer: models.CustomerInfo{CustomerID: 7, FirstName: strPtr("Ada"), LastName: strPtr("Quiet")},
		},
	}

	rec := Derive(p, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, int64(7), rec.CustomerID)
	require.NotNil(t, rec.FirstName)
	assert.Equal(t, "Ada", *rec.FirstName)
	assert.Nil(t, rec.Email)
	assert.Nil(t, rec.PhoneNumber)
	assert.Zero(t, rec.TotalLifetimeValue)
	assert.Zero(t, rec.TotalPurchases)
	assert.Nil(t, rec.LastPurchaseDate)
	assert.Nil(t, rec.AverageOrderValue)
	assert.Nil(t, rec.FavoriteProductCategory)
	assert.Nil(t, rec.FavoriteBrand)
	assert.Nil(t, rec.LastInteractionDate)
	assert.Nil(t, rec.TotalWebsiteVisits)
	assert.Nil(t, rec.CampaignResponseRate)
	assert.Nil(t, rec.PreferredMarketingChannel)
	assert.Nil(t, rec.RecencyScore)
	assert.Zero(t, rec.FrequencyScore)
	assert.Zero(t, rec.MonetaryScore)
	assert.Equal(t, models.SegmentLow, rec.CustomerSegment)
	assert.Equal(t, models.ChurnLow, rec.ChurnRiskScore)
}

func TestDeriveActiveCustomer(t *testing.T) {
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	last := today.AddDate(0, 0, -120)
	lastContact := today.AddDate(0, 0, -3)
	category, brand, channel, kind := "Electronics", "Acme", "Email", "Complaint"

	p := ComprehensiveProfile{
		PurchaseProfile: PurchaseProfile{
			Customer: models.CustomerInfo{CustomerID: 1},
			Purchases: &PurchaseStats{
				CustomerID:         1,
				TotalLifetimeValue: 1200.50,
				TotalPurchases:     4,
				LastPurchaseDate:   &last,
				AverageOrderValue:  300.125,
			},
			Favorites: &Favorites{CustomerID: 1, Category: &category, Brand: &brand},
		},
		Engagement: &EngagementProfile{
			Support: SupportSummary{
				CustomerID:               1,
				LastInteractionDate:      &lastContact,
				LastInteractionType:      &kind,
				AverageSatisfactionScore: float(7.5),
			},
			Web: &WebSummary{CustomerID: 1, TotalWebsiteVisits: 12, AverageTimeSpentOnSite: float(33.3)},
		},
		Campaign: &CampaignSummary{CustomerID: 1, ResponseRate: 0.5, PreferredChannel: &channel},
	}

	rec := Derive(p, today)

	assert.Equal(t, 1200.50, rec.TotalLifetimeValue)
	assert.Equal(t, int64(4), rec.TotalPurchases)
	require.NotNil(t, rec.AverageOrderValue)
	assert.Equal(t, 300.125, *rec.AverageOrderValue)
	assert.Equal(t, &category, rec.FavoriteProductCategory)
	assert.Equal(t, &brand, rec.FavoriteBrand)
	assert.Equal(t, &kind, rec.LastInteractionType)
	require.NotNil(t, rec.TotalWebsiteVisits)
	assert.Equal(t, int64(12), *rec.TotalWebsiteVisits)
	assert.Nil(t, rec.MostViewedProductCategory)
	require.NotNil(t, rec.CampaignResponseRate)
	assert.Equal(t, 0.5, *rec.CampaignResponseRate)

	assert.Equal(t, models.SegmentHigh, rec.CustomerSegment)
	require.NotNil(t, rec.RecencyScore)
	assert.Equal(t, 120, *rec.RecencyScore)
	assert.Equal(t, models.ChurnMedium, rec.ChurnRiskScore)
	assert.Equal(t, rec.TotalPurchases, rec.FrequencyScore)
	assert.Equal(t, rec.TotalLifetimeValue, rec.MonetaryScore)
}
