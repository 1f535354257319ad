package services

import (
	"context"
	"sync"
	"testing"

	"cdp-analytics/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultSeedCounts(t *testing.T) {
	c := DefaultSeedCounts()
	assert.Equal(t, 1000, c.Customers)
	assert.Equal(t, 20000, c.WebSessions)
	assert.Equal(t, 38120, c.Total())
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Soap", capitalize("soap"))
	assert.Equal(t, "", capitalize(""))
}

func TestSeederGeneratesReferencesFromParentIDs(t *testing.T) {
	s := NewSeeder(nil, 42, 0, zap.NewNop())
	assert.Equal(t, 500, s.batchSize)

	customers := []int64{10, 20, 30}
	products := []int64{7}
	rows := s.purchases(50, customers, products)
	require.Len(t, rows, 50)
	for _, r := range rows {
		assert.Contains(t, customers, r.CustomerID)
		assert.Equal(t, int64(7), r.ProductID)
		assert.GreaterOrEqual(t, r.TotalAmount, 10.0)
		assert.LessOrEqual(t, r.TotalAmount, 500.0)
		assert.False(t, r.PurchaseDate.After(s.now))
	}

	assert.Nil(t, s.sessions(5, nil), "no customers means no sessions")
}

func TestSeederSeedsEveryTable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	var mu sync.Mutex
	progress := map[string]int{}

	s := NewSeeder(db, 1, 25, zap.NewNop())
	s.Progress = func(table string, rows int) {
		mu.Lock()
		progress[table] += rows
		mu.Unlock()
	}

	counts := SeedCounts{
		Customers: 40, Products: 10, Campaigns: 5,
		Purchases: 80, SupportInteractions: 30, CampaignResponses: 60, WebSessions: 70,
	}
	require.NoError(t, s.Seed(ctx, counts))

	expect := map[string]int{
		"customer_info":         40,
		"product_catalog":       10,
		"marketing_campaigns":   5,
		"purchase_transactions": 80,
		"customer_service":      30,
		"campaign_responses":    60,
		"website_behavior":      70,
	}
	for table, n := range expect {
		var got int64
		require.NoError(t, db.Table(table).Count(&got).Error)
		assert.Equal(t, int64(n), got, table)
		assert.Equal(t, n, progress[table], table)
	}

	require.NoError(t, s.Reset(ctx))
	var left int64
	require.NoError(t, db.Table("customer_info").Count(&left).Error)
	assert.Zero(t, left)
}
