package services

import (
	"context"
	"testing"

	"cdp-analytics/models"
	"cdp-analytics/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNormalizePage(t *testing.T) {
	page, size := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, defaultPageSize, size)

	_, size = NormalizePage(3, 10_000)
	assert.Equal(t, maxPageSize, size)
}

func TestCustomerServiceListAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	rows := []models.Customer360{
		{CustomerID: 1, FirstName: ptr("Ada"), LastName: ptr("Lovelace"), Email: ptr("ada@example.com"), CustomerSegment: models.SegmentHigh, ChurnRiskScore: models.ChurnLow},
		{CustomerID: 2, FirstName: ptr("Grace"), LastName: ptr("Hopper"), Email: ptr("grace@example.com"), CustomerSegment: models.SegmentLow, ChurnRiskScore: models.ChurnHigh},
		{CustomerID: 3, FirstName: ptr("Alan"), LastName: ptr("Turing"), Email: ptr("alan@example.com"), CustomerSegment: models.SegmentLow, ChurnRiskScore: models.ChurnLow},
	}
	require.NoError(t, db.Create(&rows).Error)

	svc := NewCustomerService(db)

	all, err := svc.List(ctx, CustomerFilter{}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	require.Len(t, all.Customers, 2)
	assert.Equal(t, int64(1), all.Customers[0].CustomerID)

	second, err := svc.List(ctx, CustomerFilter{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, second.Customers, 1)
	assert.Equal(t, int64(3), second.Customers[0].CustomerID)

	low, err := svc.List(ctx, CustomerFilter{Segment: models.SegmentLow, ChurnRisk: models.ChurnLow}, 1, 10)
	require.NoError(t, err)
	require.Len(t, low.Customers, 1)
	assert.Equal(t, "Alan", *low.Customers[0].FirstName)

	search, err := svc.List(ctx, CustomerFilter{Search: "HOPPER"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, search.Customers, 1)
	assert.Equal(t, int64(2), search.Customers[0].CustomerID)

	empty, err := svc.List(ctx, CustomerFilter{Search: "nobody"}, 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty.Customers)
	assert.Zero(t, empty.Total)

	got, err := svc.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Grace", *got.FirstName)

	_, err = svc.Get(ctx, 99)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
