package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"cdp-analytics/services"
	"cdp-analytics/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMetrics struct {
	err error
}

func (f fakeMetrics) chart(kind string) (services.Chart, error) {
	if f.err != nil {
		return services.Chart{}, f.err
	}
	return services.Chart{Type: kind, Title: kind, Labels: []string{"a"}, Values: []float64{1}}, nil
}

func (f fakeMetrics) KPIs(context.Context) (services.KPIs, error) {
	if f.err != nil {
		return services.KPIs{}, f.err
	}
	return services.KPIs{TotalCustomers: 3, TotalLifetimeValue: 1500.25, AverageOrderValue: 75, RetentionRate: 66.67}, nil
}

func (f fakeMetrics) CustomerSegments(context.Context) (services.Chart, error) { return f.chart("pie") }
func (f fakeMetrics) MonthlyRevenue(context.Context) (services.Chart, error)   { return f.chart("line") }
func (f fakeMetrics) ProductCategoryPerformance(context.Context) (services.Chart, error) {
	return f.chart("bar")
}
func (f fakeMetrics) CustomerSatisfaction(context.Context) (services.Chart, error) {
	return f.chart("gauge")
}
func (f fakeMetrics) ChurnRisk(context.Context) (services.Chart, error) { return f.chart("pie") }
func (f fakeMetrics) RFMSegmentation(context.Context) (services.Chart, error) {
	return f.chart("scatter3d")
}

func (f fakeMetrics) TopCustomers(context.Context) ([]services.TopCustomer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []services.TopCustomer{{CustomerID: 1, FirstName: "Ada", TotalLifetimeValue: 1200}}, nil
}

func dashboardRouter(m MetricsReader) *DashboardController {
	return NewDashboardController(m, zap.NewNop())
}

func TestDashboardServesEveryMetric(t *testing.T) {
	dc := dashboardRouter(fakeMetrics{})
	r := testutil.SetupRouter()
	r.GET("/kpis", dc.GetKPIs)
	r.GET("/customer_segments", dc.GetCustomerSegments)
	r.GET("/monthly_revenue", dc.GetMonthlyRevenue)
	r.GET("/product_category_performance", dc.GetProductCategoryPerformance)
	r.GET("/customer_satisfaction", dc.GetCustomerSatisfaction)
	r.GET("/churn_risk", dc.GetChurnRisk)
	r.GET("/rfm_segmentation", dc.GetRFMSegmentation)

	charts := map[string]string{
		"/customer_segments":            "pie",
		"/monthly_revenue":              "line",
		"/product_category_performance": "bar",
		"/customer_satisfaction":        "gauge",
		"/churn_risk":                   "pie",
		"/rfm_segmentation":             "scatter3d",
	}
	for path, kind := range charts {
		w := testutil.DoRequest(r, http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, kind, testutil.ParseResponse(w)["type"], path)
	}

	w := testutil.DoRequest(r, http.MethodGet, "/kpis", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := testutil.ParseResponse(w)
	assert.Equal(t, 3.0, body["total_customers"])
	assert.Equal(t, 66.67, body["retention_rate"])
}

func TestDashboardTopCustomersIsAList(t *testing.T) {
	dc := dashboardRouter(fakeMetrics{})
	r := testutil.SetupRouter()
	r.GET("/top_customers", dc.GetTopCustomers)

	w := testutil.DoRequest(r, http.MethodGet, "/top_customers", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var top []services.TopCustomer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &top))
	require.Len(t, top, 1)
	assert.Equal(t, "Ada", top[0].FirstName)
}

func TestDashboardMetricFailure(t *testing.T) {
	dc := dashboardRouter(fakeMetrics{err: errors.New("relation \"customer_360\" does not exist")})
	r := testutil.SetupRouter()
	r.GET("/churn_risk", dc.GetChurnRisk)

	w := testutil.DoRequest(r, http.MethodGet, "/churn_risk", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to load churn risk", testutil.ParseResponse(w)["error"])
}
