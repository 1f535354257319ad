package controllers

import (
	"context"
	"net/http"

	"cdp-analytics/services"
	"cdp-analytics/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MetricsReader is the read side of the dashboard.
type MetricsReader interface {
	KPIs(ctx context.Context) (services.KPIs, error)
	CustomerSegments(ctx context.Context) (services.Chart, error)
	MonthlyRevenue(ctx context.Context) (services.Chart, error)
	TopCustomers(ctx context.Context) ([]services.TopCustomer, error)
	ProductCategoryPerformance(ctx context.Context) (services.Chart, error)
	CustomerSatisfaction(ctx context.Context) (services.Chart, error)
	ChurnRisk(ctx context.Context) (services.Chart, error)
	RFMSegmentation(ctx context.Context) (services.Chart, error)
}

// DashboardController serves the chart payloads consumed by the dashboard UI.
type DashboardController struct {
	metrics MetricsReader
	logger  *zap.Logger
}

func NewDashboardController(metrics MetricsReader, logger *zap.Logger) *DashboardController {
	return &DashboardController{metrics: metrics, logger: logger}
}

// serve writes the metric as JSON, or a 500 naming the metric.
func serve[T any](dc *DashboardController, c *gin.Context, name string, load func(context.Context) (T, error)) {
	payload, err := load(c.Request.Context())
	if err != nil {
		dc.logger.Error("metric query failed", zap.String("metric", name), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load "+name)
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (dc *DashboardController) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the CDP dashboard API"})
}

func (dc *DashboardController) GetKPIs(c *gin.Context) {
	serve(dc, c, "kpis", dc.metrics.KPIs)
}

func (dc *DashboardController) GetCustomerSegments(c *gin.Context) {
	serve(dc, c, "customer segments", dc.metrics.CustomerSegments)
}

func (dc *DashboardController) GetMonthlyRevenue(c *gin.Context) {
	serve(dc, c, "monthly revenue", dc.metrics.MonthlyRevenue)
}

func (dc *DashboardController) GetTopCustomers(c *gin.Context) {
	serve(dc, c, "top customers", dc.metrics.TopCustomers)
}

func (dc *DashboardController) GetProductCategoryPerformance(c *gin.Context) {
	serve(dc, c, "product category performance", dc.metrics.ProductCategoryPerformance)
}

func (dc *DashboardController) GetCustomerSatisfaction(c *gin.Context) {
	serve(dc, c, "customer satisfaction", dc.metrics.CustomerSatisfaction)
}

func (dc *DashboardController) GetChurnRisk(c *gin.Context) {
	serve(dc, c, "churn risk", dc.metrics.ChurnRisk)
}

func (dc *DashboardController) GetRFMSegmentation(c *gin.Context) {
	serve(dc, c, "rfm segmentation", dc.metrics.RFMSegmentation)
}
