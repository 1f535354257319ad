package routes

import (
	"context"
	"net/http"
	"time"

	"cdp-analytics/config"
	"cdp-analytics/controllers"
	"cdp-analytics/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers bundles the controllers mounted by SetupRouter.
type Handlers struct {
	Auth      *controllers.AuthController
	Dashboard *controllers.DashboardController
	Customers *controllers.CustomerController
	ETL       *controllers.ETLController
	Reports   *controllers.ReportController

	// Ready reports whether the database answers; nil skips the check.
	Ready func(ctx context.Context) error
}

func SetupRouter(cfg *config.Config, logger *zap.Logger, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(config.RequestID())
	r.Use(config.PerformanceLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		if h.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := h.Ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Dashboard metrics are public, like the charts that consume them
	d := h.Dashboard
	r.GET("/", d.Home)
	r.GET("/kpis", d.GetKPIs)
	r.GET("/customer_segments", d.GetCustomerSegments)
	r.GET("/monthly_revenue", d.GetMonthlyRevenue)
	r.GET("/top_customers", d.GetTopCustomers)
	r.GET("/product_category_performance", d.GetProductCategoryPerformance)
	r.GET("/customer_satisfaction", d.GetCustomerSatisfaction)
	r.GET("/churn_risk", d.GetChurnRisk)
	r.GET("/rfm_segmentation", d.GetRFMSegmentation)

	authMiddleware := utils.AuthMiddleware(cfg.JWT.Secret)

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.GET("/me", authMiddleware, h.Auth.Me)
	}

	api := r.Group("/api")
	api.Use(authMiddleware)
	{
		customers := api.Group("/customers")
		{
			customers.GET("", h.Customers.GetCustomers)
			customers.GET("/export", h.Customers.ExportCustomers)
			customers.GET("/:id", h.Customers.GetCustomer)
		}

		etl := api.Group("/etl")
		{
			etl.POST("/run", utils.RequireRole(controllers.RoleAdmin), h.ETL.RunTransform)
			etl.GET("/runs", h.Reports.GetRuns)
			etl.GET("/integrity", h.Reports.GetIntegrityReport)
		}
	}

	return r
}
