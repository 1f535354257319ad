// controllers/report.go
package controllers

import (
	"context"
	"net/http"
	"strconv"

	"cdp-analytics/etl"
	"cdp-analytics/models"
	"cdp-analytics/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RunReporter interface {
	Verify(ctx context.Context) (*etl.IntegrityReport, error)
	RecentRuns(ctx context.Context, limit int) ([]models.TransformRun, error)
}

// ReportController handles integrity and run-history reporting
type ReportController struct {
	reports RunReporter
	logger  *zap.Logger
}

func NewReportController(reports RunReporter, logger *zap.Logger) *ReportController {
	return &ReportController{reports: reports, logger: logger}
}

// GetIntegrityReport reconciles the current snapshot against the raw tables.
// A failing check is reported with 200; only an unrunnable suite is an error.
func (rc *ReportController) GetIntegrityReport(c *gin.Context) {
	report, err := rc.reports.Verify(c.Request.Context())
	if err != nil {
		rc.logger.Error("integrity verification failed", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to run integrity checks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"passed":    report.Passed(),
		"checkedAt": report.CheckedAt,
		"checks":    report.Checks,
	})
}

// GetRuns lists recent transform runs, newest first
func (rc *ReportController) GetRuns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := rc.reports.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		rc.logger.Error("list runs failed", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
