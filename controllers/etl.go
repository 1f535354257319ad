package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cdp-analytics/etl"
	"cdp-analytics/models"
	"cdp-analytics/services"
	"cdp-analytics/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const runTimeout = 30 * time.Minute

type TransformRunner interface {
	Run(ctx context.Context, trigger string) (*models.TransformRun, *etl.IntegrityReport, error)
}

// ETLController lets operators trigger a customer_360 rebuild.
type ETLController struct {
	transform TransformRunner
	logger    *zap.Logger
}

func NewETLController(transform TransformRunner, logger *zap.Logger) *ETLController {
	return &ETLController{transform: transform, logger: logger}
}

// RunTransform rebuilds customer_360 synchronously and returns the run record.
// The rebuild is detached from the request so a dropped client cannot roll
// it back halfway.
func (ec *ETLController) RunTransform(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), runTimeout)
	defer cancel()

	run, report, err := ec.transform.Run(ctx, services.TriggerAPI)
	if err != nil {
		switch {
		case errors.Is(err, etl.ErrRunInProgress):
			utils.RespondWithError(c, http.StatusConflict, "A customer_360 rebuild is already running")
		case errors.Is(err, etl.ErrStoreUnavailable):
			utils.RespondWithError(c, http.StatusServiceUnavailable, "Database unavailable")
		default:
			ec.logger.Error("transform run failed", zap.String("run_id", run.ID.String()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Transform failed",
				"run":   run,
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "customer_360 rebuilt",
		"run":       run,
		"integrity": report,
	})
}
