package controllers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cdp-analytics/models"
	"cdp-analytics/services"
	"cdp-analytics/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CustomerReader interface {
	List(ctx context.Context, filter services.CustomerFilter, page, pageSize int) (*services.CustomerPage, error)
	Get(ctx context.Context, id int64) (*models.Customer360, error)
}

type CustomerExporter interface {
	ExportXLSX(ctx context.Context, filter services.CustomerFilter) (*bytes.Buffer, error)
}

// CustomerQuery is bound from the query string of list and export requests.
type CustomerQuery struct {
	Segment   string `form:"segment" binding:"omitempty,oneof='High Value' 'Medium Value' 'Low Value'"`
	ChurnRisk string `form:"churn_risk" binding:"omitempty,oneof=High Medium Low"`
	Search    string `form:"q"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1"`
}

func (q CustomerQuery) filter() services.CustomerFilter {
	return services.CustomerFilter{Segment: q.Segment, ChurnRisk: q.ChurnRisk, Search: q.Search}
}

// CustomerController exposes the customer_360 snapshot.
type CustomerController struct {
	customers CustomerReader
	export    CustomerExporter
	logger    *zap.Logger
	now       func() time.Time
}

func NewCustomerController(customers CustomerReader, export CustomerExporter, logger *zap.Logger) *CustomerController {
	return &CustomerController{customers: customers, export: export, logger: logger, now: time.Now}
}

// GetCustomers lists customer_360 rows, filtered and paged
func (cc *CustomerController) GetCustomers(c *gin.Context) {
	var query CustomerQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid query: "+err.Error())
		return
	}

	page, err := cc.customers.List(c.Request.Context(), query.filter(), query.Page, query.PageSize)
	if err != nil {
		cc.logger.Error("list customers failed", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve customers")
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetCustomer retrieves one customer_360 row by customer id
func (cc *CustomerController) GetCustomer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	customer, err := cc.customers.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Customer not found")
		} else {
			cc.logger.Error("get customer failed", zap.Int64("customer_id", id), zap.Error(err))
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, customer)
}

// ExportCustomers streams the filtered snapshot as an xlsx attachment
func (cc *CustomerController) ExportCustomers(c *gin.Context) {
	var query CustomerQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid query: "+err.Error())
		return
	}

	buf, err := cc.export.ExportXLSX(c.Request.Context(), query.filter())
	if err != nil {
		cc.logger.Error("export customers failed", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to export customers")
		return
	}

	filename := fmt.Sprintf("customer_360_%s.xlsx", cc.now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
