package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"cdp-analytics/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var customer360ExportHeaders = []string{
	"Customer ID", "First Name", "Last Name", "Email", "Phone",
	"Lifetime Value", "Purchases", "Last Purchase", "Avg Order Value",
	"Favorite Category", "Favorite Brand",
	"Last Interaction", "Last Interaction Type", "Avg Satisfaction",
	"Website Visits", "Avg Time On Site", "Most Viewed Category",
	"Campaign Response Rate", "Preferred Channel",
	"Segment", "Recency", "Frequency", "Monetary", "Churn Risk",
}

const exportSheet = "Customer360"

// CustomerFilter narrows customer_360 listings and exports.
type CustomerFilter struct {
	Segment   string
	ChurnRisk string
	Search    string
}

func (f CustomerFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Segment != "" {
		q = q.Where("customer_segment = ?", f.Segment)
	}
	if f.ChurnRisk != "" {
		q = q.Where("churn_risk_score = ?", f.ChurnRisk)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?", like, like, like)
	}
	return q
}

type ExportService struct {
	db *gorm.DB
}

func NewExportService(db *gorm.DB) *ExportService {
	return &ExportService{db: db}
}

// ExportXLSX renders the filtered customer_360 snapshot as a workbook.
func (s *ExportService) ExportXLSX(ctx context.Context, filter CustomerFilter) (*bytes.Buffer, error) {
	var rows []models.Customer360
	q := filter.apply(s.db.WithContext(ctx).Model(&models.Customer360{}))
	if err := q.Order("customer_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load customer_360: %w", err)
	}

	f, err := BuildCustomer360Workbook(rows)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.WriteToBuffer()
}

// BuildCustomer360Workbook lays rows out one customer per line under a bold
// header row.
func BuildCustomer360Workbook(rows []models.Customer360) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range customer360ExportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, h)
		f.SetCellStyle(exportSheet, cell, cell, boldStyle)
	}

	for rowIdx, r := range rows {
		values := []interface{}{
			r.CustomerID, stringCell(r.FirstName), stringCell(r.LastName), stringCell(r.Email), stringCell(r.PhoneNumber),
			r.TotalLifetimeValue, r.TotalPurchases, dateCell(r.LastPurchaseDate), floatCell(r.AverageOrderValue),
			stringCell(r.FavoriteProductCategory), stringCell(r.FavoriteBrand),
			dateCell(r.LastInteractionDate), stringCell(r.LastInteractionType), floatCell(r.AverageSatisfactionScore),
			intCell(r.TotalWebsiteVisits), floatCell(r.AverageTimeSpentOnSite), stringCell(r.MostViewedProductCategory),
			floatCell(r.CampaignResponseRate), stringCell(r.PreferredMarketingChannel),
			r.CustomerSegment, recencyCell(r.RecencyScore), r.FrequencyScore, r.MonetaryScore, r.ChurnRiskScore,
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", rowIdx+2, err)
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}
	return f, nil
}

func dateCell(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func floatCell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func intCell(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func recencyCell(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func stringCell(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
