package services

import (
	"context"
	"fmt"

	"cdp-analytics/models"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// CustomerPage is one page of customer_360 rows.
type CustomerPage struct {
	Customers []models.Customer360 `json:"customers"`
	Total     int64                `json:"total"`
	Page      int                  `json:"page"`
	PageSize  int                  `json:"pageSize"`
}

// CustomerService reads the committed customer_360 snapshot.
type CustomerService struct {
	db *gorm.DB
}

func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{db: db}
}

// NormalizePage clamps paging input to sane bounds.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func (s *CustomerService) List(ctx context.Context, filter CustomerFilter, page, pageSize int) (*CustomerPage, error) {
	page, pageSize = NormalizePage(page, pageSize)

	var total int64
	if err := filter.apply(s.db.WithContext(ctx).Model(&models.Customer360{})).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count customer_360: %w", err)
	}

	out := &CustomerPage{Customers: []models.Customer360{}, Total: total, Page: page, PageSize: pageSize}
	err := filter.apply(s.db.WithContext(ctx).Model(&models.Customer360{})).
		Order("customer_id").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&out.Customers).Error
	if err != nil {
		return nil, fmt.Errorf("list customer_360: %w", err)
	}
	return out, nil
}

// Get returns gorm.ErrRecordNotFound (wrapped) for unknown ids.
func (s *CustomerService) Get(ctx context.Context, id int64) (*models.Customer360, error) {
	var row models.Customer360
	if err := s.db.WithContext(ctx).First(&row, "customer_id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("load customer %d: %w", id, err)
	}
	return &row, nil
}
