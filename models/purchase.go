package models

import (
	"time"
)

// PurchaseTransaction is an append-only purchase fact.
type PurchaseTransaction struct {
	TransactionID int64     `gorm:"primaryKey" json:"transaction_id"`
	CustomerID    int64     `gorm:"index;not null" json:"customer_id"`
	ProductID     int64     `gorm:"index;not null" json:"product_id"`
	PurchaseDate  time.Time `gorm:"type:date" json:"purchase_date"`
	Quantity      int       `json:"quantity"`
	TotalAmount   float64   `gorm:"type:numeric(12,2)" json:"total_amount"`
	StoreID       int       `json:"store_id"`
}

func (PurchaseTransaction) TableName() string { return "purchase_transactions" }
