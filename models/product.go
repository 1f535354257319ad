package models

import (
	"time"
)

type ProductCatalog struct {
	ProductID   int64      `gorm:"primaryKey" json:"product_id"`
	ProductName string     `json:"product_name"`
	Category    string     `json:"category"`
	Brand       string     `json:"brand"`
	Price       float64    `gorm:"type:numeric(10,2)" json:"price"`
	LaunchDate  *time.Time `gorm:"type:date" json:"launch_date"`
}

func (ProductCatalog) TableName() string { return "product_catalog" }
