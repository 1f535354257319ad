package models

import (
	"time"
)

// CustomerInfo is the customer master record. The pipeline never writes to it.
type CustomerInfo struct {
	CustomerID       int64      `gorm:"primaryKey" json:"customer_id"`
	FirstName        *string    `json:"first_name"`
	LastName         *string    `json:"last_name"`
	Email            *string    `json:"email"`
	PhoneNumber      *string    `json:"phone_number"`
	DateOfBirth      *time.Time `gorm:"type:date" json:"date_of_birth"`
	RegistrationDate *time.Time `gorm:"type:date" json:"registration_date"`
}

func (CustomerInfo) TableName() string { return "customer_info" }
