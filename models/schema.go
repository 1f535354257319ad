package models

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// RawTables lists the source relations in foreign-key order: parents first.
var RawTables = []string{
	"customer_info",
	"product_catalog",
	"marketing_campaigns",
	"purchase_transactions",
	"customer_service",
	"campaign_responses",
	"website_behavior",
}

var schemaStatements = []struct {
	Table string
	SQL   string
}{
	{"customer_info", `CREATE TABLE IF NOT EXISTS customer_info (
		customer_id SERIAL PRIMARY KEY,
		first_name TEXT,
		last_name TEXT,
		email TEXT,
		phone_number TEXT,
		date_of_birth DATE,
		registration_date DATE
	)`},
	{"product_catalog", `CREATE TABLE IF NOT EXISTS product_catalog (
		product_id SERIAL PRIMARY KEY,
		product_name TEXT,
		category TEXT,
		brand TEXT,
		price NUMERIC(10,2),
		launch_date DATE
	)`},
	{"marketing_campaigns", `CREATE TABLE IF NOT EXISTS marketing_campaigns (
		campaign_id SERIAL PRIMARY KEY,
		campaign_name TEXT,
		start_date DATE,
		end_date DATE,
		channel TEXT,
		target_audience TEXT
	)`},
	{"purchase_transactions", `CREATE TABLE IF NOT EXISTS purchase_transactions (
		transaction_id SERIAL PRIMARY KEY,
		customer_id INTEGER NOT NULL REFERENCES customer_info (customer_id),
		product_id INTEGER NOT NULL REFERENCES product_catalog (product_id),
		purchase_date DATE,
		quantity INTEGER,
		total_amount NUMERIC(12,2),
		store_id INTEGER
	)`},
	{"customer_service", `CREATE TABLE IF NOT EXISTS customer_service (
		interaction_id SERIAL PRIMARY KEY,
		customer_id INTEGER NOT NULL REFERENCES customer_info (customer_id),
		interaction_date DATE,
		interaction_type TEXT,
		product_id INTEGER REFERENCES product_catalog (product_id),
		resolution_status TEXT,
		satisfaction_score INTEGER CHECK (satisfaction_score BETWEEN 1 AND 10)
	)`},
	{"campaign_responses", `CREATE TABLE IF NOT EXISTS campaign_responses (
		response_id SERIAL PRIMARY KEY,
		campaign_id INTEGER NOT NULL REFERENCES marketing_campaigns (campaign_id),
		customer_id INTEGER NOT NULL REFERENCES customer_info (customer_id),
		response_date DATE,
		response_type TEXT
	)`},
	{"website_behavior", `CREATE TABLE IF NOT EXISTS website_behavior (
		session_id SERIAL PRIMARY KEY,
		customer_id INTEGER NOT NULL REFERENCES customer_info (customer_id),
		visit_date DATE,
		pages_viewed INTEGER,
		time_spent INTEGER,
		source TEXT
	)`},
	{"customer_360", `CREATE TABLE IF NOT EXISTS customer_360 (
		customer_id INTEGER PRIMARY KEY,
		first_name TEXT,
		last_name TEXT,
		email TEXT,
		phone_number TEXT,
		date_of_birth DATE,
		registration_date DATE,
		total_lifetime_value NUMERIC(14,2) NOT NULL,
		total_purchases BIGINT NOT NULL,
		last_purchase_date DATE,
		average_order_value DOUBLE PRECISION,
		favorite_product_category TEXT,
		favorite_brand TEXT,
		last_interaction_date DATE,
		last_interaction_type TEXT,
		average_satisfaction_score DOUBLE PRECISION,
		total_website_visits BIGINT,
		average_time_spent_on_site DOUBLE PRECISION,
		most_viewed_product_category TEXT,
		campaign_response_rate DOUBLE PRECISION,
		preferred_marketing_channel TEXT,
		customer_segment TEXT NOT NULL,
		recency_score INTEGER,
		frequency_score BIGINT NOT NULL,
		monetary_score NUMERIC(14,2) NOT NULL,
		churn_risk_score TEXT NOT NULL
	)`},
	{"customer_360", `CREATE INDEX IF NOT EXISTS idx_customer_360_segment ON customer_360 (customer_segment)`},
	{"customer_360", `CREATE INDEX IF NOT EXISTS idx_customer_360_churn ON customer_360 (churn_risk_score)`},
}

// Migrate creates the raw schema, the customer_360 target and the
// application tables. Every statement is idempotent.
func Migrate(ctx context.Context, db *gorm.DB) error {
	for _, stmt := range schemaStatements {
		if err := db.WithContext(ctx).Exec(stmt.SQL).Error; err != nil {
			return fmt.Errorf("create %s: %w", stmt.Table, err)
		}
	}

	if err := db.WithContext(ctx).AutoMigrate(&User{}, &TransformRun{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
