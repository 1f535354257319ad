package etl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"
)

const DefaultSpendTolerance = 50.0

// Check names.
const (
	CheckCustomerCount     = "customer_count"
	CheckTotalSpend        = "total_spend"
	CheckPerCustomerSpend  = "per_customer_spend"
	CheckVisitCount        = "visit_count"
	CheckPurchaseCount     = "purchase_count"
	CheckPerCustomerOrders = "per_customer_frequency"
)

// CheckResult is one source-versus-snapshot comparison. For mismatch checks
// Expected is 0 and Actual is the number of offending customers.
type CheckResult struct {
	Name     string  `json:"name"`
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
	Passed   bool    `json:"passed"`
	Detail   string  `json:"detail,omitempty"`
}

type IntegrityReport struct {
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

func (r *IntegrityReport) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Err folds every failed check into one error, nil when all passed.
func (r *IntegrityReport) Err() error {
	var result *multierror.Error
	for _, c := range r.Checks {
		if c.Passed {
			continue
		}
		msg := fmt.Sprintf("%s: expected %v, got %v", c.Name, c.Expected, c.Actual)
		if c.Detail != "" {
			msg += " (" + c.Detail + ")"
		}
		result = multierror.Append(result, errors.New(msg))
	}
	return result.ErrorOrNil()
}

const (
	sourceCustomerCountSQL   = `SELECT COUNT(DISTINCT customer_id) FROM customer_info`
	snapshotCustomerCountSQL = `SELECT COUNT(DISTINCT customer_id) FROM customer_360`

	sourceSpendSQL   = `SELECT COALESCE(SUM(total_amount), 0)::float8 FROM purchase_transactions`
	snapshotSpendSQL = `SELECT COALESCE(SUM(total_lifetime_value), 0)::float8 FROM customer_360`

	spendMismatchSQL = `
SELECT c.customer_id
FROM customer_360 c
LEFT JOIN (
    SELECT customer_id, SUM(total_amount) AS spend
    FROM purchase_transactions
    GROUP BY customer_id
) p ON p.customer_id = c.customer_id
WHERE COALESCE(p.spend, 0) <> c.total_lifetime_value
ORDER BY c.customer_id`

	// Only customers with a support interaction carry web stats forward.
	sourceVisitCountSQL = `
SELECT COUNT(wb.session_id)::float8
FROM website_behavior wb
WHERE wb.customer_id IN (SELECT DISTINCT customer_id FROM customer_service)`
	snapshotVisitCountSQL = `SELECT COALESCE(SUM(total_website_visits), 0)::float8 FROM customer_360`

	sourcePurchaseCountSQL   = `SELECT COUNT(DISTINCT transaction_id)::float8 FROM purchase_transactions`
	snapshotPurchaseCountSQL = `SELECT COALESCE(SUM(total_purchases), 0)::float8 FROM customer_360`

	frequencyMismatchSQL = `
SELECT c.customer_id
FROM customer_360 c
LEFT JOIN (
    SELECT customer_id, COUNT(DISTINCT transaction_id) AS orders
    FROM purchase_transactions
    GROUP BY customer_id
) p ON p.customer_id = c.customer_id
WHERE COALESCE(p.orders, 0) <> c.frequency_score
ORDER BY c.customer_id`
)

var readOnlySnapshot = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// maxListedMismatches bounds how many customer ids a Detail names.
const maxListedMismatches = 10

// Verifier compares a customer_360 snapshot against the raw tables.
type Verifier struct {
	db        *gorm.DB
	tolerance float64
}

func NewVerifier(db *gorm.DB, spendTolerance float64) *Verifier {
	if spendTolerance < 0 {
		spendTolerance = DefaultSpendTolerance
	}
	return &Verifier{db: db, tolerance: spendTolerance}
}

// Verify runs every check inside one read-only snapshot. A returned error
// means a query failed; mismatches are reported in the IntegrityReport.
func (v *Verifier) Verify(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{CheckedAt: time.Now().UTC()}

	err := v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parity := []struct {
			name             string
			source, snapshot string
			tolerance        float64
		}{
			{CheckCustomerCount, sourceCustomerCountSQL, snapshotCustomerCountSQL, 0},
			{CheckTotalSpend, sourceSpendSQL, snapshotSpendSQL, v.tolerance},
			{CheckVisitCount, sourceVisitCountSQL, snapshotVisitCountSQL, 0},
			{CheckPurchaseCount, sourcePurchaseCountSQL, snapshotPurchaseCountSQL, 0},
		}
		for _, p := range parity {
			res, err := compareScalars(tx, p.name, p.source, p.snapshot, p.tolerance)
			if err != nil {
				return err
			}
			report.Checks = append(report.Checks, res)
		}

		mismatches := []struct {
			name, query string
		}{
			{CheckPerCustomerSpend, spendMismatchSQL},
			{CheckPerCustomerOrders, frequencyMismatchSQL},
		}
		for _, m := range mismatches {
			res, err := countMismatches(tx, m.name, m.query)
			if err != nil {
				return err
			}
			report.Checks = append(report.Checks, res)
		}
		return nil
	}, readOnlySnapshot)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func compareScalars(tx *gorm.DB, name, sourceSQL, snapshotSQL string, tolerance float64) (CheckResult, error) {
	var expected, actual float64
	if err := tx.Raw(sourceSQL).Scan(&expected).Error; err != nil {
		return CheckResult{}, fmt.Errorf("%s source: %w", name, err)
	}
	if err := tx.Raw(snapshotSQL).Scan(&actual).Error; err != nil {
		return CheckResult{}, fmt.Errorf("%s snapshot: %w", name, err)
	}
	return ParityCheck(name, expected, actual, tolerance), nil
}

func countMismatches(tx *gorm.DB, name, query string) (CheckResult, error) {
	var ids []int64
	if err := tx.Raw(query).Scan(&ids).Error; err != nil {
		return CheckResult{}, fmt.Errorf("%s: %w", name, err)
	}
	return MismatchCheck(name, ids), nil
}

// ParityCheck passes when actual is within tolerance of expected.
func ParityCheck(name string, expected, actual, tolerance float64) CheckResult {
	diff := math.Abs(expected - actual)
	res := CheckResult{
		Name:     name,
		Expected: expected,
		Actual:   actual,
		Passed:   diff <= tolerance,
	}
	if !res.Passed {
		res.Detail = fmt.Sprintf("off by %.2f, tolerance %.2f", diff, tolerance)
	}
	return res
}

// MismatchCheck passes when no customer ids were flagged.
func MismatchCheck(name string, ids []int64) CheckResult {
	res := CheckResult{
		Name:     name,
		Expected: 0,
		Actual:   float64(len(ids)),
		Passed:   len(ids) == 0,
	}
	if len(ids) > 0 {
		shown := ids
		if len(shown) > maxListedMismatches {
			shown = shown[:maxListedMismatches]
		}
		res.Detail = fmt.Sprintf("customers %v", shown)
		if len(ids) > len(shown) {
			res.Detail += fmt.Sprintf(" and %d more", len(ids)-len(shown))
		}
	}
	return res
}
