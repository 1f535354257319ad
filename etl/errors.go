package etl

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrRunInProgress is returned when another rebuild holds the run lock.
	ErrRunInProgress = errors.New("customer_360 rebuild already in progress")
	// ErrStoreUnavailable wraps failures to reach the backing store.
	ErrStoreUnavailable = errors.New("backing store unavailable")
	// ErrCardinality reports a violation of one-row-per-customer.
	ErrCardinality = errors.New("customer_360 cardinality violated")
)

// Stage names used in StageError and logs.
const (
	StageLock            = "lock"
	StageBaseCustomers   = "aggregate.customers"
	StagePurchaseStats   = "aggregate.purchase_stats"
	StageFavorites       = "aggregate.favorites"
	StageSupportSummary  = "aggregate.support_summary"
	StageWebSummary      = "aggregate.web_summary"
	StageCampaignSummary = "aggregate.campaign_summary"
	StageConsolidate     = "consolidate"
	StageMaterialize     = "materialize"
)

// StageError is a computation failure inside one pipeline stage. The run is
// rolled back and the previous snapshot stays in place.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// SQLState returns the Postgres error code behind a stage failure, if any.
func (e *StageError) SQLState() string {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	if isConnectivity(err) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return &StageError{Stage: stage, Err: err}
}

// isConnectivity separates transport failures from errors the server raised.
// Postgres errors in class 08 are connection exceptions.
func isConnectivity(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08"
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
