package etl

import (
	"context"
	"fmt"

	"cdp-analytics/models"

	"gorm.io/gorm"
)

const stagingTable = "tmp_customer_360"

const (
	createStagingSQL = `CREATE TEMPORARY TABLE ` + stagingTable + ` (LIKE customer_360 INCLUDING DEFAULTS) ON COMMIT DROP`
	clearTargetSQL   = `DELETE FROM customer_360`
	swapInSQL        = `INSERT INTO customer_360 SELECT * FROM ` + stagingTable
)

// materialize stages records in a transaction-scoped temp table and swaps
// them into customer_360. tx must be an open transaction: readers keep
// seeing the previous snapshot until it commits, and the staging table is
// dropped on commit or rollback.
func materialize(ctx context.Context, tx *gorm.DB, records []models.Customer360, batchSize int) (int64, error) {
	db := tx.WithContext(ctx)

	if err := db.Exec(createStagingSQL).Error; err != nil {
		return 0, stageErr(StageMaterialize, fmt.Errorf("create staging: %w", err))
	}

	if len(records) > 0 {
		if err := db.Table(stagingTable).CreateInBatches(&records, batchSize).Error; err != nil {
			return 0, stageErr(StageMaterialize, fmt.Errorf("stage records: %w", err))
		}
	}

	var staged int64
	if err := db.Table(stagingTable).Count(&staged).Error; err != nil {
		return 0, stageErr(StageMaterialize, err)
	}
	if staged != int64(len(records)) {
		return 0, &StageError{
			Stage: StageMaterialize,
			Err:   fmt.Errorf("%w: staged %d of %d rows", ErrCardinality, staged, len(records)),
		}
	}

	if err := db.Exec(clearTargetSQL).Error; err != nil {
		return 0, stageErr(StageMaterialize, fmt.Errorf("clear target: %w", err))
	}
	res := db.Exec(swapInSQL)
	if res.Error != nil {
		return 0, stageErr(StageMaterialize, fmt.Errorf("swap in: %w", res.Error))
	}
	return res.RowsAffected, nil
}
