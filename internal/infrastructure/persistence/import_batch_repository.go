package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/catalogsync/backend/internal/domain/bulk"
	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/catalogsync/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// batchSortColumns is the ORDER BY whitelist for batch listings
var batchSortColumns = NewSortableColumns("created_at",
	"id", "updated_at", "file_name", "file_size", "status", "completed_at")

// listColumns excludes the raw payload from list queries
var listColumns = []string{
	"id", "created_at", "updated_at", "version", "owner_id", "owner_email",
	"file_name", "file_size", "status", "locked_at", "attempts",
	"total_count", "success_count", "failed_count", "error", "archive_key", "completed_at",
}

// Ensure GormImportBatchRepository implements BatchRepository
var _ bulk.BatchRepository = (*GormImportBatchRepository)(nil)

// GormImportBatchRepository implements bulk.BatchRepository using GORM
type GormImportBatchRepository struct {
	db *gorm.DB
}

// NewGormImportBatchRepository creates a new GormImportBatchRepository
func NewGormImportBatchRepository(db *gorm.DB) *GormImportBatchRepository {
	return &GormImportBatchRepository{db: db}
}

// Create persists a new pending batch
func (r *GormImportBatchRepository) Create(ctx context.Context, batch *bulk.ImportBatch) error {
	model := models.ImportBatchModelFromDomain(batch)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error; err != nil {
		return &bulk.PersistenceError{Op: "create batch", Err: err}
	}
	return nil
}

// FindByID loads a batch with its results in append order
func (r *GormImportBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.ImportBatch, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDForOwner loads a batch only if it belongs to ownerID
func (r *GormImportBatchRepository) FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*bulk.ImportBatch, error) {
	return r.findOne(r.db.WithContext(ctx).Scopes(OwnerScope(ownerID)).Where("id = ?", id))
}

func (r *GormImportBatchRepository) findOne(query *gorm.DB) (*bulk.ImportBatch, error) {
	var model models.ImportBatchModel
	err := query.
		Preload("Results", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOwner lists an owner's batches without payload or results
func (r *GormImportBatchRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, filter bulk.BatchFilter) ([]*bulk.ImportBatch, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ImportBatchModel{}).Scopes(OwnerScope(ownerID))
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Select(listColumns).Order(batchSortColumns.OrderBy(filter.OrderBy, filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var batchModels []models.ImportBatchModel
	err := query.Find(&batchModels).Error
	if err != nil {
		return nil, 0, err
	}

	batches := make([]*bulk.ImportBatch, len(batchModels))
	for i := range batchModels {
		batches[i] = batchModels[i].ToDomain()
	}
	return batches, total, nil
}

// ClaimNextPending locks the oldest pending batch with FOR UPDATE SKIP LOCKED
// and moves it to processing with a conditional update. A concurrent claimer
// either skips the locked row or finds its update affecting zero rows.
func (r *GormImportBatchRepository) ClaimNextPending(ctx context.Context, now time.Time) (*bulk.ImportBatch, error) {
	var claimedID uuid.UUID

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidate models.ImportBatchModel
		err := tx.
			Select("id").
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", bulk.BatchStatusPending).
			Order("created_at ASC").
			Limit(1).
			Find(&candidate).Error
		if err != nil {
			return err
		}
		if candidate.ID == uuid.Nil {
			return nil
		}

		result := tx.Model(&models.ImportBatchModel{}).
			Where("id = ? AND status = ?", candidate.ID, bulk.BatchStatusPending).
			Updates(map[string]any{
				"status":     bulk.BatchStatusProcessing,
				"locked_at":  now,
				"attempts":   gorm.Expr("attempts + 1"),
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 1 {
			claimedID = candidate.ID
		}
		return nil
	})
	if err != nil {
		return nil, &bulk.PersistenceError{Op: "claim batch", Err: err}
	}
	if claimedID == uuid.Nil {
		return nil, nil
	}

	return r.FindByID(ctx, claimedID)
}

// claimScope restricts an update to the live claim. A reclaimed or finalized
// batch no longer matches, so the update affects zero rows.
func claimScope(claim bulk.ClaimRef) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ? AND status = ? AND attempts = ?", claim.BatchID, bulk.BatchStatusProcessing, claim.Attempt)
	}
}

// AppendResult bumps the counters under claim, then inserts result
func (r *GormImportBatchRepository) AppendResult(ctx context.Context, claim bulk.ClaimRef, result bulk.ProductResult, now time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applySummaryDelta(tx, claim, bulk.DeltaFor(result), now); err != nil {
			return err
		}
		return tx.Create(models.ImportBatchResultModelFromDomain(claim.BatchID, result)).Error
	})
	if err != nil {
		return &bulk.PersistenceError{Op: "append result", Err: err}
	}
	return nil
}

// UpdateSummary adds delta to the stored counters
func (r *GormImportBatchRepository) UpdateSummary(ctx context.Context, claim bulk.ClaimRef, delta bulk.SummaryDelta, now time.Time) error {
	if err := applySummaryDelta(r.db.WithContext(ctx), claim, delta, now); err != nil {
		return &bulk.PersistenceError{Op: "update summary", Err: err}
	}
	return nil
}

// applySummaryDelta also moves locked_at forward so a batch that keeps making
// progress is never taken for stale
func applySummaryDelta(db *gorm.DB, claim bulk.ClaimRef, delta bulk.SummaryDelta, now time.Time) error {
	result := db.Model(&models.ImportBatchModel{}).
		Scopes(claimScope(claim)).
		Updates(map[string]any{
			"total_count":   gorm.Expr("total_count + ?", delta.Total),
			"success_count": gorm.Expr("success_count + ?", delta.Success),
			"failed_count":  gorm.Expr("failed_count + ?", delta.Failed),
			"locked_at":     now,
			"updated_at":    now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return bulk.ErrClaimLost
	}
	return nil
}

// Finalize writes the terminal state of batch and clears its payload
func (r *GormImportBatchRepository) Finalize(ctx context.Context, batch *bulk.ImportBatch) error {
	result := r.db.WithContext(ctx).Model(&models.ImportBatchModel{}).
		Scopes(claimScope(batch.ClaimRef())).
		Updates(map[string]any{
			"status":       batch.Status,
			"error":        batch.Error,
			"archive_key":  batch.ArchiveKey,
			"completed_at": batch.CompletedAt,
			"raw_payload":  nil,
			"version":      batch.Version,
			"updated_at":   batch.UpdatedAt,
		})
	if result.Error != nil {
		return &bulk.PersistenceError{Op: "finalize batch", Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return &bulk.PersistenceError{Op: "finalize batch", Err: bulk.ErrClaimLost}
	}
	return nil
}

// ReleaseStale resets processing batches whose lock is older than staleAfter.
// Batches that already used maxAttempts claims are failed instead of requeued.
func (r *GormImportBatchRepository) ReleaseStale(ctx context.Context, staleAfter time.Duration, maxAttempts int, now time.Time) (bulk.ReleaseOutcome, error) {
	var outcome bulk.ReleaseOutcome
	lockedBefore := now.Add(-staleAfter)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []models.ImportBatchModel
		err := tx.
			Select(listColumns).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND locked_at < ?", bulk.BatchStatusProcessing, lockedBefore).
			Find(&stale).Error
		if err != nil {
			return err
		}

		for i := range stale {
			batch := stale[i].ToDomain()
			if !batch.IsStale(now, staleAfter) {
				continue
			}
			claim := batch.ClaimRef()
			abandoned, err := batch.ReleaseStale(maxAttempts, now)
			if err != nil {
				return err
			}

			updates := map[string]any{
				"status":     batch.Status,
				"version":    batch.Version,
				"updated_at": batch.UpdatedAt,
			}
			if abandoned {
				updates["error"] = batch.Error
				updates["completed_at"] = batch.CompletedAt
				updates["raw_payload"] = nil
				outcome.Abandoned++
			} else {
				updates["locked_at"] = nil
				updates["total_count"] = 0
				updates["success_count"] = 0
				updates["failed_count"] = 0
				if err := tx.Where("batch_id = ?", batch.ID).Delete(&models.ImportBatchResultModel{}).Error; err != nil {
					return err
				}
				outcome.Released++
			}

			if err := tx.Model(&models.ImportBatchModel{}).Scopes(claimScope(claim)).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return bulk.ReleaseOutcome{}, &bulk.PersistenceError{Op: "release stale batches", Err: err}
	}
	return outcome, nil
}
