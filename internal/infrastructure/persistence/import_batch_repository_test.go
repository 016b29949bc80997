package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/catalogsync/backend/internal/domain/bulk"
	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/catalogsync/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newSQLiteDB opens a single-connection in-memory database with all tables migrated
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.ImportBatchModel{},
		&models.ImportBatchResultModel{},
		&models.CatalogRecordModel{},
		&models.CategoryModel{},
		&models.ShippingProfileModel{},
	))
	return db
}

func newTestBatch(t *testing.T, ownerID uuid.UUID, name string, createdAt time.Time) *bulk.ImportBatch {
	t.Helper()
	batch, err := bulk.NewImportBatch(ownerID, "owner@example.com", name, []byte("handle,title\nshirt,Shirt\n"))
	require.NoError(t, err)
	batch.CreatedAt = createdAt
	batch.UpdatedAt = createdAt
	return batch
}

func TestGormImportBatchRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormImportBatchRepository(newSQLiteDB(t))
	ownerID := uuid.New()
	batch := newTestBatch(t, ownerID, "catalog.csv", time.Now().UTC())

	require.NoError(t, repo.Create(ctx, batch))

	t.Run("find by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, "catalog.csv", found.FileName)
		assert.Equal(t, bulk.BatchStatusPending, found.Status)
		assert.Equal(t, batch.RawPayload, found.RawPayload)
		assert.Empty(t, found.Results)
	})

	t.Run("owner scoped", func(t *testing.T) {
		_, err := repo.FindByIDForOwner(ctx, uuid.New(), batch.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		found, err := repo.FindByIDForOwner(ctx, ownerID, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, batch.ID, found.ID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormImportBatchRepository_FindByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewGormImportBatchRepository(newSQLiteDB(t))
	ownerID := uuid.New()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	for i, name := range []string{"a.csv", "b.csv", "c.csv"} {
		require.NoError(t, repo.Create(ctx, newTestBatch(t, ownerID, name, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.Create(ctx, newTestBatch(t, uuid.New(), "other.csv", base)))

	batches, total, err := repo.FindByOwner(ctx, ownerID, bulk.BatchFilter{
		Filter: shared.Filter{Page: 1, PageSize: 2, OrderBy: "created_at", OrderDir: "asc"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, batches, 2)
	assert.Equal(t, "a.csv", batches[0].FileName)
	assert.Nil(t, batches[0].RawPayload)

	completed := bulk.BatchStatusCompleted
	batches, total, err = repo.FindByOwner(ctx, ownerID, bulk.BatchFilter{Status: &completed})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, batches)
}

func TestGormImportBatchRepository_ClaimNextPending(t *testing.T) {
	ctx := context.Background()
	repo := NewGormImportBatchRepository(newSQLiteDB(t))
	ownerID := uuid.New()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	newer := newTestBatch(t, ownerID, "newer.csv", base.Add(time.Hour))
	older := newTestBatch(t, ownerID, "older.csv", base)
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, older))

	now := base.Add(2 * time.Hour)
	claimed, err := repo.ClaimNextPending(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, older.ID, claimed.ID)
	assert.Equal(t, bulk.BatchStatusProcessing, claimed.Status)
	assert.Equal(t, 1, claimed.Attempts)
	require.NotNil(t, claimed.LockedAt)

	claimed, err = repo.ClaimNextPending(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, newer.ID, claimed.ID)

	claimed, err = repo.ClaimNextPending(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestGormImportBatchRepository_ClaimNextPendingSQL(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormImportBatchRepository(db.DB)

	batchID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "import_batches" WHERE status = \$1 ORDER BY created_at ASC LIMIT \$2 FOR UPDATE SKIP LOCKED`).
		WithArgs(bulk.BatchStatusPending, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(batchID.String()))
	mock.ExpectExec(`UPDATE "import_batches" SET .* WHERE \(id = \$\d+ AND status = \$\d+\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	claimed, err := repo.ClaimNextPending(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Nil(t, claimed, "losing the conditional update yields no batch")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormImportBatchRepository_AppendResultAndSummary(t *testing.T) {
	ctx := context.Background()
	repo := NewGormImportBatchRepository(newSQLiteDB(t))
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newTestBatch(t, uuid.New(), "catalog.csv", base)))
	claimed, err := repo.ClaimNextPending(ctx, base)
	require.NoError(t, err)
	claim := claimed.ClaimRef()

	require.NoError(t, repo.UpdateSummary(ctx, claim, bulk.SummaryDelta{Total: 3}, base))

	now := base.Add(5 * time.Minute)
	require.NoError(t, repo.AppendResult(ctx, claim, bulk.NewSuccessResult("shirt", now, now), now))
	require.NoError(t, repo.AppendResult(ctx, claim, bulk.NewErrorResult("hat", "price invalid", now, now), now))
	require.NoError(t, repo.AppendResult(ctx, claim, bulk.NewSuccessResult("sock", now, now), now))

	found, err := repo.FindByID(ctx, claim.BatchID)
	require.NoError(t, err)
	assert.Equal(t, bulk.Summary{Total: 3, Success: 2, Failed: 1}, found.Summary)
	require.Len(t, found.Results, 3)
	assert.Equal(t, []string{"shirt", "hat", "sock"}, []string{
		found.Results[0].Handle, found.Results[1].Handle, found.Results[2].Handle,
	})
	assert.Equal(t, "price invalid", found.Results[1].Message)
	require.NotNil(t, found.LockedAt)
	assert.True(t, found.LockedAt.Equal(now), "progress moves locked_at forward")
	assert.True(t, found.UpdatedAt.Equal(now))

	err = repo.UpdateSummary(ctx, bulk.ClaimRef{BatchID: uuid.New(), Attempt: 1}, bulk.SummaryDelta{Total: 1}, now)
	assert.ErrorIs(t, err, bulk.ErrClaimLost)
}

func TestGormImportBatchRepository_WritesRequireProcessingClaim(t *testing.T) {
	ctx := context.Background()
	repo := NewGormImportBatchRepository(newSQLiteDB(t))
	now := time.Now().UTC()
	batch := newTestBatch(t, uuid.New(), "catalog.csv", now)
	require.NoError(t, repo.Create(ctx, batch))

	err := repo.AppendResult(ctx, batch.ClaimRef(), bulk.NewSuccessResult("shirt", now, now), now)
	assert.ErrorIs(t, err, bulk.ErrClaimLost, "a pending batch has no live claim")

	found, err := repo.FindByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Empty(t, found.Results)
}

func TestGormImportBatchRepository_Finalize(t *testing.T) {
	ctx := context.Background()
	repo := NewGormImportBatchRepository(newSQLiteDB(t))
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, newTestBatch(t, uuid.New(), "catalog.csv", now)))

	batch, err := repo.ClaimNextPending(ctx, now)
	require.NoError(t, err)
	require.NoError(t, batch.Fail("could not decode payload", now))
	batch.ArchiveKey = "imports/archive.csv"
	require.NoError(t, repo.Finalize(ctx, batch))

	found, err := repo.FindByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, bulk.BatchStatusFailed, found.Status)
	assert.Equal(t, "could not decode payload", found.Error)
	assert.Equal(t, "imports/archive.csv", found.ArchiveKey)
	assert.NotNil(t, found.CompletedAt)
	assert.Empty(t, found.RawPayload)

	var persistErr *bulk.PersistenceError
	err = repo.Finalize(ctx, batch)
	require.ErrorAs(t, err, &persistErr)
	assert.ErrorIs(t, err, bulk.ErrClaimLost, "a finalized batch cannot be finalized again")

	missing := newTestBatch(t, uuid.New(), "missing.csv", now)
	err = repo.Finalize(ctx, missing)
	assert.ErrorIs(t, err, bulk.ErrClaimLost)
}

func TestGormImportBatchRepository_ReclaimedClaimCannotWrite(t *testing.T) {
	ctx := context.Background()
	repo := NewGormImportBatchRepository(newSQLiteDB(t))
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newTestBatch(t, uuid.New(), "slow.csv", base)))

	first, err := repo.ClaimNextPending(ctx, base)
	require.NoError(t, err)
	require.NotNil(t, first)

	later := base.Add(31 * time.Minute)
	outcome, err := repo.ReleaseStale(ctx, 30*time.Minute, 3, later)
	require.NoError(t, err)
	assert.Equal(t, bulk.ReleaseOutcome{Released: 1}, outcome)

	second, err := repo.ClaimNextPending(ctx, later)
	require.NoError(t, err)
	require.NotNil(t, second)
	require.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Attempts)

	err = repo.AppendResult(ctx, first.ClaimRef(), bulk.NewSuccessResult("shirt", later, later), later)
	assert.ErrorIs(t, err, bulk.ErrClaimLost)
	err = repo.UpdateSummary(ctx, first.ClaimRef(), bulk.SummaryDelta{Total: 1}, later)
	assert.ErrorIs(t, err, bulk.ErrClaimLost)
	require.NoError(t, first.Complete(later))
	err = repo.Finalize(ctx, first)
	assert.ErrorIs(t, err, bulk.ErrClaimLost)

	found, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, bulk.BatchStatusProcessing, found.Status)
	assert.Empty(t, found.Results)
	assert.NotEmpty(t, found.RawPayload)

	require.NoError(t, repo.AppendResult(ctx, second.ClaimRef(), bulk.NewSuccessResult("shirt", later, later), later))
	require.NoError(t, second.RecordResult(bulk.NewSuccessResult("shirt", later, later)))
	require.NoError(t, second.Complete(later))
	require.NoError(t, repo.Finalize(ctx, second))

	found, err = repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, bulk.BatchStatusCompleted, found.Status)
	assert.Len(t, found.Results, 1)
}

func TestGormImportBatchRepository_ReleaseStale(t *testing.T) {
	ctx := context.Background()
	repo := NewGormImportBatchRepository(newSQLiteDB(t))
	ownerID := uuid.New()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	retryable := newTestBatch(t, ownerID, "retry.csv", base)
	exhausted := newTestBatch(t, ownerID, "exhausted.csv", base.Add(time.Second))
	require.NoError(t, repo.Create(ctx, retryable))
	require.NoError(t, repo.Create(ctx, exhausted))

	claimed, err := repo.ClaimNextPending(ctx, base)
	require.NoError(t, err)
	require.Equal(t, retryable.ID, claimed.ID)
	require.NoError(t, repo.AppendResult(ctx, claimed.ClaimRef(), bulk.NewSuccessResult("shirt", base, base), base))

	claimed, err = repo.ClaimNextPending(ctx, base)
	require.NoError(t, err)
	require.Equal(t, exhausted.ID, claimed.ID)

	outcome, err := repo.ReleaseStale(ctx, 59*time.Minute, 2, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, bulk.ReleaseOutcome{Released: 2}, outcome)

	found, err := repo.FindByID(ctx, retryable.ID)
	require.NoError(t, err)
	assert.Equal(t, bulk.BatchStatusPending, found.Status)
	assert.Nil(t, found.LockedAt)
	assert.Empty(t, found.Results)
	assert.Equal(t, bulk.Summary{}, found.Summary)
	assert.NotEmpty(t, found.RawPayload)

	// reclaimed batches reach the attempt limit on their second claim
	_, err = repo.ClaimNextPending(ctx, base)
	require.NoError(t, err)
	_, err = repo.ClaimNextPending(ctx, base)
	require.NoError(t, err)

	outcome, err = repo.ReleaseStale(ctx, 59*time.Minute, 2, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, bulk.ReleaseOutcome{Abandoned: 2}, outcome)

	found, err = repo.FindByID(ctx, exhausted.ID)
	require.NoError(t, err)
	assert.Equal(t, bulk.BatchStatusFailed, found.Status)
	assert.Equal(t, "abandoned after 2 attempts", found.Error)
	assert.NotNil(t, found.CompletedAt)
}

func TestGormImportBatchRepository_ReleaseStaleIgnoresFreshLocks(t *testing.T) {
	ctx := context.Background()
	repo := NewGormImportBatchRepository(newSQLiteDB(t))
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	batch := newTestBatch(t, uuid.New(), "fresh.csv", base)
	require.NoError(t, repo.Create(ctx, batch))
	_, err := repo.ClaimNextPending(ctx, base.Add(time.Hour))
	require.NoError(t, err)

	outcome, err := repo.ReleaseStale(ctx, 30*time.Minute, 3, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, bulk.ReleaseOutcome{}, outcome)

	found, err := repo.FindByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, bulk.BatchStatusProcessing, found.Status)
}

func TestGormImportBatchRepository_ProgressKeepsBatchFresh(t *testing.T) {
	ctx := context.Background()
	repo := NewGormImportBatchRepository(newSQLiteDB(t))
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newTestBatch(t, uuid.New(), "long.csv", base)))

	claimed, err := repo.ClaimNextPending(ctx, base)
	require.NoError(t, err)
	progress := base.Add(25 * time.Minute)
	require.NoError(t, repo.AppendResult(ctx, claimed.ClaimRef(), bulk.NewSuccessResult("shirt", progress, progress), progress))

	outcome, err := repo.ReleaseStale(ctx, 30*time.Minute, 3, base.Add(40*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, bulk.ReleaseOutcome{}, outcome, "a batch that recorded progress 15m ago is not stale")

	found, err := repo.FindByID(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, bulk.BatchStatusProcessing, found.Status)
	assert.Len(t, found.Results, 1)
}
