package models

import (
	"time"

	"github.com/catalogsync/backend/internal/domain/bulk"
	"github.com/google/uuid"
)

// ImportBatchModel is the persistence model for the ImportBatch aggregate.
// Results live in import_batch_results and are loaded on demand.
type ImportBatchModel struct {
	OwnedAggregateModel
	OwnerEmail   string `gorm:"type:varchar(320);not null;default:''"`
	FileName     string `gorm:"type:varchar(255);not null"`
	FileSize     int64  `gorm:"not null;default:0"`
	RawPayload   []byte
	Status       bulk.BatchStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	LockedAt     *time.Time
	Attempts     int    `gorm:"not null;default:0"`
	TotalCount   int    `gorm:"not null;default:0"`
	SuccessCount int    `gorm:"not null;default:0"`
	FailedCount  int    `gorm:"not null;default:0"`
	Error        string `gorm:"type:text;not null;default:''"`
	ArchiveKey   string `gorm:"type:varchar(512);not null;default:''"`
	CompletedAt  *time.Time

	Results []ImportBatchResultModel `gorm:"foreignKey:BatchID;references:ID"`
}

// TableName returns the table name for GORM
func (ImportBatchModel) TableName() string {
	return "import_batches"
}

// ToDomain converts the persistence model to a domain ImportBatch
func (m *ImportBatchModel) ToDomain() *bulk.ImportBatch {
	batch := &bulk.ImportBatch{
		OwnedAggregateRoot: m.Aggregate(),
		OwnerEmail:         m.OwnerEmail,
		FileName:           m.FileName,
		FileSize:           m.FileSize,
		RawPayload:         m.RawPayload,
		Status:             m.Status,
		LockedAt:           m.LockedAt,
		Attempts:           m.Attempts,
		Summary: bulk.Summary{
			Total:   m.TotalCount,
			Success: m.SuccessCount,
			Failed:  m.FailedCount,
		},
		Error:       m.Error,
		ArchiveKey:  m.ArchiveKey,
		CompletedAt: m.CompletedAt,
		Results:     make([]bulk.ProductResult, 0, len(m.Results)),
	}
	for i := range m.Results {
		batch.Results = append(batch.Results, m.Results[i].ToDomain())
	}
	return batch
}

// FromDomain populates the persistence model from a domain ImportBatch.
// Results are not copied; they are written row by row.
func (m *ImportBatchModel) FromDomain(b *bulk.ImportBatch) {
	m.OwnedAggregateModel = ownedModelOf(b.OwnedAggregateRoot)
	m.OwnerEmail = b.OwnerEmail
	m.FileName = b.FileName
	m.FileSize = b.FileSize
	m.RawPayload = b.RawPayload
	m.Status = b.Status
	m.LockedAt = b.LockedAt
	m.Attempts = b.Attempts
	m.TotalCount = b.Summary.Total
	m.SuccessCount = b.Summary.Success
	m.FailedCount = b.Summary.Failed
	m.Error = b.Error
	m.ArchiveKey = b.ArchiveKey
	m.CompletedAt = b.CompletedAt
}

// ImportBatchModelFromDomain creates a new persistence model from a domain ImportBatch
func ImportBatchModelFromDomain(b *bulk.ImportBatch) *ImportBatchModel {
	m := &ImportBatchModel{}
	m.FromDomain(b)
	return m
}

// ImportBatchResultModel is one appended product outcome. Seq preserves append order.
type ImportBatchResultModel struct {
	Seq         int64             `gorm:"primaryKey;autoIncrement"`
	BatchID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	Handle      string            `gorm:"type:varchar(255);not null"`
	Status      bulk.ResultStatus `gorm:"type:varchar(20);not null"`
	Message     string            `gorm:"type:text;not null;default:''"`
	StartedAt   time.Time         `gorm:"not null"`
	CompletedAt time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ImportBatchResultModel) TableName() string {
	return "import_batch_results"
}

// ToDomain converts the row to a domain ProductResult
func (m *ImportBatchResultModel) ToDomain() bulk.ProductResult {
	return bulk.ProductResult{
		Handle:      m.Handle,
		Status:      m.Status,
		Message:     m.Message,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}
}

// ImportBatchResultModelFromDomain builds a result row for batchID
func ImportBatchResultModelFromDomain(batchID uuid.UUID, r bulk.ProductResult) *ImportBatchResultModel {
	return &ImportBatchResultModel{
		BatchID:     batchID,
		Handle:      r.Handle,
		Status:      r.Status,
		Message:     r.Message,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}
