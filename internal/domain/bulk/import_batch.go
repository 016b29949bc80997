package bulk

import (
	"fmt"
	"time"

	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MaxFileNameLength bounds the stored upload file name
const MaxFileNameLength = 255

// BatchStatus represents the lifecycle state of an import batch
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
)

// IsValid checks if the status is valid
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusPending, BatchStatusProcessing, BatchStatusCompleted, BatchStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}

// ResultStatus is the outcome of one product within a batch
type ResultStatus string

const (
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusError   ResultStatus = "error"
)

// ProductResult records the outcome of processing one logical product.
// Results are immutable once appended to a batch.
type ProductResult struct {
	Handle      string       `json:"handle"`
	Status      ResultStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
}

// NewSuccessResult builds a success entry
func NewSuccessResult(handle string, startedAt, completedAt time.Time) ProductResult {
	return ProductResult{
		Handle:      handle,
		Status:      ResultStatusSuccess,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
	}
}

// NewErrorResult builds an error entry carrying the failure message
func NewErrorResult(handle, message string, startedAt, completedAt time.Time) ProductResult {
	return ProductResult{
		Handle:      handle,
		Status:      ResultStatusError,
		Message:     message,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
	}
}

// Summary holds the batch counters
type Summary struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// SummaryDelta is an increment applied to a Summary
type SummaryDelta struct {
	Total   int
	Success int
	Failed  int
}

// DeltaFor returns the counter increment that accompanies appending r
func DeltaFor(r ProductResult) SummaryDelta {
	if r.Status == ResultStatusSuccess {
		return SummaryDelta{Success: 1}
	}
	return SummaryDelta{Failed: 1}
}

// Apply returns the summary after adding d
func (s Summary) Apply(d SummaryDelta) Summary {
	return Summary{
		Total:   s.Total + d.Total,
		Success: s.Success + d.Success,
		Failed:  s.Failed + d.Failed,
	}
}

// Processed returns how many products have a recorded outcome
func (s Summary) Processed() int {
	return s.Success + s.Failed
}

// ImportBatch is one submitted spreadsheet and its processing record
type ImportBatch struct {
	shared.OwnedAggregateRoot
	OwnerEmail  string
	FileName    string
	FileSize    int64
	RawPayload  []byte
	Status      BatchStatus
	LockedAt    *time.Time
	Attempts    int
	Results     []ProductResult
	Summary     Summary
	Error       string
	ArchiveKey  string
	CompletedAt *time.Time
}

// NewImportBatch creates a pending batch for the given upload
func NewImportBatch(ownerID uuid.UUID, ownerEmail, fileName string, payload []byte) (*ImportBatch, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if len(fileName) > MaxFileNameLength {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", fmt.Sprintf("File name cannot exceed %d characters", MaxFileNameLength))
	}
	if len(payload) == 0 {
		return nil, shared.NewDomainError("EMPTY_FILE", "Uploaded file is empty")
	}

	return &ImportBatch{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(ownerID),
		OwnerEmail:         ownerEmail,
		FileName:           fileName,
		FileSize:           int64(len(payload)),
		RawPayload:         payload,
		Status:             BatchStatusPending,
		Results:            make([]ProductResult, 0),
	}, nil
}

// Claim moves a pending batch into processing
func (b *ImportBatch) Claim(now time.Time) error {
	if b.Status != BatchStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot claim batch in state: %s", b.Status))
	}
	b.Status = BatchStatusProcessing
	b.LockedAt = &now
	b.Attempts++
	b.Touch(now)
	return nil
}

// ClaimRef identifies one claim of a batch. Progress writes carry it so a
// worker whose claim was reclaimed can no longer change the batch.
type ClaimRef struct {
	BatchID uuid.UUID
	Attempt int
}

// ClaimRef returns the reference of the current claim
func (b *ImportBatch) ClaimRef() ClaimRef {
	return ClaimRef{BatchID: b.ID, Attempt: b.Attempts}
}

// HeldBy reports whether claim is the live claim on this batch
func (b *ImportBatch) HeldBy(claim ClaimRef) bool {
	return b.Status == BatchStatusProcessing && b.ID == claim.BatchID && b.Attempts == claim.Attempt
}

// SetTotal records the number of distinct products found in the payload
func (b *ImportBatch) SetTotal(total int) error {
	if b.Status != BatchStatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot set total in state: %s", b.Status))
	}
	if total < 0 {
		return shared.NewDomainError("INVALID_TOTAL", "Total cannot be negative")
	}
	b.Summary.Total = total
	return nil
}

// RecordResult appends r and bumps the matching counter
func (b *ImportBatch) RecordResult(r ProductResult) error {
	if b.Status != BatchStatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot record result in state: %s", b.Status))
	}
	b.Results = append(b.Results, r)
	b.Summary = b.Summary.Apply(DeltaFor(r))
	return nil
}

// FinalStatus is failed only when nothing succeeded and something failed
func (b *ImportBatch) FinalStatus() BatchStatus {
	if b.Summary.Success == 0 && b.Summary.Failed > 0 {
		return BatchStatusFailed
	}
	return BatchStatusCompleted
}

// Complete finalizes a batch whose products were all attempted
func (b *ImportBatch) Complete(now time.Time) error {
	if b.Status != BatchStatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete batch in state: %s", b.Status))
	}
	b.finalize(b.FinalStatus(), now)
	return nil
}

// Fail finalizes a batch that could not start per-product work
func (b *ImportBatch) Fail(reason string, now time.Time) error {
	if b.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail batch in terminal state: %s", b.Status))
	}
	b.Error = reason
	b.finalize(BatchStatusFailed, now)
	return nil
}

func (b *ImportBatch) finalize(status BatchStatus, now time.Time) {
	b.Status = status
	b.CompletedAt = &now
	b.RawPayload = nil
	b.Touch(now)
}

// IsStale reports whether a processing batch has held its lock longer than staleAfter
func (b *ImportBatch) IsStale(now time.Time, staleAfter time.Duration) bool {
	if b.Status != BatchStatusProcessing || b.LockedAt == nil {
		return false
	}
	return now.Sub(*b.LockedAt) > staleAfter
}

// ReleaseStale returns an abandoned batch to pending so it is processed again
// from the start. A batch that already used maxAttempts claims is failed instead.
// It reports whether the batch was failed.
func (b *ImportBatch) ReleaseStale(maxAttempts int, now time.Time) (bool, error) {
	if b.Status != BatchStatusProcessing {
		return false, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot release batch in state: %s", b.Status))
	}
	if maxAttempts > 0 && b.Attempts >= maxAttempts {
		b.Error = fmt.Sprintf("abandoned after %d attempts", b.Attempts)
		b.finalize(BatchStatusFailed, now)
		return true, nil
	}
	b.Status = BatchStatusPending
	b.LockedAt = nil
	b.Results = make([]ProductResult, 0)
	b.Summary = Summary{}
	b.Touch(now)
	return false, nil
}

// FailedResults returns the error entries in processing order
func (b *ImportBatch) FailedResults() []ProductResult {
	failed := make([]ProductResult, 0, b.Summary.Failed)
	for _, r := range b.Results {
		if r.Status == ResultStatusError {
			failed = append(failed, r)
		}
	}
	return failed
}
