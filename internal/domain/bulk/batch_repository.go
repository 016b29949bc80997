package bulk

import (
	"context"
	"time"

	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BatchFilter defines the filters for listing an owner's batches
type BatchFilter struct {
	shared.Filter
	Status *BatchStatus
}

// ReleaseOutcome reports what a stale-lock sweep did
type ReleaseOutcome struct {
	Released  int
	Abandoned int
}

// BatchRepository is the durable store for import batches
type BatchRepository interface {
	// Create persists a new pending batch
	Create(ctx context.Context, batch *ImportBatch) error

	// FindByID loads a batch with its results
	FindByID(ctx context.Context, id uuid.UUID) (*ImportBatch, error)

	// FindByIDForOwner loads a batch only if it belongs to ownerID
	FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*ImportBatch, error)

	// FindByOwner lists batches without payload or results
	FindByOwner(ctx context.Context, ownerID uuid.UUID, filter BatchFilter) ([]*ImportBatch, int64, error)

	// ClaimNextPending atomically moves the oldest pending batch to processing.
	// It returns nil when no batch is pending or another worker won the claim.
	ClaimNextPending(ctx context.Context, now time.Time) (*ImportBatch, error)

	// AppendResult appends r, updates the matching counter and refreshes
	// locked_at in one transaction. It fails with ErrClaimLost when claim is
	// no longer the live claim on the batch.
	AppendResult(ctx context.Context, claim ClaimRef, r ProductResult, now time.Time) error

	// UpdateSummary adds delta to the stored counters under claim
	UpdateSummary(ctx context.Context, claim ClaimRef, delta SummaryDelta, now time.Time) error

	// Finalize writes the terminal state of batch and clears its payload.
	// It fails with ErrClaimLost when batch.ClaimRef() is no longer live.
	Finalize(ctx context.Context, batch *ImportBatch) error

	// ReleaseStale resets processing batches whose lock is older than staleAfter
	ReleaseStale(ctx context.Context, staleAfter time.Duration, maxAttempts int, now time.Time) (ReleaseOutcome, error)
}
