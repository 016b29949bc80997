package importapp

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/catalogsync/backend/internal/domain/bulk"
	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxPageSize = 100

var supportedExtensions = map[string]bool{".xlsx": true, ".csv": true}

// SubmitInput is an uploaded spreadsheet waiting to become a batch
type SubmitInput struct {
	OwnerID    uuid.UUID
	OwnerEmail string
	FileName   string
	Payload    []byte
}

// BatchView is a batch with a link to its archived payload, when one exists
type BatchView struct {
	Batch             *bulk.ImportBatch
	DownloadURL       string
	DownloadExpiresAt *time.Time
}

// BatchService accepts uploads and answers status queries
type BatchService struct {
	batches bulk.BatchRepository
	archive PayloadArchive
	logger  *zap.Logger
}

// NewBatchService creates a batch service. archive may be nil.
func NewBatchService(batches bulk.BatchRepository, archive PayloadArchive, logger *zap.Logger) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{batches: batches, archive: archive, logger: logger}
}

// Submit stores a pending batch for the worker to pick up
func (s *BatchService) Submit(ctx context.Context, in SubmitInput) (*bulk.ImportBatch, error) {
	name := filepath.Base(strings.TrimSpace(in.FileName))
	if !supportedExtensions[strings.ToLower(filepath.Ext(name))] {
		return nil, shared.NewDomainError("UNSUPPORTED_FILE", "Only .xlsx and .csv files can be imported")
	}

	batch, err := bulk.NewImportBatch(in.OwnerID, in.OwnerEmail, name, in.Payload)
	if err != nil {
		return nil, err
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("Import batch submitted",
		zap.String("batch_id", batch.ID.String()),
		zap.String("file_name", batch.FileName),
		zap.Int64("file_size", batch.FileSize),
	)
	return batch, nil
}

// Get returns the owner's batch with results and, when archived, a download link
func (s *BatchService) Get(ctx context.Context, ownerID, id uuid.UUID) (*BatchView, error) {
	batch, err := s.batches.FindByIDForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	view := &BatchView{Batch: batch}
	if batch.ArchiveKey != "" && s.archive != nil {
		url, expiresAt, err := s.archive.DownloadURL(ctx, batch.ArchiveKey)
		if err != nil {
			logger.Enrich(ctx, s.logger).Warn("Failed to presign payload download",
				zap.String("archive_key", batch.ArchiveKey),
				zap.Error(err),
			)
		} else {
			view.DownloadURL = url
			view.DownloadExpiresAt = &expiresAt
		}
	}
	return view, nil
}

// List returns one page of the owner's batches, newest first
func (s *BatchService) List(ctx context.Context, ownerID uuid.UUID, filter bulk.BatchFilter) ([]*bulk.ImportBatch, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown batch status: "+string(*filter.Status))
	}
	return s.batches.FindByOwner(ctx, ownerID, filter)
}
