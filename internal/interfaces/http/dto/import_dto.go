package dto

import (
	"time"

	"github.com/catalogsync/backend/internal/domain/bulk"
)

// ImportListRequest filters the owner's batch history
type ImportListRequest struct {
	ListRequest
	Status string `form:"status" binding:"omitempty,oneof=pending processing completed failed"`
}

// ImportSummaryResponse holds the batch counters
type ImportSummaryResponse struct {
	Total   int `json:"total" example:"12"`
	Success int `json:"success" example:"11"`
	Failed  int `json:"failed" example:"1"`
}

// ImportResultResponse is the outcome of one product
type ImportResultResponse struct {
	Handle      string    `json:"handle" example:"red-shirt"`
	Status      string    `json:"status" example:"error"`
	Message     string    `json:"message,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// ImportBatchResponse is a batch as returned by the list and submit endpoints
type ImportBatchResponse struct {
	ID          string                `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	FileName    string                `json:"file_name" example:"spring-catalog.xlsx"`
	FileSize    int64                 `json:"file_size" example:"48213"`
	Status      string                `json:"status" example:"processing"`
	Attempts    int                   `json:"attempts"`
	Summary     ImportSummaryResponse `json:"summary"`
	Error       string                `json:"error,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
}

// ImportBatchDetailResponse adds per-product results and the payload link
type ImportBatchDetailResponse struct {
	ImportBatchResponse
	Results           []ImportResultResponse `json:"results"`
	DownloadURL       string                 `json:"download_url,omitempty"`
	DownloadExpiresAt *time.Time             `json:"download_expires_at,omitempty"`
}

// ToImportBatchResponse converts a batch without its results
func ToImportBatchResponse(b *bulk.ImportBatch) ImportBatchResponse {
	return ImportBatchResponse{
		ID:       b.ID.String(),
		FileName: b.FileName,
		FileSize: b.FileSize,
		Status:   string(b.Status),
		Attempts: b.Attempts,
		Summary: ImportSummaryResponse{
			Total:   b.Summary.Total,
			Success: b.Summary.Success,
			Failed:  b.Summary.Failed,
		},
		Error:       b.Error,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
		CompletedAt: b.CompletedAt,
	}
}

// ToImportBatchResponses converts a page of batches
func ToImportBatchResponses(batches []*bulk.ImportBatch) []ImportBatchResponse {
	out := make([]ImportBatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, ToImportBatchResponse(b))
	}
	return out
}

// ToImportBatchDetailResponse converts a batch with its results in append order
func ToImportBatchDetailResponse(b *bulk.ImportBatch, downloadURL string, expiresAt *time.Time) ImportBatchDetailResponse {
	results := make([]ImportResultResponse, 0, len(b.Results))
	for _, r := range b.Results {
		results = append(results, ImportResultResponse{
			Handle:      r.Handle,
			Status:      string(r.Status),
			Message:     r.Message,
			StartedAt:   r.StartedAt,
			CompletedAt: r.CompletedAt,
		})
	}
	return ImportBatchDetailResponse{
		ImportBatchResponse: ToImportBatchResponse(b),
		Results:             results,
		DownloadURL:         downloadURL,
		DownloadExpiresAt:   expiresAt,
	}
}
