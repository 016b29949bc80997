package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	importapp "github.com/catalogsync/backend/internal/application/import"
	"github.com/catalogsync/backend/internal/domain/bulk"
	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ImportService is the batch submission and query surface the handler needs
type ImportService interface {
	Submit(ctx context.Context, in importapp.SubmitInput) (*bulk.ImportBatch, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*importapp.BatchView, error)
	List(ctx context.Context, ownerID uuid.UUID, filter bulk.BatchFilter) ([]*bulk.ImportBatch, int64, error)
}

// ImportHandler accepts spreadsheet uploads and reports batch progress
type ImportHandler struct {
	BaseHandler
	service       ImportService
	maxUploadSize int64
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(service ImportService, maxUploadSize int64) *ImportHandler {
	return &ImportHandler{service: service, maxUploadSize: maxUploadSize}
}

// Upload godoc
// @ID           uploadImport
// @Summary      Submit a catalog spreadsheet
// @Description  Stores the file as a pending batch. Processing happens in the background worker.
// @Tags         imports
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "XLSX or CSV catalog"
// @Success      202 {object} dto.Response{data=dto.ImportBatchResponse}
// @Failure      400 {object} dto.Response
// @Failure      413 {object} dto.Response
// @Failure      415 {object} dto.Response
// @Router       /imports [post]
func (h *ImportHandler) Upload(c *gin.Context) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		h.Unauthorized(c, "Owner could not be determined")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.PayloadTooLarge(c, fmt.Sprintf("File exceeds the %d byte limit", h.maxUploadSize))
			return
		}
		h.BadRequest(c, "A spreadsheet must be sent in the 'file' form field")
		return
	}
	if h.maxUploadSize > 0 && fh.Size > h.maxUploadSize {
		h.PayloadTooLarge(c, fmt.Sprintf("File exceeds the %d byte limit", h.maxUploadSize))
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.BadRequest(c, "Uploaded file could not be read")
		return
	}
	defer f.Close()

	payload, err := io.ReadAll(f)
	if err != nil {
		h.BadRequest(c, "Uploaded file could not be read")
		return
	}

	batch, err := h.service.Submit(c.Request.Context(), importapp.SubmitInput{
		OwnerID:    ownerID,
		OwnerEmail: middleware.GetOwnerEmail(c),
		FileName:   fh.Filename,
		Payload:    payload,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Location", "/api/v1/imports/"+batch.ID.String())
	h.Accepted(c, dto.ToImportBatchResponse(batch))
}

// Get godoc
// @ID           getImport
// @Summary      Get an import batch
// @Description  Returns the batch with per-product results and, when archived, a download link for the original file
// @Tags         imports
// @Produce      json
// @Param        id path string true "Batch ID" format(uuid)
// @Success      200 {object} dto.Response{data=dto.ImportBatchDetailResponse}
// @Failure      404 {object} dto.Response
// @Router       /imports/{id} [get]
func (h *ImportHandler) Get(c *gin.Context) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		h.Unauthorized(c, "Owner could not be determined")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid batch ID")
		return
	}

	view, err := h.service.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToImportBatchDetailResponse(view.Batch, view.DownloadURL, view.DownloadExpiresAt))
}

// List godoc
// @ID           listImports
// @Summary      List import batches
// @Description  Newest first, without per-product results
// @Tags         imports
// @Produce      json
// @Param        status    query string false "Batch status" Enums(pending, processing, completed, failed)
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]dto.ImportBatchResponse}
// @Router       /imports [get]
func (h *ImportHandler) List(c *gin.Context) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		h.Unauthorized(c, "Owner could not be determined")
		return
	}

	req := dto.ImportListRequest{ListRequest: dto.FirstPage()}
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	filter := bulk.BatchFilter{}
	filter.Page = req.Page
	filter.PageSize = req.PageSize
	if req.Status != "" {
		status := bulk.BatchStatus(req.Status)
		filter.Status = &status
	}

	batches, total, err := h.service.List(c.Request.Context(), ownerID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dto.ToImportBatchResponses(batches), total, req.Page, req.PageSize)
}
