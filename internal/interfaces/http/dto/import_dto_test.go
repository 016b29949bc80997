package dto

import (
	"testing"
	"time"

	"github.com/catalogsync/backend/internal/domain/bulk"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToImportBatchDetailResponse(t *testing.T) {
	batch, err := bulk.NewImportBatch(uuid.New(), "owner@example.com", "catalog.csv", []byte("abc"))
	require.NoError(t, err)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, batch.Claim(now))
	require.NoError(t, batch.SetTotal(2))
	require.NoError(t, batch.RecordResult(bulk.NewSuccessResult("tee", now, now)))
	require.NoError(t, batch.RecordResult(bulk.NewErrorResult("mug", "missing Title", now, now)))
	require.NoError(t, batch.Complete(now))

	expires := now.Add(time.Hour)
	resp := ToImportBatchDetailResponse(batch, "https://archive.test/x", &expires)

	assert.Equal(t, batch.ID.String(), resp.ID)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, ImportSummaryResponse{Total: 2, Success: 1, Failed: 1}, resp.Summary)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "tee", resp.Results[0].Handle)
	assert.Equal(t, "error", resp.Results[1].Status)
	assert.Equal(t, "missing Title", resp.Results[1].Message)
	assert.Equal(t, "https://archive.test/x", resp.DownloadURL)
	assert.NotNil(t, resp.CompletedAt)
}

func TestToImportBatchResponses_Empty(t *testing.T) {
	out := ToImportBatchResponses(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
