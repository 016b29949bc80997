package importapp

import (
	"testing"
	"time"

	"github.com/catalogsync/backend/internal/domain/bulk"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedBatch(t *testing.T) *bulk.ImportBatch {
	t.Helper()
	batch, err := bulk.NewImportBatch(uuid.New(), "owner@example.com", "spring <sale>.csv", []byte("x"))
	require.NoError(t, err)
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, batch.Claim(now))
	require.NoError(t, batch.SetTotal(2))
	require.NoError(t, batch.RecordResult(bulk.NewSuccessResult("tee", now, now)))
	require.NoError(t, batch.RecordResult(bulk.NewErrorResult("mug", `normalize product "mug": missing Title`, now, now)))
	require.NoError(t, batch.Complete(now))
	return batch
}

func TestReportSubject(t *testing.T) {
	batch := finishedBatch(t)
	assert.Equal(t, "Import spring <sale>.csv completed", ReportSubject(batch))

	failed, err := bulk.NewImportBatch(uuid.New(), "", "x.csv", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, failed.Fail("bad file", time.Now()))
	assert.Equal(t, "Import x.csv failed", ReportSubject(failed))
}

func TestRenderReport(t *testing.T) {
	body, err := RenderReport(finishedBatch(t))
	require.NoError(t, err)

	assert.Contains(t, body, "Import spring &lt;sale&gt;.csv completed")
	assert.Contains(t, body, "<td>Products</td><td>2</td>")
	assert.Contains(t, body, "<td>Imported</td><td>1</td>")
	assert.Contains(t, body, "<td>Failed</td><td>1</td>")
	assert.Contains(t, body, "<td>mug</td>")
	assert.Contains(t, body, "missing Title")
	assert.NotContains(t, body, "<td>tee</td>")
	assert.Contains(t, body, "2026-04-02 09:30:00 UTC")
}

func TestRenderReport_BatchError(t *testing.T) {
	batch, err := bulk.NewImportBatch(uuid.New(), "", "x.csv", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, batch.Fail("decode spreadsheet: no data rows", time.Now()))

	body, err := RenderReport(batch)
	require.NoError(t, err)
	assert.Contains(t, body, "decode spreadsheet: no data rows")
	assert.NotContains(t, body, "Failed products")
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "abc", truncateText("abc", 5))
	assert.Equal(t, "ab...", truncateText("abcdef", 2))
	assert.Equal(t, "żó...", truncateText("żółw", 2))
}
