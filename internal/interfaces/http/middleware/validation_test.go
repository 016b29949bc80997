package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleValidationError_ReportsFormFieldNames(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.GET("/imports", func(c *gin.Context) {
		var req dto.ImportListRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	t.Run("invalid status and page size", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/imports?status=archived&page_size=500", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.RequestID)

		fields := map[string]string{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "Must be one of: pending processing completed failed", fields["status"])
		assert.Equal(t, "Must be at most 100", fields["page_size"])
	})

	t.Run("valid query", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/imports?status=failed&page=2", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestFormatValidationErrors_NonValidatorError(t *testing.T) {
	resp := FormatValidationErrors(assert.AnError, "req-1")
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
}

func TestHandleValidationError_URIParams(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.GET("/imports/:id", func(c *gin.Context) {
		var req dto.IDRequest
		if err := c.ShouldBindUri(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/imports/not-a-uuid", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "id", resp.Error.Details[0].Field)
	assert.Equal(t, "Invalid UUID format", resp.Error.Details[0].Message)
}
