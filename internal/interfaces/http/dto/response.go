package dto

import "time"

// DefaultPageSize applies when a list request leaves page_size unset
const DefaultPageSize = 20

// Response is the envelope every API endpoint answers with
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo is the error half of the envelope
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail describes one rejected field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta describes the page a list response holds
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPageMeta computes paging metadata. pageSize <= 0 means DefaultPageSize.
func NewPageMeta(total int64, page, pageSize int) *Meta {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Meta{
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}

// NewSuccessResponse wraps data in a success envelope
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewSuccessResponseWithMeta wraps one page of a list
func NewSuccessResponseWithMeta(data any, total int64, page, pageSize int) Response {
	return Response{Success: true, Data: data, Meta: NewPageMeta(total, page, pageSize)}
}

// NewErrorResponse builds an error envelope without a request ID
func NewErrorResponse(code, message string) Response {
	return NewErrorResponseWithRequestID(code, message, "")
}

// NewErrorResponseWithRequestID builds an error envelope stamped with the current time
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{Error: &ErrorInfo{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now(),
	}}
}

// NewValidationErrorResponse lists every rejected field
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	resp := NewErrorResponseWithRequestID(ErrCodeValidation, message, requestID)
	resp.Error.Details = details
	return resp
}

// ListRequest carries page and page_size query parameters
type ListRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// FirstPage is the ListRequest used when the query string sets nothing
func FirstPage() ListRequest {
	return ListRequest{Page: 1, PageSize: DefaultPageSize}
}

// IDRequest binds the :id path parameter
type IDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}
