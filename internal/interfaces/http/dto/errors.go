package dto

import (
	"net/http"
	"strings"
)

// Codes returned in ErrorInfo.Code
const (
	ErrCodeInternal         = "ERR_INTERNAL"
	ErrCodeBadRequest       = "ERR_BAD_REQUEST"
	ErrCodeValidation       = "ERR_VALIDATION"
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	ErrCodeUnauthorized     = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired     = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid     = "ERR_TOKEN_INVALID"
	ErrCodeNotFound         = "ERR_NOT_FOUND"
	ErrCodeInvalidState     = "ERR_INVALID_STATE"
	ErrCodeBusinessRule     = "ERR_BUSINESS_RULE"
	ErrCodeUnsupportedFile  = "ERR_UNSUPPORTED_FILE"
	ErrCodeEmptyFile        = "ERR_EMPTY_FILE"
	ErrCodePayloadTooLarge  = "ERR_PAYLOAD_TOO_LARGE"
	ErrCodeRateLimited      = "ERR_RATE_LIMITED"
)

// APIError is the HTTP rendering of a domain error code
type APIError struct {
	Code   string
	Status int
}

var domainErrors = map[string]APIError{
	"NOT_FOUND":          {ErrCodeNotFound, http.StatusNotFound},
	"INVALID_STATE":      {ErrCodeInvalidState, http.StatusUnprocessableEntity},
	"MAX_DEPTH_EXCEEDED": {ErrCodeBusinessRule, http.StatusUnprocessableEntity},
	"UNSUPPORTED_FILE":   {ErrCodeUnsupportedFile, http.StatusUnsupportedMediaType},
	"EMPTY_FILE":         {ErrCodeEmptyFile, http.StatusBadRequest},
	"INVALID_OWNER":      {ErrCodeUnauthorized, http.StatusUnauthorized},
	"REQUEST_TOO_LARGE":  {ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
}

// FromDomainCode translates a shared.DomainError code. Remaining INVALID_*
// codes are input errors. Anything else is reported as an internal error.
func FromDomainCode(code string) APIError {
	if apiErr, ok := domainErrors[code]; ok {
		return apiErr
	}
	if strings.HasPrefix(code, "INVALID_") {
		return APIError{ErrCodeValidationFormat, http.StatusBadRequest}
	}
	return APIError{ErrCodeInternal, http.StatusInternalServerError}
}
