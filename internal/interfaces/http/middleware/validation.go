package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var setupValidatorOnce sync.Once

// validationMessages renders a message for a failed tag given the tag parameter
var validationMessages = map[string]func(param string) string{
	"required": func(string) string { return "This field is required" },
	"min":      func(p string) string { return "Must be at least " + p },
	"max":      func(p string) string { return "Must be at most " + p },
	"uuid":     func(string) string { return "Invalid UUID format" },
	"oneof":    func(p string) string { return "Must be one of: " + p },
}

// SetupValidator makes validation errors report the query/json names clients send.
// Safe to call more than once.
func SetupValidator() {
	setupValidatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(requestFieldName)
	})
}

// requestFieldName prefers the json tag, then the form tag, then the uri tag
func requestFieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// FormatValidationErrors turns binding errors into the validation envelope.
// Errors that are not validator errors produce an envelope without details.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return dto.NewValidationErrorResponse("Request validation failed", requestID, nil)
	}

	details := make([]dto.ValidationDetail, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		message := "Invalid value"
		if render, ok := validationMessages[fe.Tag()]; ok {
			message = render(fe.Param())
		}
		details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: message})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 validation error response
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, c.GetString(RequestIDKey)))
}
