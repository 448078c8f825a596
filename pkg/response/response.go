package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appErrors "github.com/KGR33N-dev/Portfolio-Backend/pkg/errors"
)

// ErrorBody is the wire shape for every non-2xx response. Detail carries
// either a human-readable string or, for validation failures, a list of
// per-field FieldError entries.
type ErrorBody struct {
	Detail     interface{} `json:"detail"`
	Code       string      `json:"code,omitempty"`
	RetryAfter int         `json:"retry_after,omitempty"`
}

// FieldError describes a single failed validation constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Success writes the payload as-is. Handlers shape their own bodies so that
// token responses and resource representations stay flat.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// Error writes a JSON error body derived from an AppError.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorBody{
		Detail: appErr.Message,
		Code:   appErr.Code,
	})
}

// ValidationError writes a 422 body listing every failed field.
func ValidationError(c *gin.Context, fields []FieldError) {
	c.JSON(http.StatusUnprocessableEntity, ErrorBody{
		Detail: fields,
		Code:   appErrors.ErrValidation.Code,
	})
}

// RateLimited writes a 429 body and the Retry-After header in seconds.
func RateLimited(c *gin.Context, retryAfter int) {
	if retryAfter < 1 {
		retryAfter = 1
	}

	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.JSON(http.StatusTooManyRequests, ErrorBody{
		Detail:     appErrors.ErrRateLimit.Message,
		Code:       appErrors.ErrRateLimit.Code,
		RetryAfter: retryAfter,
	})
}
