// internal/api/respond.go
package api

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"apisense/internal/common/errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type errorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Debug   interface{} `json:"debug,omitempty"`
}

// validationFailed answers 422 with a message naming the offending field.
func (h *Handler) validationFailed(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorResponse{
		Success: false,
		Error:   message,
	})
}

// bindingFailed turns a gin binding error into a validation response.
func (h *Handler) bindingFailed(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		h.validationFailed(c, describeFieldError(verrs[0]))
		return
	}
	h.validationFailed(c, "The request body is not valid JSON.")
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", field, fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}

func maxLengthMessage(field string, limit int) string {
	return fmt.Sprintf("The %s field must not be greater than %d characters.", field, limit)
}

// pipelineFailed answers 500 with the user-facing message for err. The raw
// error is only exposed when the server runs in debug mode.
func (h *Handler) pipelineFailed(c *gin.Context, err error, subject string) {
	h.logger.Error("request failed", map[string]interface{}{
		"requestId": requestID(c),
		"path":      c.FullPath(),
		"errorCode": errors.KindOf(err),
		"error":     err.Error(),
	})

	body := errorResponse{Success: false, Error: errors.UserMessage(err, subject)}
	if h.opts.Debug {
		body.Debug = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}
