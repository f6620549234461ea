// Package errors provides the closed error-kind enumeration shared by the
// recommendation pipeline and its conversion to BPMN errors for job workers.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode identifies the kind of a pipeline failure. Callers branch on the
// code, never on message text.
type ErrorCode string

const (
	ErrCodeTruncatedResponse   ErrorCode = "TRUNCATED_RESPONSE"
	ErrCodeMalformedResponse   ErrorCode = "MALFORMED_RESPONSE"
	ErrCodeEmptyResponse       ErrorCode = "EMPTY_RESPONSE"
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"

	ErrCodeIndexNotFound      ErrorCode = "INDEX_NOT_FOUND"
	ErrCodeIndexAlreadyExists ErrorCode = "INDEX_ALREADY_EXISTS"
	ErrCodeBulkIndexFailed    ErrorCode = "BULK_INDEX_FAILED"

	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeCatalogStoreFailed ErrorCode = "CATALOG_STORE_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the single error type produced by pipeline components.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a diagnostic key/value and returns the receiver.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// LLM response errors
// ==========================

func NewTruncatedResponseError(operation string) *StandardError {
	return newError(ErrCodeTruncatedResponse,
		"LLM response truncated by output token limit",
		fmt.Sprintf("operation: %s", operation), false, nil)
}

func NewMalformedResponseError(operation string, err error) *StandardError {
	details := fmt.Sprintf("operation: %s", operation)
	if err != nil {
		details = fmt.Sprintf("operation: %s, error: %s", operation, err.Error())
	}
	return newError(ErrCodeMalformedResponse,
		"LLM response is not a valid JSON object", details, true, err)
}

func NewEmptyResponseError(operation string) *StandardError {
	return newError(ErrCodeEmptyResponse,
		"LLM returned no text",
		fmt.Sprintf("operation: %s", operation), true, nil)
}

// ==========================
// Transport errors
// ==========================

func NewUpstreamUnavailableError(service string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return newError(ErrCodeUpstreamUnavailable,
		fmt.Sprintf("upstream service '%s' unavailable", service), details, true, err)
}

func NewUpstreamTimeoutError(service string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return newError(ErrCodeUpstreamTimeout,
		fmt.Sprintf("upstream service '%s' timed out", service), details, true, err)
}

// NewUpstreamError classifies a transport failure, choosing the timeout kind
// when the failure came from a deadline.
func NewUpstreamError(service string, err error) *StandardError {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewUpstreamTimeoutError(service, err)
	}
	return NewUpstreamUnavailableError(service, err)
}

// ==========================
// Index errors
// ==========================

func NewIndexNotFoundError(indexName string) *StandardError {
	return newError(ErrCodeIndexNotFound,
		"search index not found",
		fmt.Sprintf("indexName: %s", indexName), false, nil)
}

func NewIndexAlreadyExistsError(indexName string) *StandardError {
	return newError(ErrCodeIndexAlreadyExists,
		"search index already exists",
		fmt.Sprintf("indexName: %s", indexName), false, nil)
}

func NewBulkIndexFailedError(indexName string, batch int, details string, err error) *StandardError {
	if err != nil {
		details = strings.TrimSpace(details + " " + err.Error())
	}
	return newError(ErrCodeBulkIndexFailed,
		fmt.Sprintf("bulk indexing failed at batch %d", batch),
		fmt.Sprintf("indexName: %s, %s", indexName, details), true, err).
		WithMetadata("batch", batch)
}

// ==========================
// Caller errors
// ==========================

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "invalid input", details, false, nil)
}

func NewCatalogStoreFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeCatalogStoreFailed,
		"catalog store operation failed",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "unexpected error", err.Error(), false, err)
}

// ==========================
// Inspection
// ==========================

// KindOf returns the code of the first StandardError in err's chain, or
// ErrCodeInternal when there is none.
func KindOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// Is reports whether err carries one of the given codes.
func Is(err error, codes ...ErrorCode) bool {
	if err == nil {
		return false
	}
	kind := KindOf(err)
	for _, c := range codes {
		if kind == c {
			return true
		}
	}
	return false
}

// AsStandard normalizes any error to a StandardError.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewUpstreamTimeoutError("pipeline", err)
	}
	return NewInternalError(err)
}

// UserMessage maps an error kind to the text shown to end users. subject names
// what the user submitted, e.g. "description" or "file".
func UserMessage(err error, subject string) string {
	switch KindOf(err) {
	case ErrCodeTruncatedResponse:
		return fmt.Sprintf("Your %s is too long to analyze. Please shorten it and try again.", subject)
	case ErrCodeUpstreamTimeout:
		return "The analysis is taking too long. Please try again with a shorter, more specific input."
	case ErrCodeInvalidInput:
		return fmt.Sprintf("The %s could not be processed. Please check it and try again.", subject)
	case ErrCodeIndexNotFound:
		return "The API catalog is not available yet. Please try again later."
	default:
		return fmt.Sprintf("Failed to analyze your %s. Please try again.", subject)
	}
}

// ==========================
// BPMN conversion
// ==========================

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// GetRetryCount is the number of engine-side retries granted to a job that
// failed with code. The pipeline itself never retries.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUpstreamUnavailable,
		ErrCodeCatalogStoreFailed,
		ErrCodeBulkIndexFailed:
		return 3
	case ErrCodeUpstreamTimeout,
		ErrCodeMalformedResponse,
		ErrCodeEmptyResponse:
		return 1
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorCategory":     GetErrorCategory(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeTruncatedResponse, ErrCodeMalformedResponse, ErrCodeEmptyResponse:
		return "LLM"
	case ErrCodeUpstreamUnavailable, ErrCodeUpstreamTimeout:
		return "UPSTREAM"
	case ErrCodeIndexNotFound, ErrCodeIndexAlreadyExists, ErrCodeBulkIndexFailed:
		return "SEARCH"
	case ErrCodeCatalogStoreFailed:
		return "DATABASE"
	case ErrCodeInvalidInput:
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
