package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tsawler/wikibox/chart"
	"github.com/tsawler/wikibox/compare"
	"github.com/tsawler/wikibox/selection"
	"github.com/tsawler/wikibox/wikipage"
)

// Error types reported in the JSON error body.
const (
	ErrorTypeValidation  = "VALIDATION_ERROR"
	ErrorTypeNotFound    = "NOT_FOUND_ERROR"
	ErrorTypeUpstream    = "UPSTREAM_ERROR"
	ErrorTypeUnavailable = "UNAVAILABLE_ERROR"
	ErrorTypeInternal    = "INTERNAL_ERROR"
)

// AppError is an error with an HTTP status and a client-facing message.
type AppError struct {
	Type    string
	Message string
	Code    int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// NewValidationError reports a bad request.
func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, Code: http.StatusBadRequest}
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(message string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: message, Code: http.StatusNotFound}
}

// NewUpstreamError reports a failure fetching from the wiki.
func NewUpstreamError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeUpstream, Message: message, Code: http.StatusBadGateway, Err: err}
}

// NewUnavailableError reports a feature that is switched off.
func NewUnavailableError(message string) *AppError {
	return &AppError{Type: ErrorTypeUnavailable, Message: message, Code: http.StatusServiceUnavailable}
}

// NewInternalError reports an unexpected failure.
func NewInternalError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, Code: http.StatusInternalServerError, Err: err}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   errorDetail `json:"error"`
	TraceID string      `json:"trace_id,omitempty"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// classify maps package errors onto AppErrors.
func classify(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, wikipage.ErrEmptyURL):
		return NewValidationError("url or title is required")
	case errors.Is(err, selection.ErrInvalidSelector):
		return NewValidationError(err.Error())
	case errors.Is(err, chart.ErrUnsupported):
		return NewValidationError(err.Error())
	case errors.Is(err, chart.ErrNoData):
		return NewNotFoundError(err.Error())
	case errors.Is(err, compare.ErrEmptyText):
		return NewValidationError(err.Error())
	case errors.Is(err, compare.ErrNotConfigured):
		return NewUnavailableError("text comparison is not configured")
	case errors.Is(err, wikipage.ErrStatus), errors.Is(err, wikipage.ErrTooLarge):
		return NewUpstreamError("fetching page failed", err)
	}
	return NewInternalError("internal server error", err)
}
