package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ParseFailure indicates a single source file could not be parsed
	ParseFailure ErrorCode = "PARSE_FAILURE"
	// CoverageInvalid indicates the coverage report could not be decoded
	CoverageInvalid ErrorCode = "COVERAGE_INVALID"
	// ModelUnavailable indicates the estimator artifact is missing or malformed
	ModelUnavailable ErrorCode = "MODEL_UNAVAILABLE"
	// EmptyAnalysis indicates zero functions were discovered across all inputs
	EmptyAnalysis ErrorCode = "EMPTY_ANALYSIS"
	// ConfigInvalid indicates the configuration could not be loaded or validated
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// HistoryUnavailable indicates the run-history store could not be opened
	HistoryUnavailable ErrorCode = "HISTORY_UNAVAILABLE"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// AnalysisError represents a pipeline error with a stable code and message
type AnalysisError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new AnalysisError
func New(code ErrorCode, message string, cause error) *AnalysisError {
	return &AnalysisError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *AnalysisError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AnalysisError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AnalysisError) WithDetails(details interface{}) *AnalysisError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, walking the wrap chain.
// Returns InternalError for errors produced outside this package.
func CodeOf(err error) ErrorCode {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return InternalError
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
