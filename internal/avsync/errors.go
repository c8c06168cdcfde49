package avsync

import (
	"errors"
	"fmt"
)

type ErrorType int

const (
	ErrValidation ErrorType = iota
	ErrRunActive
	ErrProbe
	ErrAnalyzer
	ErrStore
	ErrConfig
	ErrUnknown
)

func (t ErrorType) String() string {
	switch t {
	case ErrValidation:
		return "Validation"
	case ErrRunActive:
		return "RunActive"
	case ErrProbe:
		return "Probe"
	case ErrAnalyzer:
		return "Analyzer"
	case ErrStore:
		return "Store"
	case ErrConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

// SyncError carries a coarse error class so callers can map failures to
// HTTP statuses or exit codes without string matching.
type SyncError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func NewError(errorType ErrorType, message string) *SyncError {
	return &SyncError{
		Type:    errorType,
		Message: message,
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *SyncError {
	return &SyncError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

func IsErrorType(err error, errorType ErrorType) bool {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *SyncError {
	return NewErrorWithCause(errorType, message, err)
}
