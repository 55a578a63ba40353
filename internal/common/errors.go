package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound             = errors.New("resource not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInternal             = errors.New("internal error")
	ErrReferenceUnavailable = errors.New("reference vocabularies unavailable")
	ErrOCRUnavailable       = errors.New("ocr engine unavailable")
	ErrOutputStore          = errors.New("output store error")
	ErrLedger               = errors.New("progress log error")
)

// Error codes carried on AppError.
const (
	CodeConfig    = "CONFIG_ERROR"
	CodeReference = "REFERENCE_ERROR"
	CodeOCR       = "OCR_ERROR"
	CodeOutput    = "OUTPUT_ERROR"
	CodeLedger    = "LEDGER_ERROR"
	CodeDownload  = "DOWNLOAD_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsFatal reports whether err must stop the whole run rather than a single item.
func IsFatal(err error) bool {
	return errors.Is(err, ErrReferenceUnavailable) ||
		errors.Is(err, ErrOCRUnavailable) ||
		errors.Is(err, ErrOutputStore) ||
		errors.Is(err, ErrLedger)
}
