package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"anovadash/domain/core"
	"anovadash/domain/stats"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of a wrapped
// AppError or deriving one from known domain errors.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    GetCode(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the outermost AppError, or a code derived from
// the domain error chain.
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case stderrors.Is(err, stats.ErrInsufficientGroupSize):
		return CodeInsufficientGroupSize
	case stderrors.Is(err, stats.ErrModelFit):
		return CodeModelFit
	case stderrors.Is(err, stats.ErrDegeneratePair):
		return CodeDegeneratePair
	case core.IsNotFoundError(err):
		return CodeNotFound
	case core.IsValidationError(err):
		return CodeInvalidInput
	}
	return CodeInternalError
}

// HTTPStatus maps an error to the status code used by the transports
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput, CodeValidationError, CodeConfigInvalid:
		return http.StatusBadRequest
	case CodeInsufficientGroupSize, CodeModelFit, CodeDegeneratePair:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Predefined error codes
const (
	CodeConfigInvalid         = "CONFIG_INVALID"
	CodeValidationError       = "VALIDATION_ERROR"
	CodeNotFound              = "NOT_FOUND"
	CodeInternalError         = "INTERNAL_ERROR"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeDataSource            = "DATA_SOURCE_ERROR"
	CodeInsufficientGroupSize = "INSUFFICIENT_GROUP_SIZE"
	CodeModelFit              = "MODEL_FIT"
	CodeDegeneratePair        = "DEGENERATE_PAIR"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func DataSourceError(path string, cause error) *AppError {
	return &AppError{
		Code:    CodeDataSource,
		Message: fmt.Sprintf("failed to load dataset %s", path),
		Cause:   cause,
	}
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
