package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
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

// Wrap wraps an error with additional context, keeping the code of a wrapped AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// UserMessage returns the outermost AppError message, which is safe to show in the UI.
func UserMessage(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong. Please try again."
}

// HTTPStatus maps an error code to the status returned by the JSON API
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeInvalidFileType, CodeInvalidColumn, CodeInvalidRowLimit, CodeInvalidInput,
		CodeSpreadsheetUnreadable:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Predefined error codes
const (
	CodeConfigInvalid         = "CONFIG_INVALID"
	CodeNotFound              = "NOT_FOUND"
	CodeInternalError         = "INTERNAL_ERROR"
	CodeExternalService       = "EXTERNAL_SERVICE_ERROR"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInvalidFileType       = "INVALID_FILE_TYPE"
	CodeInvalidColumn         = "INVALID_COLUMN"
	CodeInvalidRowLimit       = "INVALID_ROW_LIMIT"
	CodeSpreadsheetUnreadable = "SPREADSHEET_UNREADABLE"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code:    CodeExternalService,
		Message: fmt.Sprintf("%s service error", service),
		Cause:   cause,
	}
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func InvalidFileType(filename string) *AppError {
	return New(CodeInvalidFileType, fmt.Sprintf("Unsupported file type %q. Please upload an .xlsx or .xls file.", filename))
}

func InvalidColumn(column string) *AppError {
	if column == "" {
		return New(CodeInvalidColumn, "Please select the column that contains product names.")
	}
	return New(CodeInvalidColumn, fmt.Sprintf("Selected column %q not found in file.", column))
}

func InvalidRowLimit(value string) *AppError {
	return New(CodeInvalidRowLimit, fmt.Sprintf("Please enter a valid custom number of rows (got %q).", value))
}

func SpreadsheetUnreadable(cause error) *AppError {
	return &AppError{
		Code:    CodeSpreadsheetUnreadable,
		Message: "Failed to read Excel file",
		Cause:   cause,
	}
}
