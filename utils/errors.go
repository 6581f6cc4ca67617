package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
)

// Error codes carried in the error_code field of failure envelopes.
const (
	CodeNoFile            = "NO_FILE"
	CodeNoFiles           = "NO_FILES"
	CodeInvalidFilename   = "INVALID_FILENAME"
	CodeInvalidExtension  = "INVALID_EXTENSION"
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeSecurityViolation = "SECURITY_VIOLATION"
	CodeTooManyFiles      = "TOO_MANY_FILES"
	CodeTotalSizeTooLarge = "TOTAL_SIZE_TOO_LARGE"
	CodeInsufficientFiles = "INSUFFICIENT_FILES"
	CodeInvalidPageRange  = "INVALID_PAGE_RANGE"
	CodeInvalidPageNumber = "INVALID_PAGE_NUMBER"
	CodeNoPages           = "NO_PAGES"
	CodeMergeFailed       = "MERGE_FAILED"
	CodeSplitFailed       = "SPLIT_FAILED"
	CodeCompressFailed    = "COMPRESS_FAILED"
	CodeConvertFailed     = "CONVERT_FAILED"
	CodeUnlockFailed      = "UNLOCK_FAILED"
	CodeInvalidConversion = "INVALID_CONVERSION_TYPE"
	CodeProcessing        = "PROCESSING_ERROR"
	CodeFileNotFound      = "FILE_NOT_FOUND"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeEndpointNotFound  = "ENDPOINT_NOT_FOUND"
	CodeRateLimited       = "RATE_LIMITED"
	CodeForbidden         = "FORBIDDEN"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInternal          = "INTERNAL_ERROR"
)

// ToolkitError is a failure that is reported to the caller with a stable code.
type ToolkitError struct {
	Code    string
	Message string
	// Status is the HTTP status used when the error reaches a handler; zero means 200.
	Status int
	Err    error
}

func (e *ToolkitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ToolkitError) Unwrap() error { return e.Err }

// NewToolkitError builds a declared failure with the given code.
func NewToolkitError(code, message string) *ToolkitError {
	return &ToolkitError{Code: code, Message: message}
}

// ValidationError reports a problem with the uploaded input.
func ValidationError(code, message string) *ToolkitError {
	return &ToolkitError{Code: code, Message: message}
}

// SecurityError reports a rejected upload whose name looks hostile.
func SecurityError(message string) *ToolkitError {
	return &ToolkitError{Code: CodeSecurityViolation, Message: message}
}

// ProcessingError wraps a failure raised while manipulating a document.
func ProcessingError(code, message string, err error) *ToolkitError {
	return &ToolkitError{Code: code, Message: message, Err: err}
}

// WithStatus returns a copy of e answering with the given HTTP status.
func (e *ToolkitError) WithStatus(status int) *ToolkitError {
	cp := *e
	cp.Status = status
	return &cp
}

// HTTPStatus returns the status the envelope is written with.
func (e *ToolkitError) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusOK
	}
	return e.Status
}

// AsToolkitError extracts a ToolkitError from err, classifying unknown errors.
func AsToolkitError(err error) *ToolkitError {
	if err == nil {
		return nil
	}
	var te *ToolkitError
	if errors.As(err, &te) {
		return te
	}
	return ClassifyProcessingError(err)
}

// ClassifyProcessingError maps filesystem and pdf library failures to declared codes.
func ClassifyProcessingError(err error) *ToolkitError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return ProcessingError(CodeFileNotFound, "File not found", err)
	case errors.Is(err, fs.ErrPermission):
		return ProcessingError(CodePermissionDenied, "Permission denied", err)
	case isPasswordError(err):
		return ProcessingError(CodeUnlockFailed, "Incorrect password provided", err)
	default:
		return ProcessingError(CodeProcessing, "Processing failed", err)
	}
}

func isPasswordError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password")
}
