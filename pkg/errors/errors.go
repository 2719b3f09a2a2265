package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents a failed operation against the backend
type AppError struct {
	Code    ErrorCode           `json:"code"`
	Status  int                 `json:"status,omitempty"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
	Err     error               `json:"-"`
}

func (e *AppError) Error() string {
	msg := e.Message
	if len(e.Details) > 0 {
		msg = fmt.Sprintf("%s (%s)", msg, e.detailString())
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) detailString() string {
	fields := make([]string, 0, len(e.Details))
	for f := range e.Details {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e.Details[f], "; ")))
	}
	return strings.Join(parts, ", ")
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrValidation
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrNetwork
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewValidation(message string, details map[string][]string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Status:  400,
		Message: message,
		Details: details,
	}
}

func NewInternal(status int, err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Status:  status,
		Message: "backend error",
		Err:     err,
	}
}

func NewNetwork(err error) *AppError {
	return &AppError{
		Code:    ErrNetwork,
		Message: "network failure",
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func Validation(message string, details map[string][]string) *AppError {
	return NewValidation(message, details)
}

func Network(err error) *AppError {
	return NewNetwork(err)
}

func Internal(status int, err error) *AppError {
	return NewInternal(status, err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(err error) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Status:  403,
		Message: "forbidden",
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or 0.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return 0
}

func IsNotFound(err error) bool {
	return CodeOf(err) == ErrNotFound
}

func IsValidation(err error) bool {
	return CodeOf(err) == ErrValidation
}

// IsAuth reports a missing, invalid or expired credential (401 or 403).
func IsAuth(err error) bool {
	code := CodeOf(err)
	return code == ErrUnauthorized || code == ErrForbidden
}

func IsNetwork(err error) bool {
	return CodeOf(err) == ErrNetwork
}

// FieldErrors returns the per-field validation messages carried by err, if any.
func FieldErrors(err error) map[string][]string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}
