package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes shared by services and HTTP handlers.
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeIllegalState      = "ILLEGAL_STATE"
	CodeExternalSync      = "EXTERNAL_SYNC_FAILED"
	CodeInternal          = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) *DomainError {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

// NewNotFound is also used when a record exists under another tenant, so
// callers cannot probe for foreign ids.
func NewNotFound(resource string, details map[string]any) *DomainError {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) *DomainError {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) *DomainError {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) *DomainError {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewInvalidTransition names both the current and the requested state.
func NewInvalidTransition(resource, from, to string) *DomainError {
	return NewDomainError(
		CodeInvalidTransition,
		fmt.Sprintf("cannot change %s status from %s to %s", resource, from, to),
		http.StatusUnprocessableEntity,
		map[string]any{"from": from, "to": to},
	)
}

// NewIllegalState reports a workflow precondition that the record does not meet.
func NewIllegalState(message string, details map[string]any) *DomainError {
	return NewDomainError(CodeIllegalState, message, http.StatusUnprocessableEntity, details)
}

func NewExternalSyncError(message string, err error) *DomainError {
	return &DomainError{
		Code:       CodeExternalSync,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(err error) *DomainError {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "system exception",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError. Anything unknown
// becomes an internal error whose message never carries the cause.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil)
	}
	return NewInternalError(err)
}

func MapError(err error) error {
	return ToDomainError(err)
}

// StatusForCode returns the HTTP status used for a failure code.
func StatusForCode(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	case CodeInvalidTransition, CodeIllegalState:
		return http.StatusUnprocessableEntity
	case CodeExternalSync:
		return http.StatusBadGateway
	case "":
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
