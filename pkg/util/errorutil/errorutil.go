package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Error codes shared by services and the HTTP layer.
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeMissingAssignment = "MISSING_ASSIGNMENT"
	CodeNoEligible        = "NO_ELIGIBLE_ENGINEER"
	CodeConflict          = "CONFLICT"
	CodeNotFound          = "NOT_FOUND"
	CodeUnavailable       = "UNAVAILABLE"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInternal          = "INTERNAL_ERROR"
)

const (
	pgUniqueViolation   = "23505"
	pgLockNotAvailable  = "55P03"
	pgSerializationFail = "40001"
	pgInvalidText       = "22P02"
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

// Retryable reports whether the caller may retry after re-reading state.
func (e *DomainError) Retryable() bool {
	return e.Code == CodeConflict || e.Code == CodeUnavailable
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("cannot transition from %s to %s", from, to),
		http.StatusUnprocessableEntity,
		map[string]any{"from": from, "to": to})
}

func NewMissingAssignment(ticketID string) error {
	return NewDomainError(CodeMissingAssignment,
		"ticket has no active assignment",
		http.StatusUnprocessableEntity,
		map[string]any{"ticket_id": ticketID})
}

func NewNoEligibleEngineer(ticketID string) error {
	return NewDomainError(CodeNoEligible,
		"no eligible engineer for ticket",
		http.StatusUnprocessableEntity,
		map[string]any{"ticket_id": ticketID})
}

func NewNotFound(resource string, details map[string]any) error {
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

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewUnavailable(message string, err error) error {
	return &DomainError{
		Code:       CodeUnavailable,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return NewConflict("duplicate record", map[string]any{"constraint": pgErr.ConstraintName}).(*DomainError)
		case pgLockNotAvailable, pgSerializationFail:
			return NewConflict("concurrent update in progress", nil).(*DomainError)
		case pgInvalidText:
			return NewValidationError("malformed identifier", map[string]any{"detail": pgErr.Message}).(*DomainError)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewUnavailable("operation timed out", err).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
