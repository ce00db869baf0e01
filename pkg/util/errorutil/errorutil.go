package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Engine error taxonomy. Components wrap these with %w so callers can use errors.Is.
var (
	// ErrConfigurationMissing means no SLA configuration matched after the fallback chain.
	ErrConfigurationMissing = errors.New("sla configuration missing")
	// ErrRuleEvaluation means a condition predicate could not be evaluated.
	ErrRuleEvaluation = errors.New("rule evaluation failed")
	// ErrActionExecution means an action of a matched rule failed.
	ErrActionExecution = errors.New("action execution failed")
	// ErrDispatch means a notification transport failed.
	ErrDispatch = errors.New("notification dispatch failed")
	// ErrPersistence means a collection could not be written.
	ErrPersistence = errors.New("persistence failed")
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

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewPersistenceError wraps a store failure so it matches ErrPersistence.
func NewPersistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// sentinelErrors maps engine sentinels to the response a caller sees when one escapes.
var sentinelErrors = []struct {
	target  error
	code    string
	message string
	status  int
}{
	{ErrPersistence, "PERSISTENCE_FAILED", "case changes could not be saved", http.StatusServiceUnavailable},
	{ErrConfigurationMissing, "SLA_CONFIGURATION_MISSING", "no SLA configuration applies", http.StatusUnprocessableEntity},
	{ErrRuleEvaluation, "RULE_EVALUATION_FAILED", "workflow rule could not be evaluated", http.StatusUnprocessableEntity},
	{ErrDispatch, "DISPATCH_FAILED", "notification could not be delivered", http.StatusBadGateway},
}

// ToDomainError converts generic errors to DomainError. Wrapped engine sentinels keep a
// specific code; anything else becomes an internal error.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	for _, s := range sentinelErrors {
		if errors.Is(err, s.target) {
			return &DomainError{Code: s.code, Message: s.message, HTTPStatus: s.status, Err: err}
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
