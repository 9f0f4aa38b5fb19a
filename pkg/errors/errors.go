// Package errors defines structured error types for the posture assessment service.
// Every error carries a stable code, an HTTP status for the boundary layer, and
// optional detail metadata; conversion to the wire format happens exactly once,
// in the HTTP response helpers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ================================================================================
// Error Codes
// ================================================================================

// Code is a stable, machine-readable error classification.
type Code string

const (
	// Input errors are surfaced as client errors; nothing is persisted.
	CodeCustomerIDRequired    Code = "customer_id_required"
	CodeCredentialsIncomplete Code = "credentials_incomplete"
	CodeInvalidDomainFormat   Code = "invalid_domain_format"
	CodeInvalidRequest        Code = "invalid_request"
	CodeCustomerNotFound      Code = "customer_not_found"
	CodeNotFound              Code = "not_found"
	CodeUnauthorized          Code = "unauthorized"

	// Upstream directory errors are recorded per category and do not fail the run.
	CodeAuthenticationFailed    Code = "authentication_failed"
	CodeInsufficientPermissions Code = "insufficient_permissions"
	CodeNotAvailable            Code = "not_available"
	CodeUpstreamError           Code = "upstream_error"

	// Storage errors.
	CodeStoreUnavailable Code = "store_unavailable"
	CodeNotInitialized   Code = "not_initialized"
	CodeTableMissing     Code = "table_missing"

	// Everything else.
	CodeInternal Code = "internal_error"
)

// ================================================================================
// AppError
// ================================================================================

// AppError is the single structured error type used across the service.
type AppError struct {
	Code       Code
	HTTPStatus int
	Message    string
	Details    map[string]string
	cause      error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.cause = cause
	return e
}

// WithDetail attaches a detail key/value pair and returns the receiver.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError with the given code, HTTP status, and message.
func New(code Code, httpStatus int, message string) *AppError {
	return &AppError{Code: code, HTTPStatus: httpStatus, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(code Code, httpStatus int, format string, args ...interface{}) *AppError {
	return New(code, httpStatus, fmt.Sprintf(format, args...))
}

// Wrap converts an arbitrary error into an AppError, preserving it as the cause.
// An error that already is an AppError passes through unchanged.
func Wrap(err error, code Code, message string) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(code, http.StatusInternalServerError, message).WithCause(err)
}

// ================================================================================
// Predefined Constructors
// ================================================================================

// ErrCustomerIDRequired indicates the create-assessment request named no customer.
func ErrCustomerIDRequired() *AppError {
	return New(CodeCustomerIDRequired, http.StatusBadRequest, "customerId is required")
}

// ErrCredentialsIncomplete indicates the customer has no usable app credential.
func ErrCredentialsIncomplete(customerID string) *AppError {
	return Newf(CodeCredentialsIncomplete, http.StatusBadRequest,
		"customer %s has no usable application credentials", customerID).
		WithDetail("customer_id", customerID)
}

// ErrInvalidDomainFormat indicates a tenant domain failed validation.
func ErrInvalidDomainFormat(domain string) *AppError {
	return Newf(CodeInvalidDomainFormat, http.StatusBadRequest,
		"invalid tenant domain format: %s", domain).
		WithDetail("domain", domain)
}

// ErrInvalidRequest indicates a malformed request body or parameter.
func ErrInvalidRequest(message string) *AppError {
	return New(CodeInvalidRequest, http.StatusBadRequest, message)
}

// ErrCustomerNotFound indicates the referenced customer does not exist.
func ErrCustomerNotFound(customerID string) *AppError {
	return Newf(CodeCustomerNotFound, http.StatusNotFound, "customer not found: %s", customerID).
		WithDetail("customer_id", customerID)
}

// ErrAssessmentNotFound indicates the referenced assessment does not exist.
func ErrAssessmentNotFound(assessmentID string) *AppError {
	return Newf(CodeNotFound, http.StatusNotFound, "assessment not found: %s", assessmentID).
		WithDetail("assessment_id", assessmentID)
}

// ErrUnauthorized indicates a missing or invalid bearer token.
func ErrUnauthorized(message string) *AppError {
	return New(CodeUnauthorized, http.StatusUnauthorized, message)
}

// ErrAuthenticationFailed indicates the tenant credential exchange was rejected.
func ErrAuthenticationFailed(tenantID string) *AppError {
	return Newf(CodeAuthenticationFailed, http.StatusBadGateway,
		"directory authentication failed for tenant %s", tenantID).
		WithDetail("tenant_id", tenantID)
}

// ErrInsufficientPermissions indicates the granted permission set cannot read
// the requested report.
func ErrInsufficientPermissions(tenantID, resource string) *AppError {
	return Newf(CodeInsufficientPermissions, http.StatusBadGateway,
		"insufficient directory permissions for %s on tenant %s", resource, tenantID).
		WithDetail("tenant_id", tenantID).
		WithDetail("resource", resource)
}

// ErrNotAvailable indicates the tenant has no data for the requested report.
func ErrNotAvailable(tenantID, resource string) *AppError {
	return Newf(CodeNotAvailable, http.StatusBadGateway,
		"%s data not available for tenant %s", resource, tenantID).
		WithDetail("tenant_id", tenantID).
		WithDetail("resource", resource)
}

// ErrUpstreamError indicates any other directory API failure, timeouts included.
func ErrUpstreamError(tenantID string, cause error) *AppError {
	return Newf(CodeUpstreamError, http.StatusBadGateway,
		"directory API request failed for tenant %s", tenantID).
		WithDetail("tenant_id", tenantID).
		WithCause(cause)
}

// ErrStoreUnavailable indicates the backing store could not be reached.
func ErrStoreUnavailable(cause error) *AppError {
	return New(CodeStoreUnavailable, http.StatusInternalServerError,
		"backing store is unavailable").WithCause(cause)
}

// ErrNotInitialized indicates a gateway operation ran before Initialize succeeded.
func ErrNotInitialized() *AppError {
	return New(CodeNotInitialized, http.StatusInternalServerError,
		"backing store gateway is not initialized")
}

// ErrTableMissing indicates a table/collection disappeared underneath an
// operation; the orchestrator re-initializes once and retries.
func ErrTableMissing(table string, cause error) *AppError {
	return Newf(CodeTableMissing, http.StatusInternalServerError,
		"backing table missing: %s", table).
		WithDetail("table", table).
		WithCause(cause)
}

// ErrInternal indicates an unexpected failure; internals are not leaked.
func ErrInternal(cause error) *AppError {
	return New(CodeInternal, http.StatusInternalServerError,
		"an unexpected error occurred").WithCause(cause)
}

// ================================================================================
// Classification Helpers
// ================================================================================

// AsAppError attempts to extract an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// CodeOf returns the AppError code, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// IsNotFound reports whether err classifies as a not-found condition.
func IsNotFound(err error) bool {
	code := CodeOf(err)
	return code == CodeNotFound || code == CodeCustomerNotFound
}

// IsTableMissing reports whether err indicates an externally cleared table.
func IsTableMissing(err error) bool {
	return CodeOf(err) == CodeTableMissing
}

// IsInputError reports whether err belongs to the client-error taxonomy.
func IsInputError(err error) bool {
	switch CodeOf(err) {
	case CodeCustomerIDRequired, CodeCredentialsIncomplete,
		CodeInvalidDomainFormat, CodeInvalidRequest:
		return true
	}
	return false
}

// IsUpstreamError reports whether err belongs to the directory-API taxonomy.
func IsUpstreamError(err error) bool {
	switch CodeOf(err) {
	case CodeAuthenticationFailed, CodeInsufficientPermissions,
		CodeNotAvailable, CodeUpstreamError:
		return true
	}
	return false
}
