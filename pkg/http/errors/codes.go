package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"

	// Request errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeOriginUnresolved = "origin_unresolved"

	// Core/contract errors
	ErrCodeCoreFailure   = "auth_core_failure"
	ErrCodeCSRFInvariant = "csrf_invariant_violation"

	ErrCodeInternalError = "internal_error"
)
