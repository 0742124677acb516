// Package handlers defines the HTTP-layer error codes used across the API.
//
// Codes are lowercase snake_case. Generic codes mirror HTTP status
// semantics; domain-specific codes name the operation that failed so
// clients can branch programmatically without parsing messages.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeSignupFailed     = "signup_failed"
	ErrCodeLoginFailed      = "login_failed"
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeDeleteFailed     = "delete_failed"
	ErrCodeCompletionFailed = "completion_failed"
)
