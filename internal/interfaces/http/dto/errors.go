package dto

import "net/http"

// Error codes surfaced by the API. Domain error codes pass through unchanged
// so clients can match on them.
const (
	// ErrCodeInternal is used for unexpected server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeValidation is used when request validation fails
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeUnauthorized is used when authentication is missing or invalid
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	// ErrCodeNotFound is used when a resource does not exist
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeQuotaExceeded is used when the tier's document limit is reached
	ErrCodeQuotaExceeded = "QUOTA_EXCEEDED"
	// ErrCodeRateLimited is used when the per-user request limit is exceeded
	ErrCodeRateLimited = "RATE_LIMITED"
)

// errorCodeHTTPStatus maps error codes to HTTP status codes. Codes produced
// by the domain and application layers appear here verbatim.
var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeNotFound:     http.StatusNotFound,

	// quota gate
	ErrCodeQuotaExceeded: http.StatusTooManyRequests,
	ErrCodeRateLimited:   http.StatusTooManyRequests,

	// billing and session
	"PROVIDER_UNAVAILABLE": http.StatusServiceUnavailable,
	"INVALID_USER":         http.StatusUnauthorized,
	"PURCHASE_FAILED":      http.StatusPaymentRequired,
	"SESSION_UNRESOLVED":   http.StatusConflict,
	"ALREADY_BOUND":        http.StatusConflict,

	// generic domain codes
	"INVALID_INPUT": http.StatusBadRequest,
	"INVALID_STATE": http.StatusUnprocessableEntity,
	"FORBIDDEN":     http.StatusForbidden,
}

// GetHTTPStatus returns the HTTP status for an error code,
// 500 when the code is unknown.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
