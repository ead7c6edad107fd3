package dto

import "net/http"

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeValidation is used when request validation fails
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
)

// errorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes not listed fall back to 422 so a new business rule rejection
// never surfaces as a server fault.
var errorCodeHTTPStatus = map[string]int{
	// Input errors -> 400 Bad Request
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,
	"INVALID_INPUT":   http.StatusBadRequest,
	"INVALID_INVOICE": http.StatusBadRequest,
	"MISSING_ACTOR":   http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:  http.StatusNotFound,
	"ALREADY_EXISTS": http.StatusConflict,

	// Concurrency -> 409 Conflict
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"CONCURRENT_RUN":       http.StatusConflict,

	// Duplicate posting guards -> 409 Conflict
	"ALREADY_POSTED":         http.StatusConflict,
	"BILL_ALREADY_EXISTS":    http.StatusConflict,
	"EXPENSE_ALREADY_POSTED": http.StatusConflict,
	"PLAN_ALREADY_EXISTS":    http.StatusConflict,

	// Business rule rejections -> 422 Unprocessable Entity
	"INVALID_STATE":        http.StatusUnprocessableEntity,
	"RESERVATION_FAILED":   http.StatusUnprocessableEntity,
	"SALE_FAILED":          http.StatusUnprocessableEntity,
	"NO_SOLD_ITEMS":        http.StatusUnprocessableEntity,
	"OVERPAYMENT_REJECTED": http.StatusUnprocessableEntity,
	"PAYMENT_NOT_VOIDABLE": http.StatusUnprocessableEntity,
	"RETRY_NOT_ALLOWED":    http.StatusUnprocessableEntity,

	ErrCodeInternal: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for a domain error code
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusUnprocessableEntity
}
