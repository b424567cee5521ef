package providers

import (
	"errors"
	"fmt"
)

// ErrorCategory defines the normalized vendor-failure taxonomy.
type ErrorCategory string

const (
	// ErrorTimeout indicates the vendor took too long to respond.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the vendor returned invalid/malformed data.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues.
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorVendorOutage indicates the vendor is unavailable.
	ErrorVendorOutage ErrorCategory = "vendor_outage"

	// ErrorNotFound indicates no record exists for the lead.
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates the provider-local throttle tripped.
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorCircuitOpen indicates the vendor is short-circuited after
	// repeated failures.
	ErrorCircuitOpen ErrorCategory = "circuit_open"

	// ErrorInternal indicates an unexpected internal error.
	ErrorInternal ErrorCategory = "internal"
)

// Error wraps vendor failures with normalized categorization and the upstream
// status code when one exists.
type Error struct {
	Category   ErrorCategory
	Vendor     string
	StatusCode int
	Message    string
	Underlying error
	// Retryable marks errors worth retrying on a later enrichment run;
	// nothing is retried within the same call.
	Retryable bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("vendor %s [%s]: %s: %v", e.Vendor, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("vendor %s [%s]: %s", e.Vendor, e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Underlying }

// NewError creates a normalized provider error.
func NewError(category ErrorCategory, vendor, message string, underlying error) *Error {
	retryable := category == ErrorTimeout ||
		category == ErrorVendorOutage ||
		category == ErrorRateLimited ||
		category == ErrorCircuitOpen

	return &Error{
		Category:   category,
		Vendor:     vendor,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying on a later run.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// CategoryOf extracts the error category from an error.
func CategoryOf(err error) ErrorCategory {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// IsRateLimited reports whether err is the provider-local throttle tripping.
func IsRateLimited(err error) bool {
	return CategoryOf(err) == ErrorRateLimited
}

// Sentinel errors for common cases.
var (
	ErrAllVendorsFailed = errors.New("all vendors failed")
	ErrNoVendors        = errors.New("no vendors configured")
)

// categoryForStatus maps an HTTP status to the failure taxonomy.
func categoryForStatus(status int) ErrorCategory {
	switch {
	case status == 401 || status == 403:
		return ErrorAuthentication
	case status == 404:
		return ErrorNotFound
	case status == 408:
		return ErrorTimeout
	case status == 429:
		return ErrorRateLimited
	case status >= 500:
		return ErrorVendorOutage
	default:
		return ErrorBadData
	}
}
