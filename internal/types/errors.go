package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// Handlers and services MUST use these constants instead of hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationMissingField  ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidValue  ErrorCode = "validation_invalid_value"
	ErrCodeValidationUsageType     ErrorCode = "validation_invalid_usage_type"
	ErrCodeValidationFeedback      ErrorCode = "validation_invalid_feedback"
	ErrCodeValidationTier          ErrorCode = "validation_invalid_tier"
	ErrCodeValidationCalendarDate  ErrorCode = "validation_invalid_calendar_date"
	ErrCodeValidationGenerateInput ErrorCode = "validation_invalid_generate_request"

	// Auth (401)
	ErrCodeAuthTokenMissing   ErrorCode = "auth_token_missing"
	ErrCodeAuthTokenInvalid   ErrorCode = "auth_token_invalid"
	ErrCodeAuthSessionExpired ErrorCode = "auth_session_expired"

	// Quota (403)
	ErrCodeQuotaRecipes            ErrorCode = "quota_recipes_exceeded"
	ErrCodeQuotaMealPlans          ErrorCode = "quota_meal_plans_exceeded"
	ErrCodeQuotaFeatureUnavailable ErrorCode = "quota_feature_unavailable"

	// Not Found (404). Also used when the record belongs to another user.
	ErrCodeNotFoundRecipe   ErrorCode = "not_found_recipe"
	ErrCodeNotFoundMealPlan ErrorCode = "not_found_meal_plan"
	ErrCodeNotFoundSession  ErrorCode = "not_found_session"

	// Too Many Requests (429)
	ErrCodeRateLimitExceeded ErrorCode = "rate_limit_exceeded"

	// Storage (503)
	ErrCodeStorageUnavailable ErrorCode = "storage_unavailable"

	// Upstream (502/503)
	ErrCodeUpstreamUnavailable          ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited          ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamGeneratorCredentials ErrorCode = "upstream_generator_credentials"
	ErrCodeUpstreamGeneratorMalformed   ErrorCode = "upstream_generator_malformed"
	ErrCodeUpstreamGeneratorOverloaded  ErrorCode = "upstream_generator_overloaded"
	ErrCodeUpstreamGeneratorConfig      ErrorCode = "upstream_generator_config"

	// Internal (500)
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "auth_"):
		return http.StatusUnauthorized
	case strings.HasPrefix(s, "quota_"):
		return http.StatusForbidden
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case c == ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case strings.HasPrefix(s, "storage_"):
		return http.StatusServiceUnavailable
	case c == ErrCodeUpstreamGeneratorOverloaded, c == ErrCodeUpstreamRateLimited:
		return http.StatusServiceUnavailable
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. All domain, storage and
// handler errors are expressed as AppError so they render consistently.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// ErrorCodeOf returns the code of the first AppError in err's chain, or the
// empty code if there is none.
func ErrorCodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsStorageUnavailable reports whether err means the backing store could not
// be reached.
func IsStorageUnavailable(err error) bool {
	return ErrorCodeOf(err) == ErrCodeStorageUnavailable
}

// IsNotFound reports whether err is a not-found (or not-owned) condition.
func IsNotFound(err error) bool {
	return strings.HasPrefix(string(ErrorCodeOf(err)), "not_found_")
}

// IsGatewayFailure reports whether err originated from the content generator.
func IsGatewayFailure(err error) bool {
	return strings.HasPrefix(string(ErrorCodeOf(err)), "upstream_")
}

// StorageError wraps a driver or transport failure as storage_unavailable.
func StorageError(message string, err error) *AppError {
	return NewAppError(ErrCodeStorageUnavailable, message, err)
}
