package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside structured errors.
const (
	TextCodeValidationFailed    = "VALIDATION_FAILED"
	TextCodeDuplicateIdentifier = "DUPLICATE_IDENTIFIER"
	TextCodeInvalidCreds        = "INVALID_CREDENTIALS"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenRevoked        = "TOKEN_REVOKED"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeStoreUnavailable    = "STORE_UNAVAILABLE"
)

// ErrAccountNotFound is returned when an account lookup comes back empty.
// It is never surfaced on the sign-in path; there it collapses into
// ErrInvalidCredentials to avoid account enumeration.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound)

// ErrInvalidCredentials covers both unknown identifier and wrong password.
var ErrInvalidCredentials = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrDuplicateIdentifier indicates the email or phone is already registered.
var ErrDuplicateIdentifier = errors.New("email or phone already registered", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentifier).
	WithCode(errors.CodeConflict)

// ErrTokenExpired indicates the token is past its expiry horizon.
var ErrTokenExpired = errors.New("authentication token has expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenRevoked indicates the token carries a stale version counter.
var ErrTokenRevoked = errors.New("authentication token has been revoked", errors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers undecodable or tampered tokens.
var ErrTokenMalformed = errors.New("authentication token is malformed or tampered", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrStoreUnavailable is the fail-closed outcome when the account store
// cannot be reached during verification. Deliberately distinct from
// ErrTokenRevoked so callers never conflate "could not check" with
// "known invalid".
var ErrStoreUnavailable = errors.New("account store unavailable", errors.CategoryExternal).
	WithTextCode(TextCodeStoreUnavailable)

// ErrNoEmptyString rejects empty input where a value is required.
var ErrNoEmptyString = errors.New("value must not be an empty string", errors.CategoryValidation)

// ValidationFailed wraps field-level violations into a structured error
// carrying the per-field messages in metadata.
func ValidationFailed(fields map[string]string) *errors.Error {
	meta := make(map[string]any, len(fields))
	for k, v := range fields {
		meta[k] = v
	}
	return errors.New("payload validation failed", errors.CategoryValidation).
		WithTextCode(TextCodeValidationFailed).
		WithCode(errors.CodeBadRequest).
		WithMetadata(meta)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsTokenRevokedError reports whether err is a stale-counter rejection.
func IsTokenRevokedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	return errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenRevoked
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsUnavailableError reports whether err is the fail-closed store outcome.
func IsUnavailableError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	return errors.As(err, &richErr) && richErr.TextCode == TextCodeStoreUnavailable
}

// IsValidationError reports whether err carries field-level violations.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	return errors.As(err, &richErr) && richErr.Category == errors.CategoryValidation
}
