package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested key does not exist.
	ErrNotFound = errors.New("api key not found")

	// ErrPermission indicates the caller does not own the key.
	ErrPermission = errors.New("permission denied")

	// ErrConflict is reserved for uniqueness constraints (e.g. duplicate key
	// names). No current operation returns it, but callers should handle it.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable wraps store failures. The presentation layer owns
	// retry/backoff; the key service never retries on its own.
	ErrUnavailable = errors.New("store unavailable")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrKeyRevoked         = errors.New("api key revoked")
	ErrScopeMissing       = errors.New("api key lacks required scope")
)

// ValidationError reports malformed or incomplete input. Validation always
// resolves before any store mutation, so a ValidationError implies nothing
// was written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
