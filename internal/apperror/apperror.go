package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the application's error taxonomy.
//
// Services wrap these (via the constructors below) and handlers map them
// to HTTP status codes in one place (handler/writeError). The service
// layer never touches HTTP status codes directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials covers bad email/password and bad/expired OTP.
	// It is deliberately a single error: "no such user", "wrong password"
	// and "no password set" must all be indistinguishable to the client,
	// otherwise the login endpoint becomes an account-enumeration oracle.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUpstream covers failures of external collaborators: the identity
	// provider, the mail relay, the object store.
	ErrUpstream = errors.New("upstream error")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, detail string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict: %s", resource, detail),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError for missing/invalid/expired tokens.
// HTTP handlers map this to 401 Unauthorized. The message is intentionally
// generic — it never says WHICH check (signature, expiry, lookup) failed.
func Unauthorized() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "valid authentication required",
	}
}

// InvalidCredentials returns the one generic authentication failure.
// Callers must not attach any detail that distinguishes "user not found"
// from "wrong password" from "expired code".
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid credentials",
	}
}

// Upstream wraps a failure of an external collaborator (identity provider,
// mail relay, object store). The underlying error is preserved for logs
// but the client only ever sees the collaborator name.
func Upstream(collaborator string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %s: %v", ErrUpstream, collaborator, err),
		Message: fmt.Sprintf("%s is unavailable", collaborator),
	}
}
