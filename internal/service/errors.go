package service

import "errors"

// Kinds. Every error returned by AuthService wraps exactly one of these so
// the HTTP layer can pick a status code without knowing individual errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrPolicyViolation   = errors.New("policy violation")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrDependency        = errors.New("dependency failure")
	ErrInvalidRequest    = errors.New("invalid request")
)

// Error is a failure with a message that's safe to show to the caller.
type Error struct {
	kind  error
	msg   string
	cause error
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}

	return e.msg
}

// Message is the text shown to API clients. Causes are never included.
func (e *Error) Message() string { return e.msg }

func (e *Error) Kind() error { return e.kind }

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}

	return []error{e.kind}
}

// Is matches two *Error values by kind and message so a wrapped copy still
// compares equal to the exported value it was made from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.kind == e.kind && t.msg == e.msg
}

func (e *Error) wrap(cause error) *Error {
	return &Error{kind: e.kind, msg: e.msg, cause: cause}
}

var (
	ErrUserNotFound            = newError(ErrNotFound, "User not found")
	ErrInvalidPassword         = newError(ErrInvalidCredential, "Invalid password")
	ErrInvalidPasswordFormat   = newError(ErrPolicyViolation, "Invalid password format")
	ErrInvalidOtp              = newError(ErrInvalidCredential, "Invalid OTP")
	ErrEmailInUse              = newError(ErrConflict, "Email already in use")
	ErrEmailInUseByOther       = newError(ErrConflict, "Email already in use by another account")
	ErrAccountLocked           = newError(ErrRateLimited, "Too many failed login attempts, account is temporarily blocked for 5 minutes")
	ErrCurrentPasswordRequired = newError(ErrPolicyViolation, "Current password is required")
	ErrInvalidToken            = newError(ErrInvalidCredential, "Invalid token")
	ErrMissingFields           = newError(ErrInvalidRequest, "Invalid request")
	ErrSecretMismatch          = newError(ErrInvalidCredential, "Invalid Request")
	ErrTwoFactorNotEnabled     = newError(ErrInvalidRequest, "Two factor authentication is not enabled")
	ErrUnsupportedFile         = newError(ErrInvalidRequest, "Unsupported file type")
	ErrDefaultRoleMissing      = newError(ErrDependency, "Default role not found")
	ErrInternal                = newError(ErrDependency, "Internal server error")
	ErrMailFailed              = newError(ErrDependency, "Failed to send email")
	ErrSMSFailed               = newError(ErrDependency, "Failed to send OTP")
	ErrStorageNotConfigured    = newError(ErrDependency, "Avatar storage is not configured")
)

// internal wraps an unexpected failure from a collaborator.
func internal(err error) error {
	return ErrInternal.wrap(err)
}

// serviceError passes errors that already carry a kind through and wraps
// everything else as internal.
func serviceError(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	return internal(err)
}
