package validators

import "errors"

var (
	ErrPasswordTooLong = errors.New("password is too long")
	ErrPasswordEmpty   = errors.New("no password provided")
)

// Upper bound on what gets handed to the password hasher
const maxPasswordLength = 255

// PasswordValidator only checks what's needed before hashing. The
// complexity policy is enforced by the auth service.
func PasswordValidator(p string) error {
	if p == "" {
		return ErrPasswordEmpty
	}

	if len(p) > maxPasswordLength {
		return ErrPasswordTooLong
	}

	return nil
}
