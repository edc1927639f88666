// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import (
	"errors"
	"net/mail"
	"regexp"
)

var (
	ErrEmailEmpty   = errors.New("no email address provided")
	ErrEmailInvalid = errors.New("invalid email address provided")
	ErrWalletEmpty  = errors.New("no wallet address provided")
	ErrWalletFormat = errors.New("invalid wallet address provided")
)

var walletRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// EmailValidator accepts a bare address only, no display name.
func EmailValidator(e string) error {
	if e == "" {
		return ErrEmailEmpty
	}

	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return ErrEmailInvalid
	}

	return nil
}

// WalletValidator accepts hex encoded EVM addresses.
func WalletValidator(w string) error {
	if w == "" {
		return ErrWalletEmpty
	}

	if !walletRe.MatchString(w) {
		return ErrWalletFormat
	}

	return nil
}
