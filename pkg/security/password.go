package security

import (
	"errors"

	"github.com/sethvargo/go-password/password"
)

const (
	minPasswordLength       = 8
	generatedPasswordLength = 20
	generatedDigits         = 4
	generatedSymbols        = 4
	maxGenerateAttempts     = 10
)

var ErrPasswordGeneration = errors.New("failed to generate a password matching the policy")

// ValidatePassword reports whether p satisfies the password policy: at least
// 8 characters with an uppercase letter, a lowercase letter, a digit and a
// symbol. A symbol is anything outside [A-Za-z0-9_].
func ValidatePassword(p string) bool {
	if len([]rune(p)) < minPasswordLength {
		return false
	}

	var upper, lower, digit, symbol bool
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case r == '_':
		default:
			symbol = true
		}
	}

	return upper && lower && digit && symbol
}

// GeneratePassword creates a random 20 character password that passes
// ValidatePassword.
func GeneratePassword() (string, error) {
	for i := 0; i < maxGenerateAttempts; i++ {
		p, err := password.Generate(generatedPasswordLength, generatedDigits, generatedSymbols, false, true)
		if err != nil {
			return "", err
		}

		if ValidatePassword(p) {
			return p, nil
		}
	}

	return "", ErrPasswordGeneration
}
