package security

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var otpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// NewOTPSecret creates a base32 seed for a new authenticator app pairing.
func NewOTPSecret(issuer, account string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate otp secret, %w", err)
	}

	return key.Secret(), nil
}

// GenerateOTP returns the time based code for secret at t.
func GenerateOTP(secret string, t time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, t, otpOpts)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp, %w", err)
	}

	return code, nil
}

// VerifyOTP accepts codes from the current step and one step either side.
func VerifyOTP(code, secret string, t time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, t, otpOpts)
	return err == nil && ok
}
