package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matriesfinance/platform-api/model"
	"matriesfinance/platform-api/pkg/security"
)

func TestLoginWithAppTwoFactor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")
	secret := env.enable2FA(t, u, model.TwoFactorApp)

	res, err := env.svc.LoginUser(ctx, "a@example.com", testPassword)
	require.NoError(t, err)
	require.True(t, res.Pending())
	assert.Equal(t, "2FA required", res.Message)
	assert.Equal(t, u.UUID, res.UUID)
	assert.Equal(t, model.TwoFactorApp, res.TwoFactor.Type)
	assert.Equal(t, secret, res.TwoFactor.Secret)
	assert.Equal(t, Cookies{}, res.Cookies)
	assert.Zero(t, env.sms.count())

	_, err = env.svc.VerifyLoginOTP(ctx, u.UUID, "000000")
	assert.ErrorIs(t, err, ErrInvalidOtp)

	var sessions int64
	require.NoError(t, env.store.DB().Model(&model.Session{}).Where("user_id = ?", u.ID).Count(&sessions).Error)
	// Only the one from registering
	assert.Equal(t, int64(1), sessions)

	code, err := security.GenerateOTP(secret, env.clock.Now())
	require.NoError(t, err)

	res, err = env.svc.VerifyLoginOTP(ctx, u.UUID, code)
	require.NoError(t, err)
	assertSessionIssued(t, res)

	// The pending login is closed now
	_, err = env.svc.VerifyLoginOTP(ctx, u.UUID, code)
	assert.ErrorIs(t, err, ErrInvalidOtp)

	got, err := env.store.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FailedLoginAttempts)
}

func TestVerifyLoginOTPNeedsPendingLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")
	secret := env.enable2FA(t, u, model.TwoFactorApp)

	code, err := security.GenerateOTP(secret, env.clock.Now())
	require.NoError(t, err)

	_, err = env.svc.VerifyLoginOTP(ctx, u.UUID, code)
	assert.ErrorIs(t, err, ErrInvalidOtp)

	var sessions int64
	require.NoError(t, env.store.DB().Model(&model.Session{}).Where("user_id = ?", u.ID).Count(&sessions).Error)
	assert.Equal(t, int64(1), sessions)
}

func TestVerifyLoginOTPWhileLocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")
	secret := env.enable2FA(t, u, model.TwoFactorApp)

	res, err := env.svc.LoginUser(ctx, "a@example.com", testPassword)
	require.NoError(t, err)
	require.True(t, res.Pending())

	for i := 0; i < 5; i++ {
		_, err = env.svc.LoginUser(ctx, "a@example.com", "Wr0ng!pass")
		require.ErrorIs(t, err, ErrInvalidPassword)
	}

	code, err := security.GenerateOTP(secret, env.clock.Now())
	require.NoError(t, err)

	_, err = env.svc.VerifyLoginOTP(ctx, u.UUID, code)
	assert.ErrorIs(t, err, ErrAccountLocked)

	var sessions int64
	require.NoError(t, env.store.DB().Model(&model.Session{}).Where("user_id = ?", u.ID).Count(&sessions).Error)
	assert.Equal(t, int64(1), sessions)
}

func TestWrongOTPsCountTowardsLockout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")
	env.enable2FA(t, u, model.TwoFactorApp)

	_, err := env.svc.LoginUser(ctx, "a@example.com", testPassword)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = env.svc.VerifyLoginOTP(ctx, u.UUID, "abcdef")
		require.ErrorIs(t, err, ErrInvalidOtp)
	}

	_, err = env.svc.VerifyLoginOTP(ctx, u.UUID, "abcdef")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestLoginChallengeExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")
	secret := env.enable2FA(t, u, model.TwoFactorApp)

	_, err := env.svc.LoginUser(ctx, "a@example.com", testPassword)
	require.NoError(t, err)

	env.clock.Advance(3 * time.Minute)
	code, err := security.GenerateOTP(secret, env.clock.Now())
	require.NoError(t, err)

	_, err = env.svc.VerifyLoginOTP(ctx, u.UUID, code)
	assert.ErrorIs(t, err, ErrInvalidOtp)
}

func TestVerifyLoginOTPErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")

	_, err := env.svc.VerifyLoginOTP(ctx, "missing", "123456")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.svc.VerifyLoginOTP(ctx, u.UUID, "123456")
	assert.ErrorIs(t, err, ErrTwoFactorNotEnabled)
}

func TestLoginWithSMSTwoFactor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")
	secret := env.enable2FA(t, u, model.TwoFactorSMS)

	res, err := env.svc.LoginUser(ctx, "a@example.com", testPassword)
	require.NoError(t, err)
	require.True(t, res.Pending())
	assert.Equal(t, model.TwoFactorSMS, res.TwoFactor.Type)

	require.Equal(t, 1, env.sms.count())
	msg := env.sms.sent[0]
	assert.Equal(t, "+15550100", msg.To)

	code := strings.TrimPrefix(msg.Body, "Your OTP is: ")
	assert.True(t, security.VerifyOTP(code, secret, env.clock.Now()))

	res, err = env.svc.VerifyLoginOTP(ctx, u.UUID, code)
	require.NoError(t, err)
	assertSessionIssued(t, res)
}

func TestLoginSMSFailureIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "a@example.com")
	env.enable2FA(t, u, model.TwoFactorSMS)
	env.sms.err = errors.New("twilio down")

	res, err := env.svc.LoginUser(context.Background(), "a@example.com", testPassword)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrSMSFailed)
	assert.ErrorIs(t, err, ErrDependency)
}

func TestResendOTP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")
	secret := env.enable2FA(t, u, model.TwoFactorSMS)

	tests := []struct {
		name         string
		uuid, secret string
		want         error
		kind         error
	}{
		{"missing uuid", "", secret, ErrMissingFields, ErrInvalidRequest},
		{"missing secret", u.UUID, "", ErrMissingFields, ErrInvalidRequest},
		{"unknown user", "nope", secret, ErrUserNotFound, ErrNotFound},
		{"wrong secret", u.UUID, "AAAA", ErrSecretMismatch, ErrInvalidCredential},
		{"no pending login", u.UUID, secret, ErrSecretMismatch, ErrInvalidCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.ResendOTP(ctx, tt.uuid, tt.secret)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
	assert.Zero(t, env.sms.count())

	_, err := env.svc.LoginUser(ctx, "a@example.com", testPassword)
	require.NoError(t, err)
	require.Equal(t, 1, env.sms.count())

	res, err := env.svc.ResendOTP(ctx, u.UUID, secret)
	require.NoError(t, err)
	assert.Equal(t, "OTP sent successfully", res.Message)
	assert.Equal(t, 2, env.sms.count())
}

func TestEnableTwoFactor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")

	_, err := env.svc.EnableTwoFactor(ctx, u.ID, model.TwoFactorSMS)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = env.svc.EnableTwoFactor(ctx, u.ID, "EMAIL")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	first, err := env.svc.EnableTwoFactor(ctx, u.ID, model.TwoFactorApp)
	require.NoError(t, err)

	second, err := env.svc.EnableTwoFactor(ctx, u.ID, model.TwoFactorApp)
	require.NoError(t, err)
	assert.NotEqual(t, first.Secret, second.Secret)

	got, err := env.store.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TwoFactor)
	assert.Equal(t, second.Secret, got.TwoFactor.Secret)

	require.NoError(t, env.svc.DisableTwoFactor(ctx, u.ID))

	res, err := env.svc.LoginUser(ctx, "a@example.com", testPassword)
	require.NoError(t, err)
	assertSessionIssued(t, res)
}

func TestOTPFromPreviousStepAccepted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")
	secret := env.enable2FA(t, u, model.TwoFactorApp)

	code, err := security.GenerateOTP(secret, env.clock.Now())
	require.NoError(t, err)

	_, err = env.svc.LoginUser(ctx, "a@example.com", testPassword)
	require.NoError(t, err)

	env.clock.Advance(30 * time.Second)
	_, err = env.svc.VerifyLoginOTP(ctx, u.UUID, code)
	assert.NoError(t, err)

	env.clock.Advance(2 * time.Minute)
	_, err = env.svc.LoginUser(ctx, "a@example.com", testPassword)
	require.NoError(t, err)

	_, err = env.svc.VerifyLoginOTP(ctx, u.UUID, code)
	assert.ErrorIs(t, err, ErrInvalidOtp)
}
