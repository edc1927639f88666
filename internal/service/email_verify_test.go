package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailVerificationFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")

	res, err := env.svc.SendEmailVerificationToken(ctx, u.ID, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Email with verification instructions sent successfully", res.Message)

	mail := env.mailer.last(t)
	assert.Equal(t, "a@example.com", mail.To)
	assert.Equal(t, "EmailVerification", mail.Name)
	assert.Equal(t, "Ada", mail.Vars["FIRSTNAME"])
	assert.NotEmpty(t, mail.Vars["CREATED_AT"])
	require.NotEmpty(t, mail.Vars["TOKEN"])

	res, err = env.svc.VerifyEmailToken(ctx, mail.Vars["TOKEN"])
	require.NoError(t, err)
	assert.Equal(t, "Token verified successfully", res.Message)

	got, err := env.store.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
}

func TestVerifyEmailTokenReplay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")

	_, err := env.svc.SendEmailVerificationToken(ctx, u.ID, "a@example.com")
	require.NoError(t, err)
	token := env.mailer.last(t).Vars["TOKEN"]

	_, err = env.svc.VerifyEmailToken(ctx, token)
	require.NoError(t, err)

	_, err = env.svc.VerifyEmailToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyEmailTokenRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")

	_, err := env.svc.VerifyEmailToken(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// A reset token is not an email token
	_, err = env.svc.ResetPassword(ctx, "a@example.com")
	require.NoError(t, err)
	_, err = env.svc.VerifyEmailToken(ctx, env.mailer.last(t).Vars["TOKEN"])
	assert.ErrorIs(t, err, ErrInvalidToken)

	got, err := env.store.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.EmailVerified)
}

func TestSendEmailVerificationTokenWrongEmail(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "a@example.com")

	_, err := env.svc.SendEmailVerificationToken(context.Background(), u.ID, "b@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, env.mailer.sent)
}
