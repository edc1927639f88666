package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matriesfinance/platform-api/model"
)

func TestRegisterUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.RegisterUser(ctx, RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  testPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, "User created successfully", res.Message)
	assertSessionIssued(t, res)

	u, err := env.store.FindUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, u.UUID)
	assert.Equal(t, model.DefaultRoleName, u.Role.Name)
	assert.False(t, u.EmailVerified)
	require.NotNil(t, u.Password)
	assert.NotEqual(t, testPassword, *u.Password)
	assert.True(t, env.argon.Verify(*u.Password, testPassword))
}

func TestRegisterUserCreatesRoleWhenMissing(t *testing.T) {
	env := newTestEnvSeeded(t, false)

	res, err := env.svc.RegisterUser(context.Background(), RegisterInput{Email: "a@example.com", Password: testPassword})
	require.NoError(t, err)
	assertSessionIssued(t, res)

	_, err = env.store.FindRole(context.Background(), model.DefaultRoleName)
	assert.NoError(t, err)
}

func TestRegisterUserRejects(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "taken@example.com")

	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"email in use", RegisterInput{Email: "taken@example.com", Password: testPassword}, ErrEmailInUse},
		{"no digit", RegisterInput{Email: "new@example.com", Password: "Password!"}, ErrInvalidPasswordFormat},
		{"too short", RegisterInput{Email: "new@example.com", Password: "Aa1!"}, ErrInvalidPasswordFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := env.svc.RegisterUser(context.Background(), tt.in)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := env.store.FindUserByEmail(context.Background(), "new@example.com")
	assert.Error(t, err)
}

func TestRegisterUserReferral(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	referrer := env.register(t, "referrer@example.com")

	_, err := env.svc.RegisterUser(ctx, RegisterInput{Email: "friend@example.com", Password: testPassword, Ref: referrer.UUID})
	require.NoError(t, err)

	_, err = env.svc.RegisterUser(ctx, RegisterInput{Email: "stranger@example.com", Password: testPassword, Ref: "no-such-user"})
	require.NoError(t, err)

	var refs []model.Referral
	require.NoError(t, env.store.DB().Find(&refs).Error)
	require.Len(t, refs, 1)
	assert.Equal(t, referrer.UUID, refs[0].ReferrerUUID)
	assert.Equal(t, model.ReferralPending, refs[0].Status)

	friend, err := env.store.FindUserByEmail(ctx, "friend@example.com")
	require.NoError(t, err)
	assert.Equal(t, friend.UUID, refs[0].ReferredUUID)
}
