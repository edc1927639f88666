package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestUpdateUserProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")

	err := env.svc.UpdateUser(ctx, u.ID, UpdateInput{
		FirstName: ptr("Grace"),
		LastName:  ptr(""),
		Metadata:  ptr(`{"theme":"dark"}`),
		Avatar:    ptr("https://cdn.example.com/a.png"),
	})
	require.NoError(t, err)

	got, err := env.store.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace", got.FirstName)
	assert.Equal(t, "Lovelace", got.LastName)
	assert.Equal(t, `{"theme":"dark"}`, got.Metadata)
	require.NotNil(t, got.Avatar)

	require.NoError(t, env.svc.UpdateUser(ctx, u.ID, UpdateInput{Avatar: ptr("")}))
	got, err = env.store.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Avatar)
}

func TestUpdateUserEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")
	env.register(t, "b@example.com")
	require.NoError(t, env.store.UpdateUser(ctx, u.ID, map[string]any{"email_verified": true}))

	err := env.svc.UpdateUser(ctx, u.ID, UpdateInput{Email: ptr("b@example.com")})
	assert.ErrorIs(t, err, ErrEmailInUseByOther)
	assert.ErrorIs(t, err, ErrConflict)

	// Own address is not a conflict
	require.NoError(t, env.svc.UpdateUser(ctx, u.ID, UpdateInput{Email: ptr("a@example.com")}))

	require.NoError(t, env.svc.UpdateUser(ctx, u.ID, UpdateInput{Email: ptr("c@example.com")}))

	got, err := env.store.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "c@example.com", *got.Email)
	assert.False(t, got.EmailVerified)
}

func TestUpdateUserPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com")
	const next = "N3w!password"

	tests := []struct {
		name string
		in   UpdateInput
		want error
	}{
		{"current missing", UpdateInput{Password: ptr(next)}, ErrCurrentPasswordRequired},
		{"weak new password", UpdateInput{Password: ptr("weak"), CurrentPassword: ptr(testPassword)}, ErrInvalidPasswordFormat},
		{"wrong current", UpdateInput{Password: ptr(next), CurrentPassword: ptr("Wr0ng!pass")}, ErrInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, env.svc.UpdateUser(ctx, u.ID, tt.in), tt.want)
		})
	}

	require.NoError(t, env.svc.UpdateUser(ctx, u.ID, UpdateInput{Password: ptr(next), CurrentPassword: ptr(testPassword)}))

	_, err := env.svc.LoginUser(ctx, "a@example.com", next)
	assert.NoError(t, err)
}

func TestUpdateUserUnknown(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.UpdateUser(context.Background(), 999, UpdateInput{FirstName: ptr("x")})
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.NoError(t, env.svc.UpdateUser(context.Background(), 999, UpdateInput{}))
}
