package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"matriesfinance/platform-api/internal/store"
	"matriesfinance/platform-api/model"
	"matriesfinance/platform-api/pkg/security"
)

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	// UUID of the referring user, optional
	Ref string
}

// RegisterUser creates an account with the default role and logs it in.
// An unknown referrer is ignored.
func (s *AuthService) RegisterUser(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	_, err := s.store.FindUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, ErrEmailInUse
	case !errors.Is(err, store.ErrNotFound):
		return nil, internal(err)
	}

	if !security.ValidatePassword(in.Password) {
		return nil, ErrInvalidPasswordFormat
	}

	hash, err := s.argon.Hash(in.Password)
	if err != nil {
		return nil, internal(err)
	}

	role, err := s.store.UpsertRole(ctx, model.DefaultRoleName)
	if err != nil {
		return nil, internal(err)
	}

	email := in.Email
	u := &model.User{
		UUID:      newUUID(),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     &email,
		Password:  &hash,
		RoleID:    role.ID,
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		// Lost a race with another registration for the same address
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailInUse
		}

		return nil, internal(err)
	}

	if in.Ref != "" {
		s.recordReferral(ctx, in.Ref, u.UUID)
	}

	return s.loggedIn(ctx, u, msgUserCreated)
}

func (s *AuthService) recordReferral(ctx context.Context, ref, referred string) {
	referrer, err := s.store.FindUserByUUID(ctx, ref)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Warn("Failed to look up referrer", zap.String("ref", ref), zap.Error(err))
		}
		return
	}

	if err := s.store.CreateReferral(ctx, referrer.UUID, referred); err != nil {
		zap.L().Warn("Failed to record referral", zap.String("ref", ref), zap.Error(err))
	}
}
