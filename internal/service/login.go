package service

import (
	"context"
	"errors"
	"time"

	"matriesfinance/platform-api/internal/store"
	"matriesfinance/platform-api/model"
)

// LoginUser checks an email and password pair. Accounts that collected too
// many recent failures are refused before the password is looked at, and
// refusals don't extend the lockout. Accounts with two factor enabled get
// a challenge instead of a session.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := findUser(s.store.FindUserByEmail(ctx, email))
	if err != nil {
		return nil, err
	}

	now := s.now()

	if err := s.attempt(ctx, u, now); err != nil {
		return nil, err
	}

	if u.Password == nil || !s.argon.Verify(*u.Password, password) {
		return nil, ErrInvalidPassword
	}

	if err := s.store.ResetFailedLogins(ctx, u.ID, now); err != nil {
		return nil, internal(err)
	}

	if u.TwoFactor != nil && u.TwoFactor.Enabled {
		return s.challenge(ctx, u)
	}

	return s.loggedIn(ctx, u, msgLoggedIn)
}

// attempt counts a credential check against u up front, as if it failed.
// A successful check resets the counters afterwards. Locked accounts are
// refused without touching them.
func (s *AuthService) attempt(ctx context.Context, u *model.User, now time.Time) error {
	ok, err := s.store.RecordLoginAttempt(ctx, u.ID, s.opts.MaxFailedLogins, now.Add(-s.opts.LockoutWindow), now)
	if err != nil {
		return internal(err)
	}

	if !ok {
		return ErrAccountLocked
	}

	return nil
}

// LoginUserWithWallet logs in the account owning address, creating it on
// first use.
func (s *AuthService) LoginUserWithWallet(ctx context.Context, address string) (*AuthResult, error) {
	if address == "" {
		return nil, ErrMissingFields
	}

	u, err := s.store.FindUserByWallet(ctx, address)
	if err == nil {
		return s.loggedIn(ctx, u, msgLoggedIn)
	}

	if !errors.Is(err, store.ErrNotFound) {
		return nil, internal(err)
	}

	role, err := s.store.FindRole(ctx, model.DefaultRoleName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDefaultRoleMissing
		}

		return nil, internal(err)
	}

	u = &model.User{
		UUID:          newUUID(),
		WalletAddress: &address,
		RoleID:        role.ID,
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, internal(err)
		}

		// Another request created the same wallet account first
		u, err = findUser(s.store.FindUserByWallet(ctx, address))
		if err != nil {
			return nil, err
		}

		return s.loggedIn(ctx, u, msgLoggedIn)
	}

	return s.loggedIn(ctx, u, msgAccountCreated)
}
