package service

import (
	"context"
	"errors"

	"matriesfinance/platform-api/internal/store"
	"matriesfinance/platform-api/pkg/security"
)

// UpdateInput holds the fields a user may change on their own profile. Nil
// means unchanged. Avatar may point at an empty string to remove it.
type UpdateInput struct {
	FirstName       *string
	LastName        *string
	Metadata        *string
	Avatar          *string
	Email           *string
	Password        *string
	CurrentPassword *string
}

// UpdateUser applies a partial profile update. Changing the email clears its
// verified flag. Changing the password requires the current one.
func (s *AuthService) UpdateUser(ctx context.Context, id uint, in UpdateInput) error {
	fields := map[string]any{}

	if nonEmpty(in.FirstName) {
		fields["first_name"] = *in.FirstName
	}

	if nonEmpty(in.LastName) {
		fields["last_name"] = *in.LastName
	}

	if nonEmpty(in.Metadata) {
		fields["metadata"] = *in.Metadata
	}

	if in.Avatar != nil {
		if *in.Avatar == "" {
			fields["avatar"] = nil
		} else {
			fields["avatar"] = *in.Avatar
		}
	}

	if nonEmpty(in.Email) {
		other, err := s.store.FindUserByEmail(ctx, *in.Email)
		switch {
		case err == nil && other.ID != id:
			return ErrEmailInUseByOther
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return internal(err)
		}

		fields["email"] = *in.Email
		fields["email_verified"] = false
	}

	if nonEmpty(in.Password) {
		if !nonEmpty(in.CurrentPassword) {
			return ErrCurrentPasswordRequired
		}

		if !security.ValidatePassword(*in.Password) {
			return ErrInvalidPasswordFormat
		}

		u, err := findUser(s.store.FindUserByID(ctx, id))
		if err != nil {
			return err
		}

		if u.Password == nil || !s.argon.Verify(*u.Password, *in.CurrentPassword) {
			return ErrInvalidPassword
		}

		hash, err := s.argon.Hash(*in.Password)
		if err != nil {
			return internal(err)
		}

		fields["password"] = hash
	}

	if len(fields) == 0 {
		return nil
	}

	if err := s.store.UpdateUser(ctx, id, fields); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return ErrUserNotFound
		case errors.Is(err, store.ErrDuplicate):
			return ErrEmailInUseByOther
		}

		return internal(err)
	}

	return nil
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}
