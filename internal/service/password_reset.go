package service

import (
	"context"
	"errors"

	"matriesfinance/platform-api/internal/store"
	"matriesfinance/platform-api/pkg/security"
)

// ResetPassword mails a password reset link to the owner of email.
func (s *AuthService) ResetPassword(ctx context.Context, email string) (*AuthResult, error) {
	u, err := findUser(s.store.FindUserByEmail(ctx, email))
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.IssueResetToken(u.UUID)
	if err != nil {
		return nil, internal(err)
	}

	lastLogin := "never"
	if u.LastLogin != nil {
		lastLogin = u.LastLogin.Format(mailTimeFormat)
	}

	err = s.mailer.SendTemplate(ctx, email, templatePasswordReset, map[string]string{
		"FIRSTNAME":  u.FirstName,
		"LAST_LOGIN": lastLogin,
		"TOKEN":      token,
	})
	if err != nil {
		return nil, ErrMailFailed.wrap(err)
	}

	return &AuthResult{Message: msgResetSent}, nil
}

// VerifyPasswordReset replaces the password of the token owner with a
// generated one and returns it. The account is unlocked and every existing
// session is revoked. The token is only spent if all of that succeeds.
func (s *AuthService) VerifyPasswordReset(ctx context.Context, token string) (*AuthResult, error) {
	claims := s.tokens.VerifyResetToken(token)
	if claims == nil {
		return nil, ErrInvalidToken
	}

	u, err := s.store.FindUserByUUID(ctx, claims.User.UUID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}

		return nil, internal(err)
	}

	password, err := security.GeneratePassword()
	if err != nil {
		return nil, internal(err)
	}

	hash, err := s.argon.Hash(password)
	if err != nil {
		return nil, internal(err)
	}

	sids, err := s.store.SessionIDs(ctx, u.ID)
	if err != nil {
		return nil, internal(err)
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := s.consume(ctx, tx, claims); err != nil {
			return err
		}

		err := tx.UpdateUser(ctx, u.ID, map[string]any{
			"password":              hash,
			"failed_login_attempts": 0,
			"last_failed_login":     nil,
		})
		if err != nil {
			return err
		}

		return tx.RevokeAll(ctx, u.ID)
	})
	if err != nil {
		return nil, serviceError(err)
	}

	s.forgetSessions(sids)

	return &AuthResult{Message: msgTokenVerified, Password: password}, nil
}
