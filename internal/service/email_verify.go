package service

import (
	"context"
	"errors"
	"time"

	"matriesfinance/platform-api/internal/store"
	"matriesfinance/platform-api/pkg/security"
)

const (
	templateEmailVerification = "EmailVerification"
	templatePasswordReset     = "PasswordReset"

	mailTimeFormat = time.RFC1123
)

// SendEmailVerificationToken mails a verification link to the user. email
// has to be the address on record for userID.
func (s *AuthService) SendEmailVerificationToken(ctx context.Context, userID uint, email string) (*AuthResult, error) {
	u, err := findUser(s.store.FindUserByID(ctx, userID))
	if err != nil {
		return nil, err
	}

	if u.Email == nil || *u.Email != email {
		return nil, ErrUserNotFound
	}

	token, err := s.tokens.IssueEmailToken(u.UUID)
	if err != nil {
		return nil, internal(err)
	}

	err = s.mailer.SendTemplate(ctx, email, templateEmailVerification, map[string]string{
		"FIRSTNAME":  u.FirstName,
		"CREATED_AT": u.CreatedAt.Format(mailTimeFormat),
		"TOKEN":      token,
	})
	if err != nil {
		return nil, ErrMailFailed.wrap(err)
	}

	return &AuthResult{Message: msgVerifySent}, nil
}

// VerifyEmailToken marks the token owner's email as verified. Each token
// works once.
func (s *AuthService) VerifyEmailToken(ctx context.Context, token string) (*AuthResult, error) {
	claims := s.tokens.VerifyEmailToken(token)
	if claims == nil {
		return nil, ErrInvalidToken
	}

	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := s.consume(ctx, tx, claims); err != nil {
			return err
		}

		err := tx.UpdateUserByUUID(ctx, claims.User.UUID, map[string]any{"email_verified": true})
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}

		return err
	})
	if err != nil {
		return nil, serviceError(err)
	}

	return &AuthResult{Message: msgTokenVerified}, nil
}

// consume burns the jti of a verified one-time token. Invalid and already
// used tokens get the same answer. With the database backend the mark is
// written through st, so it rolls back with the rest of st's transaction.
func (s *AuthService) consume(ctx context.Context, st *store.Store, claims *security.OneTimeClaims) error {
	onetime := s.onetime
	if _, ok := onetime.(*store.DBOneTimeStore); ok {
		onetime = store.NewDBOneTimeStore(st)
	}

	err := onetime.Consume(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		if errors.Is(err, store.ErrTokenAlreadyUsed) {
			return ErrInvalidToken
		}

		return internal(err)
	}

	return nil
}
