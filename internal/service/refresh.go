package service

import (
	"context"
	"errors"

	"matriesfinance/platform-api/internal/store"
)

// RefreshSession trades a refresh token for a new session. The old refresh
// token and, when sid is given, the old session stop working.
func (s *AuthService) RefreshSession(ctx context.Context, refreshToken, sid string) (*AuthResult, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	rt, err := s.store.FindRefreshToken(ctx, refreshToken, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}

		return nil, internal(err)
	}

	if rt.UserID != claims.ID {
		return nil, ErrInvalidToken
	}

	u, err := s.store.FindUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}

		return nil, internal(err)
	}

	var cookies Cookies
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		// Fails when a concurrent refresh already spent this token
		if err := tx.DeleteRefreshToken(ctx, refreshToken); err != nil {
			return err
		}

		if sid != "" {
			if err := tx.DeleteSession(ctx, u.ID, sid); err != nil {
				return err
			}
		}

		c, err := s.issueSession(ctx, tx, u)
		if err != nil {
			return err
		}

		cookies = c
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}

		return nil, internal(err)
	}

	if sid != "" {
		_ = s.caps.Remove(sid)
	}

	return &AuthResult{Message: msgSessionRenewed, Cookies: cookies}, nil
}

// Principal is the caller behind an authenticated request.
type Principal struct {
	UserID    uint
	Role      uint
	SessionID string
	CSRFToken string
}

var ErrUnauthenticated = newError(ErrInvalidCredential, "Authorization token invalid")

// Authenticate resolves the access token and session id cookies to a
// principal. The access token has to be the one the session was opened
// with.
func (s *AuthService) Authenticate(ctx context.Context, accessToken, sid string) (*Principal, error) {
	if accessToken == "" || sid == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	sess, err := s.store.FindSession(ctx, sid, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}

		return nil, internal(err)
	}

	if sess.UserID != claims.ID || !sameToken(sess, accessToken) {
		return nil, ErrUnauthenticated
	}

	return &Principal{
		UserID:    claims.ID,
		Role:      claims.Role,
		SessionID: sess.SID,
		CSRFToken: sess.CSRFToken,
	}, nil
}
