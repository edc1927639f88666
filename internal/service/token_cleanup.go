package service

import (
	"context"

	"go.uber.org/zap"
)

const CleanupJobName = "cleanup expired tokens"

// CleanupExpiredTokens removes sessions, refresh tokens, one-time token
// markers and pending login challenges that expired. It's meant to run periodically from the scheduler.
func (s *AuthService) CleanupExpiredTokens(ctx context.Context) error {
	now := s.now()

	sessions, err := s.store.DeleteExpiredSessions(ctx, now)
	if err != nil {
		return err
	}

	refresh, err := s.store.DeleteExpiredRefreshTokens(ctx, now)
	if err != nil {
		return err
	}

	onetime, err := s.onetime.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}

	challenges, err := s.store.DeleteExpiredLoginChallenges(ctx, now)
	if err != nil {
		return err
	}

	if sessions+refresh+onetime+challenges > 0 {
		zap.L().Debug("Cleaned up expired tokens",
			zap.Int64("sessions", sessions),
			zap.Int64("refresh_tokens", refresh),
			zap.Int64("onetime_tokens", onetime),
			zap.Int64("login_challenges", challenges),
		)
	}

	return nil
}
