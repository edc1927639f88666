package service

import "context"

// LogoutUser ends every session of the user and invalidates all of their
// refresh tokens.
func (s *AuthService) LogoutUser(ctx context.Context, userID uint) (*AuthResult, error) {
	sids, err := s.store.SessionIDs(ctx, userID)
	if err != nil {
		return nil, internal(err)
	}

	if err := s.store.RevokeAll(ctx, userID); err != nil {
		return nil, internal(err)
	}

	s.forgetSessions(sids)

	return &AuthResult{Message: msgLoggedOut}, nil
}

// forgetSessions drops the cached capability sets of revoked sessions.
func (s *AuthService) forgetSessions(sids []string) {
	for _, sid := range sids {
		_ = s.caps.Remove(sid)
	}
}
