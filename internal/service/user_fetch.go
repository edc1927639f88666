package service

import (
	"context"
	"errors"
	"time"

	"github.com/jellydator/ttlcache/v2"

	"matriesfinance/platform-api/model"
)

type UserView struct {
	*model.User
	Capabilities []string `json:"capabilities"`
}

// GetUser returns the profile of id together with what its role may do. The
// capability set is resolved once per session.
func (s *AuthService) GetUser(ctx context.Context, id uint, sid string) (*UserView, error) {
	u, err := findUser(s.store.FindUserByID(ctx, id))
	if err != nil {
		return nil, err
	}

	caps, err := s.capabilities(ctx, u.RoleID, sid)
	if err != nil {
		return nil, internal(err)
	}

	return &UserView{User: u, Capabilities: caps}, nil
}

func (s *AuthService) capabilities(ctx context.Context, roleID uint, sid string) ([]string, error) {
	if sid != "" {
		v, err := s.caps.Get(sid)
		if err == nil {
			return v.([]string), nil
		}

		if !errors.Is(err, ttlcache.ErrNotFound) {
			return nil, err
		}
	}

	caps, err := s.store.RolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}

	if caps == nil {
		caps = []string{}
	}

	if sid != "" {
		if err := s.caps.SetWithTTL(sid, caps, s.sessionTTL(ctx, sid)); err != nil {
			return nil, err
		}
	}

	return caps, nil
}

// sessionTTL is how long the session sid has left, falling back to the
// access token lifetime when it can't be read.
func (s *AuthService) sessionTTL(ctx context.Context, sid string) time.Duration {
	now := s.now()

	sess, err := s.store.FindSession(ctx, sid, now)
	if err != nil {
		return s.tokens.AccessTTL()
	}

	if ttl := sess.ExpiresAt.Sub(now); ttl > 0 {
		return ttl
	}

	return s.tokens.AccessTTL()
}
