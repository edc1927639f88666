package store

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"matriesfinance/platform-api/model"
	"matriesfinance/platform-api/pkg/security"
)

const sidLength = 32

// CreateSession opens a session for userID. Only the hash of accessToken is
// persisted.
func (s *Store) CreateSession(ctx context.Context, userID uint, accessToken, csrfToken string, expiresAt time.Time) (*model.Session, error) {
	sid, err := gonanoid.New(sidLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id, %w", err)
	}

	sess := &model.Session{
		SID:             sid,
		UserID:          userID,
		AccessTokenHash: security.HashToken(accessToken),
		CSRFToken:       csrfToken,
		ExpiresAt:       expiresAt,
	}

	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return nil, fmt.Errorf("failed to create session, %w", translate(err))
	}

	return sess, nil
}

// FindSession returns the session identified by sid as long as it hasn't
// expired at now.
func (s *Store) FindSession(ctx context.Context, sid string, now time.Time) (*model.Session, error) {
	var sess model.Session

	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Where("sid = ? AND expires_at > ?", sid, now).First(&sess).Error
	})
	if err != nil {
		return nil, err
	}

	return &sess, nil
}

// DeleteSession removes sid if it belongs to userID. Anyone else's session
// is left alone.
func (s *Store) DeleteSession(ctx context.Context, userID uint, sid string) error {
	if err := s.db.WithContext(ctx).Where("sid = ? AND user_id = ?", sid, userID).Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("failed to delete session, %w", err)
	}

	return nil
}

// SessionIDs lists the sids of every session userID has open.
func (s *Store) SessionIDs(ctx context.Context, userID uint) ([]string, error) {
	var sids []string

	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Model(&model.Session{}).Where("user_id = ?", userID).Pluck("sid", &sids).Error
	})
	if err != nil {
		return nil, err
	}

	return sids, nil
}

func (s *Store) DeleteSessions(ctx context.Context, userID uint) (int64, error) {
	r := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Session{})
	if r.Error != nil {
		return 0, fmt.Errorf("failed to delete sessions, %w", r.Error)
	}

	return r.RowsAffected, nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	r := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.Session{})
	if r.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions, %w", r.Error)
	}

	return r.RowsAffected, nil
}

// RevokeAll drops every session, refresh token and pending login challenge
// of userID in one transaction.
func (s *Store) RevokeAll(ctx context.Context, userID uint) error {
	return s.Transaction(ctx, func(tx *Store) error {
		if _, err := tx.DeleteSessions(ctx, userID); err != nil {
			return err
		}

		if err := tx.DeleteLoginChallenge(ctx, userID); err != nil {
			return err
		}

		_, err := tx.DeleteRefreshTokens(ctx, userID)
		return err
	})
}
