package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matriesfinance/platform-api/model"
)

// SaveLoginChallenge opens, or pushes back the expiry of, the pending login
// of userID.
func (s *Store) SaveLoginChallenge(ctx context.Context, userID uint, expiresAt time.Time) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"expires_at"}),
		}).
		Create(&model.LoginChallenge{UserID: userID, ExpiresAt: expiresAt}).
		Error
	if err != nil {
		return fmt.Errorf("failed to save login challenge, %w", err)
	}

	return nil
}

// HasLoginChallenge reports whether userID has a pending login at now.
func (s *Store) HasLoginChallenge(ctx context.Context, userID uint, now time.Time) (bool, error) {
	var n int64

	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Model(&model.LoginChallenge{}).Where("user_id = ? AND expires_at > ?", userID, now).Count(&n).Error
	})
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// ConsumeLoginChallenge closes the pending login of userID. Only one caller
// can consume a challenge; the others, and callers without one, get
// ErrNotFound.
func (s *Store) ConsumeLoginChallenge(ctx context.Context, userID uint, now time.Time) error {
	r := s.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Delete(&model.LoginChallenge{})
	if r.Error != nil {
		return fmt.Errorf("failed to consume login challenge, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Store) DeleteLoginChallenge(ctx context.Context, userID uint) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.LoginChallenge{}).Error; err != nil {
		return fmt.Errorf("failed to delete login challenge, %w", err)
	}

	return nil
}

func (s *Store) DeleteExpiredLoginChallenges(ctx context.Context, now time.Time) (int64, error) {
	r := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.LoginChallenge{})
	if r.Error != nil {
		return 0, fmt.Errorf("failed to delete expired login challenges, %w", r.Error)
	}

	return r.RowsAffected, nil
}
