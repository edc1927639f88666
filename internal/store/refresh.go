package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"matriesfinance/platform-api/model"
	"matriesfinance/platform-api/pkg/security"
)

func (s *Store) StoreRefreshToken(ctx context.Context, userID uint, token string, expiresAt time.Time) error {
	err := s.db.WithContext(ctx).Create(&model.RefreshToken{
		UserID:    userID,
		TokenHash: security.HashToken(token),
		ExpiresAt: expiresAt,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to store refresh token, %w", translate(err))
	}

	return nil
}

// FindRefreshToken looks a token up by its hash. Expired records count as
// missing.
func (s *Store) FindRefreshToken(ctx context.Context, token string, now time.Time) (*model.RefreshToken, error) {
	var rt model.RefreshToken

	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Where("token_hash = ? AND expires_at > ?", security.HashToken(token), now).First(&rt).Error
	})
	if err != nil {
		return nil, err
	}

	return &rt, nil
}

// DeleteRefreshToken returns ErrNotFound if no record matched, which lets a
// rotation detect that another request already used the token.
func (s *Store) DeleteRefreshToken(ctx context.Context, token string) error {
	r := s.db.WithContext(ctx).Where("token_hash = ?", security.HashToken(token)).Delete(&model.RefreshToken{})
	if r.Error != nil {
		return fmt.Errorf("failed to delete refresh token, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Store) DeleteRefreshTokens(ctx context.Context, userID uint) (int64, error) {
	r := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.RefreshToken{})
	if r.Error != nil {
		return 0, fmt.Errorf("failed to delete refresh tokens, %w", r.Error)
	}

	return r.RowsAffected, nil
}

func (s *Store) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	r := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.RefreshToken{})
	if r.Error != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens, %w", r.Error)
	}

	return r.RowsAffected, nil
}
