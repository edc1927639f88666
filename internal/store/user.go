package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matriesfinance/platform-api/model"
)

func (s *Store) findUser(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User

	err := s.read(ctx, func(db *gorm.DB) error {
		return db.
			Preload("Role").
			Preload("TwoFactor").
			Where(query, arg).
			First(&u).
			Error
	})
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id uint) (*model.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *Store) FindUserByUUID(ctx context.Context, uuid string) (*model.User, error) {
	return s.findUser(ctx, "uuid = ?", uuid)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *Store) FindUserByWallet(ctx context.Context, address string) (*model.User, error) {
	return s.findUser(ctx, "wallet_address = ?", address)
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if err := s.db.WithContext(ctx).Omit("Role", "TwoFactor").Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user, %w", translate(err))
	}

	return nil
}

// UpdateUser applies a partial update. Keys are column names.
func (s *Store) UpdateUser(ctx context.Context, id uint, fields map[string]any) error {
	r := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(fields)
	if r.Error != nil {
		return fmt.Errorf("failed to update user, %w", translate(r.Error))
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Store) UpdateUserByUUID(ctx context.Context, uuid string, fields map[string]any) error {
	r := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("uuid = ?", uuid).
		Updates(fields)
	if r.Error != nil {
		return fmt.Errorf("failed to update user, %w", translate(r.Error))
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// RecordLoginAttempt counts an attempt against id before its credentials are
// checked. The attempt is refused, and nothing is written, while the account
// holds max or more failures with the latest one after since. Check and
// increment are a single statement, so concurrent attempts can't all slip
// past the limit.
func (s *Store) RecordLoginAttempt(ctx context.Context, id uint, max int, since, at time.Time) (bool, error) {
	r := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Where("failed_login_attempts < ? OR last_failed_login IS NULL OR last_failed_login <= ?", max, since).
		Updates(map[string]any{
			"failed_login_attempts": gorm.Expr("failed_login_attempts + 1"),
			"last_failed_login":     at,
		})
	if r.Error != nil {
		return false, fmt.Errorf("failed to record login attempt, %w", r.Error)
	}

	return r.RowsAffected == 1, nil
}

func (s *Store) ResetFailedLogins(ctx context.Context, id uint, loginAt time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"failed_login_attempts": 0,
			"last_failed_login":     nil,
			"last_login":            loginAt,
		}).
		Error
	if err != nil {
		return fmt.Errorf("failed to reset failed logins, %w", err)
	}

	return nil
}

// UpsertRole returns the role called name, creating it when absent.
func (s *Store) UpsertRole(ctx context.Context, name string) (*model.Role, error) {
	db := s.db.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&model.Role{Name: name}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert role, %w", err)
	}

	return s.FindRole(ctx, name)
}

func (s *Store) FindRole(ctx context.Context, name string) (*model.Role, error) {
	var r model.Role

	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Where("name = ?", name).First(&r).Error
	})
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// RolePermissions returns the names of every permission granted to roleID.
func (s *Store) RolePermissions(ctx context.Context, roleID uint) ([]string, error) {
	var names []string

	err := s.read(ctx, func(db *gorm.DB) error {
		return db.
			Table("permissions").
			Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
			Where("role_permissions.role_id = ?", roleID).
			Order("permissions.name").
			Pluck("permissions.name", &names).
			Error
	})
	if err != nil {
		return nil, err
	}

	return names, nil
}

func (s *Store) CreateReferral(ctx context.Context, referrerUUID, referredUUID string) error {
	err := s.db.WithContext(ctx).Create(&model.Referral{
		ReferrerUUID: referrerUUID,
		ReferredUUID: referredUUID,
		Status:       model.ReferralPending,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to create referral, %w", translate(err))
	}

	return nil
}

func (s *Store) FindTemplate(ctx context.Context, name string) (*model.NotificationTemplate, error) {
	var t model.NotificationTemplate

	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Where("name = ?", name).First(&t).Error
	})
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// SaveTwoFactor creates or replaces the two factor settings of a user.
func (s *Store) SaveTwoFactor(ctx context.Context, tf *model.TwoFactor) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "type", "secret", "updated_at"}),
	}).Create(tf).Error
	if err != nil {
		return fmt.Errorf("failed to save two factor settings, %w", err)
	}

	return nil
}

func (s *Store) DisableTwoFactor(ctx context.Context, userID uint) error {
	r := s.db.WithContext(ctx).
		Model(&model.TwoFactor{}).
		Where("user_id = ?", userID).
		Update("enabled", false)
	if r.Error != nil {
		return fmt.Errorf("failed to disable two factor, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
