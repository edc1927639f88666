package db

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matriesfinance/platform-api/model"
)

// Templates the auth workflow sends. Names and short codes are part of the
// contract with the mailer: every short code must be supplied on send.
var authTemplates = []model.NotificationTemplate{
	{
		Name:    "EmailVerification",
		Subject: "Please verify your email",
		EmailBody: "<p>Dear %FIRSTNAME%,</p>\n<p>You recently created an account at %URL% on %CREATED_AT%. " +
			"Please verify your email to continue with your account. Please follow the link below to verify your email.</p>\n" +
			"<p>Follow the link to verify your email: %URL%/confirm/verifyemail?token=%TOKEN%</p>",
		ShortCodes: `["FIRSTNAME", "CREATED_AT", "TOKEN"]`,
		Email:      true,
	},
	{
		Name:    "PasswordReset",
		Subject: "Password Reset Request",
		EmailBody: "<p>Dear %FIRSTNAME%,</p>\n<p>You requested to reset your password. Please follow the link below. " +
			"If you did not request to reset your password, disregard this email. Your last login time was: %LAST_LOGIN%.</p>\n" +
			"<p>This is a one-time password link that will reveal a temporary password.</p>\n" +
			"<p>Password reset link: %URL%/confirm/password-reset?token=%TOKEN%</p>",
		ShortCodes: `["FIRSTNAME", "LAST_LOGIN", "TOKEN"]`,
		Email:      true,
	},
}

// Seed inserts the default role and the auth email templates. Existing rows
// are left untouched so admins can edit templates without them being reset
// on the next boot.
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&model.Role{Name: model.DefaultRoleName}).Error
		if err != nil {
			return fmt.Errorf("failed to seed default role, %w", err)
		}

		templates := make([]model.NotificationTemplate, len(authTemplates))
		copy(templates, authTemplates)

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&templates).Error
		if err != nil {
			return fmt.Errorf("failed to seed notification templates, %w", err)
		}

		return nil
	})
}
