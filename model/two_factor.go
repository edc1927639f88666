package model

import "time"

type TwoFactorType string

const (
	TwoFactorApp TwoFactorType = "APP"
	TwoFactorSMS TwoFactorType = "SMS"
)

type TwoFactor struct {
	ID      uint          `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID  uint          `gorm:"uniqueIndex;not null" json:"-"`
	Enabled bool          `gorm:"default:false" json:"enabled"`
	Type    TwoFactorType `gorm:"size:8;not null" json:"type"`
	// Base32 TOTP seed
	Secret    string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (TwoFactor) TableName() string { return "twofactor" }
