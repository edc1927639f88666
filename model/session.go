package model

import "time"

type Session struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	SID    string `gorm:"column:sid;uniqueIndex;not null"`
	UserID uint   `gorm:"index;not null"`
	// sha256 of the access token the session was opened with
	AccessTokenHash string `gorm:"not null"`
	CSRFToken       string `gorm:"not null"`
	CreatedAt       time.Time
	ExpiresAt       time.Time `gorm:"index"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    uint   `gorm:"index;not null"`
	TokenHash string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

// OneTimeToken marks a token id (jti) as consumed. The row existing is
// the only thing that matters.
type OneTimeToken struct {
	TokenID   string    `gorm:"primaryKey"`
	ExpiresAt time.Time `gorm:"index"`
}

func (OneTimeToken) TableName() string { return "onetimetoken" }

// LoginChallenge exists while a login that passed the password check waits
// for its one-time password.
type LoginChallenge struct {
	UserID    uint `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}
