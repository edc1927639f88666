// Package model defines database models
package model

import "time"

type User struct {
	ID            uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID          string  `gorm:"uniqueIndex;not null" json:"uuid"`
	Email         *string `gorm:"uniqueIndex" json:"email"`
	WalletAddress *string `gorm:"uniqueIndex" json:"wallet_address"`
	// Nil for accounts created through a wallet login
	Password  *string `json:"-"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Avatar    *string `json:"avatar"`
	Phone     *string `json:"phone"`
	// Free-form JSON owned by the frontend
	Metadata      string `gorm:"type:text" json:"metadata"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`

	FailedLoginAttempts int        `gorm:"not null;default:0" json:"-"`
	LastFailedLogin     *time.Time `json:"-"`
	LastLogin           *time.Time `json:"last_login"`

	RoleID    uint       `json:"role_id"`
	Role      Role       `json:"role"`
	TwoFactor *TwoFactor `gorm:"foreignKey:UserID" json:"twofactor,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicUser is the only user projection that ends up inside tokens
type PublicUser struct {
	ID   uint `json:"id"`
	Role uint `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Role: u.RoleID}
}
