package model

import "time"

const ReferralPending = "PENDING"

type Referral struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	ReferrerUUID string `gorm:"index;not null"`
	ReferredUUID string `gorm:"uniqueIndex;not null"`
	Status       string `gorm:"size:16;not null"`
	CreatedAt    time.Time
}
