package model

import (
	"encoding/json"
	"time"
)

type NotificationTemplate struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"uniqueIndex;not null"`
	Subject   string `gorm:"not null"`
	EmailBody string `gorm:"type:text"`
	// JSON array with the placeholder names the body expects, e.g. ["FIRSTNAME","TOKEN"]
	ShortCodes string `gorm:"type:text"`
	Email      bool   `gorm:"default:true"`
	UpdatedAt  time.Time
}

func (t *NotificationTemplate) Codes() ([]string, error) {
	if t.ShortCodes == "" {
		return nil, nil
	}

	var codes []string
	if err := json.Unmarshal([]byte(t.ShortCodes), &codes); err != nil {
		return nil, err
	}

	return codes, nil
}
