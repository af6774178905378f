package models

import (
	"time"
)

type Account struct {
	TelegramID        int64  `gorm:"primaryKey;autoIncrement:false"`
	Balance           int64  `gorm:"not null;default:0"`
	ReferredBy        *int64 `gorm:"index"`
	IsSubscribed      bool   `gorm:"not null;default:false"`
	RewardClaimed     bool   `gorm:"not null;default:false"`
	LastDailyBonusAt  *time.Time
	Username          string `gorm:"size:255"`
	IsBanned          bool   `gorm:"not null;default:false"`
	StartBonusClaimed bool   `gorm:"not null;default:false"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
