package models

import (
	"time"
)

const (
	WithdrawalPending  = "pending"
	WithdrawalPaid     = "paid"
	WithdrawalRejected = "rejected"
)

type WithdrawalRequest struct {
	ID         uint   `gorm:"primaryKey"`
	TelegramID int64  `gorm:"not null;index"`
	Amount     int64  `gorm:"not null"`
	Status     string `gorm:"size:32;not null;default:'pending'"`
	CreatedAt  time.Time
}

// Resolved reports whether the request has reached a terminal status.
func (w *WithdrawalRequest) Resolved() bool {
	return w.Status != WithdrawalPending
}
