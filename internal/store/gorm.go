package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kkamota/tvbot/internal/models"
)

// Gorm is the PostgreSQL-backed Store.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

var _ Store = (*Gorm)(nil)

func (s *Gorm) EnsureAccount(ctx context.Context, id int64, initialBalance int64, referredBy *int64, username string) (*models.Account, bool, error) {
	if referredBy != nil && *referredBy == id {
		referredBy = nil
	}

	var acc models.Account
	err := s.db.WithContext(ctx).Where("telegram_id = ?", id).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		acc = models.Account{
			TelegramID:        id,
			Balance:           initialBalance,
			ReferredBy:        referredBy,
			Username:          username,
			StartBonusClaimed: initialBalance > 0,
		}
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&acc)
		if res.Error != nil {
			return nil, false, fmt.Errorf("create account %d: %w", id, res.Error)
		}
		if res.RowsAffected > 0 {
			return &acc, true, nil
		}
		// Lost the insert race; fall through to the row the other unit wrote.
		if err := s.db.WithContext(ctx).Where("telegram_id = ?", id).First(&acc).Error; err != nil {
			return nil, false, fmt.Errorf("load account %d: %w", id, err)
		}
	} else if err != nil {
		return nil, false, fmt.Errorf("load account %d: %w", id, err)
	}

	if referredBy != nil && acc.ReferredBy == nil {
		err := s.db.WithContext(ctx).Model(&models.Account{}).
			Where("telegram_id = ? AND referred_by IS NULL", id).
			Update("referred_by", *referredBy).Error
		if err != nil {
			return nil, false, fmt.Errorf("assign referrer for %d: %w", id, err)
		}
		acc.ReferredBy = referredBy
	}

	if username != "" && acc.Username != username {
		if err := s.SetUsername(ctx, id, username); err != nil {
			return nil, false, err
		}
		acc.Username = username
	}

	return &acc, false, nil
}

func (s *Gorm) Account(ctx context.Context, id int64) (*models.Account, error) {
	var acc models.Account
	err := s.db.WithContext(ctx).Where("telegram_id = ?", id).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load account %d: %w", id, err)
	}
	return &acc, nil
}

func (s *Gorm) UpdateBalance(ctx context.Context, id int64, delta int64) error {
	err := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("telegram_id = ?", id).
		Update("balance", gorm.Expr("balance + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("update balance of %d: %w", id, err)
	}
	return nil
}

func (s *Gorm) SetSubscribed(ctx context.Context, id int64, subscribed bool) error {
	return s.setColumn(ctx, id, "is_subscribed", subscribed)
}

func (s *Gorm) SetRewardClaimed(ctx context.Context, id int64, claimed bool) error {
	return s.setColumn(ctx, id, "reward_claimed", claimed)
}

func (s *Gorm) SetStartBonusClaimed(ctx context.Context, id int64, claimed bool) error {
	return s.setColumn(ctx, id, "start_bonus_claimed", claimed)
}

func (s *Gorm) SetBanned(ctx context.Context, id int64, banned bool) error {
	return s.setColumn(ctx, id, "is_banned", banned)
}

func (s *Gorm) SetUsername(ctx context.Context, id int64, username string) error {
	return s.setColumn(ctx, id, "username", username)
}

func (s *Gorm) SetLastDailyBonus(ctx context.Context, id int64, at *time.Time) error {
	return s.setColumn(ctx, id, "last_daily_bonus_at", at)
}

func (s *Gorm) setColumn(ctx context.Context, id int64, column string, value interface{}) error {
	err := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("telegram_id = ?", id).
		Update(column, value).Error
	if err != nil {
		return fmt.Errorf("set %s of %d: %w", column, id, err)
	}
	return nil
}

func (s *Gorm) ListReferrals(ctx context.Context, id int64) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.WithContext(ctx).
		Where("referred_by = ?", id).
		Order("telegram_id").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("list referrals of %d: %w", id, err)
	}
	return accounts, nil
}

func (s *Gorm) TopReferrers(ctx context.Context, limit int) ([]TopReferrer, error) {
	var rows []TopReferrer
	err := s.db.WithContext(ctx).Model(&models.Account{}).
		Select("referred_by, COUNT(*) AS total").
		Where("referred_by IS NOT NULL").
		Group("referred_by").
		Order("total DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("top referrers: %w", err)
	}
	return rows, nil
}

func (s *Gorm) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.WithContext(ctx).Order("telegram_id").Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *Gorm) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Account{}).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func (s *Gorm) SumBalances(ctx context.Context) (int64, error) {
	var sum int64
	err := s.db.WithContext(ctx).Model(&models.Account{}).
		Select("COALESCE(SUM(balance), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("sum balances: %w", err)
	}
	return sum, nil
}

func (s *Gorm) CreateWithdrawal(ctx context.Context, accountID int64, amount int64) (*models.WithdrawalRequest, error) {
	req := models.WithdrawalRequest{
		TelegramID: accountID,
		Amount:     amount,
		Status:     models.WithdrawalPending,
	}
	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, fmt.Errorf("create withdrawal for %d: %w", accountID, err)
	}
	return &req, nil
}

func (s *Gorm) Withdrawal(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	var req models.WithdrawalRequest
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load withdrawal %d: %w", id, err)
	}
	return &req, nil
}

func (s *Gorm) ListWithdrawals(ctx context.Context, status string) ([]models.WithdrawalRequest, error) {
	q := s.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reqs []models.WithdrawalRequest
	if err := q.Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	return reqs, nil
}

func (s *Gorm) SetWithdrawalStatus(ctx context.Context, id uint, status string) error {
	err := s.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("set withdrawal %d status: %w", id, err)
	}
	return nil
}
