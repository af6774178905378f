// Package rewards owns every balance-affecting bonus operation and the
// subscription reconciliation that triggers them.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kkamota/tvbot/internal/config"
	"github.com/kkamota/tvbot/internal/models"
	"github.com/kkamota/tvbot/internal/notify"
	"github.com/kkamota/tvbot/internal/store"
)

// ErrBanned is returned when a reward operation is attempted on a banned
// account.
var ErrBanned = errors.New("rewards: account is banned")

const dailyWindow = 24 * time.Hour

type Ledger struct {
	store    store.Store
	locks    *store.KeyedMutex
	notifier notify.Notifier
	cfg      *config.Config
}

func NewLedger(st store.Store, locks *store.KeyedMutex, notifier notify.Notifier, cfg *config.Config) *Ledger {
	return &Ledger{store: st, locks: locks, notifier: notifier, cfg: cfg}
}

// AwardStartBonus credits the start bonus once per account. Returns the
// credited amount, 0 when the bonus was already claimed.
func (l *Ledger) AwardStartBonus(ctx context.Context, accountID int64) (int64, error) {
	l.locks.Lock(accountID)
	defer l.locks.Unlock(accountID)

	acc, err := l.store.Account(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if acc.IsBanned {
		return 0, ErrBanned
	}
	return l.awardStartBonusLocked(ctx, acc)
}

// AwardReferralBonus credits the referrer of the given account once; the
// referee only carries the RewardClaimed flag. Reports whether a credit
// happened.
func (l *Ledger) AwardReferralBonus(ctx context.Context, accountID int64) (bool, error) {
	l.locks.Lock(accountID)
	defer l.locks.Unlock(accountID)

	acc, err := l.store.Account(ctx, accountID)
	if err != nil {
		return false, err
	}
	if acc.IsBanned {
		return false, ErrBanned
	}
	return l.awardReferralBonusLocked(ctx, acc)
}

// ReverseReferralBonus is the inverse of the award path: it debits the
// referral bonus from both the account and its referrer and clears the flag,
// so a later re-subscription can award again.
func (l *Ledger) ReverseReferralBonus(ctx context.Context, accountID int64) (bool, error) {
	l.locks.Lock(accountID)
	defer l.locks.Unlock(accountID)

	acc, err := l.store.Account(ctx, accountID)
	if err != nil {
		return false, err
	}
	return l.reverseReferralBonusLocked(ctx, acc)
}

// ClaimDailyBonus credits the daily bonus if the sliding 24h window anchored
// at the last successful claim has passed. On refusal the remaining wait is
// returned with a zero credit.
func (l *Ledger) ClaimDailyBonus(ctx context.Context, accountID int64, now time.Time) (int64, time.Duration, error) {
	l.locks.Lock(accountID)
	defer l.locks.Unlock(accountID)

	acc, err := l.store.Account(ctx, accountID)
	if err != nil {
		return 0, 0, err
	}
	if acc.IsBanned {
		return 0, 0, ErrBanned
	}

	if acc.LastDailyBonusAt != nil {
		if elapsed := now.Sub(*acc.LastDailyBonusAt); elapsed < dailyWindow {
			return 0, dailyWindow - elapsed, nil
		}
	}

	if err := l.store.UpdateBalance(ctx, accountID, l.cfg.DailyBonus); err != nil {
		return 0, 0, err
	}
	if err := l.store.SetLastDailyBonus(ctx, accountID, &now); err != nil {
		return 0, 0, err
	}
	return l.cfg.DailyBonus, 0, nil
}

// The *Locked variants assume the caller holds the account lock and keep the
// passed snapshot in sync with the committed state.

func (l *Ledger) awardStartBonusLocked(ctx context.Context, acc *models.Account) (int64, error) {
	if acc.StartBonusClaimed {
		return 0, nil
	}
	if err := l.store.UpdateBalance(ctx, acc.TelegramID, l.cfg.StartBonus); err != nil {
		return 0, err
	}
	if err := l.store.SetStartBonusClaimed(ctx, acc.TelegramID, true); err != nil {
		return 0, err
	}
	acc.Balance += l.cfg.StartBonus
	acc.StartBonusClaimed = true
	return l.cfg.StartBonus, nil
}

func (l *Ledger) awardReferralBonusLocked(ctx context.Context, acc *models.Account) (bool, error) {
	if acc.ReferredBy == nil || acc.RewardClaimed {
		return false, nil
	}
	referrer := *acc.ReferredBy
	if err := l.store.UpdateBalance(ctx, referrer, l.cfg.ReferralBonus); err != nil {
		return false, err
	}
	if err := l.store.SetRewardClaimed(ctx, acc.TelegramID, true); err != nil {
		return false, err
	}
	acc.RewardClaimed = true

	notify.BestEffort(ctx, l.notifier, referrer, fmt.Sprintf(
		"Ваш реферал %s подтвердил подписку. Вам начислено %d ⭐.",
		displayName(acc), l.cfg.ReferralBonus,
	))
	return true, nil
}

func (l *Ledger) reverseReferralBonusLocked(ctx context.Context, acc *models.Account) (bool, error) {
	if acc.ReferredBy == nil || !acc.RewardClaimed {
		return false, nil
	}
	referrer := *acc.ReferredBy
	if err := l.store.UpdateBalance(ctx, acc.TelegramID, -l.cfg.ReferralBonus); err != nil {
		return false, err
	}
	if err := l.store.UpdateBalance(ctx, referrer, -l.cfg.ReferralBonus); err != nil {
		return false, err
	}
	if err := l.store.SetRewardClaimed(ctx, acc.TelegramID, false); err != nil {
		return false, err
	}
	acc.Balance -= l.cfg.ReferralBonus
	acc.RewardClaimed = false

	notify.BestEffort(ctx, l.notifier, referrer, fmt.Sprintf(
		"Ваш реферал %s отписался от канала, %d ⭐ списано.",
		displayName(acc), l.cfg.ReferralBonus,
	))
	return true, nil
}

func displayName(acc *models.Account) string {
	if acc.Username != "" {
		return "@" + acc.Username
	}
	return fmt.Sprintf("ID %d", acc.TelegramID)
}
