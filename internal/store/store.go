// Package store is the durable keyed storage for accounts and withdrawal
// requests. Every operation is a single serialized unit against the backing
// store; compound check-then-mutate sequences in the services additionally
// run under the per-account KeyedMutex.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/kkamota/tvbot/internal/models"
)

// ErrNotFound is returned when the requested account or withdrawal request
// does not exist.
var ErrNotFound = errors.New("store: not found")

// TopReferrer is one row of the invite leaderboard.
type TopReferrer struct {
	ReferredBy int64
	Total      int64
}

type Store interface {
	// EnsureAccount creates the account on first contact and is a no-op on
	// the numeric fields for an existing one. A self-referral is silently
	// dropped, an already-set referrer is never overwritten, and the cached
	// username is refreshed only when it differs.
	EnsureAccount(ctx context.Context, id int64, initialBalance int64, referredBy *int64, username string) (*models.Account, bool, error)
	Account(ctx context.Context, id int64) (*models.Account, error)

	// UpdateBalance applies the delta as a single atomic mutation. A missing
	// account is a zero-row update, not an error: the referrer leg of a
	// referral credit may point at an id that never registered.
	UpdateBalance(ctx context.Context, id int64, delta int64) error
	SetSubscribed(ctx context.Context, id int64, subscribed bool) error
	SetRewardClaimed(ctx context.Context, id int64, claimed bool) error
	SetStartBonusClaimed(ctx context.Context, id int64, claimed bool) error
	SetBanned(ctx context.Context, id int64, banned bool) error
	SetUsername(ctx context.Context, id int64, username string) error
	SetLastDailyBonus(ctx context.Context, id int64, at *time.Time) error

	ListReferrals(ctx context.Context, id int64) ([]models.Account, error)
	TopReferrers(ctx context.Context, limit int) ([]TopReferrer, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	CountAccounts(ctx context.Context) (int64, error)
	SumBalances(ctx context.Context) (int64, error)

	CreateWithdrawal(ctx context.Context, accountID int64, amount int64) (*models.WithdrawalRequest, error)
	Withdrawal(ctx context.Context, id uint) (*models.WithdrawalRequest, error)
	// ListWithdrawals returns requests newest first, filtered by status when
	// status is non-empty.
	ListWithdrawals(ctx context.Context, status string) ([]models.WithdrawalRequest, error)
	SetWithdrawalStatus(ctx context.Context, id uint, status string) error
}
