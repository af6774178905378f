// Package admin is the moderation surface: ban toggling, withdrawal
// resolution, broadcast and aggregate stats. Thin orchestration over the
// store and the withdrawal workflow.
package admin

import (
	"context"
	"log"

	"github.com/kkamota/tvbot/internal/models"
	"github.com/kkamota/tvbot/internal/notify"
	"github.com/kkamota/tvbot/internal/rewards"
	"github.com/kkamota/tvbot/internal/session"
	"github.com/kkamota/tvbot/internal/store"
	"github.com/kkamota/tvbot/internal/withdrawal"
)

type Stats struct {
	Accounts     int64
	TotalBalance int64
}

type Service struct {
	store    store.Store
	locks    *store.KeyedMutex
	sessions *session.Manager
	notifier notify.Notifier
	workflow *withdrawal.Workflow
	ledger   *rewards.Ledger
}

func New(st store.Store, locks *store.KeyedMutex, sessions *session.Manager, notifier notify.Notifier, workflow *withdrawal.Workflow, ledger *rewards.Ledger) *Service {
	return &Service{store: st, locks: locks, sessions: sessions, notifier: notifier, workflow: workflow, ledger: ledger}
}

// SetBanStatus flips the ban flag. Idempotent: when the flag already has the
// requested value nothing is written and nobody is notified. Unbanning a
// subscribed account grants the one-time bonuses the ban suppressed at
// activation.
func (s *Service) SetBanStatus(ctx context.Context, accountID int64, banned bool) (bool, error) {
	changed, subscribed, err := s.flipBanFlag(ctx, accountID, banned)
	if err != nil || !changed {
		return changed, err
	}

	if !banned && subscribed {
		if _, err := s.ledger.AwardStartBonus(ctx, accountID); err != nil {
			log.Printf("Failed to award start bonus to unbanned %d: %v", accountID, err)
		}
		if _, err := s.ledger.AwardReferralBonus(ctx, accountID); err != nil {
			log.Printf("Failed to award referral bonus for unbanned %d: %v", accountID, err)
		}
	}

	text := "Вы разблокированы администратором."
	if banned {
		text = "Вы заблокированы администратором."
	}
	notify.BestEffort(ctx, s.notifier, accountID, text)
	return true, nil
}

func (s *Service) flipBanFlag(ctx context.Context, accountID int64, banned bool) (changed, subscribed bool, err error) {
	s.locks.Lock(accountID)
	defer s.locks.Unlock(accountID)

	acc, err := s.store.Account(ctx, accountID)
	if err != nil {
		return false, false, err
	}
	if acc.IsBanned == banned {
		return false, acc.IsSubscribed, nil
	}
	if err := s.store.SetBanned(ctx, accountID, banned); err != nil {
		return false, acc.IsSubscribed, err
	}
	if banned {
		// A banned account must not keep a pending input step around.
		s.sessions.Clear(accountID)
	}
	return true, acc.IsSubscribed, nil
}

func (s *Service) ListPendingWithdrawals(ctx context.Context) ([]models.WithdrawalRequest, error) {
	return s.workflow.ListPending(ctx)
}

func (s *Service) ResolveWithdrawal(ctx context.Context, requestID uint, outcome string) (*models.WithdrawalRequest, error) {
	return s.workflow.Resolve(ctx, requestID, outcome)
}

// Broadcast fans the text out to every account. A failed delivery is logged
// and skipped, never aborts the rest. Returns delivered and total counts.
func (s *Service) Broadcast(ctx context.Context, text string) (int, int, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return 0, 0, err
	}
	delivered := 0
	for _, acc := range accounts {
		if err := s.notifier.Send(ctx, acc.TelegramID, text); err != nil {
			log.Printf("Broadcast to %d failed: %v", acc.TelegramID, err)
			continue
		}
		delivered++
	}
	return delivered, len(accounts), nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	accounts, err := s.store.CountAccounts(ctx)
	if err != nil {
		return Stats{}, err
	}
	sum, err := s.store.SumBalances(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Accounts: accounts, TotalBalance: sum}, nil
}
