// Package withdrawal turns a redeem request into a debit plus a moderation
// ticket, and a moderator decision into a terminal status.
//
// Per-account states: IDLE -> AWAITING_AMOUNT -> PENDING -> {PAID, REJECTED}.
// The first two live in the session manager, the last three on the request
// row.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/kkamota/tvbot/internal/config"
	"github.com/kkamota/tvbot/internal/models"
	"github.com/kkamota/tvbot/internal/notify"
	"github.com/kkamota/tvbot/internal/session"
	"github.com/kkamota/tvbot/internal/store"
)

var (
	ErrBanned            = errors.New("withdrawal: account is banned")
	ErrBadAmount         = errors.New("withdrawal: amount is not a positive integer")
	ErrBelowMinimum      = errors.New("withdrawal: amount below minimum")
	ErrInsufficientFunds = errors.New("withdrawal: amount exceeds balance")
	ErrAlreadyResolved   = errors.New("withdrawal: request already resolved")
	ErrBadOutcome        = errors.New("withdrawal: outcome must be paid or rejected")
)

type Workflow struct {
	store    store.Store
	locks    *store.KeyedMutex
	sessions *session.Manager
	notifier notify.Notifier
	cfg      *config.Config
}

func New(st store.Store, locks *store.KeyedMutex, sessions *session.Manager, notifier notify.Notifier, cfg *config.Config) *Workflow {
	return &Workflow{store: st, locks: locks, sessions: sessions, notifier: notifier, cfg: cfg}
}

// Begin moves the account into the awaiting-amount step, provided the
// balance covers the minimum withdrawal. Otherwise the account stays idle
// and the caller reports the shortfall.
func (w *Workflow) Begin(ctx context.Context, accountID int64) error {
	acc, err := w.store.Account(ctx, accountID)
	if err != nil {
		return err
	}
	if acc.IsBanned {
		return ErrBanned
	}
	if acc.Balance < w.cfg.MinWithdrawal {
		return ErrBelowMinimum
	}
	w.sessions.Set(accountID, session.Session{State: session.StateAwaitingWithdrawAmount})
	return nil
}

// SubmitAmount validates the free-text amount and, on success, debits the
// balance and files the pending request as one logical unit. Validation
// failures leave the awaiting-amount step in place so the user can retry.
func (w *Workflow) SubmitAmount(ctx context.Context, accountID int64, text string) (*models.WithdrawalRequest, error) {
	amount, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || amount <= 0 {
		return nil, ErrBadAmount
	}
	if amount < w.cfg.MinWithdrawal {
		return nil, ErrBelowMinimum
	}

	w.locks.Lock(accountID)
	defer w.locks.Unlock(accountID)

	acc, err := w.store.Account(ctx, accountID)
	if err != nil {
		w.sessions.Clear(accountID)
		return nil, err
	}
	if acc.IsBanned {
		w.sessions.Clear(accountID)
		return nil, ErrBanned
	}
	if amount > acc.Balance {
		return nil, ErrInsufficientFunds
	}

	if err := w.store.UpdateBalance(ctx, accountID, -amount); err != nil {
		return nil, err
	}
	req, err := w.store.CreateWithdrawal(ctx, accountID, amount)
	if err != nil {
		// Undo the debit so no partial mutation stays visible.
		if rbErr := w.store.UpdateBalance(ctx, accountID, amount); rbErr != nil {
			log.Printf("Failed to roll back debit of %d for %d: %v", amount, accountID, rbErr)
		}
		return nil, err
	}

	w.sessions.Clear(accountID)
	return req, nil
}

// Resolve finishes a pending request. The transition is one-way: resolving
// an already-resolved request is refused and never notifies twice. Rejection
// does not refund the debited amount; a manual moderator credit is the
// refund path.
func (w *Workflow) Resolve(ctx context.Context, requestID uint, outcome string) (*models.WithdrawalRequest, error) {
	if outcome != models.WithdrawalPaid && outcome != models.WithdrawalRejected {
		return nil, ErrBadOutcome
	}

	req, err := w.store.Withdrawal(ctx, requestID)
	if err != nil {
		return nil, err
	}

	w.locks.Lock(req.TelegramID)
	defer w.locks.Unlock(req.TelegramID)

	req, err = w.store.Withdrawal(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Resolved() {
		return req, ErrAlreadyResolved
	}
	if err := w.store.SetWithdrawalStatus(ctx, requestID, outcome); err != nil {
		return nil, err
	}
	req.Status = outcome

	text := fmt.Sprintf("Ваша заявка #%d на вывод %d ⭐ выплачена.", req.ID, req.Amount)
	if outcome == models.WithdrawalRejected {
		text = fmt.Sprintf("Ваша заявка #%d на вывод %d ⭐ отклонена.", req.ID, req.Amount)
	}
	notify.BestEffort(ctx, w.notifier, req.TelegramID, text)

	return req, nil
}

// ListPending returns the open moderation queue, newest first.
func (w *Workflow) ListPending(ctx context.Context) ([]models.WithdrawalRequest, error) {
	return w.store.ListWithdrawals(ctx, models.WithdrawalPending)
}
