package rewards

import (
	"context"

	"github.com/kkamota/tvbot/internal/membership"
	"github.com/kkamota/tvbot/internal/session"
	"github.com/kkamota/tvbot/internal/store"
)

// Result describes what a reconciliation pass did.
type Result struct {
	Member        bool
	JustActivated bool
	// StartBonus is the amount credited during activation, 0 when the start
	// bonus was already claimed.
	StartBonus   int64
	ReferralPaid bool
	Reversed     bool
}

// Verifier reconciles an account's stored subscription flag against the
// membership oracle and runs the bonus transitions both ways.
type Verifier struct {
	checker  membership.Checker
	store    store.Store
	locks    *store.KeyedMutex
	ledger   *Ledger
	sessions *session.Manager
}

func NewVerifier(checker membership.Checker, st store.Store, locks *store.KeyedMutex, ledger *Ledger, sessions *session.Manager) *Verifier {
	return &Verifier{checker: checker, store: st, locks: locks, ledger: ledger, sessions: sessions}
}

// Check queries the oracle without touching stored state.
func (v *Verifier) Check(ctx context.Context, accountID int64) membership.Status {
	return v.checker.Status(ctx, accountID)
}

// Reconcile queries the oracle and applies the answer. Idempotent: a second
// call with an unchanged oracle answer is a no-op.
func (v *Verifier) Reconcile(ctx context.Context, accountID int64) (Result, error) {
	return v.Apply(ctx, accountID, v.checker.Status(ctx, accountID))
}

// Apply reconciles the stored flag against an already-obtained oracle answer.
func (v *Verifier) Apply(ctx context.Context, accountID int64, status membership.Status) (Result, error) {
	member := status.Subscribed()
	res := Result{Member: member}

	v.locks.Lock(accountID)
	defer v.locks.Unlock(accountID)

	acc, err := v.store.Account(ctx, accountID)
	if err != nil {
		return res, err
	}

	switch {
	case member && !acc.IsSubscribed:
		if err := v.store.SetSubscribed(ctx, accountID, true); err != nil {
			return res, err
		}
		acc.IsSubscribed = true
		res.JustActivated = true
		if acc.IsBanned {
			break
		}
		credited, err := v.ledger.awardStartBonusLocked(ctx, acc)
		if err != nil {
			return res, err
		}
		res.StartBonus = credited
		paid, err := v.ledger.awardReferralBonusLocked(ctx, acc)
		if err != nil {
			return res, err
		}
		res.ReferralPaid = paid

	case !member && acc.IsSubscribed:
		if err := v.store.SetSubscribed(ctx, accountID, false); err != nil {
			return res, err
		}
		acc.IsSubscribed = false
		reversed, err := v.ledger.reverseReferralBonusLocked(ctx, acc)
		if err != nil {
			return res, err
		}
		res.Reversed = reversed
		// A lost subscription invalidates any pending input step.
		v.sessions.Clear(accountID)
	}

	return res, nil
}
