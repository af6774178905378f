package withdrawal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkamota/tvbot/internal/config"
	"github.com/kkamota/tvbot/internal/models"
	"github.com/kkamota/tvbot/internal/notify"
	"github.com/kkamota/tvbot/internal/session"
	"github.com/kkamota/tvbot/internal/store"
)

func newTestWorkflow() (*Workflow, *store.Memory, *session.Manager, *notify.Recorder) {
	st := store.NewMemory()
	sessions := session.NewManager()
	rec := notify.NewRecorder()
	cfg := &config.Config{MinWithdrawal: 15, StartBonus: 3, ReferralBonus: 3, DailyBonus: 1}
	return New(st, store.NewKeyedMutex(), sessions, rec, cfg), st, sessions, rec
}

func TestBeginRequiresMinimumBalance(t *testing.T) {
	ctx := context.Background()
	w, st, sessions, _ := newTestWorkflow()

	_, _, err := st.EnsureAccount(ctx, 1, 10, nil, "")
	require.NoError(t, err)

	err = w.Begin(ctx, 1)
	assert.ErrorIs(t, err, ErrBelowMinimum)
	_, ok := sessions.Get(1)
	assert.False(t, ok)

	require.NoError(t, st.UpdateBalance(ctx, 1, 10))
	require.NoError(t, w.Begin(ctx, 1))
	s, ok := sessions.Get(1)
	require.True(t, ok)
	assert.Equal(t, session.StateAwaitingWithdrawAmount, s.State)
}

func TestBeginBanned(t *testing.T) {
	ctx := context.Background()
	w, st, _, _ := newTestWorkflow()

	_, _, err := st.EnsureAccount(ctx, 1, 100, nil, "")
	require.NoError(t, err)
	require.NoError(t, st.SetBanned(ctx, 1, true))

	assert.ErrorIs(t, w.Begin(ctx, 1), ErrBanned)
}

func TestSubmitAmountValidation(t *testing.T) {
	ctx := context.Background()
	w, st, sessions, _ := newTestWorkflow()

	_, _, err := st.EnsureAccount(ctx, 1, 20, nil, "")
	require.NoError(t, err)
	require.NoError(t, w.Begin(ctx, 1))

	for _, tc := range []struct {
		text string
		want error
	}{
		{"abc", ErrBadAmount},
		{"", ErrBadAmount},
		{"-5", ErrBadAmount},
		{"0", ErrBadAmount},
		{"14", ErrBelowMinimum},
		{"21", ErrInsufficientFunds},
	} {
		_, err := w.SubmitAmount(ctx, 1, tc.text)
		assert.ErrorIs(t, err, tc.want, "text %q", tc.text)

		// Validation failures keep the input step open for a retry.
		s, ok := sessions.Get(1)
		require.True(t, ok, "text %q", tc.text)
		assert.Equal(t, session.StateAwaitingWithdrawAmount, s.State)
	}

	acc, err := st.Account(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), acc.Balance)
}

func TestSubmitAmountDebitsAndFiles(t *testing.T) {
	ctx := context.Background()
	w, st, sessions, _ := newTestWorkflow()

	_, _, err := st.EnsureAccount(ctx, 1, 20, nil, "")
	require.NoError(t, err)
	require.NoError(t, w.Begin(ctx, 1))

	req, err := w.SubmitAmount(ctx, 1, " 20 ")
	require.NoError(t, err)
	assert.Equal(t, int64(20), req.Amount)
	assert.Equal(t, models.WithdrawalPending, req.Status)

	acc, err := st.Account(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, acc.Balance)

	_, ok := sessions.Get(1)
	assert.False(t, ok)

	pending, err := w.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)
}

func TestSubmitAmountBannedMidFlow(t *testing.T) {
	ctx := context.Background()
	w, st, sessions, _ := newTestWorkflow()

	_, _, err := st.EnsureAccount(ctx, 1, 20, nil, "")
	require.NoError(t, err)
	require.NoError(t, w.Begin(ctx, 1))
	require.NoError(t, st.SetBanned(ctx, 1, true))

	_, err = w.SubmitAmount(ctx, 1, "20")
	assert.ErrorIs(t, err, ErrBanned)

	// The ban kills the flow, not just the attempt.
	_, ok := sessions.Get(1)
	assert.False(t, ok)

	acc, err := st.Account(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), acc.Balance)
}

func TestResolveIsOneWay(t *testing.T) {
	ctx := context.Background()
	w, st, _, rec := newTestWorkflow()

	_, _, err := st.EnsureAccount(ctx, 1, 20, nil, "")
	require.NoError(t, err)
	require.NoError(t, w.Begin(ctx, 1))
	req, err := w.SubmitAmount(ctx, 1, "20")
	require.NoError(t, err)

	resolved, err := w.Resolve(ctx, req.ID, models.WithdrawalPaid)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPaid, resolved.Status)
	require.Len(t, rec.SentTo(1), 1)
	assert.Contains(t, rec.SentTo(1)[0].Text, "выплачена")

	// Second decision is refused and the user is not notified twice.
	_, err = w.Resolve(ctx, req.ID, models.WithdrawalRejected)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.Len(t, rec.SentTo(1), 1)

	got, err := st.Withdrawal(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPaid, got.Status)
}

func TestResolveRejectionKeepsDebit(t *testing.T) {
	ctx := context.Background()
	w, st, _, rec := newTestWorkflow()

	_, _, err := st.EnsureAccount(ctx, 1, 20, nil, "")
	require.NoError(t, err)
	require.NoError(t, w.Begin(ctx, 1))
	req, err := w.SubmitAmount(ctx, 1, "15")
	require.NoError(t, err)

	_, err = w.Resolve(ctx, req.ID, models.WithdrawalRejected)
	require.NoError(t, err)
	require.Len(t, rec.SentTo(1), 1)
	assert.Contains(t, rec.SentTo(1)[0].Text, "отклонена")

	// No automatic refund on rejection.
	acc, err := st.Account(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), acc.Balance)
}

func TestResolveErrors(t *testing.T) {
	ctx := context.Background()
	w, _, _, _ := newTestWorkflow()

	_, err := w.Resolve(ctx, 404, models.WithdrawalPaid)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = w.Resolve(ctx, 1, "pending")
	assert.ErrorIs(t, err, ErrBadOutcome)
}
