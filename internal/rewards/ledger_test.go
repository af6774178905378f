package rewards

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkamota/tvbot/internal/config"
	"github.com/kkamota/tvbot/internal/notify"
	"github.com/kkamota/tvbot/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		MinWithdrawal: 15,
		StartBonus:    3,
		ReferralBonus: 3,
		DailyBonus:    1,
	}
}

func newTestLedger() (*Ledger, *store.Memory, *notify.Recorder) {
	st := store.NewMemory()
	rec := notify.NewRecorder()
	return NewLedger(st, store.NewKeyedMutex(), rec, testConfig()), st, rec
}

func TestAwardStartBonusOnce(t *testing.T) {
	ctx := context.Background()
	ledger, st, _ := newTestLedger()

	_, _, err := st.EnsureAccount(ctx, 1, 0, nil, "")
	require.NoError(t, err)

	credited, err := ledger.AwardStartBonus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), credited)

	credited, err = ledger.AwardStartBonus(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, credited)

	acc, err := st.Account(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), acc.Balance)
	assert.True(t, acc.StartBonusClaimed)
}

func TestStartBonusClaimedAtRegistration(t *testing.T) {
	ctx := context.Background()
	ledger, st, _ := newTestLedger()

	// An account opened with a non-zero initial balance already got its start
	// bonus at registration time.
	acc, _, err := st.EnsureAccount(ctx, 1, 3, nil, "")
	require.NoError(t, err)
	require.True(t, acc.StartBonusClaimed)

	credited, err := ledger.AwardStartBonus(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, credited)

	acc, err = st.Account(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), acc.Balance)
}

func TestAwardStartBonusBanned(t *testing.T) {
	ctx := context.Background()
	ledger, st, _ := newTestLedger()

	_, _, err := st.EnsureAccount(ctx, 1, 0, nil, "")
	require.NoError(t, err)
	require.NoError(t, st.SetBanned(ctx, 1, true))

	_, err = ledger.AwardStartBonus(ctx, 1)
	assert.ErrorIs(t, err, ErrBanned)
}

func TestReferralBonusCycle(t *testing.T) {
	ctx := context.Background()
	ledger, st, rec := newTestLedger()

	referrer := int64(100)
	_, _, err := st.EnsureAccount(ctx, referrer, 3, nil, "mentor")
	require.NoError(t, err)
	_, _, err = st.EnsureAccount(ctx, 2, 3, &referrer, "alice")
	require.NoError(t, err)

	paid, err := ledger.AwardReferralBonus(ctx, 2)
	require.NoError(t, err)
	assert.True(t, paid)

	ref, err := st.Account(ctx, referrer)
	require.NoError(t, err)
	assert.Equal(t, int64(6), ref.Balance)
	assert.Len(t, rec.SentTo(referrer), 1)

	// Already claimed, nothing to pay.
	paid, err = ledger.AwardReferralBonus(ctx, 2)
	require.NoError(t, err)
	assert.False(t, paid)
	assert.Len(t, rec.SentTo(referrer), 1)

	// Reversal debits both sides and clears the flag.
	reversed, err := ledger.ReverseReferralBonus(ctx, 2)
	require.NoError(t, err)
	assert.True(t, reversed)

	ref, err = st.Account(ctx, referrer)
	require.NoError(t, err)
	assert.Equal(t, int64(3), ref.Balance)
	acc, err := st.Account(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.Balance)
	assert.False(t, acc.RewardClaimed)
	assert.Len(t, rec.SentTo(referrer), 2)

	// Already reversed, a second reversal is a no-op.
	reversed, err = ledger.ReverseReferralBonus(ctx, 2)
	require.NoError(t, err)
	assert.False(t, reversed)

	// Re-subscribing pays again.
	paid, err = ledger.AwardReferralBonus(ctx, 2)
	require.NoError(t, err)
	assert.True(t, paid)
	ref, err = st.Account(ctx, referrer)
	require.NoError(t, err)
	assert.Equal(t, int64(6), ref.Balance)
}

func TestReferralBonusWithoutReferrer(t *testing.T) {
	ctx := context.Background()
	ledger, st, _ := newTestLedger()

	_, _, err := st.EnsureAccount(ctx, 1, 0, nil, "")
	require.NoError(t, err)

	paid, err := ledger.AwardReferralBonus(ctx, 1)
	require.NoError(t, err)
	assert.False(t, paid)

	reversed, err := ledger.ReverseReferralBonus(ctx, 1)
	require.NoError(t, err)
	assert.False(t, reversed)
}

func TestClaimDailyBonus(t *testing.T) {
	ctx := context.Background()
	ledger, st, _ := newTestLedger()

	_, _, err := st.EnsureAccount(ctx, 1, 0, nil, "")
	require.NoError(t, err)

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	credited, wait, err := ledger.ClaimDailyBonus(ctx, 1, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), credited)
	assert.Zero(t, wait)

	// One minute short of the window.
	credited, wait, err = ledger.ClaimDailyBonus(ctx, 1, t0.Add(23*time.Hour+59*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, credited)
	assert.Equal(t, time.Minute, wait)

	acc, err := st.Account(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.Balance)
	require.NotNil(t, acc.LastDailyBonusAt)
	assert.True(t, acc.LastDailyBonusAt.Equal(t0))

	// The window is sliding, anchored at the last successful claim.
	credited, wait, err = ledger.ClaimDailyBonus(ctx, 1, t0.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), credited)
	assert.Zero(t, wait)

	acc, err = st.Account(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), acc.Balance)
}

func TestClaimDailyBonusBanned(t *testing.T) {
	ctx := context.Background()
	ledger, st, _ := newTestLedger()

	_, _, err := st.EnsureAccount(ctx, 1, 0, nil, "")
	require.NoError(t, err)
	require.NoError(t, st.SetBanned(ctx, 1, true))

	_, _, err = ledger.ClaimDailyBonus(ctx, 1, time.Now())
	assert.ErrorIs(t, err, ErrBanned)
}

func TestLedgerUnknownAccount(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newTestLedger()

	_, err := ledger.AwardStartBonus(ctx, 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, _, err = ledger.ClaimDailyBonus(ctx, 404, time.Now())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
