package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kkamota/tvbot/internal/models"
)

// Memory is an in-memory Store. It serializes every call behind a single
// mutex, matching the one-in-flight-operation guarantee of the real backing
// store, and is the substitute used by the service tests.
type Memory struct {
	mu          sync.Mutex
	accounts    map[int64]*models.Account
	withdrawals map[uint]*models.WithdrawalRequest
	nextID      uint
}

func NewMemory() *Memory {
	return &Memory{
		accounts:    make(map[int64]*models.Account),
		withdrawals: make(map[uint]*models.WithdrawalRequest),
		nextID:      1,
	}
}

var _ Store = (*Memory)(nil)

func (s *Memory) EnsureAccount(_ context.Context, id int64, initialBalance int64, referredBy *int64, username string) (*models.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if referredBy != nil && *referredBy == id {
		referredBy = nil
	}

	acc, ok := s.accounts[id]
	if !ok {
		now := time.Now()
		acc = &models.Account{
			TelegramID:        id,
			Balance:           initialBalance,
			ReferredBy:        referredBy,
			Username:          username,
			StartBonusClaimed: initialBalance > 0,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		s.accounts[id] = acc
		return cloneAccount(acc), true, nil
	}

	if referredBy != nil && acc.ReferredBy == nil {
		ref := *referredBy
		acc.ReferredBy = &ref
	}
	if username != "" && acc.Username != username {
		acc.Username = username
	}
	return cloneAccount(acc), false, nil
}

func (s *Memory) Account(_ context.Context, id int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAccount(acc), nil
}

func (s *Memory) UpdateBalance(_ context.Context, id int64, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A missing account is a zero-row update, same as the SQL backend.
	if acc, ok := s.accounts[id]; ok {
		acc.Balance += delta
		acc.UpdatedAt = time.Now()
	}
	return nil
}

func (s *Memory) SetSubscribed(_ context.Context, id int64, subscribed bool) error {
	return s.mutateAccount(id, func(acc *models.Account) { acc.IsSubscribed = subscribed })
}

func (s *Memory) SetRewardClaimed(_ context.Context, id int64, claimed bool) error {
	return s.mutateAccount(id, func(acc *models.Account) { acc.RewardClaimed = claimed })
}

func (s *Memory) SetStartBonusClaimed(_ context.Context, id int64, claimed bool) error {
	return s.mutateAccount(id, func(acc *models.Account) { acc.StartBonusClaimed = claimed })
}

func (s *Memory) SetBanned(_ context.Context, id int64, banned bool) error {
	return s.mutateAccount(id, func(acc *models.Account) { acc.IsBanned = banned })
}

func (s *Memory) SetUsername(_ context.Context, id int64, username string) error {
	return s.mutateAccount(id, func(acc *models.Account) { acc.Username = username })
}

func (s *Memory) SetLastDailyBonus(_ context.Context, id int64, at *time.Time) error {
	return s.mutateAccount(id, func(acc *models.Account) {
		if at == nil {
			acc.LastDailyBonusAt = nil
			return
		}
		t := *at
		acc.LastDailyBonusAt = &t
	})
}

func (s *Memory) ListReferrals(_ context.Context, id int64) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Account
	for _, acc := range s.accounts {
		if acc.ReferredBy != nil && *acc.ReferredBy == id {
			out = append(out, *cloneAccount(acc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TelegramID < out[j].TelegramID })
	return out, nil
}

func (s *Memory) TopReferrers(_ context.Context, limit int) ([]TopReferrer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[int64]int64)
	for _, acc := range s.accounts {
		if acc.ReferredBy != nil {
			counts[*acc.ReferredBy]++
		}
	}
	out := make([]TopReferrer, 0, len(counts))
	for id, total := range counts {
		out = append(out, TopReferrer{ReferredBy: id, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].ReferredBy < out[j].ReferredBy
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Memory) ListAccounts(_ context.Context) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, *cloneAccount(acc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TelegramID < out[j].TelegramID })
	return out, nil
}

func (s *Memory) CountAccounts(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.accounts)), nil
}

func (s *Memory) SumBalances(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum int64
	for _, acc := range s.accounts {
		sum += acc.Balance
	}
	return sum, nil
}

func (s *Memory) CreateWithdrawal(_ context.Context, accountID int64, amount int64) (*models.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := &models.WithdrawalRequest{
		ID:         s.nextID,
		TelegramID: accountID,
		Amount:     amount,
		Status:     models.WithdrawalPending,
		CreatedAt:  time.Now(),
	}
	s.nextID++
	s.withdrawals[req.ID] = req
	out := *req
	return &out, nil
}

func (s *Memory) Withdrawal(_ context.Context, id uint) (*models.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.withdrawals[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *req
	return &out, nil
}

func (s *Memory) ListWithdrawals(_ context.Context, status string) ([]models.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.WithdrawalRequest
	for _, req := range s.withdrawals {
		if status == "" || req.Status == status {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Memory) SetWithdrawalStatus(_ context.Context, id uint, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.withdrawals[id]
	if !ok {
		return ErrNotFound
	}
	req.Status = status
	return nil
}

func (s *Memory) mutateAccount(id int64, fn func(*models.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	fn(acc)
	acc.UpdatedAt = time.Now()
	return nil
}

func cloneAccount(acc *models.Account) *models.Account {
	out := *acc
	if acc.ReferredBy != nil {
		ref := *acc.ReferredBy
		out.ReferredBy = &ref
	}
	if acc.LastDailyBonusAt != nil {
		t := *acc.LastDailyBonusAt
		out.LastDailyBonusAt = &t
	}
	return &out
}
