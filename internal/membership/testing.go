package membership

import (
	"context"
	"sync"
)

// Static is a Checker with fixed answers, for testing. Accounts without an
// entry report StatusNone.
type Static struct {
	mu       sync.Mutex
	statuses map[int64]Status
}

func NewStatic() *Static {
	return &Static{statuses: make(map[int64]Status)}
}

var _ Checker = (*Static)(nil)

func (s *Static) Set(accountID int64, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[accountID] = status
}

func (s *Static) Status(_ context.Context, accountID int64) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, ok := s.statuses[accountID]; ok {
		return status
	}
	return StatusNone
}
