package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/captchauth/ports"
)

// MemoryStore is an in-memory implementation of ports.Store.
// Expired records are ignored on lookup and removed by Sweep.
type MemoryStore struct {
	invalidatedTokens map[string]time.Time
	mu                sync.RWMutex
	now               func() time.Time
}

var _ ports.Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		invalidatedTokens: make(map[string]time.Time),
		now:               time.Now,
	}
}

// InvalidateToken marks a token as invalidated for expiry. A live record is
// never shortened and is not claimed again.
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	until := now.Add(expiry)
	current, ok := s.invalidatedTokens[tokenID]
	if ok && now.Before(current) {
		if until.After(current) {
			s.invalidatedTokens[tokenID] = until
		}
		return false, nil
	}
	s.invalidatedTokens[tokenID] = until
	return true, nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	until, exists := s.invalidatedTokens[tokenID]
	s.mu.RUnlock()

	if !exists {
		return false, nil
	}
	return s.now().Before(until), nil
}

// Sweep removes invalidation records that have run out
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, until := range s.invalidatedTokens {
		if !now.Before(until) {
			delete(s.invalidatedTokens, id)
			removed++
		}
	}
	return removed
}
