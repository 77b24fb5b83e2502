package challenge

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/layer-3/captchauth/core"
	"github.com/layer-3/captchauth/ports"
)

// MemoryStore is an in-memory implementation of ports.ChallengeStore
type MemoryStore struct {
	challenges map[string]core.Challenge
	mu         sync.Mutex
	now        func() time.Time
}

var _ ports.ChallengeStore = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory challenge store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]core.Challenge),
		now:        time.Now,
	}
}

// Save stores a challenge, replacing the previous one for the same session
func (s *MemoryStore) Save(ctx context.Context, challenge core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[challenge.SessionKey] = challenge
	return nil
}

// Consume removes the session's challenge and compares it to submitted
func (s *MemoryStore) Consume(ctx context.Context, sessionKey, submitted string) (bool, error) {
	s.mu.Lock()
	stored, ok := s.challenges[sessionKey]
	if ok {
		delete(s.challenges, sessionKey)
	}
	s.mu.Unlock()

	if !ok || stored.Expired(s.now()) {
		return false, nil
	}
	return equal(stored.Value, submitted), nil
}

// Len returns the number of challenges held
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges)
}

// Sweep evicts every challenge expired at now and returns how many were removed
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, c := range s.challenges {
		if c.Expired(now) {
			delete(s.challenges, key)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired challenges every interval until ctx is done
func (s *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}

// equal compares exactly and case-sensitively in constant time
func equal(stored, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}
