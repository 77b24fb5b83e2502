// Package credentials provides credential stores that resolve login
// identifiers to principals.
package credentials

import (
	"context"
	"slices"
	"sync"

	"github.com/layer-3/captchauth/core"
	"github.com/layer-3/captchauth/ports"
)

// MemoryStore is an in-memory credential store
type MemoryStore struct {
	principals map[string]core.Principal
	mu         sync.RWMutex
}

var (
	_ ports.CredentialStore  = (*MemoryStore)(nil)
	_ ports.CredentialWriter = (*MemoryStore)(nil)
)

// NewMemoryStore creates a store seeded with principals
func NewMemoryStore(principals ...core.Principal) *MemoryStore {
	s := &MemoryStore{principals: make(map[string]core.Principal, len(principals))}
	for _, p := range principals {
		s.principals[p.ID] = clone(p)
	}
	return s
}

// Lookup returns a copy of the principal for identifier
func (s *MemoryStore) Lookup(ctx context.Context, identifier string) (core.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.principals[identifier]
	if !ok {
		return core.Principal{}, core.ErrPrincipalNotFound
	}
	return clone(p), nil
}

// Upsert stores or replaces a principal
func (s *MemoryStore) Upsert(ctx context.Context, principal core.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.principals[principal.ID] = clone(principal)
	return nil
}

// Delete removes a principal
func (s *MemoryStore) Delete(ctx context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.principals[identifier]; !ok {
		return core.ErrPrincipalNotFound
	}
	delete(s.principals, identifier)
	return nil
}

func clone(p core.Principal) core.Principal {
	p.Roles = slices.Clone(p.Roles)
	return p
}
