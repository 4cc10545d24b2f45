package storage

import (
	"context"
	"sync"
	"time"

	"github.com/jasonwadsworth/aws-account-name/types"
)

// MemoryStore is the in-memory AccountStore. It backs unit tests and the
// memory storage mode, where mappings live only as long as the process.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[string]types.AccountMapping
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mappings: make(map[string]types.AccountMapping)}
}

// Store implements AccountStore with full-replace semantics.
func (s *MemoryStore) Store(_ context.Context, mappings []types.AccountMapping) error {
	next := make(map[string]types.AccountMapping, len(mappings))
	now := time.Now()
	for _, m := range mappings {
		n := m.Normalize()
		if n.LastUpdated.IsZero() {
			n.LastUpdated = now
		}
		next[n.AccountID] = n
	}

	s.mu.Lock()
	s.mappings = next
	s.mu.Unlock()
	return nil
}

// GetByAccountID implements AccountStore.
func (s *MemoryStore) GetByAccountID(_ context.Context, accountID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mappings[accountID].AccountName, nil
}

// GetByAccountName implements AccountStore.
func (s *MemoryStore) GetByAccountName(_ context.Context, accountName string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, m := range s.mappings {
		if matchExact(m.AccountName, accountName) {
			return id, nil
		}
	}
	return "", nil
}

// FuzzyLookup implements AccountStore.
func (s *MemoryStore) FuzzyLookup(_ context.Context, accountName string) (string, error) {
	if accountName == "" {
		return "", nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, m := range s.mappings {
		if matchFuzzy(m.AccountName, accountName) {
			return id, nil
		}
	}
	return "", nil
}

// Clear implements AccountStore.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.mappings = make(map[string]types.AccountMapping)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored mappings.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mappings)
}
