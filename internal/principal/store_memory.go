package principal

import (
	"context"
	"fmt"
	"sync"

	"landregistry/pkg/platform/sentinel"
)

// InMemoryStore keeps principal records in memory for tests and dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewInMemoryStore constructs an empty in-memory principal store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*Record)}
}

func (s *InMemoryStore) Find(_ context.Context, principalID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[principalID]
	if !ok {
		return nil, fmt.Errorf("principal %s: %w", principalID, sentinel.ErrNotFound)
	}
	cp := *record
	return &cp, nil
}

func (s *InMemoryStore) Save(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.records[record.PrincipalID] = &cp
	return nil
}
