package asset

import (
	"context"
	"fmt"
	"sync"

	"landregistry/pkg/platform/sentinel"
)

// InMemoryStore keeps asset references in memory for tests and dev.
type InMemoryStore struct {
	mu   sync.RWMutex
	refs map[string]*Reference
}

// NewInMemoryStore constructs an empty in-memory reference store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{refs: make(map[string]*Reference)}
}

func (s *InMemoryStore) Save(_ context.Context, ref *Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refs[ref.ReferenceID]; ok {
		return nil
	}
	cp := *ref
	s.refs[ref.ReferenceID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, referenceID string) (*Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.refs[referenceID]
	if !ok {
		return nil, fmt.Errorf("asset reference %s: %w", referenceID, sentinel.ErrNotFound)
	}
	cp := *ref
	return &cp, nil
}
