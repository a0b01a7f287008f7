package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"landregistry/pkg/platform/sentinel"
)

// InMemoryStore is a mutex-guarded request store. The Mark* compare-and-set
// runs under the write lock, which is what makes concurrent decisions on the
// same request resolve to a single winner.
type InMemoryStore struct {
	mu            sync.RWMutex
	registrations map[uuid.UUID]*RegistrationRequest
	transfers     map[uuid.UUID]*TransferRequest
}

// NewInMemoryStore constructs an empty in-memory request store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		registrations: make(map[uuid.UUID]*RegistrationRequest),
		transfers:     make(map[uuid.UUID]*TransferRequest),
	}
}

func (s *InMemoryStore) CreateRegistration(_ context.Context, req *RegistrationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registrations[req.RequestID]; ok {
		return fmt.Errorf("registration request %s: %w", req.RequestID, sentinel.ErrConflict)
	}
	cp := *req
	s.registrations[req.RequestID] = &cp
	return nil
}

func (s *InMemoryStore) FindRegistration(_ context.Context, requestID uuid.UUID) (*RegistrationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.registrations[requestID]
	if !ok {
		return nil, fmt.Errorf("registration request %s: %w", requestID, sentinel.ErrNotFound)
	}
	cp := *req
	return &cp, nil
}

func (s *InMemoryStore) CreateTransfer(_ context.Context, req *TransferRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transfers[req.RequestID]; ok {
		return fmt.Errorf("transfer request %s: %w", req.RequestID, sentinel.ErrConflict)
	}
	cp := *req
	s.transfers[req.RequestID] = &cp
	return nil
}

func (s *InMemoryStore) FindTransfer(_ context.Context, requestID uuid.UUID) (*TransferRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.transfers[requestID]
	if !ok {
		return nil, fmt.Errorf("transfer request %s: %w", requestID, sentinel.ErrNotFound)
	}
	cp := *req
	return &cp, nil
}

func (s *InMemoryStore) MarkRegistrationDecided(_ context.Context, requestID uuid.UUID, status Status, reason, decidedBy string, decidedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.registrations[requestID]
	if !ok {
		return fmt.Errorf("registration request %s: %w", requestID, sentinel.ErrNotFound)
	}
	if req.Status != StatusPending {
		return fmt.Errorf("registration request %s is %s: %w", requestID, req.Status, sentinel.ErrAlreadyDecided)
	}
	req.Status = status
	req.Reason = reason
	req.DecidedBy = decidedBy
	req.DecidedAt = &decidedAt
	return nil
}

func (s *InMemoryStore) MarkTransferDecided(_ context.Context, requestID uuid.UUID, status Status, reason, decidedBy string, decidedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.transfers[requestID]
	if !ok {
		return fmt.Errorf("transfer request %s: %w", requestID, sentinel.ErrNotFound)
	}
	if req.Status != StatusPending {
		return fmt.Errorf("transfer request %s is %s: %w", requestID, req.Status, sentinel.ErrAlreadyDecided)
	}
	req.Status = status
	req.Reason = reason
	req.DecidedBy = decidedBy
	req.DecidedAt = &decidedAt
	return nil
}

func (s *InMemoryStore) OverrideRegistrationDecision(_ context.Context, requestID uuid.UUID, status Status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.registrations[requestID]
	if !ok {
		return fmt.Errorf("registration request %s: %w", requestID, sentinel.ErrNotFound)
	}
	req.Status = status
	req.Reason = reason
	return nil
}

func (s *InMemoryStore) OverrideTransferDecision(_ context.Context, requestID uuid.UUID, status Status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.transfers[requestID]
	if !ok {
		return fmt.Errorf("transfer request %s: %w", requestID, sentinel.ErrNotFound)
	}
	req.Status = status
	req.Reason = reason
	return nil
}

func (s *InMemoryStore) PendingRegistrations(_ context.Context) ([]RegistrationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := make([]RegistrationRequest, 0)
	for _, req := range s.registrations {
		if req.Status == StatusPending {
			pending = append(pending, *req)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending, nil
}

func (s *InMemoryStore) PendingTransfers(_ context.Context) ([]TransferRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := make([]TransferRequest, 0)
	for _, req := range s.transfers {
		if req.Status == StatusPending {
			pending = append(pending, *req)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending, nil
}
