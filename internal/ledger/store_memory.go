package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"landregistry/pkg/platform/sentinel"
)

// InMemoryStore is a mutex-guarded ledger store for tests and single-node
// deployments. The owner compare-and-set and the history append share one
// critical section, so concurrent transfers observe the same atomicity as
// the SQL store.
type InMemoryStore struct {
	mu      sync.RWMutex
	parcels map[uuid.UUID]*Parcel
	history map[uuid.UUID][]HistoryEntry
}

// NewInMemoryStore constructs an empty in-memory ledger store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		parcels: make(map[uuid.UUID]*Parcel),
		history: make(map[uuid.UUID][]HistoryEntry),
	}
}

func (s *InMemoryStore) Create(_ context.Context, parcel *Parcel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.parcels[parcel.ParcelID]; ok {
		return fmt.Errorf("parcel %s: %w", parcel.ParcelID, sentinel.ErrConflict)
	}
	cp := *parcel
	s.parcels[parcel.ParcelID] = &cp
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, parcelID uuid.UUID) (*Parcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parcel, ok := s.parcels[parcelID]
	if !ok {
		return nil, fmt.Errorf("parcel %s: %w", parcelID, sentinel.ErrNotFound)
	}
	cp := *parcel
	return &cp, nil
}

func (s *InMemoryStore) Transfer(_ context.Context, parcelID uuid.UUID, expectedOwner, newOwner, newOwnerName string, price int64, entry HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parcel, ok := s.parcels[parcelID]
	if !ok {
		return fmt.Errorf("parcel %s: %w", parcelID, sentinel.ErrNotFound)
	}
	if parcel.OwnerPrincipalID != expectedOwner {
		return fmt.Errorf("parcel %s owned by %s: %w", parcelID, parcel.OwnerPrincipalID, sentinel.ErrStaleOwner)
	}
	parcel.OwnerPrincipalID = newOwner
	parcel.OwnerName = newOwnerName
	parcel.Price = price
	s.history[parcelID] = append(s.history[parcelID], entry)
	return nil
}

func (s *InMemoryStore) History(_ context.Context, parcelID uuid.UUID) ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]HistoryEntry, len(s.history[parcelID]))
	copy(entries, s.history[parcelID])
	sort.Slice(entries, func(i, j int) bool { return entries[i].Less(entries[j]) })
	return entries, nil
}

func (s *InMemoryStore) ParcelIDsByOwner(_ context.Context, principalID string) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := make([]*Parcel, 0)
	for _, parcel := range s.parcels {
		if parcel.OwnerPrincipalID == principalID {
			owned = append(owned, parcel)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].RegisteredAt.Equal(owned[j].RegisteredAt) {
			return owned[i].RegisteredAt.Before(owned[j].RegisteredAt)
		}
		return owned[i].ParcelID.String() < owned[j].ParcelID.String()
	})

	ids := make([]uuid.UUID, len(owned))
	for i, parcel := range owned {
		ids[i] = parcel.ParcelID
	}
	return ids, nil
}
