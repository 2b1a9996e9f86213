package store

import (
	"context"
	"sync"
	"time"

	"admission/internal/application/models"
	id "admission/pkg/domain"
	"admission/pkg/platform/sentinel"
)

// InMemorySubmissionStore mirrors PostgresSubmissionStore for tests and
// database-less runs.
type InMemorySubmissionStore struct {
	mu         sync.RWMutex
	byID       map[id.ApplicationID]models.Snapshot
	byOwner    map[id.ApplicationID][]id.ApplicationID
	superseded map[id.ApplicationID]time.Time
}

func NewInMemorySubmissionStore() *InMemorySubmissionStore {
	return &InMemorySubmissionStore{
		byID:       make(map[id.ApplicationID]models.Snapshot),
		byOwner:    make(map[id.ApplicationID][]id.ApplicationID),
		superseded: make(map[id.ApplicationID]time.Time),
	}
}

func (s *InMemorySubmissionStore) Save(_ context.Context, snap models.Snapshot) error {
	if !snap.IsCompleted || snap.ApplicationID == nil {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	appID := *snap.ApplicationID
	if _, exists := s.byID[appID]; exists {
		return sentinel.ErrConflict
	}
	snap.Sections = snap.Sections.Clone()
	s.byID[appID] = snap
	s.byOwner[snap.Owner] = append(s.byOwner[snap.Owner], appID)
	return nil
}

func (s *InMemorySubmissionStore) FindByApplicationID(_ context.Context, appID id.ApplicationID) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.byID[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	snap.Sections = snap.Sections.Clone()
	return &snap, nil
}

func (s *InMemorySubmissionStore) LatestByOwner(_ context.Context, owner id.ApplicationID) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byOwner[owner]
	for i := len(ids) - 1; i >= 0; i-- {
		if _, gone := s.superseded[ids[i]]; gone {
			continue
		}
		snap := s.byID[ids[i]]
		snap.Sections = snap.Sections.Clone()
		return &snap, nil
	}
	return nil, sentinel.ErrNotFound
}

// Supersede hides the owner's submissions from LatestByOwner. The records
// stay readable by application ID.
func (s *InMemorySubmissionStore) Supersede(_ context.Context, owner id.ApplicationID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, appID := range s.byOwner[owner] {
		if _, done := s.superseded[appID]; !done {
			s.superseded[appID] = at
		}
	}
	return nil
}
