// Package store persists application state: saved drafts ("Save Progress")
// and submitted applications.
package store

import (
	"context"
	"sync"
	"time"

	"admission/internal/application/models"
	id "admission/pkg/domain"
	"admission/pkg/platform/sentinel"
)

// InMemoryProgressStore keeps saved drafts in process memory. Used when Redis
// is not configured and in tests.
type InMemoryProgressStore struct {
	mu     sync.RWMutex
	drafts map[id.ApplicationID]progressEntry
	ttl    time.Duration
	clock  func() time.Time
}

type progressEntry struct {
	snap      models.Snapshot
	expiresAt time.Time
}

func NewInMemoryProgressStore(ttl time.Duration) *InMemoryProgressStore {
	return &InMemoryProgressStore{
		drafts: make(map[id.ApplicationID]progressEntry),
		ttl:    ttl,
		clock:  time.Now,
	}
}

func (s *InMemoryProgressStore) Save(_ context.Context, snap models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := progressEntry{snap: snap}
	entry.snap.Sections = snap.Sections.Clone()
	if s.ttl > 0 {
		entry.expiresAt = s.clock().Add(s.ttl)
	}
	s.drafts[snap.Owner] = entry
	return nil
}

func (s *InMemoryProgressStore) Load(_ context.Context, owner id.ApplicationID) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.drafts[owner]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !entry.expiresAt.IsZero() && s.clock().After(entry.expiresAt) {
		return nil, sentinel.ErrNotFound
	}
	snap := entry.snap
	snap.Sections = entry.snap.Sections.Clone()
	return &snap, nil
}

func (s *InMemoryProgressStore) Delete(_ context.Context, owner id.ApplicationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, owner)
	return nil
}
