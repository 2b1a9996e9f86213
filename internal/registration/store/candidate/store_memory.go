// Package candidate stores registered candidates.
package candidate

import (
	"context"
	"sync"
	"time"

	"admission/internal/registration/models"
	id "admission/pkg/domain"
	"admission/pkg/platform/sentinel"
)

// InMemoryStore enforces the same uniqueness rules as the candidates table:
// application ID, email and mobile number are each unique.
type InMemoryStore struct {
	mu       sync.RWMutex
	byAppID  map[id.ApplicationID]*models.Candidate
	byEmail  map[string]id.ApplicationID
	byMobile map[string]id.ApplicationID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byAppID:  make(map[id.ApplicationID]*models.Candidate),
		byEmail:  make(map[string]id.ApplicationID),
		byMobile: make(map[string]id.ApplicationID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, c *models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byAppID[c.ApplicationID]; ok {
		return models.ErrApplicationIDTaken
	}
	if _, ok := s.byEmail[c.Email]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byMobile[c.MobileNumber]; ok {
		return sentinel.ErrConflict
	}
	stored := *c
	s.byAppID[c.ApplicationID] = &stored
	s.byEmail[c.Email] = c.ApplicationID
	s.byMobile[c.MobileNumber] = c.ApplicationID
	return nil
}

func (s *InMemoryStore) FindByApplicationID(_ context.Context, appID id.ApplicationID) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byAppID[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *InMemoryStore) MarkVerified(_ context.Context, appID id.ApplicationID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byAppID[appID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Verified = true
	c.VerifiedAt = &at
	return nil
}
