// Package otp stores issued one-time passwords until they are used or expire.
package otp

import (
	"context"
	"sync"

	"admission/internal/registration/models"
	id "admission/pkg/domain"
	"admission/pkg/platform/sentinel"
)

// InMemoryStore keeps OTPs in process memory. Expiry is checked by the
// caller against OTP.ExpiresAt.
type InMemoryStore struct {
	mu   sync.Mutex
	otps map[id.ApplicationID]*models.OTP
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{otps: make(map[id.ApplicationID]*models.OTP)}
}

// Save replaces any outstanding OTP for the application.
func (s *InMemoryStore) Save(_ context.Context, o *models.OTP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *o
	s.otps[o.ApplicationID] = &stored
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, appID id.ApplicationID) (*models.OTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.otps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *o
	return &out, nil
}

// IncrementAttempts records a failed verification and returns the new count.
func (s *InMemoryStore) IncrementAttempts(_ context.Context, appID id.ApplicationID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.otps[appID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	o.Attempts++
	return o.Attempts, nil
}

func (s *InMemoryStore) Delete(_ context.Context, appID id.ApplicationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.otps, appID)
	return nil
}
