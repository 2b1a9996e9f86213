// Package events carries domain events from services to sinks. Services emit
// through a buffered Publisher; a Worker drains it into a Sink.
package events

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	CandidateRegistered  Type = "candidate.registered"
	OTPVerified          Type = "otp.verified"
	CandidateLoggedIn    Type = "candidate.logged_in"
	CandidateLoggedOut   Type = "candidate.logged_out"
	ApplicationSaved     Type = "application.saved"
	ApplicationSubmitted Type = "application.submitted"
	ApplicationReset     Type = "application.reset"
	DocumentUploaded     Type = "document.uploaded"
)

// Event is transport-agnostic so sinks can fan out.
type Event struct {
	ID            string            `json:"id"`
	Type          Type              `json:"type"`
	Timestamp     time.Time         `json:"timestamp"`
	ApplicationID string            `json:"applicationId,omitempty"`
	CandidateID   string            `json:"candidateId,omitempty"`
	RequestID     string            `json:"requestId,omitempty"`
	ClientIP      string            `json:"clientIp,omitempty"`
	UserAgent     string            `json:"userAgent,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

func (e *Event) fill(now time.Time) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now.UTC()
	}
}
