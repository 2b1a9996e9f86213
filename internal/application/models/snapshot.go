package models

import (
	"time"

	id "admission/pkg/domain"
	dErrors "admission/pkg/domain-errors"
)

// Snapshot is the serialisable form of an Application used by stores and
// API responses.
type Snapshot struct {
	Owner         id.ApplicationID  `json:"owner"`
	CurrentStep   int               `json:"currentStep"`
	Sections      Sections          `json:"sections"`
	IsCompleted   bool              `json:"isCompleted"`
	ApplicationID *id.ApplicationID `json:"applicationId,omitempty"`
	SubmittedAt   *time.Time        `json:"submittedAt,omitempty"`
	Consents      *Consents         `json:"consents,omitempty"`
	SavedAt       *time.Time        `json:"savedAt,omitempty"`
}

// Snapshot captures the current state.
func (a *Application) Snapshot() Snapshot {
	snap := Snapshot{
		Owner:       a.owner,
		CurrentStep: a.CurrentStep(),
		Sections:    a.Sections(),
		IsCompleted: a.IsCompleted(),
	}
	if s := a.submitted; s != nil {
		appID := s.applicationID
		at := s.submittedAt
		consents := s.consents
		snap.ApplicationID = &appID
		snap.SubmittedAt = &at
		snap.Consents = &consents
	}
	return snap
}

// FromSnapshot rebuilds an Application. A completed snapshot must carry its
// application ID and submission time.
func FromSnapshot(snap Snapshot) (*Application, error) {
	if snap.Owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "snapshot owner is required")
	}
	app := &Application{owner: snap.Owner}
	if snap.IsCompleted {
		if snap.ApplicationID == nil || snap.SubmittedAt == nil {
			return nil, dErrors.New(dErrors.CodeInvariantViolation,
				"completed snapshot is missing application ID or submission time")
		}
		sub := &Submitted{
			sections:      snap.Sections.Clone(),
			applicationID: *snap.ApplicationID,
			submittedAt:   *snap.SubmittedAt,
		}
		if snap.Consents != nil {
			sub.consents = *snap.Consents
		}
		app.submitted = sub
		return app, nil
	}
	draft := NewDraft()
	draft.sections = snap.Sections.Clone()
	if snap.CurrentStep != 0 {
		if err := draft.SetStep(snap.CurrentStep); err != nil {
			return nil, err
		}
	}
	app.draft = draft
	return app, nil
}

// Restore replaces the state of a with snap. The owner must match.
func (a *Application) Restore(snap Snapshot) error {
	if snap.Owner != a.owner {
		return dErrors.New(dErrors.CodeInvariantViolation, "snapshot belongs to another owner")
	}
	restored, err := FromSnapshot(snap)
	if err != nil {
		return err
	}
	*a = *restored
	return nil
}
