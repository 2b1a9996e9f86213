package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	id "admission/pkg/domain"
	dErrors "admission/pkg/domain-errors"
)

// Draft is the editable form of an application. It is the only variant that
// exposes merge and navigation operations.
type Draft struct {
	nav      Navigator
	sections Sections
}

// NewDraft returns an empty draft positioned at step 1.
func NewDraft() *Draft {
	return &Draft{nav: NewNavigator()}
}

func (d *Draft) CurrentStep() int       { return d.nav.Current() }
func (d *Draft) SetStep(step int) error { return d.nav.SetStep(step) }
func (d *Draft) NextStep()              { d.nav.Next() }
func (d *Draft) PreviousStep()          { d.nav.Previous() }

// Sections returns a copy of the section records.
func (d *Draft) Sections() Sections { return d.sections.Clone() }

func (d *Draft) UpdatePersonal(p Personal)             { mergeFields(&d.sections.Personal, &p) }
func (d *Draft) UpdateFamily(p Family)                 { mergeFields(&d.sections.Family, &p) }
func (d *Draft) UpdateCategory(p Category)             { mergeFields(&d.sections.Category, &p) }
func (d *Draft) UpdateQualifyingExam(p QualifyingExam) { mergeFields(&d.sections.QualifyingExam, &p) }
func (d *Draft) UpdateHSC(p HSC)                       { mergeFields(&d.sections.HSC, &p) }
func (d *Draft) UpdateSSC(p SSC)                       { mergeFields(&d.sections.SSC, &p) }
func (d *Draft) UpdateAdditional(p Additional)         { mergeFields(&d.sections.Additional, &p) }
func (d *Draft) UpdateBank(p Bank)                     { mergeFields(&d.sections.Bank, &p) }

// UpdateAddress merges p and, when p sets isSameAsPermanent=true, copies the
// permanent fields (as they stand after the merge) into correspondence.
func (d *Draft) UpdateAddress(p Address) {
	mergeFields(&d.sections.Address, &p)
	if p.IsSameAsPermanent != nil && *p.IsSameAsPermanent {
		d.sections.Address.copyPermanentToCorrespondence()
	}
}

// UpdateDocuments merges per document key.
func (d *Draft) UpdateDocuments(p Documents) {
	if len(p) == 0 {
		return
	}
	if d.sections.Documents == nil {
		d.sections.Documents = make(Documents, len(p))
	}
	for k, v := range p {
		d.sections.Documents[k] = v
	}
}

// Merge decodes a JSON partial for the named section and merges it.
func (d *Draft) Merge(name SectionName, partial json.RawMessage) error {
	var err error
	switch name {
	case SectionPersonal:
		err = mergeJSON(partial, d.UpdatePersonal)
	case SectionFamily:
		err = mergeJSON(partial, d.UpdateFamily)
	case SectionCategory:
		err = mergeJSON(partial, d.UpdateCategory)
	case SectionQualifyingExam:
		err = mergeJSON(partial, d.UpdateQualifyingExam)
	case SectionHSC:
		err = mergeJSON(partial, d.UpdateHSC)
	case SectionSSC:
		err = mergeJSON(partial, d.UpdateSSC)
	case SectionAdditional:
		err = mergeJSON(partial, d.UpdateAdditional)
	case SectionAddress:
		err = mergeJSON(partial, d.UpdateAddress)
	case SectionBank:
		err = mergeJSON(partial, d.UpdateBank)
	case SectionDocuments:
		err = mergeJSON(partial, d.UpdateDocuments)
	default:
		return dErrors.New(dErrors.CodeNotFound, "unknown section: "+string(name))
	}
	return err
}

// mergeJSON decodes a partial section strictly; a misspelled field is an
// error rather than a silent no-op.
func mergeJSON[T any](raw json.RawMessage, apply func(T)) error {
	var partial T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&partial); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid section payload")
	}
	apply(partial)
	return nil
}

// Consents are the two declarations required to submit.
type Consents struct {
	AgreedToTerms       bool `json:"agreedToTerms"`
	AgreedToDeclaration bool `json:"agreedToDeclaration"`
}

// IDGenerator mints the application number at submission time.
type IDGenerator func(now time.Time) id.ApplicationID

// TimestampIDGenerator returns prefix + the last 8 digits of the nanosecond
// clock. Two submissions landing on the same 8-digit suffix collide; the
// generator does not detect that.
func TimestampIDGenerator(prefix string) IDGenerator {
	return func(now time.Time) id.ApplicationID {
		return id.ApplicationID(fmt.Sprintf("%s%08d", prefix, now.UnixNano()%100_000_000))
	}
}

// Submit freezes the draft. Both consents are required; on failure nothing
// changes and the draft stays usable.
func (d *Draft) Submit(consents Consents, mint IDGenerator, now time.Time) (*Submitted, error) {
	if !consents.AgreedToTerms || !consents.AgreedToDeclaration {
		return nil, dErrors.New(dErrors.CodeConsentRequired,
			"both terms and declaration must be accepted before submission")
	}
	return &Submitted{
		sections:      d.sections.Clone(),
		applicationID: mint(now),
		submittedAt:   now.UTC(),
		consents:      consents,
	}, nil
}

// Submitted is the frozen application. It exposes read accessors only.
type Submitted struct {
	sections      Sections
	applicationID id.ApplicationID
	submittedAt   time.Time
	consents      Consents
}

func (s *Submitted) Sections() Sections              { return s.sections.Clone() }
func (s *Submitted) ApplicationID() id.ApplicationID { return s.applicationID }
func (s *Submitted) SubmittedAt() time.Time          { return s.submittedAt }
func (s *Submitted) Consents() Consents              { return s.consents }

// Application is the aggregate root owned by one candidate session. Exactly
// one of draft or submitted is set.
type Application struct {
	owner     id.ApplicationID
	draft     *Draft
	submitted *Submitted
}

// New creates an empty draft application for owner.
func New(owner id.ApplicationID) *Application {
	return &Application{owner: owner, draft: NewDraft()}
}

func (a *Application) Owner() id.ApplicationID { return a.owner }
func (a *Application) IsCompleted() bool       { return a.submitted != nil }

// Submitted returns the frozen variant, or nil while still a draft.
func (a *Application) Submitted() *Submitted { return a.submitted }

// Draft returns the editable variant, or CodeApplicationSubmitted once the
// application has been submitted.
func (a *Application) Draft() (*Draft, error) {
	if a.submitted != nil {
		return nil, dErrors.New(dErrors.CodeApplicationSubmitted, "application has already been submitted")
	}
	return a.draft, nil
}

// CurrentStep is the draft's step, or the last step once submitted.
func (a *Application) CurrentStep() int {
	if a.submitted != nil {
		return MaxStep
	}
	return a.draft.CurrentStep()
}

// Sections returns a copy of whichever variant is current.
func (a *Application) Sections() Sections {
	if a.submitted != nil {
		return a.submitted.Sections()
	}
	return a.draft.Sections()
}

// Submit performs the one-way Draft -> Submitted transition.
func (a *Application) Submit(consents Consents, mint IDGenerator, now time.Time) (*Submitted, error) {
	draft, err := a.Draft()
	if err != nil {
		return nil, err
	}
	submitted, err := draft.Submit(consents, mint, now)
	if err != nil {
		return nil, err
	}
	a.submitted = submitted
	a.draft = nil
	return submitted, nil
}

// Reset discards everything and starts a fresh draft. It is the only way out
// of the submitted state.
func (a *Application) Reset() {
	a.draft = NewDraft()
	a.submitted = nil
}

func (a *Application) Status(g Group) Status {
	return DeriveStatus(a.Sections(), a.IsCompleted(), g)
}

func (a *Application) Dashboard() []GroupStatus {
	return Dashboard(a.Sections(), a.IsCompleted())
}

func (a *Application) Progress() int {
	return Progress(a.Sections(), a.IsCompleted())
}
