// Package service orchestrates the application aggregate: it resolves the
// caller's workspace, applies the aggregate operation under the workspace
// lock, and talks to storage and the event publisher.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"admission/internal/application/models"
	"admission/internal/application/report"
	"admission/internal/application/validation"
	"admission/internal/application/workspace"
	"admission/internal/events"
	"admission/internal/platform/metrics"
	id "admission/pkg/domain"
	dErrors "admission/pkg/domain-errors"
	"admission/pkg/platform/sentinel"
	"admission/pkg/requestcontext"
)

// ProgressStore holds explicitly saved drafts.
type ProgressStore interface {
	Save(ctx context.Context, snap models.Snapshot) error
	Load(ctx context.Context, owner id.ApplicationID) (*models.Snapshot, error)
	Delete(ctx context.Context, owner id.ApplicationID) error
}

// SubmissionStore holds submitted applications. Superseded submissions are
// kept on record but are no longer returned by LatestByOwner.
type SubmissionStore interface {
	Save(ctx context.Context, snap models.Snapshot) error
	LatestByOwner(ctx context.Context, owner id.ApplicationID) (*models.Snapshot, error)
	Supersede(ctx context.Context, owner id.ApplicationID, at time.Time) error
}

// EventPublisher queues domain events.
type EventPublisher interface {
	Emit(ctx context.Context, e events.Event) error
}

// Service implements the application wizard operations.
type Service struct {
	progress    ProgressStore
	submissions SubmissionStore
	publisher   EventPublisher
	validator   *validation.Validator
	workspaces  *workspace.Registry
	documents   models.DocumentPolicy
	mintID      models.IDGenerator
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithIDGenerator replaces the timestamp-based application ID generator.
func WithIDGenerator(mint models.IDGenerator) Option {
	return func(s *Service) { s.mintID = mint }
}

func WithDocumentPolicy(p models.DocumentPolicy) Option {
	return func(s *Service) { s.documents = p }
}

// New wires the service. The workspace registry is owned by the service and
// loads aggregates through it.
func New(progress ProgressStore, submissions SubmissionStore, validator *validation.Validator, idPrefix string, opts ...Option) *Service {
	s := &Service{
		progress:    progress,
		submissions: submissions,
		validator:   validator,
		documents:   models.DocumentPolicy{DefaultMaxBytes: models.DefaultDocumentMaxBytes},
		mintID:      models.TimestampIDGenerator(idPrefix),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.workspaces = workspace.NewRegistry(s.load,
		workspace.WithLogger(s.logger),
		workspace.WithMetrics(s.metrics),
	)
	return s
}

// State is the client view of the aggregate.
type State struct {
	models.Snapshot
	Progress  int                  `json:"progress"`
	Dashboard []models.GroupStatus `json:"dashboard"`
}

func stateOf(app *models.Application) *State {
	return &State{
		Snapshot:  app.Snapshot(),
		Progress:  app.Progress(),
		Dashboard: app.Dashboard(),
	}
}

// load restores saved progress first, then the latest submission, and falls
// back to an empty draft.
func (s *Service) load(ctx context.Context, owner id.ApplicationID) (*models.Application, error) {
	snap, err := s.progress.Load(ctx, owner)
	if err == nil {
		return models.FromSnapshot(*snap)
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load saved progress")
	}
	snap, err = s.submissions.LatestByOwner(ctx, owner)
	if err == nil {
		return models.FromSnapshot(*snap)
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load submitted application")
	}
	return models.New(owner), nil
}

// OpenWorkspace builds the candidate's aggregate at login.
func (s *Service) OpenWorkspace(ctx context.Context, owner id.ApplicationID) error {
	_, err := s.workspaces.Open(ctx, owner)
	return err
}

// CloseWorkspace disposes the aggregate at logout. Unsaved edits are lost.
func (s *Service) CloseWorkspace(ctx context.Context, owner id.ApplicationID) {
	s.workspaces.Close(ctx, owner)
}

// SweepWorkspaces disposes aggregates idle for longer than idle, which
// covers sessions that ended by token expiry instead of logout.
func (s *Service) SweepWorkspaces(ctx context.Context, idle time.Duration) int {
	return s.workspaces.Sweep(ctx, idle)
}

// do runs fn against the owner's aggregate under its workspace lock.
func (s *Service) do(ctx context.Context, owner id.ApplicationID, fn func(app *models.Application) error) error {
	if owner.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "missing application owner")
	}
	ws, err := s.workspaces.Get(ctx, owner)
	if err != nil {
		return err
	}
	return ws.Do(fn)
}

// draftDo is do for operations that require an editable draft.
func (s *Service) draftDo(ctx context.Context, owner id.ApplicationID, fn func(app *models.Application, d *models.Draft) error) (*State, error) {
	var state *State
	err := s.do(ctx, owner, func(app *models.Application) error {
		d, err := app.Draft()
		if err != nil {
			return err
		}
		if err := fn(app, d); err != nil {
			return err
		}
		state = stateOf(app)
		return nil
	})
	return state, err
}

func (s *Service) Get(ctx context.Context, owner id.ApplicationID) (*State, error) {
	var state *State
	err := s.do(ctx, owner, func(app *models.Application) error {
		state = stateOf(app)
		return nil
	})
	return state, err
}

// UpdateSection shallow-merges a JSON partial into one section.
func (s *Service) UpdateSection(ctx context.Context, owner id.ApplicationID, section string, partial json.RawMessage) (*State, error) {
	name, err := models.ParseSectionName(section)
	if err != nil {
		return nil, err
	}
	state, err := s.draftDo(ctx, owner, func(_ *models.Application, d *models.Draft) error {
		return d.Merge(name, partial)
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SectionUpdates.WithLabelValues(string(name)).Inc()
	}
	return state, nil
}

func (s *Service) SetStep(ctx context.Context, owner id.ApplicationID, step int) (*State, error) {
	return s.draftDo(ctx, owner, func(_ *models.Application, d *models.Draft) error {
		return d.SetStep(step)
	})
}

func (s *Service) NextStep(ctx context.Context, owner id.ApplicationID) (*State, error) {
	return s.draftDo(ctx, owner, func(_ *models.Application, d *models.Draft) error {
		d.NextStep()
		return nil
	})
}

func (s *Service) PreviousStep(ctx context.Context, owner id.ApplicationID) (*State, error) {
	return s.draftDo(ctx, owner, func(_ *models.Application, d *models.Draft) error {
		d.PreviousStep()
		return nil
	})
}

// DashboardView is the status of the seven dashboard groups.
type DashboardView struct {
	Groups      []models.GroupStatus `json:"groups"`
	Progress    int                  `json:"progress"`
	IsCompleted bool                 `json:"isCompleted"`
}

func (s *Service) Dashboard(ctx context.Context, owner id.ApplicationID) (*DashboardView, error) {
	var view *DashboardView
	err := s.do(ctx, owner, func(app *models.Application) error {
		view = &DashboardView{
			Groups:      app.Dashboard(),
			Progress:    app.Progress(),
			IsCompleted: app.IsCompleted(),
		}
		return nil
	})
	return view, err
}

// Save writes the current draft to the progress store. Nothing else saves.
func (s *Service) Save(ctx context.Context, owner id.ApplicationID) (time.Time, error) {
	now := requestcontext.Now(ctx)
	var snap models.Snapshot
	err := s.do(ctx, owner, func(app *models.Application) error {
		if _, err := app.Draft(); err != nil {
			return err
		}
		snap = app.Snapshot()
		snap.SavedAt = &now
		if err := s.progress.Save(ctx, snap); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save progress")
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	s.emit(ctx, events.Event{
		Type:          events.ApplicationSaved,
		ApplicationID: owner.String(),
		Attributes:    map[string]string{"step": stepAttr(snap.CurrentStep)},
	})
	return now, nil
}

// SubmitResult is returned from a successful submission.
type SubmitResult struct {
	ApplicationID id.ApplicationID `json:"applicationId"`
	SubmittedAt   time.Time        `json:"submittedAt"`
}

// Submit freezes the draft, persists it, and clears the saved draft. When
// persistence fails the aggregate is rolled back to the draft.
func (s *Service) Submit(ctx context.Context, owner id.ApplicationID, consents models.Consents) (*SubmitResult, error) {
	now := requestcontext.Now(ctx)
	var result *SubmitResult
	err := s.do(ctx, owner, func(app *models.Application) error {
		before := app.Snapshot()
		submitted, err := app.Submit(consents, s.mintID, now)
		if err != nil {
			return err
		}
		if err := s.submissions.Save(ctx, app.Snapshot()); err != nil {
			if rbErr := app.Restore(before); rbErr != nil {
				s.logger.ErrorContext(ctx, "failed to roll back submission",
					"owner", owner,
					"error", rbErr,
				)
			}
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "application number already issued, please retry")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store submission")
		}
		result = &SubmitResult{
			ApplicationID: submitted.ApplicationID(),
			SubmittedAt:   submitted.SubmittedAt(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.progress.Delete(ctx, owner); err != nil {
		s.logger.WarnContext(ctx, "failed to clear saved progress after submission",
			"owner", owner,
			"error", err,
		)
	}
	if s.metrics != nil {
		s.metrics.Submissions.Inc()
	}
	s.emit(ctx, events.Event{
		Type:          events.ApplicationSubmitted,
		ApplicationID: owner.String(),
		Attributes:    map[string]string{"submitted_application_id": result.ApplicationID.String()},
	})
	return result, nil
}

// Reset discards the aggregate, submitted or not, and persists the empty
// draft. Earlier submissions are superseded so the next login does not
// restore them once the draft expires; they stay on record. When either
// write fails the aggregate is rolled back.
func (s *Service) Reset(ctx context.Context, owner id.ApplicationID) (*State, error) {
	now := requestcontext.Now(ctx)
	var state *State
	err := s.do(ctx, owner, func(app *models.Application) error {
		before := app.Snapshot()
		if err := s.submissions.Supersede(ctx, owner, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist reset")
		}
		app.Reset()
		if err := s.progress.Save(ctx, app.Snapshot()); err != nil {
			if rbErr := app.Restore(before); rbErr != nil {
				s.logger.ErrorContext(ctx, "failed to roll back reset",
					"owner", owner,
					"error", rbErr,
				)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist reset")
		}
		state = stateOf(app)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.Event{Type: events.ApplicationReset, ApplicationID: owner.String()})
	return state, nil
}

// Validate runs the schema pass over every section.
func (s *Service) Validate(ctx context.Context, owner id.ApplicationID) (validation.Result, error) {
	var sections models.Sections
	if err := s.do(ctx, owner, func(app *models.Application) error {
		sections = app.Sections()
		return nil
	}); err != nil {
		return validation.Result{}, err
	}
	_, result, err := s.validator.Validate(sections, requestcontext.Now(ctx))
	if err != nil {
		return validation.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "validation failed")
	}
	return result, nil
}

func (s *Service) Report(ctx context.Context, owner id.ApplicationID, kind report.Kind) (*report.Report, error) {
	var view report.View
	if err := s.do(ctx, owner, func(app *models.Application) error {
		view = report.ViewOf(app)
		return nil
	}); err != nil {
		return nil, err
	}
	return report.Project(view, kind)
}

// Upload describes a received document. Content is not retained.
type Upload struct {
	Key         string
	FileName    string
	ContentType string
	Size        int64
}

// UploadDocument checks the upload against the document policy and records
// its reference in the Documents section.
func (s *Service) UploadDocument(ctx context.Context, owner id.ApplicationID, up Upload) (*models.DocumentRef, error) {
	if err := s.documents.Check(up.Key, up.ContentType, up.Size); err != nil {
		s.countUpload(string(dErrors.CodeOf(err)))
		return nil, err
	}
	ref := models.DocumentRef{
		FileName:    up.FileName,
		ContentType: up.ContentType,
		Size:        up.Size,
		UploadedAt:  requestcontext.Now(ctx).UTC(),
	}
	if _, err := s.draftDo(ctx, owner, func(_ *models.Application, d *models.Draft) error {
		d.UpdateDocuments(models.Documents{up.Key: ref})
		return nil
	}); err != nil {
		return nil, err
	}
	s.countUpload("accepted")
	s.emit(ctx, events.Event{
		Type:          events.DocumentUploaded,
		ApplicationID: owner.String(),
		Attributes:    map[string]string{"document": up.Key},
	})
	return &ref, nil
}

func (s *Service) countUpload(outcome string) {
	if s.metrics != nil {
		s.metrics.DocumentUploads.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) emit(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if e.CandidateID == "" {
		if cid := requestcontext.CandidateID(ctx); !cid.IsNil() {
			e.CandidateID = cid.String()
		}
	}
	if err := s.publisher.Emit(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"event_type", e.Type,
			"error", err,
		)
	}
}

func stepAttr(step int) string {
	return string(models.Steps[step-1].Section)
}
