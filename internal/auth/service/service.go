// Package service implements candidate login and logout on top of the
// registration store, the JWT issuer and the token revocation list.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"admission/internal/auth/models"
	"admission/internal/events"
	jwttoken "admission/internal/jwt_token"
	"admission/internal/platform/metrics"
	regmodels "admission/internal/registration/models"
	id "admission/pkg/domain"
	dErrors "admission/pkg/domain-errors"
	"admission/pkg/platform/sentinel"
	"admission/pkg/requestcontext"
	"admission/pkg/secrets"
)

// CandidateStore looks up registered candidates.
type CandidateStore interface {
	FindByApplicationID(ctx context.Context, appID id.ApplicationID) (*regmodels.Candidate, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	GenerateAccessToken(candidateID id.CandidateID, applicationID id.ApplicationID, sessionID id.SessionID, expiresIn time.Duration) (*jwttoken.IssuedToken, error)
}

// RevocationList records logged-out token IDs.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Workspaces opens and disposes the candidate's application workspace.
type Workspaces interface {
	OpenWorkspace(ctx context.Context, owner id.ApplicationID) error
	CloseWorkspace(ctx context.Context, owner id.ApplicationID)
}

// EventPublisher queues domain events.
type EventPublisher interface {
	Emit(ctx context.Context, e events.Event) error
}

type Config struct {
	SessionTTL    time.Duration
	RememberMeTTL time.Duration
}

// revocationTTL outlives any token this service can issue.
func (c Config) revocationTTL() time.Duration {
	return max(c.SessionTTL, c.RememberMeTTL)
}

type Service struct {
	candidates CandidateStore
	tokens     TokenIssuer
	trl        RevocationList
	workspaces Workspaces
	publisher  EventPublisher
	cfg        Config
	logger     *slog.Logger
	metrics    *metrics.Metrics
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

func New(candidates CandidateStore, tokens TokenIssuer, trl RevocationList, workspaces Workspaces, cfg Config, opts ...Option) *Service {
	s := &Service{
		candidates: candidates,
		tokens:     tokens,
		trl:        trl,
		workspaces: workspaces,
		cfg:        cfg,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func invalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid application ID or password")
}

// Login checks credentials, issues an access token and opens the candidate's
// workspace from saved progress. Unknown IDs and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	appID, err := id.ParseApplicationID(req.ApplicationID)
	if err != nil {
		s.loginFailure(ctx, "invalid_credentials", req.ApplicationID)
		return nil, invalidCredentials()
	}

	candidate, err := s.candidates.FindByApplicationID(ctx, appID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.loginFailure(ctx, "invalid_credentials", appID.String())
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate")
	}
	if err := secrets.Verify(req.Password, candidate.PasswordHash); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
		}
		s.loginFailure(ctx, "invalid_credentials", appID.String())
		return nil, invalidCredentials()
	}
	if !candidate.Verified {
		s.loginFailure(ctx, "not_verified", appID.String())
		return nil, dErrors.New(dErrors.CodeNotVerified, "mobile number is not verified")
	}

	ttl, storage := s.cfg.SessionTTL, models.StorageSession
	if req.RememberMe {
		ttl, storage = s.cfg.RememberMeTTL, models.StorageLocal
	}
	issued, err := s.tokens.GenerateAccessToken(candidate.ID, candidate.ApplicationID, id.SessionID(uuid.New()), ttl)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	if err := s.workspaces.OpenWorkspace(ctx, candidate.ApplicationID); err != nil {
		return nil, err
	}

	s.countLogin("success")
	s.logger.InfoContext(ctx, "candidate logged in",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", candidate.ApplicationID,
		"remember_me", req.RememberMe,
	)
	s.emit(ctx, events.Event{
		Type:          events.CandidateLoggedIn,
		ApplicationID: candidate.ApplicationID.String(),
		CandidateID:   candidate.ID.String(),
		Attributes:    map[string]string{"storage": string(storage)},
	})

	return &models.LoginResponse{
		Success:   true,
		Token:     issued.Token,
		User:      userOf(candidate),
		Message:   "Login successful",
		ExpiresIn: int64(ttl / time.Second),
		Storage:   storage,
	}, nil
}

// Logout revokes the caller's token and disposes the workspace.
func (s *Service) Logout(ctx context.Context) (*models.LogoutResponse, error) {
	owner := requestcontext.ApplicationID(ctx)
	jti := requestcontext.TokenJTI(ctx)
	if owner.IsNil() || jti == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not logged in")
	}
	if err := s.trl.RevokeToken(ctx, jti, s.cfg.revocationTTL()); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	s.workspaces.CloseWorkspace(ctx, owner)

	s.logger.InfoContext(ctx, "candidate logged out",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", owner,
	)
	s.emit(ctx, events.Event{
		Type:          events.CandidateLoggedOut,
		ApplicationID: owner.String(),
		CandidateID:   requestcontext.CandidateID(ctx).String(),
	})
	return &models.LogoutResponse{Success: true, Message: "Logged out successfully"}, nil
}

// Me returns the profile of the authenticated candidate.
func (s *Service) Me(ctx context.Context) (*models.User, error) {
	owner := requestcontext.ApplicationID(ctx)
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not logged in")
	}
	candidate, err := s.candidates.FindByApplicationID(ctx, owner)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "candidate no longer exists")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate")
	}
	user := userOf(candidate)
	return &user, nil
}

func userOf(c *regmodels.Candidate) models.User {
	return models.User{
		ApplicationID: c.ApplicationID,
		FullName:      c.FullName,
		Email:         c.Email,
		MobileNumber:  c.MobileNumber,
	}
}

func (s *Service) loginFailure(ctx context.Context, outcome, appID string) {
	s.countLogin(outcome)
	s.logger.WarnContext(ctx, "login rejected",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", appID,
		"outcome", outcome,
		"client_ip", requestcontext.ClientIP(ctx),
	)
}

func (s *Service) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.Logins.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) emit(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Emit(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"event_type", e.Type,
			"error", err,
		)
	}
}
