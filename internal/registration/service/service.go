// Package service implements candidate registration: sign-up, OTP
// verification and resend, and qualifying-exam checks.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"admission/internal/events"
	"admission/internal/platform/metrics"
	"admission/internal/registration/models"
	id "admission/pkg/domain"
	dErrors "admission/pkg/domain-errors"
	"admission/pkg/platform/sentinel"
	"admission/pkg/requestcontext"
	"admission/pkg/secrets"
)

// CandidateStore persists registered candidates.
type CandidateStore interface {
	Create(ctx context.Context, c *models.Candidate) error
	FindByApplicationID(ctx context.Context, appID id.ApplicationID) (*models.Candidate, error)
	MarkVerified(ctx context.Context, appID id.ApplicationID, at time.Time) error
}

// OTPStore holds the outstanding OTP per application.
type OTPStore interface {
	Save(ctx context.Context, o *models.OTP) error
	Get(ctx context.Context, appID id.ApplicationID) (*models.OTP, error)
	IncrementAttempts(ctx context.Context, appID id.ApplicationID) (int, error)
	Delete(ctx context.Context, appID id.ApplicationID) error
}

// Notifier delivers an OTP to a mobile number.
type Notifier interface {
	SendOTP(ctx context.Context, mobile, code string) error
}

// EventPublisher queues domain events.
type EventPublisher interface {
	Emit(ctx context.Context, e events.Event) error
}

// Config holds the OTP policy.
type Config struct {
	OTPLength      int
	OTPTTL         time.Duration
	MaxAttempts    int
	ResendInterval time.Duration
	ResendBurst    int
	// FixedCode replaces random OTPs. Development only.
	FixedCode string
}

const (
	registrationIDPrefix = "REG"
	mintAttempts         = 3
)

type Service struct {
	candidates CandidateStore
	otps       OTPStore
	notifier   Notifier
	publisher  EventPublisher
	cfg        Config
	resend     *resendLimiter
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

func New(candidates CandidateStore, otps OTPStore, notifier Notifier, cfg Config, opts ...Option) *Service {
	s := &Service{
		candidates: candidates,
		otps:       otps,
		notifier:   notifier,
		cfg:        cfg,
		resend:     newResendLimiter(cfg.ResendInterval, cfg.ResendBurst),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an unverified candidate and sends the first OTP.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	now := requestcontext.Now(ctx)
	req.Normalize()
	if err := req.Validate(now); err != nil {
		return nil, err
	}
	hash, err := secrets.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	candidate := &models.Candidate{
		ID:           id.CandidateID(uuid.New()),
		FullName:     req.FullName,
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		DateOfBirth:  req.DateOfBirth,
		Gender:       req.Gender,
		PasswordHash: hash,
		CreatedAt:    now.UTC(),
	}
	if err := s.create(ctx, candidate); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.Registrations.Inc()
	}
	s.logger.InfoContext(ctx, "candidate registered",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", candidate.ApplicationID,
	)
	s.emit(ctx, events.Event{
		Type:          events.CandidateRegistered,
		ApplicationID: candidate.ApplicationID.String(),
		CandidateID:   candidate.ID.String(),
	})

	message := "Registration successful. An OTP has been sent to your mobile number."
	s.resend.consume(candidate.ApplicationID, now)
	if err := s.issueOTP(ctx, candidate, now); err != nil {
		s.logger.WarnContext(ctx, "failed to deliver first otp",
			"request_id", requestcontext.RequestID(ctx),
			"application_id", candidate.ApplicationID,
			"error", err,
		)
		message = "Registration successful, but the OTP could not be sent. Please request a new one."
	}
	return &models.RegisterResponse{
		Success:       true,
		ApplicationID: candidate.ApplicationID,
		MobileNumber:  candidate.MobileNumber,
		Email:         candidate.Email,
		Message:       message,
	}, nil
}

// create mints a registration ID, retrying when it collides.
func (s *Service) create(ctx context.Context, c *models.Candidate) error {
	for range mintAttempts {
		digits, err := secrets.GenerateDigits(12)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint application ID")
		}
		c.ApplicationID = id.ApplicationID(registrationIDPrefix + digits)
		err = s.candidates.Create(ctx, c)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, models.ErrApplicationIDTaken):
			continue
		case errors.Is(err, sentinel.ErrConflict):
			return dErrors.Wrap(err, dErrors.CodeConflict, "email or mobile number is already registered")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store candidate")
		}
	}
	return dErrors.New(dErrors.CodeInternal, "could not allocate an application ID")
}

// issueOTP stores a fresh OTP, replacing any outstanding one, and sends it.
func (s *Service) issueOTP(ctx context.Context, c *models.Candidate, now time.Time) error {
	code := s.cfg.FixedCode
	if code == "" {
		var err error
		if code, err = secrets.GenerateDigits(s.cfg.OTPLength); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate OTP")
		}
	}
	hash, err := secrets.Hash(code)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash OTP")
	}
	if err := s.otps.Save(ctx, &models.OTP{
		ApplicationID: c.ApplicationID,
		CodeHash:      hash,
		IssuedAt:      now.UTC(),
		ExpiresAt:     now.UTC().Add(s.cfg.OTPTTL),
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store OTP")
	}
	if err := s.notifier.SendOTP(ctx, c.MobileNumber, code); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to send OTP")
	}
	return nil
}

// VerifyOTP checks the code shape before any lookup, then the stored OTP.
func (s *Service) VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.VerifyOTPResponse, error) {
	if err := req.CheckShape(); err != nil {
		s.countVerification("malformed")
		return nil, err
	}
	now := requestcontext.Now(ctx)
	candidate, err := s.lookup(ctx, req.ApplicationID)
	if err != nil {
		return nil, err
	}
	if candidate.Verified {
		return &models.VerifyOTPResponse{Success: true, Verified: true, Message: "Mobile number already verified"}, nil
	}

	stored, err := s.otps.Get(ctx, candidate.ApplicationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.countVerification("expired")
		return nil, dErrors.New(dErrors.CodeOTPExpired, "OTP has expired, please request a new one")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load OTP")
	}
	if stored.IsExpired(now) {
		if err := s.otps.Delete(ctx, candidate.ApplicationID); err != nil {
			s.logger.WarnContext(ctx, "failed to delete expired otp",
				"application_id", candidate.ApplicationID,
				"error", err,
			)
		}
		s.countVerification("expired")
		return nil, dErrors.New(dErrors.CodeOTPExpired, "OTP has expired, please request a new one")
	}

	// The attempt is reserved before the compare so concurrent guesses
	// cannot all pass the limit check.
	attempts, err := s.otps.IncrementAttempts(ctx, candidate.ApplicationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.countVerification("expired")
		return nil, dErrors.New(dErrors.CodeOTPExpired, "OTP has expired, please request a new one")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record OTP attempt")
	}
	if attempts > s.cfg.MaxAttempts {
		s.countVerification("locked")
		return nil, dErrors.New(dErrors.CodeRateLimited, "too many incorrect attempts, please request a new OTP")
	}

	if err := secrets.Verify(req.OTP, stored.CodeHash); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify OTP")
		}
		s.countVerification("invalid")
		remaining := max(s.cfg.MaxAttempts-attempts, 0)
		return nil, dErrors.New(dErrors.CodeInvalidOTP, fmt.Sprintf("incorrect OTP, %d attempts remaining", remaining))
	}

	if err := s.candidates.MarkVerified(ctx, candidate.ApplicationID, now.UTC()); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark candidate verified")
	}
	if err := s.otps.Delete(ctx, candidate.ApplicationID); err != nil {
		s.logger.WarnContext(ctx, "failed to delete used otp",
			"application_id", candidate.ApplicationID,
			"error", err,
		)
	}
	s.resend.forget(candidate.ApplicationID)
	s.countVerification("verified")
	s.emit(ctx, events.Event{
		Type:          events.OTPVerified,
		ApplicationID: candidate.ApplicationID.String(),
		CandidateID:   candidate.ID.String(),
	})
	return &models.VerifyOTPResponse{Success: true, Verified: true, Message: "Mobile number verified successfully"}, nil
}

// ResendOTP issues a new OTP when the mobile number matches the registration
// and the per-application resend limit allows it.
func (s *Service) ResendOTP(ctx context.Context, req models.ResendOTPRequest) (*models.ResendOTPResponse, error) {
	now := requestcontext.Now(ctx)
	candidate, err := s.lookup(ctx, req.ApplicationID)
	if err != nil {
		return nil, err
	}
	if models.NormalizeMobile(req.MobileNo) != candidate.MobileNumber {
		s.countResend("mismatch")
		return nil, dErrors.New(dErrors.CodeInvalidInput, "mobile number does not match the registration")
	}
	if candidate.Verified {
		return nil, dErrors.New(dErrors.CodeConflict, "mobile number is already verified")
	}
	if !s.resend.allow(candidate.ApplicationID, now) {
		s.countResend("throttled")
		return nil, dErrors.New(dErrors.CodeRateLimited, "please wait before requesting another OTP")
	}
	if err := s.issueOTP(ctx, candidate, now); err != nil {
		s.countResend("failed")
		return nil, err
	}
	s.countResend("sent")
	return &models.ResendOTPResponse{Success: true, Message: "A new OTP has been sent to your mobile number"}, nil
}

func (s *Service) lookup(ctx context.Context, raw string) (*models.Candidate, error) {
	appID, err := id.ParseApplicationID(raw)
	if err != nil {
		return nil, err
	}
	candidate, err := s.candidates.FindByApplicationID(ctx, appID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate")
	}
	return candidate, nil
}

func (s *Service) countVerification(outcome string) {
	if s.metrics != nil {
		s.metrics.OTPVerifications.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) countResend(outcome string) {
	if s.metrics != nil {
		s.metrics.OTPResends.WithLabelValues(outcome).Inc()
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
