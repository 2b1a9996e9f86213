package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"admission/internal/events"
	"admission/internal/platform/metrics"
	"admission/internal/registration/models"
	"admission/internal/registration/service/mocks"
	"admission/internal/registration/store/candidate"
	"admission/internal/registration/store/otp"
	id "admission/pkg/domain"
	dErrors "admission/pkg/domain-errors"
	"admission/pkg/platform/sentinel"
	"admission/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

var fixedNow = time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

type RegistrationSuite struct {
	suite.Suite
	ctx        context.Context
	ctrl       *gomock.Controller
	candidates *candidate.InMemoryStore
	otps       *otp.InMemoryStore
	notifier   *mocks.MockNotifier
	publisher  *mocks.MockEventPublisher
	metrics    *metrics.Metrics
	service    *Service
	// lastCode is the most recent OTP handed to the notifier.
	lastCode string
}

func TestRegistrationSuite(t *testing.T) {
	suite.Run(t, new(RegistrationSuite))
}

func (s *RegistrationSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), fixedNow)
	s.ctrl = gomock.NewController(s.T())
	s.candidates = candidate.NewInMemoryStore()
	s.otps = otp.NewInMemoryStore()
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.publisher = mocks.NewMockEventPublisher(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.lastCode = ""
	s.service = New(s.candidates, s.otps, s.notifier, Config{
		OTPLength:      6,
		OTPTTL:         5 * time.Minute,
		MaxAttempts:    3,
		ResendInterval: time.Minute,
		ResendBurst:    1,
	},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithPublisher(s.publisher),
	)
}

func (s *RegistrationSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RegistrationSuite) captureOTP() *gomock.Call {
	return s.notifier.EXPECT().SendOTP(gomock.Any(), "9876543210", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, code string) error {
			s.lastCode = code
			return nil
		})
}

func (s *RegistrationSuite) expectEvent(t events.Type) {
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e events.Event) error {
			s.Equal(t, e.Type)
			return nil
		})
}

func validRequest() models.RegisterRequest {
	return models.RegisterRequest{
		FullName:        "  Asha   Patil ",
		Email:           "Asha@Example.com",
		MobileNumber:    "+91 98765 43210",
		DateOfBirth:     "2006-02-14",
		Gender:          "Female",
		Password:        "Secret123",
		ConfirmPassword: "Secret123",
	}
}

func (s *RegistrationSuite) register() id.ApplicationID {
	s.expectEvent(events.CandidateRegistered)
	s.captureOTP()
	resp, err := s.service.Register(s.ctx, validRequest())
	s.Require().NoError(err)
	return resp.ApplicationID
}

func (s *RegistrationSuite) TestRegister() {
	s.Run("creates an unverified candidate and sends an OTP", func() {
		appID := s.register()

		s.Regexp(`^REG[0-9]{12}$`, appID.String())
		stored, err := s.candidates.FindByApplicationID(s.ctx, appID)
		s.Require().NoError(err)
		s.Equal("Asha Patil", stored.FullName)
		s.Equal("asha@example.com", stored.Email)
		s.Equal("9876543210", stored.MobileNumber)
		s.False(stored.Verified)
		s.NotEqual("Secret123", stored.PasswordHash)

		issued, err := s.otps.Get(s.ctx, appID)
		s.Require().NoError(err)
		s.Len(s.lastCode, 6)
		s.Equal(fixedNow.Add(5*time.Minute), issued.ExpiresAt)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Registrations))
	})

	s.Run("rejects an invalid form", func() {
		req := validRequest()
		req.ConfirmPassword = "Other123"
		_, err := s.service.Register(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate email is a conflict", func() {
		_, err := s.service.Register(s.ctx, validRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *RegistrationSuite) TestRegisterSurvivesNotifierFailure() {
	s.expectEvent(events.CandidateRegistered)
	s.notifier.EXPECT().SendOTP(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("sms down"))

	resp, err := s.service.Register(s.ctx, validRequest())
	s.Require().NoError(err)
	s.True(resp.Success)
	s.Contains(resp.Message, "could not be sent")
}

func (s *RegistrationSuite) TestRegisterRetriesTakenApplicationID() {
	store := mocks.NewMockCandidateStore(s.ctrl)
	svc := New(store, s.otps, s.notifier, Config{OTPLength: 6, OTPTTL: time.Minute, MaxAttempts: 3},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	gomock.InOrder(
		store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(models.ErrApplicationIDTaken),
		store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil),
	)
	s.captureOTP()

	resp, err := svc.Register(s.ctx, validRequest())
	s.Require().NoError(err)
	s.True(resp.Success)
}

func (s *RegistrationSuite) TestRegisterGivesUpAfterRepeatedCollisions() {
	store := mocks.NewMockCandidateStore(s.ctrl)
	svc := New(store, s.otps, s.notifier, Config{OTPLength: 6},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(models.ErrApplicationIDTaken).Times(mintAttempts)

	_, err := svc.Register(s.ctx, validRequest())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *RegistrationSuite) TestVerifyOTP() {
	appID := s.register()

	s.Run("malformed code is rejected before lookup", func() {
		_, err := s.service.VerifyOTP(s.ctx, models.VerifyOTPRequest{ApplicationID: "nope", OTP: "12a"})
		s.True(dErrors.HasCode(err, dErrors.CodeMalformedOTP))
	})

	s.Run("unknown application", func() {
		_, err := s.service.VerifyOTP(s.ctx, models.VerifyOTPRequest{ApplicationID: "REG000000000000", OTP: "123456"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("wrong code counts an attempt", func() {
		_, err := s.service.VerifyOTP(s.ctx, models.VerifyOTPRequest{ApplicationID: appID.String(), OTP: wrongCode(s.lastCode)})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidOTP))
		s.Contains(dErrors.MessageOf(err), "2 attempts remaining")
		issued, getErr := s.otps.Get(s.ctx, appID)
		s.Require().NoError(getErr)
		s.Equal(1, issued.Attempts)
	})

	s.Run("correct code verifies", func() {
		s.expectEvent(events.OTPVerified)
		resp, err := s.service.VerifyOTP(s.ctx, models.VerifyOTPRequest{ApplicationID: appID.String(), OTP: s.lastCode})
		s.Require().NoError(err)
		s.True(resp.Verified)

		stored, _ := s.candidates.FindByApplicationID(s.ctx, appID)
		s.True(stored.Verified)
		_, err = s.otps.Get(s.ctx, appID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.OTPVerifications.WithLabelValues("verified")))
	})

	s.Run("already verified succeeds again", func() {
		resp, err := s.service.VerifyOTP(s.ctx, models.VerifyOTPRequest{ApplicationID: appID.String(), OTP: "000000"})
		s.Require().NoError(err)
		s.True(resp.Verified)
	})
}

func (s *RegistrationSuite) TestVerifyOTPLocksAfterMaxAttempts() {
	appID := s.register()
	wrong := wrongCode(s.lastCode)
	for range 3 {
		_, err := s.service.VerifyOTP(s.ctx, models.VerifyOTPRequest{ApplicationID: appID.String(), OTP: wrong})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidOTP))
	}
	_, err := s.service.VerifyOTP(s.ctx, models.VerifyOTPRequest{ApplicationID: appID.String(), OTP: s.lastCode})
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
}

func (s *RegistrationSuite) TestVerifyOTPConcurrentGuessesRespectLimit() {
	appID := s.register()
	wrong := wrongCode(s.lastCode)

	const guesses = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		invalid int
		locked  int
	)
	for range guesses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.VerifyOTP(s.ctx, models.VerifyOTPRequest{ApplicationID: appID.String(), OTP: wrong})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case dErrors.HasCode(err, dErrors.CodeInvalidOTP):
				invalid++
			case dErrors.HasCode(err, dErrors.CodeRateLimited):
				locked++
			}
		}()
	}
	wg.Wait()

	s.Equal(3, invalid, "only MaxAttempts guesses reach the compare")
	s.Equal(guesses-3, locked)
	_, err := s.service.VerifyOTP(s.ctx, models.VerifyOTPRequest{ApplicationID: appID.String(), OTP: s.lastCode})
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
}

func (s *RegistrationSuite) TestVerifyOTPExpired() {
	appID := s.register()
	later := requestcontext.WithTime(context.Background(), fixedNow.Add(5*time.Minute))

	_, err := s.service.VerifyOTP(later, models.VerifyOTPRequest{ApplicationID: appID.String(), OTP: s.lastCode})
	s.True(dErrors.HasCode(err, dErrors.CodeOTPExpired))
	_, err = s.otps.Get(s.ctx, appID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RegistrationSuite) TestVerifyOTPExpiredLogsDeleteFailure() {
	appID := s.register()
	otps := mocks.NewMockOTPStore(s.ctrl)
	var logs bytes.Buffer
	svc := New(s.candidates, otps, s.notifier, Config{OTPLength: 6, MaxAttempts: 3},
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	otps.EXPECT().Get(gomock.Any(), appID).Return(&models.OTP{
		ApplicationID: appID,
		ExpiresAt:     fixedNow.Add(-time.Second),
	}, nil)
	otps.EXPECT().Delete(gomock.Any(), appID).Return(errors.New("redis down"))

	_, err := svc.VerifyOTP(s.ctx, models.VerifyOTPRequest{ApplicationID: appID.String(), OTP: "123456"})
	s.True(dErrors.HasCode(err, dErrors.CodeOTPExpired))
	s.Contains(logs.String(), "failed to delete expired otp")
	s.Contains(logs.String(), "redis down")
}

func (s *RegistrationSuite) TestResendOTP() {
	appID := s.register()
	first := s.lastCode

	s.Run("mobile mismatch", func() {
		_, err := s.service.ResendOTP(s.ctx, models.ResendOTPRequest{ApplicationID: appID.String(), MobileNo: "9123456789"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("throttled right after registration", func() {
		_, err := s.service.ResendOTP(s.ctx, models.ResendOTPRequest{ApplicationID: appID.String(), MobileNo: "09876543210"})
		s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.OTPResends.WithLabelValues("throttled")))
	})

	s.Run("allowed once the interval passes", func() {
		later := requestcontext.WithTime(context.Background(), fixedNow.Add(time.Minute))
		s.captureOTP()
		resp, err := s.service.ResendOTP(later, models.ResendOTPRequest{ApplicationID: appID.String(), MobileNo: "9876543210"})
		s.Require().NoError(err)
		s.True(resp.Success)

		_, err = s.service.VerifyOTP(later, models.VerifyOTPRequest{ApplicationID: appID.String(), OTP: wrongCode(s.lastCode)})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidOTP))
		if first != s.lastCode {
			_, err = s.service.VerifyOTP(later, models.VerifyOTPRequest{ApplicationID: appID.String(), OTP: first})
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidOTP), "replaced code must not verify")
		}
	})
}

func (s *RegistrationSuite) TestFixedCode() {
	svc := New(s.candidates, s.otps, s.notifier, Config{OTPLength: 6, OTPTTL: time.Minute, MaxAttempts: 3, FixedCode: "123456"},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.captureOTP()
	resp, err := svc.Register(s.ctx, validRequest())
	s.Require().NoError(err)
	s.Equal("123456", s.lastCode)

	verified, err := svc.VerifyOTP(s.ctx, models.VerifyOTPRequest{ApplicationID: resp.ApplicationID.String(), OTP: "123456"})
	s.Require().NoError(err)
	s.True(verified.Verified)
}

func (s *RegistrationSuite) TestValidateExam() {
	percentile := 92.5
	score := 610.0
	high := 721.0

	cases := []struct {
		name string
		req  models.ValidateExamRequest
		ok   bool
	}{
		{"mht-cet", models.ValidateExamRequest{ExamType: "mht-cet", RollNumber: "1234567890", Year: 2025, Percentile: &percentile}, true},
		{"neet", models.ValidateExamRequest{ExamType: models.ExamNEET, RollNumber: "1234567890", Year: 2024, Score: &score}, true},
		{"unknown exam", models.ValidateExamRequest{ExamType: "JEE", RollNumber: "1234567890", Year: 2025}, false},
		{"short roll number", models.ValidateExamRequest{ExamType: models.ExamMHTCET, RollNumber: "12345", Year: 2025}, false},
		{"stale year", models.ValidateExamRequest{ExamType: models.ExamMHTCET, RollNumber: "1234567890", Year: 2022}, false},
		{"future year", models.ValidateExamRequest{ExamType: models.ExamMHTCET, RollNumber: "1234567890", Year: 2026}, false},
		{"neet without score", models.ValidateExamRequest{ExamType: models.ExamNEET, RollNumber: "1234567890", Year: 2025}, false},
		{"neet score too high", models.ValidateExamRequest{ExamType: models.ExamNEET, RollNumber: "1234567890", Year: 2025, Score: &high}, false},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			resp, err := s.service.ValidateExam(s.ctx, tc.req)
			if tc.ok {
				s.Require().NoError(err)
				s.True(resp.IsValid)
				return
			}
			s.True(dErrors.HasCode(err, dErrors.CodeRemoteValidation))
		})
	}
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}
