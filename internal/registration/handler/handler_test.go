package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"admission/internal/registration/handler/mocks"
	"admission/internal/registration/models"
	dErrors "admission/pkg/domain-errors"
	"admission/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *HandlerSuite) TestRegister() {
	s.Run("created", func() {
		s.service.EXPECT().Register(gomock.Any(), models.RegisterRequest{
			FullName: "Asha Patil", Email: "asha@example.com", MobileNumber: "9876543210",
			DateOfBirth: "2006-02-14", Gender: "female", Password: "Secret123", ConfirmPassword: "Secret123",
		}).Return(&models.RegisterResponse{Success: true, ApplicationID: "REG202500000001", MobileNumber: "9876543210"}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/registration/register", map[string]string{
			"fullName": "Asha Patil", "email": "asha@example.com", "mobileNumber": "9876543210",
			"dateOfBirth": "2006-02-14", "gender": "female", "password": "Secret123", "confirmPassword": "Secret123",
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "applicationId", "REG202500000001")
	})

	s.Run("unknown fields are rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/registration/register", map[string]string{"nickname": "x"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("duplicate is a conflict", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "email or mobile number is already registered"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/registration/register", map[string]string{"email": "a@b.co"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("non-json body", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/registration/register", "fullName=x")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *HandlerSuite) TestVerifyOTP() {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"malformed", dErrors.New(dErrors.CodeMalformedOTP, "OTP must be exactly 6 digits"), http.StatusBadRequest, "malformed_otp"},
		{"invalid", dErrors.New(dErrors.CodeInvalidOTP, "incorrect OTP"), http.StatusBadRequest, "invalid_otp"},
		{"expired", dErrors.New(dErrors.CodeOTPExpired, "OTP has expired"), http.StatusUnauthorized, "otp_expired"},
		{"locked", dErrors.New(dErrors.CodeRateLimited, "too many attempts"), http.StatusTooManyRequests, "rate_limited"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.service.EXPECT().VerifyOTP(gomock.Any(), gomock.Any()).Return(nil, tc.err)
			rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/registration/verify-otp",
				models.VerifyOTPRequest{ApplicationID: "REG202500000001", OTP: "123456"}))
			testutil.AssertStatusAndError(s.T(), rr, tc.status, tc.code)
		})
	}

	s.Run("verified", func() {
		s.service.EXPECT().VerifyOTP(gomock.Any(), models.VerifyOTPRequest{ApplicationID: "REG202500000001", OTP: "123456"}).
			Return(&models.VerifyOTPResponse{Success: true, Verified: true, Message: "ok"}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/registration/verify-otp",
			models.VerifyOTPRequest{ApplicationID: "REG202500000001", OTP: "123456"}))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "verified", true)
	})
}

func (s *HandlerSuite) TestResendOTP() {
	s.service.EXPECT().ResendOTP(gomock.Any(), models.ResendOTPRequest{ApplicationID: "REG202500000001", MobileNo: "9876543210"}).
		Return(&models.ResendOTPResponse{Success: true, Message: "sent"}, nil)
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/registration/resend-otp",
		models.ResendOTPRequest{ApplicationID: "REG202500000001", MobileNo: "9876543210"}))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "success", true)
}

func (s *HandlerSuite) TestValidateExam() {
	s.Run("valid", func() {
		s.service.EXPECT().ValidateExam(gomock.Any(), gomock.Any()).
			Return(&models.ValidateExamResponse{Success: true, IsValid: true, Message: "Exam details verified"}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/registration/validate-exam",
			map[string]any{"examType": "MHT-CET", "rollNumber": "1234567890", "year": 2025}))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "isValid", true)
	})

	s.Run("rejected keeps the form body", func() {
		s.service.EXPECT().ValidateExam(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeRemoteValidation, "roll number must be 10 digits"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/registration/validate-exam",
			map[string]any{"examType": "MHT-CET", "rollNumber": "1", "year": 2025}))
		testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
		testutil.AssertJSONContains(s.T(), rr, "isValid", false)
		testutil.AssertJSONContains(s.T(), rr, "message", "roll number must be 10 digits")
	})
}

func (s *HandlerSuite) TestThrottle() {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTooManyRequests) })
	}
	router := chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)), WithThrottle(deny)).Register(router)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/registration/resend-otp",
		models.ResendOTPRequest{ApplicationID: "REG202500000001", MobileNo: "9876543210"}))
	s.Equal(http.StatusTooManyRequests, rr.Code)
}
