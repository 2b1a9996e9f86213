package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"admission/internal/auth/handler/mocks"
	"admission/internal/auth/models"
	"admission/internal/auth/store/revocation"
	jwttoken "admission/internal/jwt_token"
	"admission/internal/platform/middleware"
	id "admission/pkg/domain"
	dErrors "admission/pkg/domain-errors"
	"admission/pkg/requestcontext"
	"admission/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

const appID = id.ApplicationID("REG202500000001")

type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	jwt     *jwttoken.JWTService
	trl     *revocation.InMemoryTRL
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = mocks.NewMockService(ctrl)
	s.jwt = jwttoken.NewJWTService("test-key", "admission-portal", "admission-candidates")
	s.trl = revocation.NewInMemoryTRL(nil)
	requireAuth := middleware.RequireAuth(jwttoken.NewJWTServiceAdapter(s.jwt), s.trl, logger)

	s.router = chi.NewRouter()
	New(s.service, requireAuth, logger).Register(s.router)
}

func (s *HandlerSuite) token() string {
	issued, err := s.jwt.GenerateAccessToken(id.CandidateID(uuid.New()), appID, id.SessionID(uuid.New()), time.Hour)
	s.Require().NoError(err)
	return issued.Token
}

func (s *HandlerSuite) TestLogin() {
	s.Run("success", func() {
		s.service.EXPECT().Login(gomock.Any(), models.LoginRequest{ApplicationID: appID.String(), Password: "Secret123", RememberMe: true}).
			Return(&models.LoginResponse{Success: true, Token: "tok", Storage: models.StorageLocal, ExpiresIn: 60}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login",
			models.LoginRequest{ApplicationID: appID.String(), Password: "Secret123", RememberMe: true}))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "storage", "local")
		testutil.AssertJSONContains(s.T(), rr, "token", "tok")
		s.Equal("no-store", rr.Header().Get("Cache-Control"))
	})

	s.Run("bad credentials", func() {
		s.service.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid application ID or password"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login",
			models.LoginRequest{ApplicationID: appID.String(), Password: "nope"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("unverified", func() {
		s.service.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotVerified, "mobile number is not verified"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login",
			models.LoginRequest{ApplicationID: appID.String(), Password: "Secret123"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "candidate_not_verified")
	})
}

func (s *HandlerSuite) TestLogoutRevokesToken() {
	token := s.token()
	s.service.EXPECT().Logout(gomock.Any()).DoAndReturn(func(ctx context.Context) (*models.LogoutResponse, error) {
		s.Equal(appID, requestcontext.ApplicationID(ctx))
		s.Require().NoError(s.trl.RevokeToken(ctx, requestcontext.TokenJTI(ctx), time.Hour))
		return &models.LogoutResponse{Success: true, Message: "Logged out successfully"}, nil
	})

	rr := testutil.DoRequest(s.router, testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodPost, "/api/auth/logout"), token))
	testutil.AssertStatusOK(s.T(), rr)

	rr = testutil.DoRequest(s.router, testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/api/auth/me"), token))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *HandlerSuite) TestMe() {
	s.Run("requires a token", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/auth/me"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("returns the profile", func() {
		s.service.EXPECT().Me(gomock.Any()).Return(&models.User{ApplicationID: appID, FullName: "Asha Patil"}, nil)
		rr := testutil.DoRequest(s.router, testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/api/auth/me"), s.token()))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "fullName", "Asha Patil")
	})
}

func (s *HandlerSuite) TestLoginThrottle() {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTooManyRequests) })
	}
	router := chi.NewRouter()
	New(s.service, middleware.RequireAuth(jwttoken.NewJWTServiceAdapter(s.jwt), s.trl, slog.New(slog.NewTextHandler(io.Discard, nil))),
		slog.New(slog.NewTextHandler(io.Discard, nil)), WithLoginThrottle(deny)).Register(router)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login",
		models.LoginRequest{ApplicationID: appID.String(), Password: "Secret123"}))
	s.Equal(http.StatusTooManyRequests, rr.Code)

	s.service.EXPECT().Me(gomock.Any()).Return(&models.User{ApplicationID: appID}, nil)
	rr = testutil.DoRequest(router, testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/api/auth/me"), s.token()))
	s.Equal(http.StatusOK, rr.Code, "only login is throttled")
}
