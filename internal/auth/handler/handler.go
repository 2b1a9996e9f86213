package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"admission/internal/auth/models"
	"admission/internal/platform/middleware"
	dErrors "admission/pkg/domain-errors"
	"admission/pkg/platform/httputil"
	"admission/pkg/requestcontext"
)

// Service defines the authentication operations used by the handler.
type Service interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context) (*models.LogoutResponse, error)
	Me(ctx context.Context) (*models.User, error)
}

// Handler serves /api/auth. Login is public; logout and me require a token.
type Handler struct {
	service     Service
	requireAuth func(http.Handler) http.Handler
	throttle    func(http.Handler) http.Handler
	logger      *slog.Logger
}

type Option func(*Handler)

// WithLoginThrottle guards the login route.
func WithLoginThrottle(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.throttle = mw }
}

func New(svc Service, requireAuth func(http.Handler) http.Handler, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: svc, requireAuth: requireAuth, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		if h.throttle != nil {
			r.With(h.throttle).Post("/login", h.handleLogin)
		} else {
			r.Post("/login", h.handleLogin)
		}
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/logout", h.handleLogout)
			r.Get("/me", h.handleMe)
		})
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "invalid login request")
		return
	}
	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "login failed")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Logout(r.Context())
	if err != nil {
		h.fail(w, r, err, "logout failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Me(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to load profile")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	ctx := r.Context()
	attrs := []any{
		"request_id", middleware.GetRequestID(ctx),
		"client_ip", requestcontext.ClientIP(ctx),
		"error", err,
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
