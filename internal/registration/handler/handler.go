package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"admission/internal/platform/middleware"
	"admission/internal/registration/models"
	dErrors "admission/pkg/domain-errors"
	"admission/pkg/platform/httputil"
)

// Service defines the registration operations used by the handler.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error)
	VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.VerifyOTPResponse, error)
	ResendOTP(ctx context.Context, req models.ResendOTPRequest) (*models.ResendOTPResponse, error)
	ValidateExam(ctx context.Context, req models.ValidateExamRequest) (*models.ValidateExamResponse, error)
}

// Handler serves the public /api/registration endpoints.
type Handler struct {
	service  Service
	logger   *slog.Logger
	throttle func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithThrottle guards every registration route, typically with a per-IP
// rate limit.
func WithThrottle(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.throttle = mw }
}

func New(svc Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: svc, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the registration routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/registration", func(r chi.Router) {
		if h.throttle != nil {
			r.Use(h.throttle)
		}
		r.Use(middleware.ContentTypeJSON)
		r.Post("/register", h.handleRegister)
		r.Post("/verify-otp", h.handleVerifyOTP)
		r.Post("/resend-otp", h.handleResendOTP)
		r.Post("/validate-exam", h.handleValidateExam)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "invalid registration request")
		return
	}
	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "registration failed")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "invalid verify request")
		return
	}
	resp, err := h.service.VerifyOTP(r.Context(), req)
	h.respond(w, r, resp, err, "otp verification failed")
}

func (h *Handler) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	var req models.ResendOTPRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "invalid resend request")
		return
	}
	resp, err := h.service.ResendOTP(r.Context(), req)
	h.respond(w, r, resp, err, "otp resend failed")
}

func (h *Handler) handleValidateExam(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateExamRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "invalid exam request")
		return
	}
	resp, err := h.service.ValidateExam(r.Context(), req)
	// A rejected exam keeps the success-shaped body the form expects.
	if dErrors.HasCode(err, dErrors.CodeRemoteValidation) {
		h.logger.InfoContext(r.Context(), "exam validation rejected",
			"request_id", middleware.GetRequestID(r.Context()),
		)
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, models.ValidateExamResponse{
			Success: false,
			IsValid: false,
			Message: dErrors.MessageOf(err),
		})
		return
	}
	h.respond(w, r, resp, err, "exam validation failed")
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, body any, err error, msg string) {
	if err != nil {
		h.fail(w, r, err, msg)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", middleware.GetRequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", middleware.GetRequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
