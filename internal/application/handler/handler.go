package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"admission/internal/application/models"
	"admission/internal/application/report"
	"admission/internal/application/service"
	"admission/internal/application/validation"
	"admission/internal/platform/middleware"
	id "admission/pkg/domain"
	dErrors "admission/pkg/domain-errors"
	"admission/pkg/platform/httputil"
	"admission/pkg/requestcontext"
)

// Service defines the application wizard operations used by the handler.
type Service interface {
	Get(ctx context.Context, owner id.ApplicationID) (*service.State, error)
	UpdateSection(ctx context.Context, owner id.ApplicationID, section string, partial json.RawMessage) (*service.State, error)
	SetStep(ctx context.Context, owner id.ApplicationID, step int) (*service.State, error)
	NextStep(ctx context.Context, owner id.ApplicationID) (*service.State, error)
	PreviousStep(ctx context.Context, owner id.ApplicationID) (*service.State, error)
	Dashboard(ctx context.Context, owner id.ApplicationID) (*service.DashboardView, error)
	Save(ctx context.Context, owner id.ApplicationID) (time.Time, error)
	Submit(ctx context.Context, owner id.ApplicationID, consents models.Consents) (*service.SubmitResult, error)
	Reset(ctx context.Context, owner id.ApplicationID) (*service.State, error)
	Validate(ctx context.Context, owner id.ApplicationID) (validation.Result, error)
	Report(ctx context.Context, owner id.ApplicationID, kind report.Kind) (*report.Report, error)
	UploadDocument(ctx context.Context, owner id.ApplicationID, up service.Upload) (*models.DocumentRef, error)
}

// maxUploadBody bounds a multipart request before the per-document ceiling
// is applied.
const maxUploadBody = 8 << 20

// Handler serves /api/application.
type Handler struct {
	service     Service
	requireAuth func(http.Handler) http.Handler
	logger      *slog.Logger
}

// New creates the handler. requireAuth guards every route.
func New(svc Service, requireAuth func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{service: svc, requireAuth: requireAuth, logger: logger}
}

// Register registers the application routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/application", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Get("/", h.handleGet)
			r.Get("/steps", h.handleSteps)
			r.Patch("/sections/{section}", h.handleUpdateSection)
			r.Put("/step", h.handleSetStep)
			r.Post("/step/next", h.handleNextStep)
			r.Post("/step/previous", h.handlePreviousStep)
			r.Get("/dashboard", h.handleDashboard)
			r.Post("/save", h.handleSave)
			r.Post("/submit", h.handleSubmit)
			r.Post("/reset", h.handleReset)
			r.Get("/validation", h.handleValidate)
			r.Get("/report/{kind}", h.handleReport)
		})
		r.Post("/documents/{key}", h.handleUploadDocument)
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Get(r.Context(), requestcontext.ApplicationID(r.Context()))
	h.respond(w, r, state, err, "failed to load application")
}

func (h *Handler) handleSteps(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"steps": models.Steps})
}

func (h *Handler) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var partial json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		h.fail(w, r, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"), "invalid section update")
		return
	}
	state, err := h.service.UpdateSection(ctx, requestcontext.ApplicationID(ctx), chi.URLParam(r, "section"), partial)
	h.respond(w, r, state, err, "failed to update section")
}

type setStepRequest struct {
	Step int `json:"step"`
}

func (h *Handler) handleSetStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req setStepRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "invalid step request")
		return
	}
	state, err := h.service.SetStep(ctx, requestcontext.ApplicationID(ctx), req.Step)
	h.respond(w, r, state, err, "failed to set step")
}

func (h *Handler) handleNextStep(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.NextStep(r.Context(), requestcontext.ApplicationID(r.Context()))
	h.respond(w, r, state, err, "failed to advance step")
}

func (h *Handler) handlePreviousStep(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.PreviousStep(r.Context(), requestcontext.ApplicationID(r.Context()))
	h.respond(w, r, state, err, "failed to go back a step")
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Dashboard(r.Context(), requestcontext.ApplicationID(r.Context()))
	h.respond(w, r, view, err, "failed to build dashboard")
}

type saveResponse struct {
	Success bool      `json:"success"`
	SavedAt time.Time `json:"savedAt"`
	Message string    `json:"message"`
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	savedAt, err := h.service.Save(r.Context(), requestcontext.ApplicationID(r.Context()))
	if err != nil {
		h.fail(w, r, err, "failed to save progress")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, saveResponse{
		Success: true,
		SavedAt: savedAt,
		Message: "Progress saved",
	})
}

type submitResponse struct {
	Success       bool             `json:"success"`
	ApplicationID id.ApplicationID `json:"applicationId"`
	SubmittedAt   time.Time        `json:"submittedAt"`
	Message       string           `json:"message"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var consents models.Consents
	if err := httputil.DecodeJSON(r, &consents); err != nil {
		h.fail(w, r, err, "invalid submit request")
		return
	}
	result, err := h.service.Submit(ctx, requestcontext.ApplicationID(ctx), consents)
	if err != nil {
		h.fail(w, r, err, "failed to submit application")
		return
	}
	h.logger.InfoContext(ctx, "application submitted",
		"request_id", middleware.GetRequestID(ctx),
		"application_id", result.ApplicationID,
	)
	httputil.WriteJSON(w, http.StatusOK, submitResponse{
		Success:       true,
		ApplicationID: result.ApplicationID,
		SubmittedAt:   result.SubmittedAt,
		Message:       "Application submitted successfully",
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Reset(r.Context(), requestcontext.ApplicationID(r.Context()))
	h.respond(w, r, state, err, "failed to reset application")
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Validate(r.Context(), requestcontext.ApplicationID(r.Context()))
	h.respond(w, r, result, err, "failed to validate application")
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, err := report.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.fail(w, r, err, "unknown report kind")
		return
	}
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, r, err, "unknown report format")
		return
	}
	rep, err := h.service.Report(ctx, requestcontext.ApplicationID(ctx), kind)
	if err != nil {
		h.fail(w, r, err, "failed to build report")
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	if err := report.Render(w, rep, format); err != nil {
		h.logger.ErrorContext(ctx, "failed to render report",
			"request_id", middleware.GetRequestID(ctx),
			"format", format,
			"error", err,
		)
	}
}

func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, r, dErrors.New(dErrors.CodeOversizedDocument, "upload is too large"), "oversized upload")
			return
		}
		h.fail(w, r, dErrors.Wrap(err, dErrors.CodeBadRequest, "multipart field \"file\" is required"), "invalid upload")
		return
	}
	defer file.Close()

	contentType, err := detectContentType(header.Header.Get("Content-Type"), file)
	if err != nil {
		h.fail(w, r, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable upload"), "invalid upload")
		return
	}
	ref, err := h.service.UploadDocument(ctx, requestcontext.ApplicationID(ctx), service.Upload{
		Key:         chi.URLParam(r, "key"),
		FileName:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
	})
	if err != nil {
		h.fail(w, r, err, "document rejected")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "document": ref})
}

// detectContentType trusts an explicit part type and sniffs otherwise.
func detectContentType(declared string, file io.Reader) (string, error) {
	if declared != "" && declared != "application/octet-stream" {
		media, _, _ := strings.Cut(declared, ";")
		return strings.TrimSpace(strings.ToLower(media)), nil
	}
	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	media, _, _ := strings.Cut(http.DetectContentType(buf[:n]), ";")
	return media, nil
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, body any, err error, msg string) {
	if err != nil {
		h.fail(w, r, err, msg)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

// fail logs at warn for client errors and error for everything else, then
// writes the error envelope.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	ctx := r.Context()
	attrs := []any{
		"request_id", middleware.GetRequestID(ctx),
		"application_id", requestcontext.ApplicationID(ctx),
		"error", err,
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
