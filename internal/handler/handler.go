package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/docgrader/internal/auth"
	"github.com/pavelanni/docgrader/internal/extract"
	"github.com/pavelanni/docgrader/internal/form"
	"github.com/pavelanni/docgrader/internal/grading"
	"github.com/pavelanni/docgrader/internal/handler/views"
	appI18n "github.com/pavelanni/docgrader/internal/i18n"
	"github.com/pavelanni/docgrader/internal/metrics"
	"github.com/pavelanni/docgrader/internal/model"
	"github.com/pavelanni/docgrader/internal/store"
)

const viewStateCookieName = "view_state"

// DefaultMaxUploadSize bounds multipart bodies when AppConfig leaves it unset.
const DefaultMaxUploadSize = 20 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	grader   *grading.Service
	verifier auth.Verifier
	metrics  *metrics.Metrics
	config   model.AppConfig
}

// New creates a new Handler. m may be nil.
func New(s *store.Store, g *grading.Service, v auth.Verifier, m *metrics.Metrics, cfg model.AppConfig) (*Handler, error) {
	if s == nil || g == nil || v == nil {
		return nil, errors.New("handler needs a store, a grading service and a verifier")
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	return &Handler{store: s, grader: g, verifier: v, metrics: m, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Handle("/metrics", h.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(h.limitBody)
		r.Use(h.csrfMiddleware)
		r.Use(h.optionalAuth)

		r.Get("/", h.handleIndex)
		r.Post("/grade/document", h.handleGradeDocument)
		r.Post("/generate", h.handleGenerate)
		r.Post("/grade/material", h.handleGradeMaterial)
		r.Post("/continue", h.handleContinue)
		r.Get("/records", h.handleRecords)

		r.Get("/login", h.handleLoginPage)
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/admin", h.handleAdminPage)
			r.Post("/admin/records/delete-latest", h.handleDeleteLatest)
			r.Post("/admin/records/delete", h.handleDeleteRecord)
			r.Post("/admin/records/clear", h.handleClearRecords)
			r.Get("/admin/export", h.handleExport)
		})
	})
}

// BasePathMiddleware stores the configured base path in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

// limitBody caps request bodies and parses multipart forms up front so an
// oversized upload is reported as such rather than as a missing CSRF token.
func (h *Handler) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(h.config.MaxUploadSize); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, "invalid form", http.StatusBadRequest)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) viewState(r *http.Request) model.ViewState {
	c, err := r.Cookie(viewStateCookieName)
	if err != nil {
		return model.StateCollectingInput
	}
	return model.ParseViewState(c.Value)
}

func (h *Handler) setViewState(w http.ResponseWriter, s model.ViewState) {
	http.SetCookie(w, &http.Cookie{
		Name:     viewStateCookieName,
		Value:    string(s),
		Path:     h.cookiePath(),
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	state := h.viewState(r)
	switch state {
	case model.StateShowingResult:
		rec, err := h.store.GetLatest()
		if err != nil {
			slog.Error("failed to load latest record", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if rec != nil {
			render(w, r, http.StatusOK, views.ResultPage(*rec))
			return
		}
		// The record was removed before it could be shown.
		h.setViewState(w, model.StateCollectingInput)
	case model.StateResetting:
		h.setViewState(w, state.Next(model.EventRender))
	}
	render(w, r, http.StatusOK, views.IndexPage(views.FormData{}))
}

func submissionFromRequest(r *http.Request) form.Submission {
	return form.Submission{
		TeacherName:  r.FormValue("teacher_name"),
		TeacherEmail: r.FormValue("teacher_email"),
		StudentName:  r.FormValue("student_name"),
	}
}

func formData(r *http.Request) views.FormData {
	return views.FormData{
		TeacherName:  r.FormValue("teacher_name"),
		TeacherEmail: r.FormValue("teacher_email"),
		StudentName:  r.FormValue("student_name"),
		Topic:        r.FormValue("topic"),
		Material:     r.FormValue("material"),
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, d views.FormData) {
	render(w, r, status, views.IndexPage(d))
}

// validationMessage maps a form error to its translated message.
func validationMessage(r *http.Request, err error) string {
	switch {
	case errors.Is(err, form.ErrInvalidEmail):
		return appI18n.T(r.Context(), "ErrInvalidEmail")
	default:
		return appI18n.T(r.Context(), "ErrMissingFields")
	}
}

func (h *Handler) handleGradeDocument(w http.ResponseWriter, r *http.Request) {
	d := formData(r)
	sub := submissionFromRequest(r)
	if err := sub.Validate(); err != nil {
		slog.Warn("rejected grading form", "error", err)
		d.Error = validationMessage(r, err)
		h.renderForm(w, r, http.StatusBadRequest, d)
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		d.Error = appI18n.T(r.Context(), "ErrNoFile")
		h.renderForm(w, r, http.StatusBadRequest, d)
		return
	}
	defer file.Close()
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		d.Error = appI18n.T(r.Context(), "ErrNoFile")
		h.renderForm(w, r, http.StatusBadRequest, d)
		return
	}

	path, err := saveUpload(file)
	if err != nil {
		slog.Error("failed to save upload", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer os.Remove(path)

	if _, err := h.grader.GradeDocument(r.Context(), sub.Identity(), path); err != nil {
		h.renderGradingError(w, r, d, err)
		return
	}
	h.finishGrading(w, r)
}

// saveUpload copies an uploaded document to a temporary file.
func saveUpload(src io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "docgrader-*.pdf")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	d := formData(r)
	material, err := h.grader.GenerateMaterial(r.Context(), d.Topic)
	if err != nil {
		if errors.Is(err, grading.ErrEmptyTopic) {
			d.Error = appI18n.T(r.Context(), "ErrEmptyTopic")
			h.renderForm(w, r, http.StatusBadRequest, d)
			return
		}
		d.Error = appI18n.Td(r.Context(), "ErrGeneration", map[string]any{"Error": err.Error()})
		h.renderForm(w, r, http.StatusBadGateway, d)
		return
	}
	d.Material = material
	h.renderForm(w, r, http.StatusOK, d)
}

func (h *Handler) handleGradeMaterial(w http.ResponseWriter, r *http.Request) {
	d := formData(r)
	sub := submissionFromRequest(r)
	if err := sub.Validate(); err != nil {
		slog.Warn("rejected grading form", "error", err)
		d.Error = validationMessage(r, err)
		h.renderForm(w, r, http.StatusBadRequest, d)
		return
	}

	if _, err := h.grader.GradeText(r.Context(), sub.Identity(), d.Material); err != nil {
		h.renderGradingError(w, r, d, err)
		return
	}
	h.finishGrading(w, r)
}

func (h *Handler) renderGradingError(w http.ResponseWriter, r *http.Request, d views.FormData, err error) {
	var extErr *extract.ExtractionError
	switch {
	case errors.As(err, &extErr):
		d.Error = appI18n.Td(r.Context(), "ErrExtraction", map[string]any{"Error": extErr.Err.Error()})
		h.renderForm(w, r, http.StatusUnprocessableEntity, d)
	case errors.Is(err, grading.ErrEmptyText):
		d.Error = appI18n.T(r.Context(), "ErrEmptyText")
		h.renderForm(w, r, http.StatusBadRequest, d)
	default:
		d.Error = appI18n.Td(r.Context(), "ErrGrading", map[string]any{"Error": err.Error()})
		h.renderForm(w, r, http.StatusBadGateway, d)
	}
}

// finishGrading moves the view to the stored result.
func (h *Handler) finishGrading(w http.ResponseWriter, r *http.Request) {
	h.setViewState(w, h.viewState(r).Next(model.EventGraded))
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

func (h *Handler) handleContinue(w http.ResponseWriter, r *http.Request) {
	h.setViewState(w, h.viewState(r).Next(model.EventContinue))
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

func (h *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.GetAll()
	if err != nil {
		slog.Error("failed to list records", "error", err)
		msg := appI18n.Td(r.Context(), "ErrStorage", map[string]any{"Error": err.Error()})
		render(w, r, http.StatusInternalServerError, views.RecordsPage(nil, msg))
		return
	}
	render(w, r, http.StatusOK, views.RecordsPage(recs, ""))
}
