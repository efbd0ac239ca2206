package visits

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/novadent/novadent/internal/auth"
	"github.com/novadent/novadent/internal/platform/httpx"
	"github.com/novadent/novadent/internal/shared"
)

// Handler wires HTTP endpoints for the visits module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	guard    auth.Middleware
}

// NewHandler constructs the visits handler.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), guard: guard}
}

// MountRoutes registers visit routes. Clinical records are written by
// dentists and admins; receptionists can read them.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin, auth.RoleDentist, auth.RoleReceptionist))
		r.Get("/", h.list)
		r.Get("/options", h.options)
		r.Get("/patient/{patientID}", h.history)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin, auth.RoleDentist))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r.URL.Query(), "visit_date", "patient_name", "dentist_name", "treatment", "cost", "created_at")
	out, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, "list visits", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"visits":     out,
		"totalCount": pagination.TotalCount,
		"pagination": pagination,
	})
}

func (h *Handler) options(w http.ResponseWriter, r *http.Request) {
	dentists, treatments, err := h.service.FilterOptions(r.Context())
	if err != nil {
		h.respondError(w, "filter options", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"dentists":   dentists,
		"treatments": treatments,
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.History(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		h.respondError(w, "visit history", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"visits": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	visit, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get visit", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"visit": visit})
}

type visitForm struct {
	PatientID   string       `json:"patient_id"`
	PatientName string       `json:"patient_name"`
	DentistName string       `json:"dentist_name" validate:"required"`
	Date        string       `json:"date" validate:"required"`
	Treatment   string       `json:"treatment"`
	Diagnosis   string       `json:"diagnosis"`
	Medications string       `json:"medications"`
	Notes       string       `json:"notes"`
	Cost        float64      `json:"cost" validate:"gte=0"`
	Status      string       `json:"status"`
	Attachments []Attachment `json:"files"`
}

func (f visitForm) toVisit(id string) (Visit, error) {
	date, err := time.Parse("2006-01-02", f.Date)
	if err != nil {
		return Visit{}, err
	}
	return Visit{
		ID:          id,
		PatientID:   f.PatientID,
		PatientName: f.PatientName,
		DentistName: f.DentistName,
		Date:        date,
		Treatment:   f.Treatment,
		Diagnosis:   f.Diagnosis,
		Medications: f.Medications,
		Notes:       f.Notes,
		Cost:        f.Cost,
		Status:      f.Status,
		Attachments: f.Attachments,
	}, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	visit, ok := h.decodeForm(w, r, "")
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), visit)
	if err != nil {
		h.respondError(w, "create visit", err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"visit": created})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	visit, ok := h.decodeForm(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	updated, err := h.service.Update(r.Context(), visit)
	if err != nil {
		h.respondError(w, "update visit", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"visit": updated})
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request, id string) (Visit, bool) {
	var form visitForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return Visit{}, false
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return Visit{}, false
	}
	visit, err := form.toVisit(id)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return Visit{}, false
	}
	return visit, true
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete visit", err)
		return
	}
	httpx.OK(w, http.StatusOK, nil)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrVisitNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, httpx.ErrValidation):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
