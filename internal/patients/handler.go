package patients

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/novadent/novadent/internal/auth"
	"github.com/novadent/novadent/internal/platform/httpx"
	"github.com/novadent/novadent/internal/shared"
)

// Handler wires HTTP endpoints for the patients module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	guard    auth.Middleware
}

// NewHandler constructs the patients handler.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), guard: guard}
}

// MountRoutes registers patient routes. All staff roles can read and write
// patient records; deletion is kept to admins.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin, auth.RoleDentist, auth.RoleReceptionist))
		r.Get("/", h.list)
		r.Get("/stats", h.stats)
		r.Get("/{id}", h.get)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin))
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r.URL.Query(), "last_name", "first_name", "age", "balance", "last_visit", "created_at")
	out, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, "list patients", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"patients":   out,
		"totalCount": pagination.TotalCount,
		"pagination": pagination,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	patient, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get patient", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"patient": patient})
}

type patientForm struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Age       int     `json:"age" validate:"gte=0,lte=150"`
	Gender    string  `json:"gender"`
	Phone     string  `json:"phone" validate:"required"`
	Status    string  `json:"status"`
	Priority  string  `json:"priority"`
	Balance   float64 `json:"balance"`
}

func (f patientForm) toPatient(id string) Patient {
	return Patient{
		ID:        id,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Age:       f.Age,
		Gender:    f.Gender,
		Phone:     f.Phone,
		Status:    f.Status,
		Priority:  f.Priority,
		Balance:   f.Balance,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form patientForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), form.toPatient(""))
	if err != nil {
		h.respondError(w, "create patient", err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"patient": created})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var form patientForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.service.Update(r.Context(), form.toPatient(chi.URLParam(r, "id")))
	if err != nil {
		h.respondError(w, "update patient", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"patient": updated})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete patient", err)
		return
	}
	httpx.OK(w, http.StatusOK, nil)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.respondError(w, "stats", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"stats": stats})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrPatientNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPhoneTaken):
		httpx.Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, httpx.ErrValidation):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
