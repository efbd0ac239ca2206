package appointments

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

// Handler wires HTTP endpoints for the appointments module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	guard    auth.Middleware
}

// NewHandler constructs the appointments handler.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), guard: guard}
}

// MountRoutes registers appointment routes. All staff roles can read and
// manage the schedule; deletion is kept to admins.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin, auth.RoleDentist, auth.RoleReceptionist))
		r.Get("/", h.list)
		r.Get("/day", h.day)
		r.Get("/stats", h.stats)
		r.Get("/{id}", h.get)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Post("/{id}/status", h.transition)
		r.Post("/{id}/cancel", h.cancel)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin))
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r.URL.Query(), "appt_date", "patient_name", "dentist_name", "status", "created_at")
	out, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, "list appointments", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"appointments": out,
		"totalCount":   pagination.TotalCount,
		"pagination":   pagination,
	})
}

func (h *Handler) day(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}
	out, err := h.service.Day(r.Context(), day, r.URL.Query().Get("dentist"))
	if err != nil {
		h.respondError(w, "day schedule", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"appointments": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get appointment", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"appointment": appt})
}

type appointmentForm struct {
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"`
	DentistName string `json:"dentist_name" validate:"required"`
	Date        string `json:"date" validate:"required"`
	Time        string `json:"time"`
	Treatment   string `json:"treatment"`
	DurationMin int    `json:"duration" validate:"gte=0"`
	Notes       string `json:"notes"`
	PhoneNumber string `json:"phone"`
}

func (f appointmentForm) toAppointment(id string) (Appointment, error) {
	date, err := time.Parse("2006-01-02", f.Date)
	if err != nil {
		return Appointment{}, err
	}
	return Appointment{
		ID:          id,
		PatientID:   f.PatientID,
		PatientName: f.PatientName,
		DentistName: f.DentistName,
		Date:        date,
		Time:        f.Time,
		Treatment:   f.Treatment,
		DurationMin: f.DurationMin,
		Notes:       f.Notes,
		PhoneNumber: f.PhoneNumber,
	}, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	appt, ok := h.decodeForm(w, r, "")
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), appt)
	if err != nil {
		h.respondError(w, "create appointment", err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"appointment": created})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	appt, ok := h.decodeForm(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	updated, err := h.service.Update(r.Context(), appt)
	if err != nil {
		h.respondError(w, "update appointment", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"appointment": updated})
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request, id string) (Appointment, bool) {
	var form appointmentForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return Appointment{}, false
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return Appointment{}, false
	}
	appt, err := form.toAppointment(id)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return Appointment{}, false
	}
	return appt, true
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	var form struct {
		Status Status `json:"status" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	appt, err := h.service.Transition(r.Context(), chi.URLParam(r, "id"), form.Status)
	if err != nil {
		h.respondError(w, "transition appointment", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"appointment": appt})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	appt, err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "cancel appointment", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"appointment": appt})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete appointment", err)
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
	case errors.Is(err, ErrAppointmentNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, httpx.ErrValidation):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
