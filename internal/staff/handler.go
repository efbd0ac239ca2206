package staff

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/novadent/novadent/internal/auth"
	"github.com/novadent/novadent/internal/platform/httpx"
)

// Handler wires HTTP endpoints for staff profiles.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	guard    auth.Middleware
}

// NewHandler constructs the staff handler.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), guard: guard}
}

// MountRoutes registers staff profile routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin, auth.RoleDentist, auth.RoleReceptionist))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.List(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		h.respondError(w, "list profiles", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"profiles": profiles})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get profile", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"profile": profile})
}

type profileForm struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" validate:"required"`
	Phone     string `json:"phone"`
	Specialty string `json:"specialty"`
	Password  string `json:"password"`
	IsActive  *bool  `json:"is_active"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form profileForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), Profile{
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Role:      form.Role,
		Phone:     form.Phone,
		Specialty: form.Specialty,
	}, form.Password)
	if err != nil {
		h.respondError(w, "create profile", err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"profile": created})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var form profileForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	profile := Profile{
		ID:        chi.URLParam(r, "id"),
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Role:      form.Role,
		Phone:     form.Phone,
		Specialty: form.Specialty,
		IsActive:  true,
	}
	if form.IsActive != nil {
		profile.IsActive = *form.IsActive
	}
	updated, err := h.service.Update(r.Context(), profile)
	if err != nil {
		h.respondError(w, "update profile", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"profile": updated})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete profile", err)
		return
	}
	httpx.OK(w, http.StatusOK, nil)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrProfileNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmailTaken):
		httpx.Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, httpx.ErrValidation):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
