package sms

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

// Handler wires HTTP endpoints for the sms module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	guard    auth.Middleware
}

// NewHandler constructs the sms handler.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), guard: guard}
}

// MountRoutes registers sms routes. The delivery callback is mounted
// separately because the provider calls it unauthenticated.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin, auth.RoleDentist, auth.RoleReceptionist))
		r.Get("/", h.list)
		r.Get("/templates", h.templates)
		r.Post("/send", h.send)
		r.Post("/bulk", h.bulkSend)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin))
		r.Post("/templates", h.createTemplate)
		r.Put("/templates/{id}", h.updateTemplate)
		r.Delete("/templates/{id}", h.deleteTemplate)
	})
}

// MountCallback registers the provider delivery report endpoint.
func (h *Handler) MountCallback(r chi.Router) {
	r.Post("/sms/delivery", h.deliveryReport)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r.URL.Query())
	out, pagination, err := h.service.ListMessages(r.Context(), filters)
	if err != nil {
		h.respondError(w, "list messages", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"messages":   out,
		"totalCount": pagination.TotalCount,
		"pagination": pagination,
	})
}

type sendForm struct {
	Recipient  string            `json:"recipient" validate:"required"`
	Body       string            `json:"body"`
	TemplateID string            `json:"template_id"`
	Vars       map[string]string `json:"vars"`
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var form sendForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := h.service.Send(r.Context(), form.Recipient, form.Body, form.TemplateID, form.Vars)
	if err != nil {
		h.respondError(w, "send message", err)
		return
	}
	httpx.OK(w, http.StatusAccepted, map[string]any{"message": msg})
}

type bulkForm struct {
	Recipients []string          `json:"recipients" validate:"required,min=1"`
	Body       string            `json:"body"`
	TemplateID string            `json:"template_id"`
	Vars       map[string]string `json:"vars"`
}

func (h *Handler) bulkSend(w http.ResponseWriter, r *http.Request) {
	var form bulkForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	results := h.service.BulkSend(r.Context(), form.Recipients, form.Body, form.TemplateID, form.Vars)
	httpx.OK(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) templates(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Templates(r.Context())
	if err != nil {
		h.respondError(w, "list templates", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"templates": out})
}

type templateForm struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category"`
	Body     string `json:"body" validate:"required"`
}

func (h *Handler) createTemplate(w http.ResponseWriter, r *http.Request) {
	var form templateForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	tpl, err := h.service.CreateTemplate(r.Context(), form.Name, form.Category, form.Body)
	if err != nil {
		h.respondError(w, "create template", err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"template": tpl})
}

func (h *Handler) updateTemplate(w http.ResponseWriter, r *http.Request) {
	var form templateForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	tpl, err := h.service.UpdateTemplate(r.Context(), chi.URLParam(r, "id"), form.Name, form.Category, form.Body)
	if err != nil {
		h.respondError(w, "update template", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"template": tpl})
}

func (h *Handler) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete template", err)
		return
	}
	httpx.OK(w, http.StatusOK, nil)
}

// deliveryReport accepts the provider's form-encoded delivery callback.
func (h *Handler) deliveryReport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid callback payload")
		return
	}
	gatewayID := r.PostFormValue("id")
	if gatewayID == "" {
		httpx.Fail(w, http.StatusBadRequest, "missing message id")
		return
	}
	if err := h.service.ConfirmDelivery(r.Context(), gatewayID); err != nil {
		h.respondError(w, "delivery report", err)
		return
	}
	httpx.OK(w, http.StatusOK, nil)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrMessageNotFound), errors.Is(err, ErrTemplateNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmptyBody), errors.Is(err, ErrNoRecipient):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, httpx.ErrValidation):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
