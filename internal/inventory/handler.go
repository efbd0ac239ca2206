package inventory

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

// Handler wires HTTP endpoints for the inventory module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	guard    auth.Middleware
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), guard: guard}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin, auth.RoleDentist, auth.RoleReceptionist))
		r.Get("/", h.listItems)
		r.Get("/stats", h.stats)
		r.Get("/{id}", h.getItem)
		r.Get("/requisitions", h.listRequisitions)
		r.Post("/requisitions", h.createRequisition)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin, auth.RoleReceptionist))
		r.Post("/", h.createItem)
		r.Put("/{id}", h.updateItem)
		r.Delete("/{id}", h.deleteItem)
		r.Post("/{id}/restock", h.restock)
		r.Post("/bulk-restock", h.bulkRestock)
		r.Delete("/requisitions/{id}", h.deleteRequisition)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin))
		r.Post("/requisitions/{id}/approve", h.approveRequisition)
		r.Post("/requisitions/{id}/reject", h.rejectRequisition)
	})
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r.URL.Query(), "name", "category", "current_stock", "unit_price", "expiry_date", "created_at")
	items, pagination, err := h.service.ListItems(r.Context(), filters)
	if err != nil {
		h.respondError(w, "list items", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"items":      items,
		"totalCount": pagination.TotalCount,
		"pagination": pagination,
	})
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get item", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"item": item})
}

type itemForm struct {
	Name         string  `json:"name" validate:"required"`
	Category     string  `json:"category" validate:"required"`
	CurrentStock int     `json:"current_stock" validate:"gte=0"`
	MinStock     int     `json:"min_stock" validate:"gte=0"`
	MaxStock     int     `json:"max_stock" validate:"gte=0"`
	UnitPrice    float64 `json:"unit_price" validate:"gte=0"`
	Supplier     string  `json:"supplier"`
	ExpiryDate   string  `json:"expiry_date"`
}

func (f itemForm) toItem(id string) (Item, error) {
	item := Item{
		ID:           id,
		Name:         f.Name,
		Category:     Category(f.Category),
		CurrentStock: f.CurrentStock,
		MinStock:     f.MinStock,
		MaxStock:     f.MaxStock,
		UnitPrice:    f.UnitPrice,
		Supplier:     f.Supplier,
	}
	if f.ExpiryDate != "" {
		expiry, err := time.Parse("2006-01-02", f.ExpiryDate)
		if err != nil {
			return Item{}, errors.Join(errValidation, err)
		}
		item.ExpiryDate = &expiry
	}
	return item, nil
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var form itemForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := form.toItem("")
	if err != nil {
		h.respondError(w, "create item", err)
		return
	}
	created, err := h.service.CreateItem(r.Context(), item)
	if err != nil {
		h.respondError(w, "create item", err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"item": created})
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var form itemForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := form.toItem(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "update item", err)
		return
	}
	updated, err := h.service.UpdateItem(r.Context(), item)
	if err != nil {
		h.respondError(w, "update item", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"item": updated})
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete item", err)
		return
	}
	httpx.OK(w, http.StatusOK, nil)
}

func (h *Handler) restock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Quantity int `json:"quantity" validate:"required,gt=0"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.service.Restock(r.Context(), chi.URLParam(r, "id"), body.Quantity)
	if err != nil {
		h.respondError(w, "restock", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"item": item})
}

func (h *Handler) bulkRestock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []RestockRequest `json:"items" validate:"required,min=1,dive"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	results := h.service.BulkRestock(r.Context(), body.Items)
	httpx.OK(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.respondError(w, "stats", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"stats": stats})
}

func (h *Handler) listRequisitions(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r.URL.Query())
	reqs, pagination, err := h.service.ListRequisitions(r.Context(), filters)
	if err != nil {
		h.respondError(w, "list requisitions", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"requisitions": reqs,
		"totalCount":   pagination.TotalCount,
		"pagination":   pagination,
	})
}

type requisitionForm struct {
	RequestedBy string            `json:"requested_by" validate:"required"`
	Priority    string            `json:"priority"`
	Items       []RequisitionLine `json:"items" validate:"required,min=1"`
	Notes       string            `json:"notes"`
}

func (h *Handler) createRequisition(w http.ResponseWriter, r *http.Request) {
	var form requisitionForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.service.CreateRequisition(r.Context(), Requisition{
		RequestedBy: form.RequestedBy,
		Priority:    Priority(form.Priority),
		Lines:       form.Items,
		Notes:       form.Notes,
	})
	if err != nil {
		h.respondError(w, "create requisition", err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"requisition": created})
}

func (h *Handler) approveRequisition(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.ApproveRequisition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "approve requisition", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"requisition": req})
}

func (h *Handler) rejectRequisition(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.RejectRequisition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "reject requisition", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"requisition": req})
}

func (h *Handler) deleteRequisition(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRequisition(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete requisition", err)
		return
	}
	httpx.OK(w, http.StatusOK, nil)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrRequisitionNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errValidation), errors.Is(err, ErrInvalidQuantity):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrRequisitionDecided):
		httpx.Fail(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
