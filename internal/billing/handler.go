package billing

import (
	"context"
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

// PDFRenderer renders an invoice with its payment history into a printable
// PDF document.
type PDFRenderer interface {
	RenderInvoice(ctx context.Context, inv Invoice, payments []Payment) ([]byte, error)
}

// Handler wires HTTP endpoints for the billing module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	guard    auth.Middleware
	pdf      PDFRenderer
}

// NewHandler constructs the billing handler.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), guard: guard}
}

// SetPDFRenderer enables the invoice PDF endpoint.
func (h *Handler) SetPDFRenderer(renderer PDFRenderer) {
	h.pdf = renderer
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin, auth.RoleDentist, auth.RoleReceptionist))
		r.Get("/", h.list)
		r.Get("/stats", h.stats)
		r.Get("/{id}", h.get)
		r.Get("/{id}/pdf", h.pdfExport)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(auth.RoleAdmin, auth.RoleReceptionist))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/payments", h.recordPayment)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r.URL.Query())
	invoices, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, "list invoices", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"invoices":   invoices,
		"totalCount": pagination.TotalCount,
		"pagination": pagination,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	inv, payments, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get invoice", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"invoice": inv, "payments": payments})
}

type invoiceForm struct {
	PatientID   string      `json:"patient_id" validate:"required"`
	PatientName string      `json:"patient_name"`
	DentistID   string      `json:"dentist_id"`
	DentistName string      `json:"dentist_name"`
	Date        string      `json:"date"`
	Treatments  []Treatment `json:"treatments" validate:"required,min=1"`
	Discount    float64     `json:"discount" validate:"gte=0,lte=100"`
	Tax         float64     `json:"tax" validate:"gte=0,lte=100"`
	DueDate     string      `json:"due_date"`
	Notes       string      `json:"notes"`
}

func (f invoiceForm) toInvoice(id string) (Invoice, error) {
	inv := Invoice{
		ID:          id,
		PatientID:   f.PatientID,
		PatientName: f.PatientName,
		DentistID:   f.DentistID,
		DentistName: f.DentistName,
		Treatments:  f.Treatments,
		DiscountPct: f.Discount,
		TaxPct:      f.Tax,
		Notes:       f.Notes,
	}
	if f.Date != "" {
		date, err := time.Parse("2006-01-02", f.Date)
		if err != nil {
			return Invoice{}, errors.Join(httpx.ErrValidation, err)
		}
		inv.Date = date
	}
	if f.DueDate != "" {
		due, err := time.Parse("2006-01-02", f.DueDate)
		if err != nil {
			return Invoice{}, errors.Join(httpx.ErrValidation, err)
		}
		inv.DueDate = &due
	}
	return inv, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form invoiceForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	inv, err := form.toInvoice("")
	if err != nil {
		h.respondError(w, "create invoice", err)
		return
	}
	created, err := h.service.Create(r.Context(), inv)
	if err != nil {
		h.respondError(w, "create invoice", err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"invoice": created})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var form invoiceForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	inv, err := form.toInvoice(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "update invoice", err)
		return
	}
	updated, err := h.service.Update(r.Context(), inv)
	if err != nil {
		h.respondError(w, "update invoice", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"invoice": updated})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete invoice", err)
		return
	}
	httpx.OK(w, http.StatusOK, nil)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount float64 `json:"amount" validate:"required,gt=0"`
		Method string  `json:"method"`
		Note   string  `json:"note"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	inv, err := h.service.RecordPayment(r.Context(), chi.URLParam(r, "id"), body.Amount, body.Method, body.Note)
	if err != nil {
		h.respondError(w, "record payment", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"invoice": inv})
}

func (h *Handler) pdfExport(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Fail(w, http.StatusNotImplemented, "pdf export is not configured")
		return
	}
	inv, payments, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get invoice", err)
		return
	}
	pdf, err := h.pdf.RenderInvoice(r.Context(), inv, payments)
	if err != nil {
		h.logger.Error("render invoice pdf", slog.Any("error", err))
		httpx.Fail(w, http.StatusBadGateway, "pdf renderer unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename="+inv.InvoiceNumber+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
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
	case errors.Is(err, ErrInvoiceNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, httpx.ErrValidation), errors.Is(err, ErrInvalidAmount):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAlreadyPaid):
		httpx.Fail(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
