package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/novadent/novadent/internal/appointments"
	"github.com/novadent/novadent/internal/auth"
	"github.com/novadent/novadent/internal/billing"
	"github.com/novadent/novadent/internal/dashboard"
	"github.com/novadent/novadent/internal/inventory"
	"github.com/novadent/novadent/internal/observability"
	"github.com/novadent/novadent/internal/patients"
	"github.com/novadent/novadent/internal/sms"
	"github.com/novadent/novadent/internal/staff"
	"github.com/novadent/novadent/internal/visits"
	"github.com/novadent/novadent/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	Sessions            SessionLoader
	AuthHandler         *auth.Handler
	StaffHandler        *staff.Handler
	PatientsHandler     *patients.Handler
	AppointmentsHandler *appointments.Handler
	VisitsHandler       *visits.Handler
	BillingHandler      *billing.Handler
	InventoryHandler    *inventory.Handler
	SMSHandler          *sms.Handler
	DashboardHandler    *dashboard.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with novadent defaults. All business
// routes live under /api/v1; health, metrics and provider callbacks sit at
// the root.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Sessions: params.Sessions,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if params.AuthHandler != nil {
			api.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.StaffHandler != nil {
			api.Route("/profiles", params.StaffHandler.MountRoutes)
		}
		if params.PatientsHandler != nil {
			api.Route("/patients", params.PatientsHandler.MountRoutes)
		}
		if params.AppointmentsHandler != nil {
			api.Route("/appointments", params.AppointmentsHandler.MountRoutes)
		}
		if params.VisitsHandler != nil {
			api.Route("/visits", params.VisitsHandler.MountRoutes)
		}
		if params.BillingHandler != nil {
			api.Route("/invoices", params.BillingHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			api.Route("/inventory", params.InventoryHandler.MountRoutes)
		}
		if params.SMSHandler != nil {
			api.Route("/sms", params.SMSHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			api.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	// Provider callbacks are unauthenticated and sit outside /api/v1.
	if params.SMSHandler != nil {
		r.Route("/callbacks", params.SMSHandler.MountCallback)
	}

	return r
}
