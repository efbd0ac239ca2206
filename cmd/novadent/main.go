package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/novadent/novadent/internal/app"
	"github.com/novadent/novadent/internal/appointments"
	"github.com/novadent/novadent/internal/auth"
	"github.com/novadent/novadent/internal/billing"
	"github.com/novadent/novadent/internal/dashboard"
	"github.com/novadent/novadent/internal/inventory"
	"github.com/novadent/novadent/internal/observability"
	"github.com/novadent/novadent/internal/patients"
	"github.com/novadent/novadent/internal/platform/cache"
	"github.com/novadent/novadent/internal/platform/db"
	"github.com/novadent/novadent/internal/shared"
	"github.com/novadent/novadent/internal/sms"
	"github.com/novadent/novadent/internal/staff"
	"github.com/novadent/novadent/internal/visits"
	"github.com/novadent/novadent/jobs"
	"github.com/novadent/novadent/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessions := auth.NewSessions(redisClient, cfg.SessionSecret, cfg.SessionTTL)
	guard := auth.Middleware{Logger: logger}
	auditLogger := shared.NewAuditLogger(pool)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, sessions)
	authHandler := auth.NewHandler(logger, authService)

	staffRepo := staff.NewRepository(pool)
	staffService := staff.NewService(staffRepo)
	staffHandler := staff.NewHandler(logger, staffService, guard)

	patientsRepo := patients.NewRepository(pool)
	patientsService := patients.NewService(patientsRepo, auditLogger)
	patientsHandler := patients.NewHandler(logger, patientsService, guard)

	smsGateway := sms.NewClient(cfg.SMSBaseURL, cfg.SMSAPIKey, cfg.SMSUsername, cfg.SMSSenderID)
	smsRepo := sms.NewRepository(pool)
	smsService := sms.NewService(smsRepo, smsGateway, jobClient, auditLogger)
	smsHandler := sms.NewHandler(logger, smsService, guard)

	stockWatcher := jobs.NewStockWatcher(jobClient, 2*time.Second, logger)
	defer stockWatcher.Stop()

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, stockWatcher, inventory.ServiceConfig{
		ExpiryWindowDays: cfg.ExpiryWindowDays,
	})
	inventoryHandler := inventory.NewHandler(logger, inventoryService, guard)

	confirmations := jobs.NewConfirmationNotifier(smsService)
	appointmentsRepo := appointments.NewRepository(pool)
	appointmentsService := appointments.NewService(appointmentsRepo, auditLogger, patientsService, confirmations)
	appointmentsHandler := appointments.NewHandler(logger, appointmentsService, guard)

	visitsRepo := visits.NewRepository(pool)
	visitsService := visits.NewService(visitsRepo, auditLogger, patientsService)
	visitsHandler := visits.NewHandler(logger, visitsService, guard)

	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(billingRepo, auditLogger)
	billingHandler := billing.NewHandler(logger, billingService, guard)

	// Invoice PDFs stay disabled when the converter is down; everything
	// else keeps serving.
	reportClient := report.NewClient(cfg.GotenbergURL)
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := reportClient.Ping(pingCtx); err != nil {
		logger.Warn("gotenberg unreachable, invoice PDFs disabled", slog.Any("error", err))
	} else {
		billingHandler.SetPDFRenderer(report.NewInvoiceRenderer(reportClient))
	}
	cancelPing()

	statsCache := dashboard.NewCache(redisClient, cfg.StatsCacheTTL)
	if err := statsCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
	dashboardService := dashboard.NewService(patientsService, appointmentsService, billingService, inventoryService, statsCache)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService, guard)

	// Every mutation writes an audit entry, so the audit hook is the one
	// place that can invalidate the dashboard summary for all modules.
	auditLogger.AfterRecord = func(ctx context.Context) {
		if err := dashboardService.Invalidate(ctx); err != nil {
			logger.Warn("dashboard invalidate", slog.Any("error", err))
		}
	}

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Sessions:            sessions,
		AuthHandler:         authHandler,
		StaffHandler:        staffHandler,
		PatientsHandler:     patientsHandler,
		AppointmentsHandler: appointmentsHandler,
		VisitsHandler:       visitsHandler,
		BillingHandler:      billingHandler,
		InventoryHandler:    inventoryHandler,
		SMSHandler:          smsHandler,
		DashboardHandler:    dashboardHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
