package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/novadent/novadent/internal/app"
	"github.com/novadent/novadent/internal/appointments"
	"github.com/novadent/novadent/internal/inventory"
	"github.com/novadent/novadent/internal/platform/db"
	"github.com/novadent/novadent/internal/shared"
	"github.com/novadent/novadent/internal/sms"
	"github.com/novadent/novadent/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	auditLogger := shared.NewAuditLogger(pool)

	// The worker delivers inline, no enqueuer, otherwise sms:send tasks
	// would requeue themselves forever.
	smsGateway := sms.NewClient(cfg.SMSBaseURL, cfg.SMSAPIKey, cfg.SMSUsername, cfg.SMSSenderID)
	smsRepo := sms.NewRepository(pool)
	smsService := sms.NewService(smsRepo, smsGateway, nil, auditLogger)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, nil, inventory.ServiceConfig{
		ExpiryWindowDays: cfg.ExpiryWindowDays,
	})

	appointmentsRepo := appointments.NewRepository(pool)

	smsSender := jobs.NewSMSSender(smsService, logger)
	reminder := jobs.NewAppointmentReminder(appointmentsRepo, smsService, logger)
	lowStock := jobs.NewLowStockScanner(inventoryService, smsService, cfg.SMSAlertPhone, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSMSSend, Handler: smsSender.Handle},
			{Type: jobs.TaskAppointmentsRemind, Handler: reminder.Handle},
			{Type: jobs.TaskInventoryLowStock, Handler: lowStock.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 16 * * *", Task: jobs.NewAppointmentsRemindTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 5 * * *", Task: jobs.NewInventoryLowStockTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
