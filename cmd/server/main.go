package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/leadio/leadio-server/internal/app"
	"github.com/leadio/leadio-server/internal/config"
	"github.com/leadio/leadio-server/internal/logger"
	"github.com/leadio/leadio-server/internal/routes"
	"github.com/leadio/leadio-server/internal/scheduler"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

	app, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		panic(err)
	}
	defer func() {
		closeErr := app.Close()
		if closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	sched := scheduler.New(cfg.CronTimezone)
	registerJobs(sched, cfg, app)
	sched.Start()
	defer sched.Stop()

	handler := routes.SetupRoutes(app)
	slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv, "storage", app.Storage.Name(), "url", "http://localhost:"+cfg.Port)

	err = http.ListenAndServe(":"+cfg.Port, handler)
	if err != nil {
		slog.Error("server failed", "error", err)
		panic(err)
	}
}

func registerJobs(sched *scheduler.Scheduler, cfg *config.Config, app *app.App) {
	jobs := []scheduler.Job{
		{
			Name: "report-cleanup",
			Spec: cfg.CleanupSchedule,
			Run: func(ctx context.Context) {
				_, err := app.CleanupService.ExpireCycle(ctx)
				if err != nil {
					slog.Error("expire cycle failed", "error", err)
				}
				_, err = app.CleanupService.PurgeCycle(ctx)
				if err != nil {
					slog.Error("purge cycle failed", "error", err)
				}
			},
		},
		{
			Name: "expiration-reminders",
			Spec: cfg.ReminderSchedule,
			Run: func(ctx context.Context) {
				_, err := app.CleanupService.ReminderCycle(ctx)
				if err != nil {
					slog.Error("reminder cycle failed", "error", err)
				}
			},
		},
		{
			Name: "health-snapshot",
			Spec: cfg.HealthSchedule,
			Run:  app.CleanupService.HealthSnapshot,
		},
	}

	for _, job := range jobs {
		err := sched.Register(job)
		if err != nil {
			slog.Error("failed to register scheduled job", "error", err, "job", job.Name)
			panic(err)
		}
	}
}
