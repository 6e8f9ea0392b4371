package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/leadio/leadio-server/internal/config"
	"github.com/leadio/leadio-server/internal/db"
	"github.com/leadio/leadio-server/internal/repository"
	"github.com/leadio/leadio-server/internal/service"
	"github.com/leadio/leadio-server/internal/storage"
)

type App struct {
	Cfg            *config.Config
	DB             *sqlx.DB
	Storage        storage.Backend
	AuthService    *service.AuthService
	EmailService   *service.EmailService
	ReportService  *service.ReportService
	CleanupService *service.CleanupService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection, db.Pool{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		ConnLifetime: cfg.DBConnLifetime,
		ConnIdleTime: cfg.DBConnIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	reportRepository := repository.NewReportRepository(database, cfg.ReportTTL)

	// Storage
	reportStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}

	// Services
	emailService := service.NewEmailService(cfg.ResendAPIKey, cfg.EmailFrom, cfg.IsDevelopment())
	authService := service.NewAuthService(cfg.JWTSecret)
	reportService := service.NewReportService(reportRepository, reportStorage, emailService)
	cleanupService := service.NewCleanupService(reportRepository, reportStorage, cfg.PurgeRetention, cfg.ReminderWindow)

	return &App{
		Cfg:            cfg,
		DB:             database,
		Storage:        reportStorage,
		AuthService:    authService,
		EmailService:   emailService,
		ReportService:  reportService,
		CleanupService: cleanupService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
