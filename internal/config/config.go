package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName   string
	AppEnv    string
	Port      string
	PublicURL string // base URL used to build externally-resolvable report links

	// Database
	DBDriver       string
	DBConnection   string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnLifetime time.Duration
	DBConnIdleTime time.Duration

	// Security
	JWTSecret    string
	APISecretKey string // x-api-key for system-to-system routes (workflow engine, cleanup)

	// HTTP
	CORSOrigin      string
	RateLimitWindow time.Duration
	RateLimitMax    int
	MaxBodyBytes    int64

	// Storage (local | s3 | cloudinary)
	StorageType string
	StoragePath string // local backend root directory

	// Storage - S3-compatible (AWS S3, MinIO, DO Spaces, Cloudflare R2, etc.)
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string // optional: for non-AWS providers
	S3CDNURL    string // optional: CDN base URL in front of the bucket

	// Storage - Cloudinary
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Report lifecycle
	ReportTTL      time.Duration // expires_at = created_at + TTL
	PurgeRetention time.Duration // soft-deleted rows older than this are purged
	ReminderWindow time.Duration // reports expiring within this window get a reminder

	// Scheduler (cron expressions)
	CleanupSchedule  string
	ReminderSchedule string
	HealthSchedule   string
	CronTimezone     string

	// Observability (optional)
	SentryDSN string
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:   envString("APP_NAME", "LeadIO"),
		AppEnv:    envRequired("APP_ENV"), // Required: 'development' or 'production'
		Port:      envString("PORT", "3001"),
		PublicURL: envString("PUBLIC_URL", "http://localhost:3001"),

		// Database
		DBDriver:       envString("DB_DRIVER", "pgx"),
		DBConnection:   envRequired("DATABASE_URL"),
		DBMaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 5),
		DBConnLifetime: envDuration("DB_CONN_LIFETIME", 5*time.Minute),
		DBConnIdleTime: envDuration("DB_CONN_IDLE_TIME", 30*time.Second),

		// Security
		JWTSecret:    envRequired("JWT_SECRET"),
		APISecretKey: envRequired("API_SECRET_KEY"),

		// HTTP
		CORSOrigin:      envString("CORS_ORIGIN", "http://localhost:5173"),
		RateLimitWindow: envDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitMax:    envInt("RATE_LIMIT_MAX_REQUESTS", 100),
		MaxBodyBytes:    int64(envInt("MAX_BODY_BYTES", 10<<20)), // report HTML payloads

		// Storage
		StorageType: envString("STORAGE_TYPE", "local"),
		StoragePath: envString("STORAGE_PATH", "./data/reports"),

		S3Region:    envString("S3_REGION", ""),
		S3Bucket:    envString("S3_BUCKET", ""),
		S3AccessKey: envString("S3_ACCESS_KEY", ""),
		S3SecretKey: envString("S3_SECRET_KEY", ""),
		S3Endpoint:  envString("S3_ENDPOINT", ""),
		S3CDNURL:    envString("S3_CDN_URL", ""),

		CloudinaryCloudName: envString("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    envString("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: envString("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    envString("CLOUDINARY_FOLDER", "leadio/reports"),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "LeadIO SEO <reports@leadio.ai>"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Report lifecycle
		ReportTTL:      envDuration("REPORT_TTL", 30*24*time.Hour),
		PurgeRetention: envDuration("PURGE_RETENTION", 7*24*time.Hour),
		ReminderWindow: envDuration("REMINDER_WINDOW", 3*24*time.Hour),

		// Scheduler
		CleanupSchedule:  envString("CLEANUP_SCHEDULE", "0 2 * * *"),
		ReminderSchedule: envString("REMINDER_SCHEDULE", "0 9 * * *"),
		HealthSchedule:   envString("HEALTH_SCHEDULE", "0 * * * *"),
		CronTimezone:     envString("CRON_TIMEZONE", "Asia/Taipei"),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures all required services are configured for production
// deployments. Development allows email to fall back to log mode.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
	if cfg.StorageType == "s3" && (cfg.S3Bucket == "" || cfg.S3Region == "") {
		slog.Error("STORAGE_TYPE=s3 requires S3_BUCKET and S3_REGION")
		os.Exit(1)
	}
	if cfg.StorageType == "cloudinary" && cfg.CloudinaryCloudName == "" {
		slog.Error("STORAGE_TYPE=cloudinary requires CLOUDINARY_CLOUD_NAME")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
