package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App       AppConfig
	Paths     PathsConfig
	Database  DatabaseConfig
	Scheduler SchedulerConfig
	Notify    NotifyConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasePath           string
	TrustedProxies     []string
	CorsAllowedOrigins []string
}

type PathsConfig struct {
	BaseDir string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string // File path for SQLite, DB name for Postgres

	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

type SchedulerConfig struct {
	DueInterval      time.Duration
	ExpiryInterval   time.Duration
	ReminderInterval time.Duration
	HistoryRetention time.Duration
	CleanupCronSpec  string
}

type NotifyConfig struct {
	WebhookURL string
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from a .env file (if present) and
// environment variables, applying defaults otherwise.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	baseDir := getEnv("APP_BASE_DIR", "storages")

	var trustedProxies []string
	if v := getEnv("APP_TRUSTED_PROXIES", ""); v != "" {
		trustedProxies = strings.Split(v, ",")
	}
	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	cfg := &Config{
		App: AppConfig{
			Version:            "v1.2.0",
			Port:               getEnv("APP_PORT", "3000"),
			Debug:              getEnvBool("APP_DEBUG", false),
			Environment:        getEnv("APP_ENV", "development"),
			BasePath:           getEnv("APP_BASE_PATH", ""),
			TrustedProxies:     trustedProxies,
			CorsAllowedOrigins: corsOrigins,
		},
		Paths: PathsConfig{
			BaseDir: baseDir,
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Name:            getEnv("DB_NAME", filepath.Join(baseDir, "scheduler.db")),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
			ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
			ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
			ValkeyDB:        getEnvInt("VALKEY_DB", 0),
			ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "sched:"),
		},
		Scheduler: SchedulerConfig{
			DueInterval:      getEnvDuration("SCHEDULER_DUE_INTERVAL", 60*time.Second),
			ExpiryInterval:   getEnvDuration("SCHEDULER_EXPIRY_INTERVAL", time.Hour),
			ReminderInterval: getEnvDuration("SCHEDULER_REMINDER_INTERVAL", 5*time.Minute),
			HistoryRetention: getEnvDuration("SCHEDULER_HISTORY_RETENTION", 90*24*time.Hour),
			CleanupCronSpec:  getEnv("SCHEDULER_CLEANUP_CRON", "0 3 * * *"),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	Global = cfg
	return cfg, nil
}
