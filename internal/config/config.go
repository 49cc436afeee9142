package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"go-pos-inventory/internal/pricing"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Log       LogConfig
	Sale      SaleConfig
	Scheduler SchedulerConfig
	MongoDB   MongoDBConfig
}

type ServerConfig struct {
	Port    string
	AppName string
	Env     string
}

type DatabaseConfig struct {
	DSN          string
	MaxIdleConns int
	MaxOpenConns int
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// SessionIdle is how long a session may go without a heartbeat.
	SessionIdle time.Duration
	// AdminEmail and AdminPassword seed the first MASTER_ADMIN account.
	AdminEmail    string
	AdminPassword string
}

type LogConfig struct {
	Level string
	File  string
}

// SaleConfig tunes the checkout path.
type SaleConfig struct {
	MaxAttempts       int
	CommitTimeout     time.Duration
	TerminalNodeID    int64
	DefaultTaxPercent decimal.Decimal
}

type SchedulerConfig struct {
	Timezone           string
	ReportSchedule     string
	StockAlertSchedule string
}

// MongoDBConfig is optional; reports are archived only when URI is set.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// A missing .env is fine when the environment is set directly.
		_ = godotenv.Load()
	}

	var errs []error
	intVar := func(key string, def int) int {
		v, err := getenvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	durVar := func(key string, def time.Duration) time.Duration {
		v, err := getenvDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	tax, err := decimal.NewFromString(getenvWithDefault("DEFAULT_TAX_PERCENT", "0"))
	if err != nil {
		errs = append(errs, fmt.Errorf("DEFAULT_TAX_PERCENT: %w", err))
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:    getenvWithDefault("PORT", "3000"),
			AppName: getenvWithDefault("APP_NAME", "POS Inventory v1.0"),
			Env:     getenvWithDefault("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			DSN:          databaseDSN(),
			MaxIdleConns: intVar("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns: intVar("DB_MAX_OPEN_CONNS", 100),
		},
		Auth: AuthConfig{
			JWTSecret:     os.Getenv("JWT_SECRET"),
			TokenTTL:      durVar("JWT_TTL", 24*time.Hour),
			SessionIdle:   durVar("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			AdminEmail:    getenvWithDefault("ADMIN_EMAIL", "admin@example.com"),
			AdminPassword: getenvWithDefault("ADMIN_PASSWORD", "admin123"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
			File:  os.Getenv("LOG_FILE"),
		},
		Sale: SaleConfig{
			MaxAttempts:       intVar("SALE_MAX_ATTEMPTS", 3),
			CommitTimeout:     durVar("SALE_COMMIT_TIMEOUT", 10*time.Second),
			TerminalNodeID:    int64(intVar("TERMINAL_NODE_ID", 1)),
			DefaultTaxPercent: tax,
		},
		Scheduler: SchedulerConfig{
			Timezone:           getenvWithDefault("TIMEZONE", "UTC"),
			ReportSchedule:     getenvWithDefault("REPORT_CRON_SCHEDULE", "55 23 * * *"),
			StockAlertSchedule: getenvWithDefault("STOCK_ALERT_CRON_SCHEDULE", "0 * * * *"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "pos_reports"),
		},
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Port == "" {
		return errors.New("PORT must be provided")
	}
	if c.Database.DSN == "" {
		return errors.New("DATABASE_URL or DB_HOST/DB_NAME must be provided")
	}
	if c.Auth.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET must be provided in production")
		}
		c.Auth.JWTSecret = "dev-secret-change-me"
	}
	if c.Sale.MaxAttempts < 1 {
		return errors.New("SALE_MAX_ATTEMPTS must be at least 1")
	}
	if c.Sale.CommitTimeout <= 0 {
		return errors.New("SALE_COMMIT_TIMEOUT must be positive")
	}
	// snowflake supports 10 node bits
	if c.Sale.TerminalNodeID < 0 || c.Sale.TerminalNodeID > 1023 {
		return errors.New("TERMINAL_NODE_ID must be between 0 and 1023")
	}
	if err := pricing.CheckPercent(c.Sale.DefaultTaxPercent); err != nil {
		return fmt.Errorf("DEFAULT_TAX_PERCENT: %w", err)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func databaseDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	if os.Getenv("DB_HOST") == "" || os.Getenv("DB_NAME") == "" {
		return ""
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		getenvWithDefault("DB_PORT", "5432"),
		getenvWithDefault("DB_SSLMODE", "disable"),
		getenvWithDefault("TIMEZONE", "UTC"),
	)
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
