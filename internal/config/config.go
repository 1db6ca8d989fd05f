package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Finance      FinanceConfig
	Analytics    AnalyticsConfig
	Reconcile    ReconcileConfig
	Deduction    DeductionConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	TimeZone              string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	PoolSize  int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token verification parameters.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// NotificationConfig holds alerting endpoints. Email alerts go out through
// SendGrid only when an API key and a recipient are set.
type NotificationConfig struct {
	EmailFrom         string
	EmailFromName     string
	WebhookURL        string
	SendGridAPIKey    string
	FinanceAlertEmail string
}

// FinanceConfig points at the finance module's statement API.
type FinanceConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// AnalyticsConfig controls the dashboard cache.
type AnalyticsConfig struct {
	CacheTTLSeconds int
	CacheBackend    string
}

// ReconcileConfig schedules the finance reconciliation sweep.
type ReconcileConfig struct {
	Enabled bool
	Cron    string
}

// DeductionConfig caps booked liability per party type. A missing entry
// means no cap.
type DeductionConfig struct {
	Limits map[string]decimal.Decimal
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	limits, err := loadDeductionLimits()
	if err != nil {
		return nil, err
	}

	backend := strings.ToLower(getEnv("ANALYTICS_CACHE_BACKEND", "redis"))
	if backend != "redis" && backend != "memory" {
		return nil, fmt.Errorf("invalid ANALYTICS_CACHE_BACKEND %q", backend)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "aftersales-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			TimeZone:              getEnv("APP_TIME_ZONE", "UTC"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "aftersales:analytics"),
			PoolSize:  getEnvAsInt("REDIS_POOL_SIZE", 10),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:    os.Getenv("AUTH_JWT_ISSUER"),
		},
		Notification: NotificationConfig{
			EmailFrom:         getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			EmailFromName:     getEnv("NOTIFY_EMAIL_FROM_NAME", "After-Sales"),
			WebhookURL:        getEnv("NOTIFY_WEBHOOK_URL", ""),
			SendGridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
			FinanceAlertEmail: os.Getenv("NOTIFY_FINANCE_ALERT_EMAIL"),
		},
		Finance: FinanceConfig{
			BaseURL:        strings.TrimRight(os.Getenv("FINANCE_BASE_URL"), "/"),
			APIKey:         os.Getenv("FINANCE_API_KEY"),
			TimeoutSeconds: getEnvAsInt("FINANCE_TIMEOUT_SECONDS", 5),
		},
		Analytics: AnalyticsConfig{
			CacheTTLSeconds: getEnvAsInt("ANALYTICS_CACHE_TTL_SECONDS", 60),
			CacheBackend:    backend,
		},
		Reconcile: ReconcileConfig{
			Enabled: getEnvAsBool("RECONCILE_ENABLED", true),
			Cron:    getEnv("RECONCILE_CRON", "0 */15 * * * *"),
		},
		Deduction: DeductionConfig{Limits: limits},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves the business time zone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Timeout bounds a single finance call.
func (f FinanceConfig) Timeout() time.Duration {
	if f.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// CacheTTL returns the analytics cache lifetime.
func (a AnalyticsConfig) CacheTTL() time.Duration {
	if a.CacheTTLSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(a.CacheTTLSeconds) * time.Second
}

// Limit returns the cap for partyType if one is configured.
func (d DeductionConfig) Limit(partyType string) (decimal.Decimal, bool) {
	limit, ok := d.Limits[strings.ToUpper(partyType)]
	return limit, ok
}

var defaultDeductionLimits = map[string]string{
	"INSTALLER":   "5000",
	"LOGISTICS":   "20000",
	"SALESPERSON": "3000",
}

// loadDeductionLimits reads DEDUCTION_LIMIT_<PARTY> overrides on top of the
// defaults. A value of 0 removes the cap.
func loadDeductionLimits() (map[string]decimal.Decimal, error) {
	limits := make(map[string]decimal.Decimal)
	for party, raw := range defaultDeductionLimits {
		limits[party] = decimal.RequireFromString(raw)
	}
	for _, party := range []string{"FACTORY", "INSTALLER", "LOGISTICS", "CUSTOMER", "SALESPERSON", "OTHER"} {
		raw := os.Getenv("DEDUCTION_LIMIT_" + party)
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid DEDUCTION_LIMIT_%s: %w", party, err)
		}
		if !value.IsPositive() {
			delete(limits, party)
			continue
		}
		limits[party] = value
	}
	return limits, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
