package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Redis    RedisConfig
	Payroll  PayrollConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	CORSOrigins []string
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	LockTTL      time.Duration
	LockRetries  int
	LockRetryGap time.Duration
}

type PayrollConfig struct {
	AmendmentWindowDays     int
	ReconciliationTolerance decimal.Decimal
	RecalculationInterval   time.Duration
	RecalculationBatchSize  int
	// ProfessionalTaxSlabFile overrides the bundled state slab table when set.
	ProfessionalTaxSlabFile string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	} else if err != nil {
		slog.Debug("No .env file, using environment only")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	maxConns, err := getEnvInt("DB_MAX_CONNS", 25)
	if err != nil {
		return nil, err
	}
	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "payroll_engine"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
		MinConns: int32(minConns),
	}

	// Redis configuration
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	lockTTL, err := getEnvDuration("REDIS_LOCK_TTL", 10*time.Second)
	if err != nil {
		return nil, err
	}
	lockRetries, err := getEnvInt("REDIS_LOCK_RETRIES", 20)
	if err != nil {
		return nil, err
	}
	lockRetryGap, err := getEnvDuration("REDIS_LOCK_RETRY_GAP", 100*time.Millisecond)
	if err != nil {
		return nil, err
	}

	config.Redis = RedisConfig{
		Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           redisDB,
		LockTTL:      lockTTL,
		LockRetries:  lockRetries,
		LockRetryGap: lockRetryGap,
	}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvSlice("CORS_ORIGINS"),
	}

	accessTTL, err := getEnvDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	config.JWT = JWTConfig{
		Secret:         getEnv("JWT_SECRET_KEY", ""),
		AccessTokenTTL: accessTTL,
	}

	// Payroll configuration
	window, err := getEnvInt("PAYROLL_AMENDMENT_WINDOW_DAYS", 30)
	if err != nil {
		return nil, err
	}
	tolerance, err := decimal.NewFromString(getEnv("PAYROLL_RECONCILIATION_TOLERANCE", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_RECONCILIATION_TOLERANCE: %w", err)
	}
	interval, err := getEnvDuration("PAYROLL_RECALCULATION_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	batch, err := getEnvInt("PAYROLL_RECALCULATION_BATCH", 100)
	if err != nil {
		return nil, err
	}

	config.Payroll = PayrollConfig{
		AmendmentWindowDays:     window,
		ReconciliationTolerance: tolerance,
		RecalculationInterval:   interval,
		RecalculationBatchSize:  batch,
		ProfessionalTaxSlabFile: getEnv("PAYROLL_PT_SLAB_FILE", ""),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Payroll.AmendmentWindowDays <= 0 {
		return fmt.Errorf("PAYROLL_AMENDMENT_WINDOW_DAYS must be positive")
	}
	if c.Payroll.ReconciliationTolerance.IsNegative() {
		return fmt.Errorf("PAYROLL_RECONCILIATION_TOLERANCE must not be negative")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) AmendmentWindow() time.Duration {
	return time.Duration(c.Payroll.AmendmentWindowDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
