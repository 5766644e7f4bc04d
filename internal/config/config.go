// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Server
	Env               string
	Port              string
	RequestTimeout    time.Duration
	CORSAllowedOrigin string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Login lockout
	LoginMaxAttempts int
	LoginLockout     time.Duration

	// Scheduled publishing
	PipelineAPIKey string

	// Report notifications; empty URL disables them
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}

var (
	appConfig *Config
	mu        sync.Mutex
)

// defaults are applied before the environment is consulted.
var defaults = map[string]any{
	"ENV":                 "development",
	"PORT":                "8080",
	"REQUEST_TIMEOUT":     "15s",
	"CORS_ALLOWED_ORIGIN": "*",
	"DB_HOST":             "localhost",
	"DB_PORT":             "5432",
	"DB_USER":             "ledgerbook",
	"DB_PASSWORD":         "ledgerbook",
	"DB_NAME":             "ledgerbook",
	"DB_SSLMODE":          "disable",
	"JWT_SECRET":          "fallback-secret-key-for-dev-only",
	"JWT_ACCESS_TTL":      "15m",
	"JWT_REFRESH_TTL":     "168h",
	"LOGIN_MAX_ATTEMPTS":  5,
	"LOGIN_LOCKOUT":       "15m",
	"PIPELINE_API_KEY":    "",
	"AMQP_URL":            "",
	"AMQP_EXCHANGE":       "ledgerbook",
	"AMQP_ROUTING_KEY":    "report.published",
}

// Load loads configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{
		Env:               v.GetString("ENV"),
		Port:              v.GetString("PORT"),
		CORSAllowedOrigin: v.GetString("CORS_ALLOWED_ORIGIN"),

		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),

		JWTSecret: v.GetString("JWT_SECRET"),

		PipelineAPIKey: v.GetString("PIPELINE_API_KEY"),

		AMQPURL:        v.GetString("AMQP_URL"),
		AMQPExchange:   v.GetString("AMQP_EXCHANGE"),
		AMQPRoutingKey: v.GetString("AMQP_ROUTING_KEY"),
	}

	var err error
	if cfg.RequestTimeout, err = parseDuration(v, "REQUEST_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.AccessTokenTTL, err = parseDuration(v, "JWT_ACCESS_TTL"); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = parseDuration(v, "JWT_REFRESH_TTL"); err != nil {
		return nil, err
	}
	if cfg.LoginLockout, err = parseDuration(v, "LOGIN_LOCKOUT"); err != nil {
		return nil, err
	}
	attempts, err := strconv.Atoi(v.GetString("LOGIN_MAX_ATTEMPTS"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_MAX_ATTEMPTS %q: %w", v.GetString("LOGIN_MAX_ATTEMPTS"), err)
	}
	cfg.LoginMaxAttempts = attempts

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mu.Lock()
	appConfig = cfg
	mu.Unlock()
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid PORT %q: must be between 1 and 65535", c.Port))
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET must not be empty")
	}
	if c.Env == "production" && c.JWTSecret == defaults["JWT_SECRET"] {
		problems = append(problems, "JWT_SECRET must be set in production")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		problems = append(problems, "token TTLs must be positive")
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, "REQUEST_TIMEOUT must be positive")
	}
	if c.LoginMaxAttempts < 1 {
		problems = append(problems, "LOGIN_MAX_ATTEMPTS must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DSN returns the PostgreSQL connection string used by GORM.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// MigrationURL returns the postgres:// URL used by golang-migrate.
func (c *Config) MigrationURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Get returns the application configuration, loading it on first use.
func Get() *Config {
	mu.Lock()
	cfg := appConfig
	mu.Unlock()
	if cfg != nil {
		return cfg
	}

	cfg, err := Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

// Set replaces the active configuration. Used by tests and the CLI.
func Set(cfg *Config) {
	mu.Lock()
	appConfig = cfg
	mu.Unlock()
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
