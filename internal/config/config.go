// Package config reads process configuration from environment variables,
// falling back to local-development defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config is passed explicitly to every component that needs it.
type Config struct {
	// Server
	Port            string
	BaseURL         string
	ShutdownTimeout time.Duration

	// Persistence
	Storage  string
	Database DatabaseConfig
	RedisURL string
	SeedFile string

	// Mail
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	MailFromName string

	// Fulfillment
	NotifyAsync       bool
	PaymentDeclineAll bool
	CertificateIssuer string

	// Logging
	LogLevel  string
	LogFormat string
}

// MinDBConns is the number of connections the pool keeps open; DB_MAX_CONNS
// may not be lower.
const MinDBConns = 2

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

// DSN builds a libpq-compatible connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// SMTPAddr is the host:port pair handed to the mail client.
func (c *Config) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
}

// Load reads the configuration from the environment.
func Load() *Config {
	mailFrom := getEnv("MAIL_FROM", "noreply@example.com")
	return &Config{
		Port:            getEnv("PORT", "8080"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", "10s"),

		Storage: getEnv("STORAGE", StoragePostgres),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ticketing"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 20)),
		},
		RedisURL: getEnv("REDIS_URL", ""),
		SeedFile: getEnv("SEED_FILE", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     mailFrom,
		MailFromName: getEnv("MAIL_FROM_NAME", "Event Tickets"),

		NotifyAsync:       getEnvAsBool("NOTIFY_ASYNC", false),
		PaymentDeclineAll: getEnvAsBool("PAYMENT_DECLINE_ALL", false),
		CertificateIssuer: getEnv("CERTIFICATE_ISSUER", mailFrom),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate rejects combinations the process cannot start with.
func (c *Config) Validate() error {
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Storage == StoragePostgres && c.Database.MaxConns < MinDBConns {
		return fmt.Errorf("DB_MAX_CONNS must be at least %d, got %d", MinDBConns, c.Database.MaxConns)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvAsDuration(key string, fallback string) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, fallback)); err == nil {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}
