// Package config loads application configuration from environment
// variables. No other package reads env vars directly. Defaults suit local
// development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Session storage backends.
const (
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config holds all application configuration. Populated at startup and
// passed to other packages by injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL of the front end.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	// Empty picks debug in development and info otherwise.
	LogLevel string

	// TrustedProxies lists the CIDRs whose forwarding headers are believed.
	TrustedProxies []string

	Backend  BackendConfig
	Session  SessionConfig
	Redis    RedisConfig
	Database DatabaseConfig
}

// BackendConfig points at the REST API that owns all business logic.
type BackendConfig struct {
	// URL is the API origin, e.g. "http://localhost:5000".
	URL string

	// Timeout bounds every backend call.
	Timeout time.Duration
}

// SessionConfig controls where session records live and how they are sealed.
type SessionConfig struct {
	// Storage is "redis" (shared across instances) or "memory" (single
	// process, development only).
	Storage string

	// TTL is how long a persisted record survives without being rewritten.
	// It stands in for the lifetime of the browsing session.
	TTL time.Duration

	// SecretKey seals the persisted record.
	SecretKey string
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// DatabaseConfig holds MariaDB connection parameters for the language
// preference table. Host, User, Password and Name come from separate env
// vars; DATABASE_URL, when set, wins.
type DatabaseConfig struct {
	// Enabled turns on database-backed language preferences. Without it the
	// preference lives in a cookie only.
	Enabled bool

	// Host is the MariaDB address in host:port form. A missing port
	// becomes 3306.
	Host string

	User     string
	Password string
	Name     string

	dsnOverride string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. The driver's
// FormatDSN escapes special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if host doesn't include one.
func ensurePort(host, defaultPort string) string {
	if _, _, err := net.SplitHostPort(host); err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// Load reads configuration from the environment. It fails on values that
// cannot work at all and, in production, on a missing or short secret.
func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "development"),
		Port:           getEnvInt("PORT", 8080),
		BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "")),
		TrustedProxies: getEnvList("TRUSTED_PROXIES", []string{"127.0.0.1/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "::1/128"}),

		Backend: BackendConfig{
			URL:     strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:5000"), "/"),
			Timeout: getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		},

		Session: SessionConfig{
			Storage:   strings.ToLower(getEnv("SESSION_STORAGE", StorageRedis)),
			TTL:       getEnvDuration("SESSION_TTL", 24*time.Hour),
			SecretKey: getEnv("SECRET_KEY", ""),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Database: DatabaseConfig{
			Enabled:         getEnvBool("PREFERENCES_DB", false),
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "ledger"),
			Password:        getEnv("DB_PASSWORD", "ledger"),
			Name:            getEnv("DB_NAME", "ledger"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
	}

	switch cfg.Session.Storage {
	case StorageRedis, StorageMemory:
	default:
		return nil, fmt.Errorf("SESSION_STORAGE must be %q or %q, got %q",
			StorageRedis, StorageMemory, cfg.Session.Storage)
	}
	if cfg.Session.TTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}

	if !cfg.IsDevelopment() {
		if cfg.Session.SecretKey == "" {
			return nil, fmt.Errorf("SECRET_KEY is required in production")
		}
		if len(cfg.Session.SecretKey) < 32 {
			return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
		}
	}

	// Dev-only default so local runs work without a .env file.
	if cfg.Session.SecretKey == "" {
		cfg.Session.SecretKey = "dev-secret-key-do-not-use-in-production!!"
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "24h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var. Empty items are dropped.
func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
