// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Server is the environment of the goenroll binaries.
type Server struct {
	HTTPAddr        string        `env:"GOENROLL_HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"GOENROLL_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"GOENROLL_CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	DBDriver          string        `env:"GOENROLL_DB_DRIVER" envDefault:"sqlite"`
	DBDSN             string        `env:"GOENROLL_DB_DSN" envDefault:"goenroll.db"`
	DBMaxOpenConns    int           `env:"GOENROLL_DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBConnMaxLifetime time.Duration `env:"GOENROLL_DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	DBLogLevel        string        `env:"GOENROLL_DB_LOG_LEVEL" envDefault:"warn"`

	// An empty RedisAddr starts an embedded in-memory Redis.
	RedisAddr     string `env:"GOENROLL_REDIS_ADDR"`
	RedisPassword string `env:"GOENROLL_REDIS_PASSWORD"`
	RedisDB       int    `env:"GOENROLL_REDIS_DB" envDefault:"0"`

	JWTSecret  string        `env:"GOENROLL_JWT_SECRET"`
	AccessTTL  time.Duration `env:"GOENROLL_ACCESS_TTL" envDefault:"5m"`
	RefreshTTL time.Duration `env:"GOENROLL_REFRESH_TTL" envDefault:"168h"`
	Issuer     string        `env:"GOENROLL_JWT_ISSUER" envDefault:"goenroll"`

	AuditLog           bool          `env:"GOENROLL_AUDIT_LOG" envDefault:"true"`
	MetricsAdminOnly   bool          `env:"GOENROLL_METRICS_ADMIN_ONLY" envDefault:"false"`
	OTelExporter       bool          `env:"GOENROLL_OTEL" envDefault:"false"`
	OTelReportInterval time.Duration `env:"GOENROLL_OTEL_REPORT_INTERVAL" envDefault:"1m"`
}

// Admin is the environment of the admin seeding command.
type Admin struct {
	Email       string `env:"GOENROLL_ADMIN_EMAIL" envDefault:"admin@example.com"`
	Password    string `env:"GOENROLL_ADMIN_PASSWORD" envDefault:"admin123"`
	FirstName   string `env:"GOENROLL_ADMIN_FIRST_NAME" envDefault:"Admin"`
	LastName    string `env:"GOENROLL_ADMIN_LAST_NAME" envDefault:"Superuser"`
	DateOfBirth string `env:"GOENROLL_ADMIN_DOB" envDefault:"1990-01-01"`
	PhoneNumber string `env:"GOENROLL_ADMIN_PHONE" envDefault:"+49 157 6543210"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadDotEnv reads the given .env files into the process environment without
// overriding variables that are already set. Missing files are not an error;
// loaded reports whether any file was read.
func LoadDotEnv(paths ...string) (loaded bool, err error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("load %s: %w", p, err)
		}
		loaded = true
	}
	return loaded, nil
}
