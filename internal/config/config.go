// Package config loads server configuration from the process environment.
//
// An optional .env file in the working directory is read first so local
// development does not need exported variables. Values already present in the
// environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every tunable the API server reads at startup.
type Config struct {
	// Port the HTTP server listens on.
	Port string `env:"PORT" envDefault:"8080"`

	// Env is "production" or anything else (treated as development).
	Env string `env:"ENV" envDefault:"development"`

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"5"`

	// MigrationsPath is a golang-migrate source URL.
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"file://migrations"`

	// JWTSecret verifies HS256 session tokens issued by the auth provider.
	JWTSecret string `env:"AUTH_JWT_SECRET,required,notEmpty"`
	// JWTIssuer, when set, must match the token's iss claim.
	JWTIssuer string `env:"AUTH_JWT_ISSUER"`

	// AllowedOrigins is a comma separated CORS allow list.
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`

	// OTELEndpoint enables tracing when non-empty.
	OTELEndpoint string `env:"OTEL_ENDPOINT"`
	OTELEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	return Parse()
}

// LoadDotEnv reads .env from the working directory into the environment.
// A missing file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Parse reads the current environment into a Config without touching .env.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
