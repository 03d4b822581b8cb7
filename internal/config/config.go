// Package config provides configuration management for the item service.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultProfile         = ProfileLocal
	DefaultRepository      = RepositoryMemory
	DefaultDatabasePath    = "items.db"
)

// Environment variable names.
const (
	EnvServerPort      = "APP_SERVER_PORT"
	EnvLogLevel        = "APP_LOG_LEVEL"
	EnvShutdownTimeout = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "APP_METRICS_ENABLED"
	EnvProfile         = "APP_PROFILE"
	EnvRepository      = "APP_REPOSITORY"
	EnvDatabasePath    = "APP_DATABASE_PATH"
	EnvPostgresDSN     = "APP_POSTGRES_DSN"
	EnvMapperPath      = "APP_MAPPER_PATH"
)

// Profiles. The local profile seeds sample items at startup.
const (
	ProfileLocal = "local"
	ProfileTest  = "test"
	ProfileProd  = "prod"
)

// Repository strategies selectable with APP_REPOSITORY.
const (
	RepositoryMemory       = "memory"
	RepositorySQLTemplate  = "sqltemplate"
	RepositoryNamed        = "named"
	RepositorySimpleInsert = "simpleinsert"
	RepositoryORM          = "orm"
	RepositoryDerived      = "derived"
	RepositoryQueryBuilder = "querybuilder"
	RepositoryMapper       = "mapper"
	RepositoryPostgres     = "pgx"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int           `env:"APP_SERVER_PORT"      envDefault:"8080"`
	LogLevel        string        `env:"APP_LOG_LEVEL"        envDefault:"info"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MetricsEnabled  bool          `env:"APP_METRICS_ENABLED"  envDefault:"true"`

	// Profile: local, test, prod.
	Profile string `env:"APP_PROFILE" envDefault:"local"`

	// Repository strategy and its storage settings.
	Repository   string `env:"APP_REPOSITORY"    envDefault:"memory"`
	DatabasePath string `env:"APP_DATABASE_PATH" envDefault:"items.db"`
	PostgresDSN  string `env:"APP_POSTGRES_DSN"`
	MapperPath   string `env:"APP_MAPPER_PATH"`
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidProfile         = errors.New("profile must be one of: local, test, prod")
	ErrInvalidRepository      = errors.New(
		"repository must be one of: memory, sqltemplate, named, simpleinsert, orm, derived, querybuilder, mapper, pgx",
	)
	ErrDatabasePathRequired = errors.New("database path must be set for SQLite repositories")
	ErrPostgresDSNRequired  = errors.New("postgres DSN must be set when repository is pgx")
)

var sqliteRepositories = map[string]bool{
	RepositorySQLTemplate:  true,
	RepositoryNamed:        true,
	RepositorySimpleInsert: true,
	RepositoryORM:          true,
	RepositoryDerived:      true,
	RepositoryQueryBuilder: true,
	RepositoryMapper:       true,
}

// Load reads configuration from environment variables with defaults.
// Environment variables have priority over default values.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateRepository(); err != nil {
		return err
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	validProfiles := map[string]bool{
		ProfileLocal: true,
		ProfileTest:  true,
		ProfileProd:  true,
	}
	if !validProfiles[c.Profile] {
		return ErrInvalidProfile
	}

	return nil
}

// validateRepository validates the strategy and its storage settings.
func (c *Config) validateRepository() error {
	switch {
	case c.Repository == RepositoryMemory:
		return nil
	case c.Repository == RepositoryPostgres:
		if c.PostgresDSN == "" {
			return ErrPostgresDSNRequired
		}
		return nil
	case sqliteRepositories[c.Repository]:
		if c.DatabasePath == "" {
			return ErrDatabasePathRequired
		}
		return nil
	default:
		return ErrInvalidRepository
	}
}

// UsesSQLite reports whether the selected repository runs on SQLite.
func (c *Config) UsesSQLite() bool {
	return sqliteRepositories[c.Repository]
}

// SeedData reports whether sample items are inserted at startup.
func (c *Config) SeedData() bool {
	return c.Profile == ProfileLocal
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}
