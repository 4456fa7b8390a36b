// Package config loads the service configuration from config.toml, an
// optional config.<env>.toml overlay, and VITALIS_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/vitalis/pkg/cache"
	"github.com/JaimeStill/vitalis/pkg/database"
	"github.com/JaimeStill/vitalis/pkg/middleware"
	"github.com/JaimeStill/vitalis/pkg/openapi"
	"github.com/JaimeStill/vitalis/pkg/storage"
	"github.com/JaimeStill/vitalis/pkg/telemetry"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvVitalisEnv             = "VITALIS_ENV"
	EnvVitalisShutdownTimeout = "VITALIS_SHUTDOWN_TIMEOUT"
	EnvVitalisVersion         = "VITALIS_VERSION"
)

var databaseEnv = &database.Env{
	DSN:             "VITALIS_DB_DSN",
	Host:            "VITALIS_DB_HOST",
	Port:            "VITALIS_DB_PORT",
	Name:            "VITALIS_DB_NAME",
	User:            "VITALIS_DB_USER",
	Password:        "VITALIS_DB_PASSWORD",
	SSLMode:         "VITALIS_DB_SSL_MODE",
	MaxOpenConns:    "VITALIS_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "VITALIS_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "VITALIS_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "VITALIS_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "VITALIS_STORAGE_PROVIDER",
	ContainerName:    "VITALIS_STORAGE_CONTAINER_NAME",
	ConnectionString: "VITALIS_STORAGE_CONNECTION_STRING",
	Region:           "VITALIS_STORAGE_REGION",
	Endpoint:         "VITALIS_STORAGE_ENDPOINT",
	AccessKey:        "VITALIS_STORAGE_ACCESS_KEY",
	SecretKey:        "VITALIS_STORAGE_SECRET_KEY",
}

var authEnv = &middleware.AuthEnv{
	Enabled:    "VITALIS_AUTH_ENABLED",
	IssuerURL:  "VITALIS_AUTH_ISSUER_URL",
	ClientID:   "VITALIS_AUTH_CLIENT_ID",
	UserHeader: "VITALIS_AUTH_USER_HEADER",
}

var redisEnv = &cache.Env{
	Addr:        "VITALIS_REDIS_ADDR",
	Password:    "VITALIS_REDIS_PASSWORD",
	DB:          "VITALIS_REDIS_DB",
	DialTimeout: "VITALIS_REDIS_DIAL_TIMEOUT",
	KeyPrefix:   "VITALIS_REDIS_KEY_PREFIX",
}

var telemetryEnv = &telemetry.Env{
	Enabled:     "VITALIS_TELEMETRY_ENABLED",
	ServiceName: "VITALIS_TELEMETRY_SERVICE_NAME",
	Exporter:    "VITALIS_TELEMETRY_EXPORTER",
	Endpoint:    "VITALIS_TELEMETRY_ENDPOINT",
	Insecure:    "VITALIS_TELEMETRY_INSECURE",
	SampleRatio: "VITALIS_TELEMETRY_SAMPLE_RATIO",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "VITALIS_OPENAPI_TITLE",
	Description: "VITALIS_OPENAPI_DESCRIPTION",
}

// Config is the root configuration for the Vitalis service.
type Config struct {
	Server          ServerConfig          `toml:"server"`
	Database        database.Config       `toml:"database"`
	Storage         storage.Config        `toml:"storage"`
	API             APIConfig             `toml:"api"`
	Auth            middleware.AuthConfig `toml:"auth"`
	AI              AIConfig              `toml:"ai"`
	Pipeline        PipelineConfig        `toml:"pipeline"`
	Correlations    CorrelationsConfig    `toml:"correlations"`
	Redis           cache.Config          `toml:"redis"`
	Telemetry       telemetry.Config      `toml:"telemetry"`
	OpenAPI         openapi.Config        `toml:"openapi"`
	Logging         LoggingConfig         `toml:"logging"`
	ShutdownTimeout string                `toml:"shutdown_timeout"`
	Version         string                `toml:"version"`
}

// Env returns the VITALIS_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvVitalisEnv); env != "" {
		return env
	}
	return "local"
}

func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Load builds the configuration from config.toml when present, the
// config.<VITALIS_ENV>.toml overlay when present, then defaults and
// VITALIS_* variables.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

// LoadDatabase resolves only the database section, for tools such as the
// migrator that do not need the rest of the service configured.
func LoadDatabase() (*database.Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Database.Finalize(databaseEnv); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return &cfg.Database, nil
}

func read() (*Config, error) {
	cfg := &Config{}
	for i, path := range []string{BaseConfigFile, overlayPath()} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		loaded, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		if i == 0 {
			cfg = loaded
			continue
		}
		cfg.Merge(loaded)
	}
	return cfg, nil
}

// Parse decodes TOML data into a Config without finalizing it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(o *Config) {
	overlay(&c.ShutdownTimeout, o.ShutdownTimeout)
	overlay(&c.Version, o.Version)
	c.Server.Merge(&o.Server)
	c.Database.Merge(&o.Database)
	c.Storage.Merge(&o.Storage)
	c.API.Merge(&o.API)
	c.Auth.Merge(&o.Auth)
	c.AI.Merge(&o.AI)
	c.Pipeline.Merge(&o.Pipeline)
	c.Correlations.Merge(&o.Correlations)
	c.Redis.Merge(&o.Redis)
	c.Telemetry.Merge(&o.Telemetry)
	c.OpenAPI.Merge(&o.OpenAPI)
	c.Logging.Merge(&o.Logging)
}

// Finalize applies defaults, environment overrides and validation to every section.
func (c *Config) Finalize() error {
	fallback(&c.ShutdownTimeout, "30s")
	fallback(&c.Version, "0.1.0")
	fromEnv(&c.ShutdownTimeout, EnvVitalisShutdownTimeout)
	fromEnv(&c.Version, EnvVitalisVersion)
	if err := checkDurations(map[string]string{"shutdown_timeout": c.ShutdownTimeout}); err != nil {
		return err
	}

	sections := []struct {
		name     string
		finalize func() error
	}{
		{"server", c.Server.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"api", c.API.Finalize},
		{"auth", func() error { return c.Auth.Finalize(authEnv) }},
		{"ai", c.AI.Finalize},
		{"pipeline", c.Pipeline.Finalize},
		{"correlations", c.Correlations.Finalize},
		{"redis", func() error { return c.Redis.Finalize(redisEnv) }},
		{"telemetry", func() error { return c.Telemetry.Finalize(telemetryEnv) }},
		{"openapi", func() error { return c.OpenAPI.Finalize(openapiEnv) }},
		{"logging", c.Logging.Finalize},
	}
	for _, sec := range sections {
		if err := sec.finalize(); err != nil {
			return fmt.Errorf("%s: %w", sec.name, err)
		}
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func overlayPath() string {
	if env := os.Getenv(EnvVitalisEnv); env != "" {
		return fmt.Sprintf(OverlayConfigPattern, env)
	}
	return ""
}
