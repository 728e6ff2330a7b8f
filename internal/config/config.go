// Package config loads the service configuration from TOML files and
// PALETTE_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/palette/internal/assets"
	"github.com/JaimeStill/palette/internal/credits"
	"github.com/JaimeStill/palette/internal/generation"
	"github.com/JaimeStill/palette/pkg/auth"
	"github.com/JaimeStill/palette/pkg/database"
	"github.com/JaimeStill/palette/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvPaletteEnv             = "PALETTE_ENV"
	EnvPaletteShutdownTimeout = "PALETTE_SHUTDOWN_TIMEOUT"
	EnvPaletteVersion         = "PALETTE_VERSION"
	EnvPaletteLogLevel        = "PALETTE_LOG_LEVEL"
)

// DatabaseEnv names the PALETTE_* variables read into database.Config.
var DatabaseEnv = &database.Env{
	URL:             "PALETTE_DATABASE_URL",
	Host:            "PALETTE_DB_HOST",
	Port:            "PALETTE_DB_PORT",
	Name:            "PALETTE_DB_NAME",
	User:            "PALETTE_DB_USER",
	Password:        "PALETTE_DB_PASSWORD",
	SSLMode:         "PALETTE_DB_SSL_MODE",
	MaxOpenConns:    "PALETTE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "PALETTE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "PALETTE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "PALETTE_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "PALETTE_STORAGE_CONTAINER_NAME",
	ConnectionString: "PALETTE_STORAGE_CONNECTION_STRING",
	AccountURL:       "PALETTE_STORAGE_ACCOUNT_URL",
	MaxListSize:      "PALETTE_STORAGE_MAX_LIST_SIZE",
}

var authEnv = &auth.Env{
	Enabled:    "PALETTE_AUTH_ENABLED",
	Issuer:     "PALETTE_AUTH_ISSUER",
	ClientID:   "PALETTE_AUTH_CLIENT_ID",
	JWKSURL:    "PALETTE_AUTH_JWKS_URL",
	DevSubject: "PALETTE_AUTH_DEV_SUBJECT",
}

var generationEnv = &generation.Env{
	PredictionsURL:          "PALETTE_PREDICTIONS_URL",
	PredictionsToken:        "PALETTE_PREDICTIONS_TOKEN",
	OpenAIKey:               "PALETTE_OPENAI_API_KEY",
	OpenAIBaseURL:           "PALETTE_OPENAI_BASE_URL",
	Timeout:                 "PALETTE_GENERATION_TIMEOUT",
	MaxRetries:              "PALETTE_GENERATION_MAX_RETRIES",
	DefaultModel:            "PALETTE_DEFAULT_MODEL",
	IntermediateAspectRatio: "PALETTE_INTERMEDIATE_ASPECT_RATIO",
}

var creditsEnv = &credits.Env{
	InitialBalance: "PALETTE_CREDITS_INITIAL_BALANCE",
	AllowGrants:    "PALETTE_CREDITS_ALLOW_GRANTS",
}

var assetsEnv = &assets.Env{
	Enabled:      "PALETTE_ASSETS_ENABLED",
	MaxAssetSize: "PALETTE_ASSETS_MAX_SIZE",
	Concurrency:  "PALETTE_ASSETS_CONCURRENCY",
}

// Config is the root configuration for the palette service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	API             APIConfig         `toml:"api"`
	Auth            auth.Config       `toml:"auth"`
	Generation      generation.Config `toml:"generation"`
	Registry        RegistryConfig    `toml:"registry"`
	Credits         credits.Config    `toml:"credits"`
	Assets          assets.Config     `toml:"assets"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
	LogLevel        string            `toml:"log_level"`
}

// Env returns the PALETTE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvPaletteEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Parse decodes TOML without finalizing it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Auth.Merge(&overlay.Auth)
	c.Generation.Merge(&overlay.Generation)
	c.Registry.Merge(&overlay.Registry)
	c.Credits.Merge(&overlay.Credits)
	c.Assets.Merge(&overlay.Assets)
}

// Finalize applies defaults, environment overrides, and validation to the
// root config and every sub-config.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(DatabaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Generation.Finalize(generationEnv); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	if err := c.Registry.Finalize(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if err := c.Credits.Finalize(creditsEnv); err != nil {
		return fmt.Errorf("credits: %w", err)
	}
	if err := c.Assets.Finalize(assetsEnv); err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvPaletteShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvPaletteVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvPaletteLogLevel); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func overlayPath() string {
	if env := os.Getenv(EnvPaletteEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
