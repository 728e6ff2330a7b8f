package assets

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/palette/pkg/formatting"
)

// Config controls persistence of stage outputs.
type Config struct {
	Enabled      bool   `toml:"enabled"`
	MaxAssetSize string `toml:"max_asset_size"`
	Concurrency  int    `toml:"concurrency"`
	FetchTimeout string `toml:"fetch_timeout"`
	PublicPrefix string `toml:"public_prefix"`

	// AllowPrivateSources lets Probe fetch loopback and private hosts.
	AllowPrivateSources bool `toml:"allow_private_sources"`
}

// Env names the environment variables that override Config.
type Env struct {
	Enabled      string
	MaxAssetSize string
	Concurrency  string
}

// MaxAssetBytes returns MaxAssetSize in bytes.
func (c *Config) MaxAssetBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxAssetSize)
	return n
}

// FetchTimeoutDuration returns FetchTimeout as a time.Duration.
func (c *Config) FetchTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.FetchTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.MaxAssetSize == "" {
		c.MaxAssetSize = "25MB"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.FetchTimeout == "" {
		c.FetchTimeout = "60s"
	}
	if c.PublicPrefix == "" {
		c.PublicPrefix = "/api/storage/download/"
	}

	if env != nil {
		if b, err := strconv.ParseBool(getenv(env.Enabled)); err == nil {
			c.Enabled = b
		}
		if v := getenv(env.MaxAssetSize); v != "" {
			c.MaxAssetSize = v
		}
		if n, err := strconv.Atoi(getenv(env.Concurrency)); err == nil && n > 0 {
			c.Concurrency = n
		}
	}

	if n, err := formatting.ParseBytes(c.MaxAssetSize); err != nil || n <= 0 {
		return fmt.Errorf("invalid max_asset_size %q", c.MaxAssetSize)
	}
	if _, err := time.ParseDuration(c.FetchTimeout); err != nil {
		return fmt.Errorf("invalid fetch_timeout: %w", err)
	}
	return nil
}

// Merge overwrites fields from overlay. Enabled always applies.
func (c *Config) Merge(overlay *Config) {
	c.Enabled = overlay.Enabled
	if overlay.MaxAssetSize != "" {
		c.MaxAssetSize = overlay.MaxAssetSize
	}
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
	if overlay.FetchTimeout != "" {
		c.FetchTimeout = overlay.FetchTimeout
	}
	if overlay.PublicPrefix != "" {
		c.PublicPrefix = overlay.PublicPrefix
	}
	if overlay.AllowPrivateSources {
		c.AllowPrivateSources = true
	}
}

func getenv(key string) string {
	if key == "" {
		return ""
	}
	return os.Getenv(key)
}
