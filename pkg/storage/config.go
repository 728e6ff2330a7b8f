package storage

import (
	"fmt"
	"os"
	"strconv"
)

// MaxListCap is the largest page a List call may request.
const MaxListCap int32 = 5000

// Config selects the blob account and container. A connection string
// takes precedence; otherwise AccountURL is used with the ambient Azure
// credential chain.
type Config struct {
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
	MaxListSize      int32  `toml:"max_list_size"`
	MaxRetries       int32  `toml:"max_retries"`
}

// Env names the environment variables that override Config.
type Env struct {
	ContainerName    string
	ConnectionString string
	AccountURL       string
	MaxListSize      string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.ContainerName == "" {
		c.ContainerName = "palette-assets"
	}
	if c.MaxListSize <= 0 {
		c.MaxListSize = 50
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}

	if env != nil {
		override(&c.ContainerName, env.ContainerName)
		override(&c.ConnectionString, env.ConnectionString)
		override(&c.AccountURL, env.AccountURL)
		if v := lookup(env.MaxListSize); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.MaxListSize = int32(min(n, int(MaxListCap)))
			}
		}
	}
	c.MaxListSize = min(c.MaxListSize, MaxListCap)

	if c.ConnectionString == "" && c.AccountURL == "" {
		return fmt.Errorf("connection_string or account_url required")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ContainerName != "" {
		c.ContainerName = overlay.ContainerName
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.AccountURL != "" {
		c.AccountURL = overlay.AccountURL
	}
	if overlay.MaxListSize != 0 {
		c.MaxListSize = overlay.MaxListSize
	}
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
}

// ParseMaxResults parses a max_results query value, defaulting to def
// and capping at MaxListCap.
func ParseMaxResults(s string, def int32) (int32, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMaxResults, s)
	}
	return int32(min(n, int(MaxListCap))), nil
}

func lookup(key string) string {
	if key == "" {
		return ""
	}
	return os.Getenv(key)
}

func override(dst *string, key string) {
	if v := lookup(key); v != "" {
		*dst = v
	}
}
