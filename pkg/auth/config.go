package auth

import (
	"fmt"
	"os"
	"strconv"
)

// Config controls bearer token verification. When disabled every request
// runs as DevSubject.
type Config struct {
	Enabled    bool   `toml:"enabled"`
	Issuer     string `toml:"issuer"`
	ClientID   string `toml:"client_id"`
	JWKSURL    string `toml:"jwks_url"`
	DevSubject string `toml:"dev_subject"`
}

// Env names the environment variables that override Config.
type Env struct {
	Enabled    string
	Issuer     string
	ClientID   string
	JWKSURL    string
	DevSubject string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.DevSubject == "" {
		c.DevSubject = "local-dev"
	}

	if env != nil {
		if b, err := strconv.ParseBool(getenv(env.Enabled)); err == nil {
			c.Enabled = b
		}
		setenv(&c.Issuer, env.Issuer)
		setenv(&c.ClientID, env.ClientID)
		setenv(&c.JWKSURL, env.JWKSURL)
		setenv(&c.DevSubject, env.DevSubject)
	}

	if c.Enabled && (c.Issuer == "" || c.ClientID == "") {
		return fmt.Errorf("issuer and client_id required when enabled")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay. An overlay can enable
// auth but not disable it; the Enabled env override can.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.JWKSURL != "" {
		c.JWKSURL = overlay.JWKSURL
	}
	if overlay.DevSubject != "" {
		c.DevSubject = overlay.DevSubject
	}
}

func getenv(key string) string {
	if key == "" {
		return ""
	}
	return os.Getenv(key)
}

func setenv(dst *string, key string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}
