package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost              = "PALETTE_SERVER_HOST"
	EnvServerPort              = "PALETTE_SERVER_PORT"
	EnvServerReadHeaderTimeout = "PALETTE_SERVER_READ_HEADER_TIMEOUT"
	EnvServerReadTimeout       = "PALETTE_SERVER_READ_TIMEOUT"
	EnvServerWriteTimeout      = "PALETTE_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout       = "PALETTE_SERVER_IDLE_TIMEOUT"
	EnvServerShutdownTimeout   = "PALETTE_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP listener parameters. WriteTimeout bounds a whole
// recipe run, so it defaults well above the generation timeout.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	ReadTimeout       string `toml:"read_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	IdleTimeout       string `toml:"idle_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration { return duration(c.ReadHeaderTimeout) }
func (c *ServerConfig) ReadTimeoutDuration() time.Duration       { return duration(c.ReadTimeout) }
func (c *ServerConfig) WriteTimeoutDuration() time.Duration      { return duration(c.WriteTimeout) }
func (c *ServerConfig) IdleTimeoutDuration() time.Duration       { return duration(c.IdleTimeout) }
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration   { return duration(c.ShutdownTimeout) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	for _, f := range c.fields(overlay) {
		if *f.src != "" {
			*f.dst = *f.src
		}
	}
}

type serverField struct {
	name string
	env  string
	dst  *string
	src  *string
	def  string
}

// fields pairs each string setting with its overlay counterpart. A nil
// other pairs the field with itself.
func (c *ServerConfig) fields(other *ServerConfig) []serverField {
	if other == nil {
		other = c
	}
	return []serverField{
		{"host", EnvServerHost, &c.Host, &other.Host, "0.0.0.0"},
		{"read_header_timeout", EnvServerReadHeaderTimeout, &c.ReadHeaderTimeout, &other.ReadHeaderTimeout, "10s"},
		{"read_timeout", EnvServerReadTimeout, &c.ReadTimeout, &other.ReadTimeout, "1m"},
		{"write_timeout", EnvServerWriteTimeout, &c.WriteTimeout, &other.WriteTimeout, "15m"},
		{"idle_timeout", EnvServerIdleTimeout, &c.IdleTimeout, &other.IdleTimeout, "2m"},
		{"shutdown_timeout", EnvServerShutdownTimeout, &c.ShutdownTimeout, &other.ShutdownTimeout, "30s"},
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	for _, f := range c.fields(nil) {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}
}

func (c *ServerConfig) loadEnv() error {
	if v := os.Getenv(EnvServerPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q", EnvServerPort, v)
		}
		c.Port = port
	}
	for _, f := range c.fields(nil) {
		if v := os.Getenv(f.env); v != "" {
			*f.dst = v
		}
	}
	return nil
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for _, f := range c.fields(nil)[1:] {
		if d, err := time.ParseDuration(*f.dst); err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %q", f.name, *f.dst)
		}
	}
	return nil
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
