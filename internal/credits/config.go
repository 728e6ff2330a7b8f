package credits

import (
	"fmt"
	"os"
	"strconv"
)

// Config sets the opening balance of new users and whether the grant
// endpoint is exposed.
type Config struct {
	InitialBalance int  `toml:"initial_balance"`
	AllowGrants    bool `toml:"allow_grants"`
}

// Env names the environment variables that override Config.
type Env struct {
	InitialBalance string
	AllowGrants    string
}

// Finalize applies environment variable overrides and validation.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		if v := os.Getenv(env.InitialBalance); env.InitialBalance != "" && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid initial_balance %q", v)
			}
			c.InitialBalance = n
		}
		if v := os.Getenv(env.AllowGrants); env.AllowGrants != "" && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.AllowGrants = b
			}
		}
	}

	if c.InitialBalance < 0 {
		return fmt.Errorf("initial_balance cannot be negative")
	}
	return nil
}

// Merge overwrites fields from overlay. AllowGrants always applies.
func (c *Config) Merge(overlay *Config) {
	if overlay.InitialBalance != 0 {
		c.InitialBalance = overlay.InitialBalance
	}
	c.AllowGrants = overlay.AllowGrants
}
