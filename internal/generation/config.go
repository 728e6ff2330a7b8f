package generation

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds backend credentials, polling and retry behavior, and
// request defaults.
type Config struct {
	PredictionsURL          string     `toml:"predictions_url"`
	PredictionsToken        string     `toml:"predictions_token"`
	OpenAIKey               string     `toml:"openai_key"`
	OpenAIBaseURL           string     `toml:"openai_base_url"`
	PollInterval            string     `toml:"poll_interval"`
	Timeout                 string     `toml:"timeout"`
	MaxRetries              int        `toml:"max_retries"`
	RetryWait               string     `toml:"retry_wait"`
	MaxRetryWait            string     `toml:"max_retry_wait"`
	DefaultModel            string     `toml:"default_model"`
	DefaultAspectRatio      string     `toml:"default_aspect_ratio"`
	DefaultOutputFormat     string     `toml:"default_output_format"`
	IntermediateAspectRatio string     `toml:"intermediate_aspect_ratio"`
	AllowPrivateReferences  bool       `toml:"allow_private_references"`
	RequestRate             float64    `toml:"request_rate"`
	RequestBurst            int        `toml:"request_burst"`
	Models                  []ModelDef `toml:"models"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	PredictionsURL          string
	PredictionsToken        string
	OpenAIKey               string
	OpenAIBaseURL           string
	Timeout                 string
	MaxRetries              string
	DefaultModel            string
	IntermediateAspectRatio string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. A non-empty overlay model
// list replaces the base list.
func (c *Config) Merge(overlay *Config) {
	if overlay.PredictionsURL != "" {
		c.PredictionsURL = overlay.PredictionsURL
	}
	if overlay.PredictionsToken != "" {
		c.PredictionsToken = overlay.PredictionsToken
	}
	if overlay.OpenAIKey != "" {
		c.OpenAIKey = overlay.OpenAIKey
	}
	if overlay.OpenAIBaseURL != "" {
		c.OpenAIBaseURL = overlay.OpenAIBaseURL
	}
	if overlay.PollInterval != "" {
		c.PollInterval = overlay.PollInterval
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
	if overlay.RetryWait != "" {
		c.RetryWait = overlay.RetryWait
	}
	if overlay.MaxRetryWait != "" {
		c.MaxRetryWait = overlay.MaxRetryWait
	}
	if overlay.DefaultModel != "" {
		c.DefaultModel = overlay.DefaultModel
	}
	if overlay.DefaultAspectRatio != "" {
		c.DefaultAspectRatio = overlay.DefaultAspectRatio
	}
	if overlay.DefaultOutputFormat != "" {
		c.DefaultOutputFormat = overlay.DefaultOutputFormat
	}
	if overlay.IntermediateAspectRatio != "" {
		c.IntermediateAspectRatio = overlay.IntermediateAspectRatio
	}
	if overlay.RequestRate != 0 {
		c.RequestRate = overlay.RequestRate
	}
	if overlay.RequestBurst != 0 {
		c.RequestBurst = overlay.RequestBurst
	}
	if overlay.AllowPrivateReferences {
		c.AllowPrivateReferences = true
	}
	if len(overlay.Models) > 0 {
		c.Models = overlay.Models
	}
}

// PollIntervalDuration returns PollInterval as a time.Duration.
func (c *Config) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	return d
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Retry returns the retry policy described by the config.
func (c *Config) Retry() RetryConfig {
	wait, _ := time.ParseDuration(c.RetryWait)
	maxWait, _ := time.ParseDuration(c.MaxRetryWait)
	return RetryConfig{
		MaxRetries:  c.MaxRetries,
		InitialWait: wait,
		MaxWait:     maxWait,
		Factor:      2.0,
	}
}

func (c *Config) loadDefaults() {
	if c.PredictionsURL == "" {
		c.PredictionsURL = "https://api.replicate.com/v1"
	}
	if c.PollInterval == "" {
		c.PollInterval = "1s"
	}
	if c.Timeout == "" {
		c.Timeout = "5m"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryWait == "" {
		c.RetryWait = "1s"
	}
	if c.MaxRetryWait == "" {
		c.MaxRetryWait = "30s"
	}
	if c.DefaultModel == "" {
		c.DefaultModel = "nano-banana-2"
	}
	if c.DefaultAspectRatio == "" {
		c.DefaultAspectRatio = "1:1"
	}
	if c.DefaultOutputFormat == "" {
		c.DefaultOutputFormat = "jpg"
	}
	if c.RequestRate == 0 {
		c.RequestRate = 5
	}
	if c.RequestBurst == 0 {
		c.RequestBurst = 5
	}
	if len(c.Models) == 0 {
		c.Models = DefaultModels()
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.PredictionsURL != "" {
		if v := os.Getenv(env.PredictionsURL); v != "" {
			c.PredictionsURL = v
		}
	}
	if env.PredictionsToken != "" {
		if v := os.Getenv(env.PredictionsToken); v != "" {
			c.PredictionsToken = v
		}
	}
	if env.OpenAIKey != "" {
		if v := os.Getenv(env.OpenAIKey); v != "" {
			c.OpenAIKey = v
		}
	}
	if env.OpenAIBaseURL != "" {
		if v := os.Getenv(env.OpenAIBaseURL); v != "" {
			c.OpenAIBaseURL = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.MaxRetries != "" {
		if v := os.Getenv(env.MaxRetries); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.MaxRetries = n
			}
		}
	}
	if env.DefaultModel != "" {
		if v := os.Getenv(env.DefaultModel); v != "" {
			c.DefaultModel = v
		}
	}
	if env.IntermediateAspectRatio != "" {
		if v := os.Getenv(env.IntermediateAspectRatio); v != "" {
			c.IntermediateAspectRatio = v
		}
	}
}

func (c *Config) validate() error {
	for name, v := range map[string]string{
		"poll_interval":  c.PollInterval,
		"timeout":        c.Timeout,
		"retry_wait":     c.RetryWait,
		"max_retry_wait": c.MaxRetryWait,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if c.RequestRate < 0 || c.RequestBurst < 0 {
		return fmt.Errorf("request_rate and request_burst must be positive")
	}
	if _, err := NewCatalog(c.Models).Model(c.DefaultModel); err != nil {
		return fmt.Errorf("default_model: %w", err)
	}
	return nil
}
