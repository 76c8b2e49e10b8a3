package config

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"
)

const (
	DefaultPort        = "3000"
	DefaultTimeout     = "5s"
	DefaultLogLevel    = "info"
	DefaultConcurrency = 4
)

type Config struct {
	// remote files
	BaseURL   string `json:"base_url,omitempty"`
	Timeout   string `json:"timeout,omitempty"`    // per-request timeout, e.g. 5s
	RateLimit int    `json:"rate_limit,omitempty"` // outbound requests per second, 0 means unlimited
	Insecure  bool   `json:"insecure,omitempty"`

	// server
	BindAddress string `json:"bind_address,omitempty"`
	Port        string `json:"port,omitempty"`

	LogLevel    string `json:"log_level,omitempty"`
	LogFile     string `json:"log_file,omitempty"`
	Concurrency int    `json:"concurrency,omitempty"` // paths fetched at once by the get command
}

// Default returns a Config with every default filled in.
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

// Load reads a JSON config file. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := json.Unmarshal(file, c); err != nil {
			return nil, fmt.Errorf("error unmarshaling config: %w", err)
		}
	}
	c.setDefaults()
	return c, nil
}

func (c *Config) setDefaults() {
	c.Port = cmp.Or(c.Port, DefaultPort)
	c.Timeout = cmp.Or(c.Timeout, DefaultTimeout)
	c.LogLevel = cmp.Or(c.LogLevel, DefaultLogLevel)
	c.Concurrency = cmp.Or(c.Concurrency, DefaultConcurrency)
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error

	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("base_url must be an http(s) URL: %q", c.BaseURL))
		}
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("invalid timeout: %q", c.Timeout))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative: %d", c.RateLimit))
	}
	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency must not be negative: %d", c.Concurrency))
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p < 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %q", c.Port))
	}

	return errors.Join(errs...)
}

// RequireBaseURL fails when no base URL is configured.
func (c *Config) RequireBaseURL() error {
	if c.BaseURL == "" {
		return errors.New("base_url is not set (use --base-url or the config file)")
	}
	return nil
}

// TimeoutDuration returns the parsed timeout, falling back to the default.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultTimeout)
	}
	return d
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindAddress, c.Port)
}
