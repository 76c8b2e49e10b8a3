package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "3000", c.Port)
	assert.Equal(t, "5s", c.Timeout)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 4, c.Concurrency)
	assert.Equal(t, 0, c.RateLimit)
	assert.Equal(t, 5*time.Second, c.TimeoutDuration())
	assert.Equal(t, ":3000", c.Addr())
	assert.NoError(t, c.Validate())
	assert.Error(t, c.RequireBaseURL())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `{
		"base_url": "https://files.example/AECHO/1875_01",
		"bind_address": "127.0.0.1",
		"port": "8080",
		"timeout": "750ms",
		"rate_limit": 20,
		"log_level": "debug",
		"log_file": "/var/log/tilezip.log",
		"concurrency": 8
	}`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://files.example/AECHO/1875_01", c.BaseURL)
	assert.Equal(t, "127.0.0.1:8080", c.Addr())
	assert.Equal(t, 750*time.Millisecond, c.TimeoutDuration())
	assert.Equal(t, 20, c.RateLimit)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "/var/log/tilezip.log", c.LogFile)
	assert.Equal(t, 8, c.Concurrency)
	assert.NoError(t, c.Validate())
	assert.NoError(t, c.RequireBaseURL())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `{"port": `))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "http base url", mutate: func(c *Config) { c.BaseURL = "http://localhost:9000/files" }},
		{name: "ftp base url", mutate: func(c *Config) { c.BaseURL = "ftp://files.example" }, wantErr: true},
		{name: "base url without host", mutate: func(c *Config) { c.BaseURL = "https://" }, wantErr: true},
		{name: "bad timeout", mutate: func(c *Config) { c.Timeout = "soon" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = "0s" }, wantErr: true},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimit = -1 }, wantErr: true},
		{name: "negative concurrency", mutate: func(c *Config) { c.Concurrency = -2 }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Port = "http" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTimeoutDuration_FallsBack(t *testing.T) {
	c := Default()
	c.Timeout = "garbage"
	assert.Equal(t, 5*time.Second, c.TimeoutDuration())
}
