package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/roomgate/internal/config"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, "grpc", cfg.Protocol)
	assert.Equal(t, "roomgate", cfg.ServiceName)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 15*time.Second, cfg.ExportInterval)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTime)
	require.NoError(t, cfg.Validate())
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.TelemetryConfig{
		Enabled:    true,
		Endpoint:   "https://otel.example.com:4318",
		Protocol:   "http",
		SampleRate: 0.25,
		Headers:    map[string]config.Secret{"authorization": "Bearer xyz"},
	}, "1.2.3")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "http", cfg.Protocol)
	assert.Equal(t, "roomgate", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.Equal(t, 0.25, cfg.SampleRate)
	assert.False(t, cfg.Insecure)
	assert.Equal(t, "Bearer xyz", cfg.Headers["authorization"])
	require.NoError(t, cfg.Validate())
}

func TestConfigFrom_Defaults(t *testing.T) {
	cfg := ConfigFrom(config.Default().Telemetry, "")
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Nil(t, cfg.Headers)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	enabled := func(mutate func(*Config)) *Config {
		c := NewDefaultConfig()
		c.Enabled = true
		mutate(c)
		return c
	}

	tests := []struct {
		name   string
		config *Config
		errMsg string
	}{
		{"disabled skips validation", &Config{}, ""},
		{"valid", enabled(func(*Config) {}), ""},
		{"missing endpoint", enabled(func(c *Config) { c.Endpoint = "" }), "endpoint is required"},
		{"missing service", enabled(func(c *Config) { c.ServiceName = "" }), "service_name is required"},
		{"bad protocol", enabled(func(c *Config) { c.Protocol = "udp" }), "protocol must be"},
		{"insecure remote", enabled(func(c *Config) { c.Endpoint = "otel.example.com:4317" }), "insecure connections"},
		{"secure remote", enabled(func(c *Config) {
			c.Endpoint = "otel.example.com:4317"
			c.Insecure = false
		}), ""},
		{"sample rate", enabled(func(c *Config) { c.SampleRate = 1.5 }), "sample_rate"},
		{"export interval", enabled(func(c *Config) { c.ExportInterval = 0 }), "export interval"},
		{"metrics off ignores interval", enabled(func(c *Config) {
			c.MetricsEnabled = false
			c.ExportInterval = 0
		}), ""},
		{"shutdown timeout", enabled(func(c *Config) { c.ShutdownTime = 0 }), "shutdown timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestIsLocalEndpoint(t *testing.T) {
	tests := map[string]bool{
		"localhost:4317":        true,
		"127.0.0.1:4317":        true,
		"127.0.0.2":             true,
		"http://localhost:4318": true,
		"[::1]:4317":            true,
		"[::1]":                 true,
		"::1":                   true,
		"otel.example.com:4317": false,
		"10.0.0.5:4317":         false,
		"localhost.evil.com:1":  false,
	}
	for endpoint, want := range tests {
		c := &Config{Endpoint: endpoint}
		assert.Equal(t, want, c.isLocalEndpoint(), endpoint)
	}
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "host:4318", stripScheme("https://host:4318"))
	assert.Equal(t, "host:4318", stripScheme("http://host:4318"))
	assert.Equal(t, "host:4317", stripScheme("host:4317"))
}

func TestNewResource(t *testing.T) {
	cfg := NewDefaultConfig()
	res := newResource(cfg)

	var found bool
	for _, attr := range res.Attributes() {
		if string(attr.Key) == "service.name" {
			assert.Equal(t, "roomgate", attr.Value.AsString())
			found = true
		}
	}
	assert.True(t, found, "service.name attribute not found")
}
