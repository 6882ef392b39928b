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

func TestReadAppliesDefaults(t *testing.T) {
	cfg, err := Read(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, "America/Los_Angeles", cfg.Timezone)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, int64(300_000), cfg.Thermostat.MinCycleMs)
	assert.Equal(t, 3, cfg.Thermostat.TrendSamplesRequired)
	assert.Equal(t, 95.0, cfg.Thermostat.AbsoluteMaxTempF)
	assert.Equal(t, 36, cfg.IR.CarrierKHz)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker())

	engine := cfg.Thermostat.Engine()
	assert.Equal(t, 4*time.Hour, engine.MaxRuntime)
	assert.Equal(t, 30*time.Second, engine.TrendSampleInterval)
	assert.Equal(t, -0.2, engine.TrendFallingF)

	opts := cfg.IR.Options()
	assert.Equal(t, 300*time.Millisecond, opts.MinSendInterval)
	assert.Equal(t, 50*time.Millisecond, opts.RepeatGap)

	cfg.validate()
}

func TestReadFileValuesAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"timezone": "Europe/Berlin",
		"mqtt": {"host": "broker.local", "port": 1884},
		"thermostat": {"max_runtime_ms": 7200000},
		"datadog": {"enabled": true, "tags": ["room:living"]}
	}`)
	t.Setenv("FIREPLACE_MQTT_USER", "fireplace")
	t.Setenv("FIREPLACE_HTTP_PORT", "9090")

	cfg, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, "tcp://broker.local:1884", cfg.MQTT.Broker())
	assert.Equal(t, "fireplace", cfg.MQTT.User)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 2*time.Hour, cfg.Thermostat.Engine().MaxRuntime)
	assert.Equal(t, []string{"room:living"}, cfg.Datadog.Tags)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidatePanics(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero tick", func(c *Config) { c.Thermostat.TickIntervalMs = 0 }},
		{"non-negative falling threshold", func(c *Config) { c.Thermostat.TrendFallingThresholdF = 0.1 }},
		{"non-positive rising threshold", func(c *Config) { c.Thermostat.TrendRisingThresholdF = 0 }},
		{"carrier out of range", func(c *Config) { c.IR.CarrierKHz = 500 }},
		{"inverted sensor range", func(c *Config) { c.Thermostat.MinValidTempF = 200 }},
		{"bad port", func(c *Config) { c.HTTPPort = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Read(writeConfig(t, `{}`))
			require.NoError(t, err)
			tc.mutate(&cfg)
			assert.Panics(t, func() { cfg.validate() })
		})
	}
}
