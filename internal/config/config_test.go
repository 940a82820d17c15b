package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "buoy.db", cfg.SQLitePath)
	assert.Equal(t, []string{"stromness-buoy"}, cfg.DeviceIDs)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Thresholds.Live)
	assert.Equal(t, 30*time.Minute, cfg.Thresholds.Recent)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), cfg.DataCutoff)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestOverrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"PORT":                 "9090",
		"LOG_LEVEL":            "debug",
		"STORE_BACKEND":        "InfluxDB",
		"INFLUXDB_URL":         "http://influx:8086",
		"INFLUXDB_TOKEN":       "t",
		"INFLUXDB_ORG":         "o",
		"INFLUXDB_BUCKET":      "b",
		"DEVICE_IDS":           " a, b ,,",
		"STATUS_LIVE_AFTER":    "2m",
		"STATUS_RECENT_AFTER":  "1h",
		"DATA_CUTOFF":          "none",
		"CORS_ALLOWED_ORIGINS": "https://x.example,https://y.example",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, BackendInfluxDB, cfg.StoreBackend)
	assert.Equal(t, "water_temperature", cfg.InfluxDBMeasurement)
	assert.Equal(t, []string{"a", "b"}, cfg.DeviceIDs)
	assert.Equal(t, 2*time.Minute, cfg.Thresholds.Live)
	assert.True(t, cfg.DataCutoff.IsZero())
	assert.Len(t, cfg.CORSAllowedOrigins, 2)
}

func TestInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"incomplete influx":   {"STORE_BACKEND": "influxdb", "INFLUXDB_URL": "http://x"},
		"incomplete supabase": {"STORE_BACKEND": "supabase"},
		"unknown backend":     {"STORE_BACKEND": "mongo"},
		"bad duration":        {"STORE_TIMEOUT": "soon"},
		"negative duration":   {"POLL_INTERVAL": "-1s"},
		"thresholds reversed": {"STATUS_LIVE_AFTER": "1h", "STATUS_RECENT_AFTER": "5m"},
		"bad cutoff":          {"DATA_CUTOFF": "yesterday"},
		"bad level":           {"LOG_LEVEL": "loud"},
		"no devices":          {"DEVICE_IDS": " , "},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envOf(env))
			assert.Error(t, err)
		})
	}
}
