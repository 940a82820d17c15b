package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/relvacode/iso8601"

	"BuoyWatch.api/internal/models"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendInfluxDB = "influxdb"
	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
)

// Config holds the application's configuration.
type Config struct {
	Port     string
	LogLevel slog.Level

	StoreBackend string
	StoreTimeout time.Duration

	InfluxDBURL         string
	InfluxDBToken       string
	InfluxDBOrg         string
	InfluxDBBucket      string
	InfluxDBMeasurement string

	SupabaseURL     string
	SupabaseAnonKey string
	SupabaseTable   string

	SQLitePath string

	DeviceIDs    []string
	Thresholds   models.Thresholds
	DataCutoff   time.Time
	PollInterval time.Duration

	CORSAllowedOrigins []string
}

// LoadConfig loads the configuration from environment variables, reading a
// .env file first when there is one.
func LoadConfig() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, relying on system environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds and validates a Config from getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Port:                get("PORT", "8000"),
		StoreBackend:        strings.ToLower(get("STORE_BACKEND", BackendSQLite)),
		InfluxDBURL:         get("INFLUXDB_URL", ""),
		InfluxDBToken:       get("INFLUXDB_TOKEN", ""),
		InfluxDBOrg:         get("INFLUXDB_ORG", ""),
		InfluxDBBucket:      get("INFLUXDB_BUCKET", ""),
		InfluxDBMeasurement: get("INFLUXDB_MEASUREMENT", "water_temperature"),
		SupabaseURL:         get("SUPABASE_URL", ""),
		SupabaseAnonKey:     get("SUPABASE_ANON_KEY", ""),
		SupabaseTable:       get("SUPABASE_TABLE", "water_temperature"),
		SQLitePath:          get("SQLITE_PATH", "buoy.db"),
		DeviceIDs:           splitList(get("DEVICE_IDS", "stromness-buoy")),
		CORSAllowedOrigins:  splitList(get("CORS_ALLOWED_ORIGINS", "*")),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"STORE_TIMEOUT", "10s", &cfg.StoreTimeout},
		{"STATUS_LIVE_AFTER", "5m", &cfg.Thresholds.Live},
		{"STATUS_RECENT_AFTER", "30m", &cfg.Thresholds.Recent},
		{"POLL_INTERVAL", "30s", &cfg.PollInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(get(d.key, d.def))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if v <= 0 {
			return Config{}, fmt.Errorf("invalid %s: must be positive", d.key)
		}
		*d.dst = v
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return Config{}, err
	}

	if cutoff := get("DATA_CUTOFF", "2025-06-30T00:00:00Z"); cutoff != "none" {
		t, err := iso8601.ParseString(cutoff)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DATA_CUTOFF: %w", err)
		}
		cfg.DataCutoff = t.UTC()
	}

	if len(cfg.DeviceIDs) == 0 {
		return Config{}, fmt.Errorf("DEVICE_IDS must name at least one device")
	}

	switch cfg.StoreBackend {
	case BackendInfluxDB:
		if cfg.InfluxDBURL == "" || cfg.InfluxDBToken == "" || cfg.InfluxDBOrg == "" || cfg.InfluxDBBucket == "" {
			return Config{}, fmt.Errorf("InfluxDB configuration is incomplete. Please set INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG and INFLUXDB_BUCKET environment variables")
		}
	case BackendSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
			return Config{}, fmt.Errorf("Supabase configuration is incomplete. Please set SUPABASE_URL and SUPABASE_ANON_KEY environment variables")
		}
	case BackendSQLite:
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
