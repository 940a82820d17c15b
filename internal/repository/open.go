package repository

import (
	"fmt"

	"BuoyWatch.api/internal/config"
)

// OpenBackend creates the backend selected by cfg.StoreBackend.
func OpenBackend(cfg config.Config) (Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendInfluxDB:
		return NewInfluxDBRepository(cfg.InfluxDBURL, cfg.InfluxDBToken, cfg.InfluxDBOrg, cfg.InfluxDBBucket, cfg.InfluxDBMeasurement), nil
	case config.BackendSupabase:
		return NewSupabaseRepository(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseTable), nil
	case config.BackendSQLite:
		return NewSQLiteRepository(cfg.SQLitePath)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
