package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"BuoyWatch.api/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS readings (
	device_id TEXT NOT NULL,
	ts_unix_nano INTEGER NOT NULL,
	temperature_c REAL,
	rssi INTEGER,
	PRIMARY KEY (device_id, ts_unix_nano)
);
`

// SQLiteRepository keeps readings in a local SQLite file. It backs local
// development and demo mode.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at path.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Name() string { return "sqlite" }

// SaveReadings upserts readings; a second write to the same device and
// timestamp replaces the first. NaN temperatures are stored as NULL.
func (r *SQLiteRepository) SaveReadings(ctx context.Context, readings []models.Reading) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO readings (device_id, ts_unix_nano, temperature_c, rssi)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (device_id, ts_unix_nano) DO UPDATE SET
			temperature_c = excluded.temperature_c,
			rssi = excluded.rssi
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare statement")
	}
	defer stmt.Close()

	for _, reading := range readings {
		if reading.DeviceID == "" || reading.Timestamp.IsZero() {
			return fmt.Errorf("reading needs a device id and a timestamp: %+v", reading)
		}
		temp := sql.NullFloat64{Float64: reading.TemperatureC, Valid: !math.IsNaN(reading.TemperatureC)}
		var rssi sql.NullInt64
		if reading.RSSI != nil {
			rssi = sql.NullInt64{Int64: int64(*reading.RSSI), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, reading.DeviceID, reading.Timestamp.UnixNano(), temp, rssi); err != nil {
			return errors.Wrap(err, "failed to insert reading")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

func (r *SQLiteRepository) QueryRange(ctx context.Context, deviceID string, from, to time.Time) ([]models.Reading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT device_id, ts_unix_nano, temperature_c, rssi
		FROM readings
		WHERE device_id = ? AND ts_unix_nano BETWEEN ? AND ?
		ORDER BY ts_unix_nano`,
		deviceID, from.UnixNano(), to.UnixNano())
	if err != nil {
		return nil, storeError(r.Name(), "query range", err)
	}
	readings, err := scanReadings(rows)
	if err != nil {
		return nil, storeError(r.Name(), "query range", err)
	}
	return readings, nil
}

func (r *SQLiteRepository) QueryLatest(ctx context.Context, deviceID string) (*models.Reading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT device_id, ts_unix_nano, temperature_c, rssi
		FROM readings
		WHERE device_id = ?
		ORDER BY ts_unix_nano DESC
		LIMIT 1`, deviceID)
	if err != nil {
		return nil, storeError(r.Name(), "query latest", err)
	}
	readings, err := scanReadings(rows)
	if err != nil {
		return nil, storeError(r.Name(), "query latest", err)
	}
	if len(readings) == 0 {
		return nil, nil
	}
	return &readings[0], nil
}

func (r *SQLiteRepository) QueryDevices(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT device_id FROM readings ORDER BY device_id`)
	if err != nil {
		return nil, storeError(r.Name(), "query devices", err)
	}
	defer rows.Close()

	var devices []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeError(r.Name(), "query devices", err)
		}
		devices = append(devices, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(r.Name(), "query devices", err)
	}
	return devices, nil
}

func (r *SQLiteRepository) Check(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return storeError(r.Name(), "health", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// scanReadings drains and closes rows.
func scanReadings(rows *sql.Rows) ([]models.Reading, error) {
	defer rows.Close()

	readings := []models.Reading{}
	for rows.Next() {
		var (
			reading models.Reading
			tsNano  int64
			temp    sql.NullFloat64
			rssi    sql.NullInt64
		)
		if err := rows.Scan(&reading.DeviceID, &tsNano, &temp, &rssi); err != nil {
			return nil, errors.Wrap(err, "failed to scan reading")
		}
		reading.Timestamp = time.Unix(0, tsNano).UTC()
		reading.TemperatureC = math.NaN()
		if temp.Valid {
			reading.TemperatureC = temp.Float64
		}
		if rssi.Valid {
			v := int(rssi.Int64)
			reading.RSSI = &v
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating readings")
	}
	return readings, nil
}
