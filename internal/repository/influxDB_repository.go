package repository

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/query"

	"BuoyWatch.api/internal/models"
)

// DefaultMeasurement is the measurement the buoy publisher writes to.
const DefaultMeasurement = "water_temperature"

// InfluxDBRepository reads readings from an InfluxDB 2.x bucket. The buoy
// publisher writes points to one measurement tagged with device_id and
// carrying "temperature" and optionally "rssi" fields.
type InfluxDBRepository struct {
	client      influxdb2.Client
	org         string
	bucket      string
	measurement string
}

// NewInfluxDBRepository creates a new InfluxDBRepository.
func NewInfluxDBRepository(url, token, org, bucket, measurement string) *InfluxDBRepository {
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	return &InfluxDBRepository{
		client:      influxdb2.NewClient(url, token),
		org:         org,
		bucket:      bucket,
		measurement: measurement,
	}
}

func (r *InfluxDBRepository) Name() string { return "influxdb" }

// QueryRange scans [from, to]. Flux treats stop as exclusive, so the stop
// bound is pushed out by one nanosecond.
func (r *InfluxDBRepository) QueryRange(ctx context.Context, deviceID string, from, to time.Time) ([]models.Reading, error) {
	flux := fmt.Sprintf(`%s
		|> range(start: %s, stop: %s)
		%s
		|> group()
		|> sort(columns: ["_time"])`,
		r.source(), fluxTime(from), fluxTime(to.Add(time.Nanosecond)), r.filters(deviceID))
	return r.run(ctx, "query range", flux, deviceID)
}

// QueryLatest returns the newest reading of the device.
func (r *InfluxDBRepository) QueryLatest(ctx context.Context, deviceID string) (*models.Reading, error) {
	flux := fmt.Sprintf(`%s
		|> range(start: 0)
		%s
		|> group()
		|> sort(columns: ["_time"], desc: true)
		|> limit(n: 1)`,
		r.source(), r.filters(deviceID))
	readings, err := r.run(ctx, "query latest", flux, deviceID)
	if err != nil || len(readings) == 0 {
		return nil, err
	}
	return &readings[0], nil
}

// QueryDevices lists the distinct device_id tag values of the measurement.
func (r *InfluxDBRepository) QueryDevices(ctx context.Context) ([]string, error) {
	flux := fmt.Sprintf(`%s
		|> range(start: 0)
		|> filter(fn: (r) => r["_measurement"] == %s)
		|> keep(columns: ["device_id"])
		|> group()
		|> distinct(column: "device_id")`,
		r.source(), fluxString(r.measurement))

	result, err := r.client.QueryAPI(r.org).Query(ctx, flux)
	if err != nil {
		return nil, storeError(r.Name(), "query devices", err)
	}
	defer result.Close()

	var devices []string
	for result.Next() {
		if id, ok := result.Record().Value().(string); ok {
			devices = append(devices, id)
		}
	}
	if result.Err() != nil {
		return nil, storeError(r.Name(), "query devices", result.Err())
	}
	return devices, nil
}

// Check verifies the server reports itself healthy.
func (r *InfluxDBRepository) Check(ctx context.Context) error {
	health, err := r.client.Health(ctx)
	if err != nil {
		return storeError(r.Name(), "health", err)
	}
	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return storeError(r.Name(), "health", fmt.Errorf("status %s: %s", health.Status, msg))
	}
	return nil
}

func (r *InfluxDBRepository) Close() error {
	r.client.Close()
	return nil
}

func (r *InfluxDBRepository) source() string {
	return fmt.Sprintf("from(bucket: %s)", fluxString(r.bucket))
}

// filters selects the device's temperature and rssi fields and pivots them
// into one row per timestamp.
func (r *InfluxDBRepository) filters(deviceID string) string {
	return fmt.Sprintf(`|> filter(fn: (r) => r["_measurement"] == %s)
		|> filter(fn: (r) => r["device_id"] == %s)
		|> filter(fn: (r) => r["_field"] == "temperature" or r["_field"] == "rssi")
		|> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")`,
		fluxString(r.measurement), fluxString(deviceID))
}

func (r *InfluxDBRepository) run(ctx context.Context, op, flux, deviceID string) ([]models.Reading, error) {
	result, err := r.client.QueryAPI(r.org).Query(ctx, flux)
	if err != nil {
		return nil, storeError(r.Name(), op, err)
	}
	defer result.Close()

	readings := []models.Reading{}
	for result.Next() {
		readings = append(readings, readingFromRecord(result.Record(), deviceID))
	}
	if result.Err() != nil {
		return nil, storeError(r.Name(), op, result.Err())
	}
	return readings, nil
}

// readingFromRecord decodes a pivoted row. A missing temperature becomes NaN
// so the reading is quarantined downstream rather than read as 0 °C.
func readingFromRecord(rec *query.FluxRecord, deviceID string) models.Reading {
	reading := models.Reading{
		DeviceID:     deviceID,
		Timestamp:    rec.Time().UTC(),
		TemperatureC: math.NaN(),
	}
	if id, ok := rec.ValueByKey("device_id").(string); ok && id != "" {
		reading.DeviceID = id
	}
	switch v := rec.ValueByKey("temperature").(type) {
	case float64:
		reading.TemperatureC = v
	case int64:
		reading.TemperatureC = float64(v)
	}
	switch v := rec.ValueByKey("rssi").(type) {
	case int64:
		rssi := int(v)
		reading.RSSI = &rssi
	case float64:
		rssi := int(math.Round(v))
		reading.RSSI = &rssi
	}
	return reading
}

func fluxTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// fluxString quotes s as a Flux string literal.
func fluxString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "${", `\${`)
	return `"` + r.Replace(s) + `"`
}
