package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/relvacode/iso8601"

	"BuoyWatch.api/internal/models"
)

// DefaultSupabaseTable is the table the buoy publisher inserts into.
const DefaultSupabaseTable = "water_temperature"

// PostgREST caps unpaginated responses at 1000 rows by default.
const defaultPageSize = 1000

// SupabaseRepository reads readings through the PostgREST interface of a
// Supabase project.
type SupabaseRepository struct {
	client   *resty.Client
	table    string
	pageSize int
}

// supabaseRow is one row of the readings table as PostgREST returns it.
type supabaseRow struct {
	DeviceID    string   `json:"device_id"`
	Timestamp   string   `json:"timestamp"`
	Temperature *float64 `json:"temperature"`
	RSSI        *float64 `json:"rssi"`
}

// NewSupabaseRepository creates a new SupabaseRepository for the project at
// baseURL authenticated with the anon key.
func NewSupabaseRepository(baseURL, anonKey, table string) *SupabaseRepository {
	if table == "" {
		table = DefaultSupabaseTable
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/rest/v1").
		SetHeader("apikey", anonKey).
		SetAuthToken(anonKey).
		SetHeader("Accept", "application/json")
	return &SupabaseRepository{client: client, table: table, pageSize: defaultPageSize}
}

func (r *SupabaseRepository) Name() string { return "supabase" }

// QueryRange pages through [from, to] so long windows are not cut off at
// the server's row cap. The cap (PostgREST max-rows) may be lower than the
// page size, so a short page does not end the scan; only an empty one does.
func (r *SupabaseRepository) QueryRange(ctx context.Context, deviceID string, from, to time.Time) ([]models.Reading, error) {
	readings := []models.Reading{}
	offset := 0
	for {
		params := url.Values{}
		params.Set("select", "device_id,timestamp,temperature,rssi")
		params.Set("device_id", "eq."+deviceID)
		params.Add("timestamp", "gte."+from.UTC().Format(time.RFC3339Nano))
		params.Add("timestamp", "lte."+to.UTC().Format(time.RFC3339Nano))
		params.Set("order", "timestamp.asc")
		params.Set("limit", strconv.Itoa(r.pageSize))
		params.Set("offset", strconv.Itoa(offset))

		var rows []supabaseRow
		if err := r.get(ctx, params, &rows); err != nil {
			return nil, storeError(r.Name(), "query range", err)
		}
		for _, row := range rows {
			reading, err := row.reading(deviceID)
			if err != nil {
				return nil, storeError(r.Name(), "query range", err)
			}
			readings = append(readings, reading)
		}
		if len(rows) == 0 {
			return readings, nil
		}
		offset += len(rows)
	}
}

// QueryLatest returns the newest row for the device.
func (r *SupabaseRepository) QueryLatest(ctx context.Context, deviceID string) (*models.Reading, error) {
	params := url.Values{}
	params.Set("select", "device_id,timestamp,temperature,rssi")
	params.Set("device_id", "eq."+deviceID)
	params.Set("order", "timestamp.desc")
	params.Set("limit", "1")

	var rows []supabaseRow
	if err := r.get(ctx, params, &rows); err != nil {
		return nil, storeError(r.Name(), "query latest", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	reading, err := rows[0].reading(deviceID)
	if err != nil {
		return nil, storeError(r.Name(), "query latest", err)
	}
	return &reading, nil
}

// QueryDevices walks the distinct device ids one at a time, each request
// asking for the first id greater than the previous one. PostgREST has no
// DISTINCT, and the device count is small.
func (r *SupabaseRepository) QueryDevices(ctx context.Context) ([]string, error) {
	var devices []string
	last := ""
	for {
		params := url.Values{}
		params.Set("select", "device_id")
		params.Set("order", "device_id.asc")
		params.Set("limit", "1")
		if last != "" {
			params.Set("device_id", "gt."+last)
		}

		var rows []supabaseRow
		if err := r.get(ctx, params, &rows); err != nil {
			return nil, storeError(r.Name(), "query devices", err)
		}
		if len(rows) == 0 || rows[0].DeviceID == "" || rows[0].DeviceID == last {
			return devices, nil
		}
		last = rows[0].DeviceID
		devices = append(devices, last)
	}
}

// Check issues a one-row read against the table.
func (r *SupabaseRepository) Check(ctx context.Context) error {
	params := url.Values{}
	params.Set("select", "timestamp")
	params.Set("limit", "1")
	var rows []supabaseRow
	if err := r.get(ctx, params, &rows); err != nil {
		return storeError(r.Name(), "health", err)
	}
	return nil
}

func (r *SupabaseRepository) Close() error { return nil }

func (r *SupabaseRepository) get(ctx context.Context, params url.Values, out interface{}) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get("/" + r.table)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("status %d: %s", resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// reading converts a row. A null temperature becomes NaN so the row is
// quarantined downstream.
func (row supabaseRow) reading(deviceID string) (models.Reading, error) {
	ts, err := iso8601.ParseString(row.Timestamp)
	if err != nil {
		return models.Reading{}, fmt.Errorf("parse timestamp %q: %w", row.Timestamp, err)
	}
	reading := models.Reading{
		DeviceID:     deviceID,
		Timestamp:    ts.UTC(),
		TemperatureC: math.NaN(),
	}
	if row.DeviceID != "" {
		reading.DeviceID = row.DeviceID
	}
	if row.Temperature != nil {
		reading.TemperatureC = *row.Temperature
	}
	if row.RSSI != nil {
		rssi := int(math.Round(*row.RSSI))
		reading.RSSI = &rssi
	}
	return reading, nil
}
