package repository

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BuoyWatch.api/internal/config"
	"BuoyWatch.api/internal/models"
)

type fakeBackend struct {
	readings []models.Reading
	latest   *models.Reading
	devices  []string
	err      error
	block    bool

	gotFrom, gotTo time.Time
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) QueryRange(ctx context.Context, _ string, from, to time.Time) ([]models.Reading, error) {
	f.gotFrom, f.gotTo = from, to
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.readings, f.err
}

func (f *fakeBackend) QueryLatest(ctx context.Context, _ string) (*models.Reading, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.latest, f.err
}

func (f *fakeBackend) QueryDevices(context.Context) ([]string, error) {
	return f.devices, f.err
}

func (f *fakeBackend) Check(context.Context) error { return f.err }
func (f *fakeBackend) Close() error                { return nil }

var t0 = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func reading(offset time.Duration, temp float64) models.Reading {
	return models.Reading{DeviceID: "buoy", Timestamp: t0.Add(offset), TemperatureC: temp}
}

func TestFetchRangeInvalid(t *testing.T) {
	c := NewClient(&fakeBackend{}, time.Second)
	ctx := context.Background()

	_, err := c.FetchRange(ctx, "", t0, t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = c.FetchRange(ctx, "buoy", t0, t0)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = c.FetchRange(ctx, "buoy", t0.Add(time.Hour), t0)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = c.FetchRange(ctx, "buoy", time.Time{}, t0)
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)
}

func TestFetchRangeDefaultsToNow(t *testing.T) {
	fb := &fakeBackend{}
	c := NewClient(fb, time.Second, WithClock(func() time.Time { return t0 }))

	got, err := c.FetchRange(context.Background(), "buoy", t0.Add(-time.Hour), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Equal(t, t0, fb.gotTo)
	assert.Equal(t, t0.Add(-time.Hour), fb.gotFrom)
}

func TestFetchRangeNormalizes(t *testing.T) {
	loc := time.FixedZone("CEST", 2*3600)
	dup := reading(time.Minute, 11)
	dup.Timestamp = dup.Timestamp.In(loc)
	fb := &fakeBackend{readings: []models.Reading{
		reading(2*time.Minute, 12),
		reading(time.Minute, 10),
		dup,
		reading(0, 9),
	}}
	c := NewClient(fb, time.Second)

	got, err := c.FetchRange(context.Background(), "buoy", t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 9.0, got[0].TemperatureC)
	assert.Equal(t, 11.0, got[1].TemperatureC, "last write wins on duplicate timestamps")
	assert.Equal(t, 12.0, got[2].TemperatureC)
	for _, r := range got {
		assert.Equal(t, time.UTC, r.Timestamp.Location())
	}
	assert.Equal(t, 12.0, fb.readings[0].TemperatureC, "input not reordered")
}

func TestFetchRangeTimeout(t *testing.T) {
	c := NewClient(&fakeBackend{block: true}, 20*time.Millisecond)

	start := time.Now()
	_, err := c.FetchRange(context.Background(), "buoy", t0, t0.Add(time.Hour))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchRangeCallerCancel(t *testing.T) {
	c := NewClient(&fakeBackend{block: true}, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchRange(ctx, "buoy", t0, t0.Add(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)
}

func TestFetchRangeBackendFailure(t *testing.T) {
	cause := errors.New("connection refused")
	c := NewClient(&fakeBackend{err: cause}, time.Second)

	_, err := c.FetchRange(context.Background(), "buoy", t0, t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)

	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "fake", se.Backend)
	assert.Equal(t, "query range", se.Op)
}

func TestFetchLatest(t *testing.T) {
	c := NewClient(&fakeBackend{}, time.Second)
	got, err := c.FetchLatest(context.Background(), "buoy")
	require.NoError(t, err)
	assert.Nil(t, got)

	r := reading(0, 14.2)
	r.Timestamp = r.Timestamp.In(time.FixedZone("X", 3600))
	c = NewClient(&fakeBackend{latest: &r}, time.Second)
	got, err = c.FetchLatest(context.Background(), "buoy")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 14.2, got.TemperatureC)
	assert.Equal(t, time.UTC, got.Timestamp.Location())

	_, err = c.FetchLatest(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestListDevices(t *testing.T) {
	c := NewClient(&fakeBackend{devices: []string{"b", "a", "", "b"}}, time.Second)
	got, err := c.ListDevices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestNormalizeKeepsInvalid(t *testing.T) {
	got := Normalize([]models.Reading{reading(time.Minute, math.NaN()), reading(0, 99)})
	require.Len(t, got, 2)
	assert.Equal(t, 99.0, got[0].TemperatureC)
	assert.True(t, math.IsNaN(got[1].TemperatureC))
}

func TestOpenBackend(t *testing.T) {
	b, err := OpenBackend(config.Config{StoreBackend: config.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", b.Name())
	require.NoError(t, b.Close())

	b, err = OpenBackend(config.Config{StoreBackend: config.BackendSupabase, SupabaseURL: "http://localhost"})
	require.NoError(t, err)
	assert.Equal(t, "supabase", b.Name())

	b, err = OpenBackend(config.Config{StoreBackend: config.BackendInfluxDB, InfluxDBURL: "http://localhost:8086"})
	require.NoError(t, err)
	assert.Equal(t, "influxdb", b.Name())
	require.NoError(t, b.Close())

	_, err = OpenBackend(config.Config{StoreBackend: "csv"})
	assert.Error(t, err)
}
