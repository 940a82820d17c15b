package service

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BuoyWatch.api/internal/export"
	"BuoyWatch.api/internal/metrics"
	"BuoyWatch.api/internal/models"
	"BuoyWatch.api/internal/repository"
)

var now = time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, readings []models.Reading, opts ...Option) (*DataService, *repository.SQLiteRepository) {
	t.Helper()
	repo, err := repository.NewSQLiteRepository(filepath.Join(t.TempDir(), "buoy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.SaveReadings(context.Background(), readings))

	client := repository.NewClient(repo, time.Second)
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return NewDataService(client, opts...), repo
}

func at(ago time.Duration, temp float64) models.Reading {
	return models.Reading{DeviceID: "buoy", Timestamp: now.Add(-ago), TemperatureC: temp}
}

func TestWindow(t *testing.T) {
	svc, _ := newTestService(t, []models.Reading{
		at(2*time.Hour, 20),
		at(50*time.Minute, 10.0),
		at(49*time.Minute+30*time.Second, 10.4),
		at(20*time.Minute, math.NaN()),
		at(10*time.Minute, 55),
		at(time.Minute, 11.0),
	})
	w := models.Window{Name: "1h", Lookback: time.Hour, TargetPoints: 2}

	report, err := svc.Window(context.Background(), "buoy", w)
	require.NoError(t, err)
	assert.Equal(t, "1h", report.Label)
	assert.Equal(t, now.Add(-time.Hour), report.From)
	assert.Equal(t, now, report.To)
	assert.Len(t, report.Readings, 5)
	assert.Equal(t, 2, report.Quarantined)

	require.Len(t, report.Points, 2)
	assert.Equal(t, now.Add(-45*time.Minute), report.Points[0].Timestamp)
	assert.InDelta(t, 10.2, report.Points[0].Value, 1e-9)
	assert.Equal(t, 2, report.Points[0].SampleCount)
	assert.Equal(t, now.Add(-15*time.Minute), report.Points[1].Timestamp)
	assert.Equal(t, 1, report.Points[1].SampleCount)

	assert.Equal(t, 3, report.Summary.PointCount)
	require.NotNil(t, report.Summary.Max)
	assert.Equal(t, 11.0, *report.Summary.Max)
}

func TestWindowEmptyIsNotAnError(t *testing.T) {
	svc, _ := newTestService(t, nil)

	report, err := svc.Window(context.Background(), "buoy", models.WindowDay)
	require.NoError(t, err)
	assert.Empty(t, report.Points)
	assert.Equal(t, 0, report.Summary.PointCount)
	assert.Nil(t, report.Summary.Mean)
}

func TestWindowStoreUnavailable(t *testing.T) {
	svc, repo := newTestService(t, nil)
	require.NoError(t, repo.Close())

	_, err := svc.Window(context.Background(), "buoy", models.WindowDay)
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrStoreUnavailable))
}

func TestWindowInvalid(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Window(context.Background(), "buoy", models.Window{Name: "x", Lookback: time.Hour})
	assert.True(t, errors.Is(err, models.ErrInvalidWindow))

	_, err = svc.Window(context.Background(), "", models.WindowDay)
	assert.True(t, errors.Is(err, repository.ErrInvalidRange))
}

func TestCutoff(t *testing.T) {
	readings := []models.Reading{at(3*time.Hour, 12), at(time.Hour, 13)}
	svc, _ := newTestService(t, readings, WithCutoff(now.Add(-2*time.Hour)))

	report, err := svc.Window(context.Background(), "buoy", models.WindowDay)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.PointCount, "readings before the cutoff are not served")

	svc, _ = newTestService(t, readings, WithCutoff(now.Add(time.Hour)))
	report, err = svc.Window(context.Background(), "buoy", models.WindowDay)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Summary.PointCount)
	assert.Empty(t, report.Points)
}

func TestStatus(t *testing.T) {
	m := metrics.New()
	svc, _ := newTestService(t, []models.Reading{at(10*time.Minute, 12.3)}, WithMetrics(m))

	report, err := svc.Status(context.Background(), "buoy")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRecent, report.Status)
	assert.Equal(t, 10*time.Minute, report.Age)
	require.NotNil(t, report.Latest)
	assert.Equal(t, 12.3, report.Latest.TemperatureC)

	report, err = svc.Status(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOffline, report.Status)
	assert.Nil(t, report.Latest)
}

func TestStatusUsesThresholds(t *testing.T) {
	svc, _ := newTestService(t, []models.Reading{at(10*time.Minute, 12.3)},
		WithThresholds(models.Thresholds{Live: 15 * time.Minute, Recent: time.Hour}))

	report, err := svc.Status(context.Background(), "buoy")
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, report.Status)
}

func TestRange(t *testing.T) {
	svc, _ := newTestService(t, []models.Reading{at(3*time.Hour, 12), at(2*time.Hour, 99), at(time.Hour, 13)})

	report, err := svc.Range(context.Background(), "buoy", now.Add(-4*time.Hour), now.Add(-90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "custom", report.Label)
	require.Len(t, report.Points, 1)
	assert.Equal(t, 12.0, report.Points[0].Value)
	assert.Equal(t, 1, report.Quarantined)

	_, err = svc.Range(context.Background(), "buoy", now, now.Add(-time.Hour))
	assert.True(t, errors.Is(err, repository.ErrInvalidRange))
}

func TestExport(t *testing.T) {
	svc, _ := newTestService(t, []models.Reading{at(30*time.Minute, 12.04), at(29*time.Minute, 12.06)})
	ctx := context.Background()

	body, name, contentType, err := svc.Export(ctx, models.SeriesRequest{DeviceID: "buoy", Window: models.WindowHour})
	require.NoError(t, err)
	assert.Equal(t, "buoy_water_temp_1h.csv", name)
	assert.Equal(t, "text/csv", contentType)
	points, err := export.ParseCSV(body)
	require.NoError(t, err)
	assert.Len(t, points, 2)

	_, name, _, err = svc.Export(ctx, models.SeriesRequest{DeviceID: "buoy", Window: models.WindowHour, Raw: true, Format: models.FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, "buoy_water_temp_1h_raw.json", name)

	body, name, _, err = svc.Export(ctx, models.SeriesRequest{
		DeviceID: "buoy",
		From:     now.Add(-time.Hour),
		Format:   models.FormatJSON,
	})
	require.NoError(t, err)
	assert.Equal(t, "buoy_water_temp_custom.json", name)
	assert.True(t, strings.HasPrefix(string(body), `{"points":[`))
}

func TestAnalyze(t *testing.T) {
	svc, _ := newTestService(t, []models.Reading{
		at(3*time.Hour, 10), at(2*time.Hour, 12), at(time.Hour, 14),
	})

	a, err := svc.Analyze(context.Background(), "buoy", models.WindowDay, 4)
	require.NoError(t, err)
	require.Len(t, a.Histogram, 4)
	total := 0
	for _, b := range a.Histogram {
		total += b.Count
	}
	assert.Equal(t, 3, total)
	assert.Len(t, a.Hourly, 3)
	assert.Equal(t, 3, a.Summary.PointCount)
}
