package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadingValidate(t *testing.T) {
	ts := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		temp  float64
		valid bool
	}{
		{"typical", 11.4, true},
		{"lower bound", MinPlausibleTempC, true},
		{"upper bound", MaxPlausibleTempC, true},
		{"too cold", -5.1, false},
		{"too hot", 40.5, false},
		{"nan", math.NaN(), false},
		{"inf", math.Inf(1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Reading{DeviceID: "buoy", Timestamp: ts, TemperatureC: tc.temp}
			assert.Equal(t, tc.valid, r.Valid())
		})
	}

	assert.Error(t, Reading{DeviceID: "buoy", TemperatureC: 10}.Validate(), "zero timestamp")
}

func TestValidReadingsKeepsOrder(t *testing.T) {
	ts := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	in := []Reading{
		{Timestamp: ts.Add(2 * time.Minute), TemperatureC: 12},
		{Timestamp: ts, TemperatureC: 99},
		{Timestamp: ts.Add(time.Minute), TemperatureC: 11},
	}
	out := ValidReadings(in)
	require.Len(t, out, 2)
	assert.Equal(t, 12.0, out[0].TemperatureC)
	assert.Equal(t, 11.0, out[1].TemperatureC)
	assert.Len(t, in, 3)
}

func TestParseWindow(t *testing.T) {
	for _, w := range Windows() {
		got, err := ParseWindow(w.Name)
		require.NoError(t, err)
		assert.Equal(t, w, got)
		assert.NoError(t, got.Validate())
		assert.LessOrEqual(t, got.TargetPoints, 500)
	}

	_, err := ParseWindow("3y")
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestWindowBucketWidth(t *testing.T) {
	assert.Equal(t, time.Minute, WindowHour.BucketWidth())
	assert.Equal(t, 5*time.Minute, WindowDay.BucketWidth())
	assert.Equal(t, 30*time.Minute, WindowWeek.BucketWidth())
	assert.Equal(t, 2*time.Hour, WindowMonth.BucketWidth())

	assert.ErrorIs(t, Window{Name: "bad", Lookback: time.Hour}.Validate(), ErrInvalidWindow)
	assert.ErrorIs(t, Window{Name: "bad", TargetPoints: 3}.Validate(), ErrInvalidWindow)
	assert.ErrorIs(t, Window{Name: "tiny", Lookback: 2, TargetPoints: 3}.Validate(), ErrInvalidWindow)
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds.Validate())
	assert.ErrorIs(t, Thresholds{Live: 0, Recent: time.Minute}.Validate(), ErrInvalidThresholds)
	assert.ErrorIs(t, Thresholds{Live: time.Hour, Recent: time.Minute}.Validate(), ErrInvalidThresholds)
}
