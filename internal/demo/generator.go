// Package demo produces synthetic buoy readings for running the service
// without a live store.
package demo

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"BuoyWatch.api/internal/models"
)

// Interval is the cadence of generated readings.
const Interval = 5 * time.Minute

// Typical harbour water temperature the series oscillates around.
const baseTempC = 12.0

// Saver persists readings.
type Saver interface {
	SaveReadings(ctx context.Context, readings []models.Reading) error
}

// Generate returns readings every Interval over [end-span, end]: a diurnal
// swing peaking mid-afternoon, gaussian noise, a slow drift and an RSSI that
// is missing about one time in ten.
func Generate(deviceID string, end time.Time, span time.Duration, rng *rand.Rand) []models.Reading {
	end = end.UTC().Truncate(Interval)
	start := end.Add(-span)

	var out []models.Reading
	for i, ts := 0, start; !ts.After(end); i, ts = i+1, ts.Add(Interval) {
		hourEffect := math.Sin(float64(ts.Hour()-6)*math.Pi/12) * 1.5
		noise := rng.NormFloat64() * 0.3
		drift := math.Sin(float64(i)*0.01) * 0.5
		temp := decimal.NewFromFloat(baseTempC + hourEffect + noise + drift).Round(2).InexactFloat64()

		r := models.Reading{DeviceID: deviceID, Timestamp: ts, TemperatureC: temp}
		if rng.Float64() > 0.1 {
			rssi := -80 + rng.Intn(21)
			r.RSSI = &rssi
		}
		out = append(out, r)
	}
	return out
}

// Seed generates span of readings ending at end for every device and saves
// them.
func Seed(ctx context.Context, store Saver, deviceIDs []string, end time.Time, span time.Duration, rng *rand.Rand) (int, error) {
	total := 0
	for _, id := range deviceIDs {
		readings := Generate(id, end, span, rng)
		if err := store.SaveReadings(ctx, readings); err != nil {
			return total, err
		}
		total += len(readings)
	}
	return total, nil
}
