// Package stats computes window summaries and distribution views over raw
// readings.
package stats

import (
	"math"
	"sort"

	"BuoyWatch.api/internal/models"
)

// Summarize computes statistics over the valid readings. It never fails: an
// empty or all-invalid input yields a summary with PointCount 0 and nil
// statistics.
func Summarize(readings []models.Reading) models.WindowSummary {
	valid := sortedValid(readings)
	n := len(valid)
	if n == 0 {
		return models.WindowSummary{}
	}

	minR, maxR := valid[0], valid[0]
	var sum float64
	for _, r := range valid {
		sum += r.TemperatureC
		if r.TemperatureC < minR.TemperatureC {
			minR = r
		}
		if r.TemperatureC > maxR.TemperatureC {
			maxR = r
		}
	}
	mean := sum / float64(n)

	var sq float64
	for _, r := range valid {
		d := r.TemperatureC - mean
		sq += d * d
	}

	latest := valid[n-1]
	minAt := minR.Timestamp.UTC()
	maxAt := maxR.Timestamp.UTC()

	s := models.WindowSummary{
		Min:        ptr(minR.TemperatureC),
		Max:        ptr(maxR.TemperatureC),
		Mean:       ptr(mean),
		Latest:     &latest,
		PointCount: n,
		MinAt:      &minAt,
		MaxAt:      &maxAt,
	}
	if n >= 2 {
		// sample standard deviation, as the dashboard reported it
		s.StdDev = ptr(math.Sqrt(sq / float64(n-1)))
		if trend, ok := Trend(valid); ok {
			s.Trend = ptr(trend)
		}
	}
	return s
}

// Trend is the mean of the last tenth of the sorted readings minus the mean of
// the first tenth. A tenth is never smaller than one reading. ok is false for
// fewer than two readings, where no trend exists.
func Trend(sorted []models.Reading) (trend float64, ok bool) {
	n := len(sorted)
	if n < 2 {
		return 0, false
	}
	k := n / 10
	if k < 1 {
		k = 1
	}
	return meanTemp(sorted[n-k:]) - meanTemp(sorted[:k]), true
}

func meanTemp(rs []models.Reading) float64 {
	var sum float64
	for _, r := range rs {
		sum += r.TemperatureC
	}
	return sum / float64(len(rs))
}

func sortedValid(readings []models.Reading) []models.Reading {
	valid := models.ValidReadings(readings)
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Timestamp.Before(valid[j].Timestamp)
	})
	return valid
}

func ptr[T any](v T) *T {
	return &v
}
