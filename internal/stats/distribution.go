package stats

import (
	"BuoyWatch.api/internal/models"
)

// DefaultHistogramBins matches the dashboard's distribution chart.
const DefaultHistogramBins = 20

// Bin is one histogram bucket covering [Lower, Upper). The last bin is closed.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// HourlyMean is the mean temperature observed during one UTC hour of the day.
type HourlyMean struct {
	Hour  int     `json:"hour"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// Histogram spreads the valid readings over equal-width temperature bins
// spanning their observed range. When every reading has the same temperature
// a single bin holds them all. Empty input yields no bins.
func Histogram(readings []models.Reading, bins int) []Bin {
	valid := models.ValidReadings(readings)
	if len(valid) == 0 {
		return []Bin{}
	}
	if bins <= 0 {
		bins = DefaultHistogramBins
	}

	lo, hi := valid[0].TemperatureC, valid[0].TemperatureC
	for _, r := range valid[1:] {
		lo = min(lo, r.TemperatureC)
		hi = max(hi, r.TemperatureC)
	}
	if lo == hi {
		return []Bin{{Lower: lo, Upper: hi, Count: len(valid)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, r := range valid {
		idx := int((r.TemperatureC - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

// HourlyProfile averages the valid readings by UTC hour of day. Hours without
// readings are left out; the result is ordered by hour.
func HourlyProfile(readings []models.Reading) []HourlyMean {
	var sums [24]float64
	var counts [24]int
	for _, r := range readings {
		if !r.Valid() {
			continue
		}
		h := r.Timestamp.UTC().Hour()
		sums[h] += r.TemperatureC
		counts[h]++
	}

	out := make([]HourlyMean, 0, 24)
	for h := 0; h < 24; h++ {
		if counts[h] == 0 {
			continue
		}
		out = append(out, HourlyMean{Hour: h, Mean: sums[h] / float64(counts[h]), Count: counts[h]})
	}
	return out
}
