// Package resample reduces an irregular reading sequence to a bounded series
// of fixed-width bucket means.
package resample

import (
	"sort"
	"time"

	"BuoyWatch.api/internal/models"
)

// ResampleFrom buckets readings into w.TargetPoints fixed-width buckets
// aligned to start. Readings outside [start, start+w.Lookback] and invalid
// readings are ignored; a reading at exactly the window end belongs to the
// last bucket. Empty buckets are omitted. When no more than w.TargetPoints
// readings remain they are passed through unchanged with a sample count of 1.
func ResampleFrom(readings []models.Reading, w models.Window, start time.Time) ([]models.ResampledPoint, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	end := start.Add(w.Lookback)
	in := sortedValid(readings, func(r models.Reading) bool {
		return !r.Timestamp.Before(start) && !r.Timestamp.After(end)
	})
	return bucketize(in, w, start), nil
}

// Resample is ResampleFrom anchored at the earliest valid reading. Input with
// no more than w.TargetPoints valid readings passes through whole, however
// long its span; larger input is cut at one lookback past its first reading.
func Resample(readings []models.Reading, w models.Window) ([]models.ResampledPoint, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	valid := sortedValid(readings, nil)
	if len(valid) <= w.TargetPoints {
		return passThrough(valid), nil
	}
	start := valid[0].Timestamp
	end := start.Add(w.Lookback)
	n := sort.Search(len(valid), func(i int) bool { return valid[i].Timestamp.After(end) })
	return bucketize(valid[:n], w, start), nil
}

// sortedValid copies the valid readings accepted by keep and sorts the copy
// by time. Equal timestamps keep their input order.
func sortedValid(readings []models.Reading, keep func(models.Reading) bool) []models.Reading {
	out := make([]models.Reading, 0, len(readings))
	for _, r := range readings {
		if !r.Valid() {
			continue
		}
		if keep != nil && !keep(r) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func bucketize(sorted []models.Reading, w models.Window, start time.Time) []models.ResampledPoint {
	if len(sorted) <= w.TargetPoints {
		return passThrough(sorted)
	}

	width := w.BucketWidth()
	out := make([]models.ResampledPoint, 0, w.TargetPoints)

	current := -1
	var sum float64
	var count int
	flush := func() {
		if count == 0 {
			return
		}
		mid := start.Add(time.Duration(current)*width + width/2)
		out = append(out, models.ResampledPoint{
			Timestamp:   mid.UTC(),
			Value:       sum / float64(count),
			SampleCount: count,
		})
	}

	for _, r := range sorted {
		idx := int(r.Timestamp.Sub(start) / width)
		// width*TargetPoints can fall short of the lookback after integer
		// division; the remainder joins the last bucket.
		if idx >= w.TargetPoints {
			idx = w.TargetPoints - 1
		}
		if idx != current {
			flush()
			current = idx
			sum = 0
			count = 0
		}
		sum += r.TemperatureC
		count++
	}
	flush()

	return out
}

func passThrough(sorted []models.Reading) []models.ResampledPoint {
	out := make([]models.ResampledPoint, len(sorted))
	for i, r := range sorted {
		out[i] = models.ResampledPoint{
			Timestamp:   r.Timestamp.UTC(),
			Value:       r.TemperatureC,
			SampleCount: 1,
		}
	}
	return out
}
