package models

import "time"

// ResampledPoint is one bucket of a resampled series. Value is the mean of the
// readings in the bucket and SampleCount how many readings contributed.
type ResampledPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Value       float64   `json:"value"`
	SampleCount int       `json:"sampleCount"`
}
