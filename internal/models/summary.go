package models

import "time"

// WindowSummary holds window-level statistics over raw readings. The pointer
// statistics are nil when the window holds no valid readings.
type WindowSummary struct {
	Min        *float64 `json:"min"`
	Max        *float64 `json:"max"`
	Mean       *float64 `json:"mean"`
	Trend      *float64 `json:"trend"`
	Latest     *Reading `json:"latest"`
	PointCount int      `json:"pointCount"`

	StdDev *float64   `json:"stdDev"`
	MinAt  *time.Time `json:"minAt"`
	MaxAt  *time.Time `json:"maxAt"`
}

// Empty reports whether the summary covers no readings.
func (s WindowSummary) Empty() bool {
	return s.PointCount == 0
}
