// Package freshness derives a device's live/recent/offline status from the
// timestamp of its most recent reading.
package freshness

import (
	"time"

	"BuoyWatch.api/internal/models"
)

// Classify maps the latest reading to a status relative to now. A nil reading
// means the device never reported and is offline. Readings stamped in the
// future count as live.
func Classify(latest *models.Reading, now time.Time, th models.Thresholds) models.Status {
	if latest == nil {
		return models.StatusOffline
	}
	age := Age(latest, now)
	switch {
	case age < th.Live:
		return models.StatusLive
	case age < th.Recent:
		return models.StatusRecent
	default:
		return models.StatusOffline
	}
}

// Age returns how long ago the reading was taken, clamped at zero. It returns
// zero for a nil reading.
func Age(latest *models.Reading, now time.Time) time.Duration {
	if latest == nil {
		return 0
	}
	age := now.Sub(latest.Timestamp)
	if age < 0 {
		return 0
	}
	return age
}
