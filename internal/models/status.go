package models

import (
	"errors"
	"fmt"
	"time"
)

// Status is the freshness of a device's most recent reading.
type Status string

const (
	StatusLive    Status = "live"
	StatusRecent  Status = "recent"
	StatusOffline Status = "offline"
)

// ErrInvalidThresholds is returned when freshness thresholds are not ordered.
var ErrInvalidThresholds = errors.New("invalid status thresholds")

// Thresholds bound the age of the latest reading for each status. A reading
// younger than Live is live, younger than Recent is recent, anything else is
// offline.
type Thresholds struct {
	Live   time.Duration
	Recent time.Duration
}

// DefaultThresholds mirror the dashboard's five and thirty minute cutoffs.
var DefaultThresholds = Thresholds{
	Live:   5 * time.Minute,
	Recent: 30 * time.Minute,
}

func (t Thresholds) Validate() error {
	if t.Live <= 0 {
		return fmt.Errorf("%w: live threshold must be positive", ErrInvalidThresholds)
	}
	if t.Recent <= t.Live {
		return fmt.Errorf("%w: recent threshold %s must exceed live threshold %s", ErrInvalidThresholds, t.Recent, t.Live)
	}
	return nil
}

// Gauge maps a status to a number for metrics: 2 live, 1 recent, 0 offline.
func (s Status) Gauge() float64 {
	switch s {
	case StatusLive:
		return 2
	case StatusRecent:
		return 1
	default:
		return 0
	}
}
