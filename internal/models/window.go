package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned for unknown window names and windows that
// cannot produce any buckets.
var ErrInvalidWindow = errors.New("invalid window")

// Window is a named lookback span together with the maximum number of points
// a resampled series for it may contain.
type Window struct {
	Name         string        `json:"name"`
	Lookback     time.Duration `json:"-"`
	TargetPoints int           `json:"targetPoints"`
}

var (
	WindowHour    = Window{Name: "1h", Lookback: time.Hour, TargetPoints: 60}
	WindowSixHour = Window{Name: "6h", Lookback: 6 * time.Hour, TargetPoints: 360}
	WindowDay     = Window{Name: "24h", Lookback: 24 * time.Hour, TargetPoints: 288}
	WindowWeek    = Window{Name: "7d", Lookback: 7 * 24 * time.Hour, TargetPoints: 336}
	WindowMonth   = Window{Name: "30d", Lookback: 30 * 24 * time.Hour, TargetPoints: 360}
)

// DefaultWindow is used when a request names no window.
var DefaultWindow = WindowDay

// Windows returns all supported windows, shortest first.
func Windows() []Window {
	return []Window{WindowHour, WindowSixHour, WindowDay, WindowWeek, WindowMonth}
}

// ParseWindow resolves a window by name.
func ParseWindow(name string) (Window, error) {
	for _, w := range Windows() {
		if w.Name == name {
			return w, nil
		}
	}
	return Window{}, fmt.Errorf("%w: unknown window %q", ErrInvalidWindow, name)
}

// Validate checks that the window can be bucketed.
func (w Window) Validate() error {
	if w.Lookback <= 0 {
		return fmt.Errorf("%w: lookback must be positive", ErrInvalidWindow)
	}
	if w.TargetPoints <= 0 {
		return fmt.Errorf("%w: target point count must be positive", ErrInvalidWindow)
	}
	if w.BucketWidth() <= 0 {
		return fmt.Errorf("%w: lookback %s too short for %d points", ErrInvalidWindow, w.Lookback, w.TargetPoints)
	}
	return nil
}

// BucketWidth is the fixed width of one resampling bucket.
func (w Window) BucketWidth() time.Duration {
	if w.TargetPoints <= 0 {
		return 0
	}
	return w.Lookback / time.Duration(w.TargetPoints)
}

// LookbackSeconds is exposed to API clients alongside the name.
func (w Window) LookbackSeconds() int64 {
	return int64(w.Lookback / time.Second)
}

func (w Window) String() string {
	return w.Name
}
