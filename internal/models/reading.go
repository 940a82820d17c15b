package models

import (
	"fmt"
	"math"
	"time"
)

// Plausible water temperature range for the buoy sensor, in degrees Celsius.
const (
	MinPlausibleTempC = -5.0
	MaxPlausibleTempC = 40.0
)

// Reading is a single temperature sample published by a device.
type Reading struct {
	DeviceID     string    `json:"deviceId"`
	Timestamp    time.Time `json:"timestamp"`
	TemperatureC float64   `json:"temperatureC"`
	// RSSI is the radio signal strength in dBm, when the publisher reported it.
	RSSI *int `json:"rssi,omitempty"`
}

// Validate reports why a reading cannot be used for statistics, or nil.
// A missing temperature column is decoded as NaN and fails here.
func (r Reading) Validate() error {
	if math.IsNaN(r.TemperatureC) || math.IsInf(r.TemperatureC, 0) {
		return fmt.Errorf("temperature is not a finite number")
	}
	if r.TemperatureC < MinPlausibleTempC || r.TemperatureC > MaxPlausibleTempC {
		return fmt.Errorf("temperature %.2f outside plausible range [%.0f, %.0f]",
			r.TemperatureC, MinPlausibleTempC, MaxPlausibleTempC)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is missing")
	}
	return nil
}

// Valid is shorthand for Validate() == nil.
func (r Reading) Valid() bool {
	return r.Validate() == nil
}

// ValidReadings returns the valid readings of rs in their original order.
// The input slice is not modified.
func ValidReadings(rs []Reading) []Reading {
	out := make([]Reading, 0, len(rs))
	for _, r := range rs {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}
