package models

import "time"

// ExportFormat is the file format of a download.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// SeriesRequest describes one windowed or custom-range query for a device.
// When From is set the request covers [From, To] instead of the window's
// lookback; a zero To means now.
type SeriesRequest struct {
	DeviceID string
	Window   Window
	From     time.Time
	To       time.Time
	Format   ExportFormat
	// Raw skips resampling and exports the valid raw readings.
	Raw bool
}

// CustomRange reports whether the request names explicit bounds.
func (r SeriesRequest) CustomRange() bool {
	return !r.From.IsZero()
}
