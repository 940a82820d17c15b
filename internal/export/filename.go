package export

import (
	"fmt"
	"strings"

	"BuoyWatch.api/internal/models"
)

// FileName builds the download name for a device export, for example
// "stromness-buoy_water_temp_24h.csv".
func FileName(deviceID, label string, format models.ExportFormat) string {
	return fmt.Sprintf("%s_water_temp_%s.%s", sanitize(deviceID), sanitize(label), format)
}

func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "data"
	}
	return b.String()
}

// ContentType returns the MIME type of an export format.
func ContentType(format models.ExportFormat) string {
	if format == models.FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// ParseFormat accepts "csv" or "json", defaulting to CSV when empty.
func ParseFormat(s string) (models.ExportFormat, error) {
	switch strings.ToLower(s) {
	case "", "csv":
		return models.FormatCSV, nil
	case "json":
		return models.FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}
