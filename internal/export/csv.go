package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/relvacode/iso8601"

	"BuoyWatch.api/internal/models"
)

// CSV column names. They are part of the download format and must not change.
const (
	ColumnTimestamp   = "timestamp_iso8601"
	ColumnTemperature = "temperature_c"
)

// ToCSV renders points as CSV with a header row, "\n" line endings, UTC
// RFC 3339 timestamps and temperatures to one decimal place. Points whose
// value is not finite are left out.
func ToCSV(points []models.ResampledPoint) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// bytes.Buffer writes cannot fail
	_ = w.Write([]string{ColumnTimestamp, ColumnTemperature})
	for _, p := range points {
		if !finite(p.Value) {
			continue
		}
		_ = w.Write([]string{
			p.Timestamp.UTC().Format(time.RFC3339Nano),
			FormatTemp(p.Value),
		})
	}
	w.Flush()
	return buf.Bytes()
}

// ReadingsToPoints adapts valid raw readings to single-sample points so they
// can be exported through the same formats. Invalid readings are skipped.
func ReadingsToPoints(readings []models.Reading) []models.ResampledPoint {
	out := make([]models.ResampledPoint, 0, len(readings))
	for _, r := range readings {
		if !r.Valid() {
			continue
		}
		out = append(out, models.ResampledPoint{
			Timestamp:   r.Timestamp.UTC(),
			Value:       r.TemperatureC,
			SampleCount: 1,
		})
	}
	return out
}

// ParseCSV reads a file produced by ToCSV. Each row becomes a point with a
// sample count of 1 since the file does not carry bucket sizes.
func ParseCSV(data []byte) ([]models.ResampledPoint, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = 2

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if header[0] != ColumnTimestamp || header[1] != ColumnTemperature {
		return nil, fmt.Errorf("unexpected csv header %q", header)
	}

	points := []models.ResampledPoint{}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		line, _ := r.FieldPos(0)
		ts, err := iso8601.ParseString(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid timestamp %q: %w", line, rec[0], err)
		}
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid temperature %q: %w", line, rec[1], err)
		}
		if !finite(v) {
			return nil, fmt.Errorf("line %d: temperature %q: %w", line, rec[1], ErrNonFinite)
		}
		points = append(points, models.ResampledPoint{Timestamp: ts.UTC(), Value: v, SampleCount: 1})
	}
	return points, nil
}
