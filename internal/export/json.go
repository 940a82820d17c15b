package export

import (
	"encoding/json"
	"time"

	"BuoyWatch.api/internal/models"
)

// PointDoc is one point in the JSON download.
type PointDoc struct {
	Timestamp time.Time `json:"timestamp"`
	Value     Celsius   `json:"value"`
}

// ReadingDoc is the JSON shape of a single reading.
type ReadingDoc struct {
	DeviceID     string    `json:"deviceId"`
	Timestamp    time.Time `json:"timestamp"`
	TemperatureC *Celsius  `json:"temperatureC"`
	RSSI         *int      `json:"rssi,omitempty"`
}

// SummaryDoc is the JSON shape of a window summary. Field order is the
// serialized key order.
type SummaryDoc struct {
	Min        *Celsius    `json:"min"`
	Max        *Celsius    `json:"max"`
	Mean       *Celsius    `json:"mean"`
	Trend      *Celsius    `json:"trend"`
	Latest     *ReadingDoc `json:"latest"`
	PointCount int         `json:"pointCount"`
	StdDev     *Celsius    `json:"stdDev"`
	MinAt      *time.Time  `json:"minAt"`
	MaxAt      *time.Time  `json:"maxAt"`
}

type document struct {
	Points  []PointDoc `json:"points"`
	Summary SummaryDoc `json:"summary"`
}

// ToJSON renders points and their summary as the JSON download document.
func ToJSON(points []models.ResampledPoint, summary models.WindowSummary) ([]byte, error) {
	doc := document{
		Points:  make([]PointDoc, len(points)),
		Summary: NewSummaryDoc(summary),
	}
	for i, p := range points {
		doc.Points[i] = PointDoc{Timestamp: p.Timestamp.UTC(), Value: Celsius(p.Value)}
	}
	return json.Marshal(doc)
}

// NewReadingDoc projects a reading. Temperatures that are not finite become
// null instead of failing the encoder.
func NewReadingDoc(r *models.Reading) *ReadingDoc {
	if r == nil {
		return nil
	}
	doc := &ReadingDoc{
		DeviceID:  r.DeviceID,
		Timestamp: r.Timestamp.UTC(),
		RSSI:      r.RSSI,
	}
	if r.Valid() {
		doc.TemperatureC = celsiusPtr(&r.TemperatureC)
	}
	return doc
}

// NewSummaryDoc projects a summary.
func NewSummaryDoc(s models.WindowSummary) SummaryDoc {
	return SummaryDoc{
		Min:        celsiusPtr(s.Min),
		Max:        celsiusPtr(s.Max),
		Mean:       celsiusPtr(s.Mean),
		Trend:      celsiusPtr(s.Trend),
		Latest:     NewReadingDoc(s.Latest),
		PointCount: s.PointCount,
		StdDev:     celsiusPtr(s.StdDev),
		MinAt:      utcPtr(s.MinAt),
		MaxAt:      utcPtr(s.MaxAt),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
