package export

import (
	"time"

	"BuoyWatch.api/internal/models"
)

// ChartPoint is one plotted sample: X is the bucket time, Y the temperature
// and N how many raw readings it stands for.
type ChartPoint struct {
	X time.Time `json:"x"`
	Y Celsius   `json:"y"`
	N int       `json:"n"`
}

// Band is a shaded horizontal range drawn behind the series.
type Band struct {
	Label string  `json:"label"`
	From  float64 `json:"from"`
	To    float64 `json:"to"`
}

// ChartSeries is the display structure for one temperature line.
type ChartSeries struct {
	Name   string       `json:"name"`
	Unit   string       `json:"unit"`
	Points []ChartPoint `json:"points"`
	Bands  []Band       `json:"bands"`
}

// SwimmingBands are the open-water swimming temperature bands shown on the
// main chart.
var SwimmingBands = []Band{
	{Label: "Baltic", From: 0, To: 6},
	{Label: "Freezing", From: 6, To: 11},
	{Label: "Fresh", From: 12, To: 16},
	{Label: "Summer", From: 17, To: 20},
	{Label: "Warm", From: 21, To: 30},
}

// ToChartSeries projects resampled points into a chart series. Gaps in the
// input stay gaps.
func ToChartSeries(points []models.ResampledPoint) ChartSeries {
	out := make([]ChartPoint, len(points))
	for i, p := range points {
		out[i] = ChartPoint{X: p.Timestamp.UTC(), Y: Celsius(p.Value), N: p.SampleCount}
	}
	bands := make([]Band, len(SwimmingBands))
	copy(bands, SwimmingBands)
	return ChartSeries{
		Name:   "Water Temperature",
		Unit:   "celsius",
		Points: out,
		Bands:  bands,
	}
}
