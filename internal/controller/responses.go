package controller

import (
	"time"

	"BuoyWatch.api/internal/export"
	"BuoyWatch.api/internal/models"
	"BuoyWatch.api/internal/service"
	"BuoyWatch.api/internal/stats"
)

type WindowResponse struct {
	Name            string `json:"name"`
	LookbackSeconds int64  `json:"lookbackSeconds"`
	TargetPoints    int    `json:"targetPoints"`
	BucketSeconds   int64  `json:"bucketSeconds"`
	Default         bool   `json:"default"`
}

type DevicesResponse struct {
	Devices []string `json:"devices"`
}

type StatusResponse struct {
	DeviceID   string             `json:"deviceId"`
	Status     models.Status      `json:"status"`
	AgeSeconds *float64           `json:"ageSeconds"`
	Latest     *export.ReadingDoc `json:"latest"`
	CheckedAt  time.Time          `json:"checkedAt"`
}

type RefreshResponse struct {
	DeviceID  string          `json:"deviceId"`
	Scheduled bool            `json:"scheduled"`
	Last      *StatusResponse `json:"last"`
}

type SeriesResponse struct {
	DeviceID    string             `json:"deviceId"`
	Window      string             `json:"window"`
	From        time.Time          `json:"from"`
	To          time.Time          `json:"to"`
	Chart       export.ChartSeries `json:"chart"`
	Summary     export.SummaryDoc  `json:"summary"`
	Quarantined int                `json:"quarantined"`
}

type BinResponse struct {
	Lower export.Celsius `json:"lower"`
	Upper export.Celsius `json:"upper"`
	Count int            `json:"count"`
}

type HourResponse struct {
	Hour  int            `json:"hour"`
	Mean  export.Celsius `json:"mean"`
	Count int            `json:"count"`
}

type AnalysisResponse struct {
	DeviceID  string            `json:"deviceId"`
	Window    string            `json:"window"`
	From      time.Time         `json:"from"`
	To        time.Time         `json:"to"`
	Summary   export.SummaryDoc `json:"summary"`
	Histogram []BinResponse     `json:"histogram"`
	Hourly    []HourResponse    `json:"hourly"`
}

func newWindowResponse(w models.Window) WindowResponse {
	return WindowResponse{
		Name:            w.Name,
		LookbackSeconds: w.LookbackSeconds(),
		TargetPoints:    w.TargetPoints,
		BucketSeconds:   int64(w.BucketWidth() / time.Second),
		Default:         w == models.DefaultWindow,
	}
}

func newStatusResponse(r *service.StatusReport) StatusResponse {
	resp := StatusResponse{
		DeviceID:  r.DeviceID,
		Status:    r.Status,
		Latest:    export.NewReadingDoc(r.Latest),
		CheckedAt: r.CheckedAt,
	}
	if r.Latest != nil {
		age := r.Age.Seconds()
		resp.AgeSeconds = &age
	}
	return resp
}

func newSeriesResponse(r *service.SeriesReport) SeriesResponse {
	return SeriesResponse{
		DeviceID:    r.DeviceID,
		Window:      r.Label,
		From:        r.From,
		To:          r.To,
		Chart:       export.ToChartSeries(r.Points),
		Summary:     export.NewSummaryDoc(r.Summary),
		Quarantined: r.Quarantined,
	}
}

func newAnalysisResponse(a *service.Analysis) AnalysisResponse {
	resp := AnalysisResponse{
		DeviceID:  a.DeviceID,
		Window:    a.Window.Name,
		From:      a.From,
		To:        a.To,
		Summary:   export.NewSummaryDoc(a.Summary),
		Histogram: make([]BinResponse, len(a.Histogram)),
		Hourly:    make([]HourResponse, len(a.Hourly)),
	}
	for i, b := range a.Histogram {
		resp.Histogram[i] = binResponse(b)
	}
	for i, h := range a.Hourly {
		resp.Hourly[i] = HourResponse{Hour: h.Hour, Mean: export.Celsius(h.Mean), Count: h.Count}
	}
	return resp
}

func binResponse(b stats.Bin) BinResponse {
	return BinResponse{Lower: export.Celsius(b.Lower), Upper: export.Celsius(b.Upper), Count: b.Count}
}
