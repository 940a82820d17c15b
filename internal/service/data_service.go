package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"BuoyWatch.api/internal/export"
	"BuoyWatch.api/internal/freshness"
	"BuoyWatch.api/internal/metrics"
	"BuoyWatch.api/internal/models"
	"BuoyWatch.api/internal/repository"
	"BuoyWatch.api/internal/resample"
	"BuoyWatch.api/internal/stats"
)

// DefaultDataCutoff is the earliest instant with trustworthy buoy data.
// Readings before it came from the bench test and are never served.
var DefaultDataCutoff = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

// DataService handles the business logic for turning stored readings into
// windowed series, summaries, status and downloads.
type DataService struct {
	store      *repository.Client
	thresholds models.Thresholds
	cutoff     time.Time
	now        func() time.Time
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a DataService.
type Option func(*DataService)

func WithThresholds(th models.Thresholds) Option {
	return func(s *DataService) { s.thresholds = th }
}

// WithCutoff sets the earliest instant served. A zero time disables the clamp.
func WithCutoff(cutoff time.Time) Option {
	return func(s *DataService) { s.cutoff = cutoff.UTC() }
}

func WithClock(now func() time.Time) Option {
	return func(s *DataService) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *DataService) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *DataService) { s.metrics = m }
}

// NewDataService creates a new DataService.
func NewDataService(store *repository.Client, opts ...Option) *DataService {
	s := &DataService{
		store:      store,
		thresholds: models.DefaultThresholds,
		cutoff:     DefaultDataCutoff,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Thresholds returns the freshness thresholds in use.
func (s *DataService) Thresholds() models.Thresholds {
	return s.thresholds
}

// SeriesReport is the result of one windowed or custom-range query.
type SeriesReport struct {
	DeviceID string
	// Label names the query: the window name or "custom".
	Label  string
	From   time.Time
	To     time.Time
	Points []models.ResampledPoint
	// Readings holds the raw rows as returned by the store, invalid ones
	// included.
	Readings    []models.Reading
	Summary     models.WindowSummary
	Quarantined int
}

// StatusReport is the freshness of a device's most recent reading.
type StatusReport struct {
	DeviceID  string
	Status    models.Status
	Latest    *models.Reading
	Age       time.Duration
	CheckedAt time.Time
}

// Analysis is the temperature distribution and hour-of-day profile of a window.
type Analysis struct {
	DeviceID  string
	Window    models.Window
	From      time.Time
	To        time.Time
	Summary   models.WindowSummary
	Histogram []stats.Bin
	Hourly    []stats.HourlyMean
}

// Devices lists the devices known to the store.
func (s *DataService) Devices(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := s.store.ListDevices(ctx)
	s.metrics.ObserveStoreQuery("devices", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(err, "error listing devices")
	}
	return ids, nil
}

// Status fetches the latest reading and classifies its freshness.
func (s *DataService) Status(ctx context.Context, deviceID string) (*StatusReport, error) {
	start := time.Now()
	latest, err := s.store.FetchLatest(ctx, deviceID)
	s.metrics.ObserveStoreQuery("latest", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrapf(err, "error fetching latest reading for %s", deviceID)
	}

	now := s.now().UTC()
	report := &StatusReport{
		DeviceID:  deviceID,
		Status:    freshness.Classify(latest, now, s.thresholds),
		Latest:    latest,
		Age:       freshness.Age(latest, now),
		CheckedAt: now,
	}
	s.metrics.SetStatus(deviceID, report.Status, report.Age, latest != nil)
	return report, nil
}

// Window fetches the trailing window ending now, resamples it onto buckets
// aligned to the window start and summarizes the raw readings.
func (s *DataService) Window(ctx context.Context, deviceID string, w models.Window) (*SeriesReport, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	to := s.now().UTC()
	start := to.Add(-w.Lookback)

	readings, err := s.fetch(ctx, deviceID, start, to)
	if err != nil {
		return nil, err
	}
	points, err := resample.ResampleFrom(readings, w, start)
	if err != nil {
		return nil, err
	}
	return s.report(deviceID, w.Name, start, to, readings, points), nil
}

// Range serves an explicit [from, to] interval without resampling. A zero to
// means now.
func (s *DataService) Range(ctx context.Context, deviceID string, from, to time.Time) (*SeriesReport, error) {
	if to.IsZero() {
		to = s.now()
	}
	from, to = from.UTC(), to.UTC()
	if from.IsZero() || !from.Before(to) {
		return nil, errors.Wrapf(repository.ErrInvalidRange, "from %s must be before to %s",
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	readings, err := s.fetch(ctx, deviceID, from, to)
	if err != nil {
		return nil, err
	}
	return s.report(deviceID, "custom", from, to, readings, export.ReadingsToPoints(readings)), nil
}

// Series dispatches a request to Window or Range. Raw windowed requests skip
// resampling.
func (s *DataService) Series(ctx context.Context, req models.SeriesRequest) (*SeriesReport, error) {
	if req.CustomRange() {
		return s.Range(ctx, req.DeviceID, req.From, req.To)
	}
	report, err := s.Window(ctx, req.DeviceID, req.Window)
	if err != nil {
		return nil, err
	}
	if req.Raw {
		report.Points = export.ReadingsToPoints(report.Readings)
	}
	return report, nil
}

// Analyze computes the distribution views of a window.
func (s *DataService) Analyze(ctx context.Context, deviceID string, w models.Window, bins int) (*Analysis, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if bins <= 0 {
		bins = stats.DefaultHistogramBins
	}
	to := s.now().UTC()
	from := to.Add(-w.Lookback)

	readings, err := s.fetch(ctx, deviceID, from, to)
	if err != nil {
		return nil, err
	}
	s.quarantine(deviceID, readings)
	return &Analysis{
		DeviceID:  deviceID,
		Window:    w,
		From:      from,
		To:        to,
		Summary:   stats.Summarize(readings),
		Histogram: stats.Histogram(readings, bins),
		Hourly:    stats.HourlyProfile(readings),
	}, nil
}

// Export renders a request as a download and returns the body with its file
// name and content type.
func (s *DataService) Export(ctx context.Context, req models.SeriesRequest) ([]byte, string, string, error) {
	if req.Format == "" {
		req.Format = models.FormatCSV
	}
	report, err := s.Series(ctx, req)
	if err != nil {
		return nil, "", "", err
	}

	var body []byte
	switch req.Format {
	case models.FormatCSV:
		body = export.ToCSV(report.Points)
	case models.FormatJSON:
		body, err = export.ToJSON(report.Points, report.Summary)
		if err != nil {
			return nil, "", "", errors.Wrap(err, "error encoding export")
		}
	default:
		return nil, "", "", errors.Errorf("unsupported export format %q", req.Format)
	}

	label := report.Label
	if req.Raw && !req.CustomRange() {
		label += "_raw"
	}
	return body, export.FileName(req.DeviceID, label, req.Format), export.ContentType(req.Format), nil
}

// fetch reads [from, to] clamped to the data cutoff. A range that lies
// entirely before the cutoff is empty without touching the store.
func (s *DataService) fetch(ctx context.Context, deviceID string, from, to time.Time) ([]models.Reading, error) {
	if !s.cutoff.IsZero() && from.Before(s.cutoff) {
		if !s.cutoff.Before(to) {
			if deviceID == "" {
				return nil, errors.Wrap(repository.ErrInvalidRange, "device id is required")
			}
			return []models.Reading{}, nil
		}
		from = s.cutoff
	}

	start := time.Now()
	readings, err := s.store.FetchRange(ctx, deviceID, from, to)
	s.metrics.ObserveStoreQuery("range", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrapf(err, "error fetching readings for %s", deviceID)
	}
	return readings, nil
}

func (s *DataService) report(deviceID, label string, from, to time.Time, readings []models.Reading, points []models.ResampledPoint) *SeriesReport {
	return &SeriesReport{
		DeviceID:    deviceID,
		Label:       label,
		From:        from,
		To:          to,
		Points:      points,
		Readings:    readings,
		Summary:     stats.Summarize(readings),
		Quarantined: s.quarantine(deviceID, readings),
	}
}

// quarantine counts and logs the readings that failed validation.
func (s *DataService) quarantine(deviceID string, readings []models.Reading) int {
	n := len(readings) - len(models.ValidReadings(readings))
	if n == 0 {
		return 0
	}
	for _, r := range readings {
		if err := r.Validate(); err != nil {
			s.logger.Debug("reading quarantined",
				slog.String("device_id", deviceID),
				slog.Time("timestamp", r.Timestamp),
				slog.Any("error", err))
		}
	}
	s.logger.Warn("readings quarantined",
		slog.String("device_id", deviceID),
		slog.Int("count", n),
		slog.Int("total", len(readings)))
	s.metrics.AddQuarantined(deviceID, n)
	return n
}
