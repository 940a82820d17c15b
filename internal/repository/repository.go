// Package repository is the read-only reading store client. A Client wraps one
// Backend (InfluxDB, Supabase or SQLite) and normalizes what it returns.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/pkg/errors"

	"BuoyWatch.api/internal/models"
)

var (
	// ErrInvalidRange reports bad query bounds or a missing device id. It is a
	// caller error and must not be retried.
	ErrInvalidRange = errors.New("invalid range")
	// ErrStoreUnavailable reports that the backing store could not answer:
	// network or auth failure, server error or timeout. Callers may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// DefaultTimeout bounds a single store query when the caller sets none.
const DefaultTimeout = 10 * time.Second

// Backend is the transport-specific query surface over a table of readings
// keyed by (device id, timestamp). Range bounds are inclusive.
type Backend interface {
	Name() string
	QueryRange(ctx context.Context, deviceID string, from, to time.Time) ([]models.Reading, error)
	// QueryLatest returns nil, nil when the device has no readings.
	QueryLatest(ctx context.Context, deviceID string) (*models.Reading, error)
	QueryDevices(ctx context.Context) ([]string, error)
	Check(ctx context.Context) error
	Close() error
}

// StoreError is a backend failure. It matches ErrStoreUnavailable with
// errors.Is and unwraps to the transport error.
type StoreError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Backend, e.Op, ErrStoreUnavailable, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

func storeError(backend, op string, err error) error {
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Backend: backend, Op: op, Err: err}
}

// Client is the stateless reading store façade used by the service layer.
type Client struct {
	backend Backend
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithClock replaces the wall clock used to default an open-ended range.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the logger. slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client over backend. Each query is bounded by timeout,
// or DefaultTimeout when timeout is not positive.
func NewClient(backend Backend, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		backend: backend,
		timeout: timeout,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the name of the wrapped backend.
func (c *Client) Backend() string {
	return c.backend.Name()
}

// FetchRange returns the device's readings in [from, to], sorted by time with
// duplicate timestamps collapsed to the last one returned by the store. A zero
// to means now. An empty result is not an error.
func (c *Client) FetchRange(ctx context.Context, deviceID string, from, to time.Time) ([]models.Reading, error) {
	if deviceID == "" {
		return nil, errors.Wrap(ErrInvalidRange, "device id is required")
	}
	if to.IsZero() {
		to = c.now()
	}
	if from.IsZero() || !from.Before(to) {
		return nil, errors.Wrapf(ErrInvalidRange, "from %s must be before to %s",
			from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	}

	qctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	rows, err := c.backend.QueryRange(qctx, deviceID, from.UTC(), to.UTC())
	if err != nil {
		return nil, c.failure(ctx, "query range", err)
	}
	out := Normalize(rows)
	c.logger.Debug("fetched readings",
		slog.String("backend", c.backend.Name()),
		slog.String("device_id", deviceID),
		slog.Int("rows", len(rows)),
		slog.Int("readings", len(out)),
		slog.Duration("took", time.Since(start)))
	return out, nil
}

// FetchLatest returns the device's most recent reading, or nil when the
// device never reported.
func (c *Client) FetchLatest(ctx context.Context, deviceID string) (*models.Reading, error) {
	if deviceID == "" {
		return nil, errors.Wrap(ErrInvalidRange, "device id is required")
	}
	qctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	r, err := c.backend.QueryLatest(qctx, deviceID)
	if err != nil {
		return nil, c.failure(ctx, "query latest", err)
	}
	if r == nil {
		return nil, nil
	}
	latest := *r
	latest.Timestamp = latest.Timestamp.UTC()
	return &latest, nil
}

// ListDevices returns the distinct device ids in the store, sorted.
func (c *Client) ListDevices(ctx context.Context) ([]string, error) {
	qctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ids, err := c.backend.QueryDevices(qctx)
	if err != nil {
		return nil, c.failure(ctx, "query devices", err)
	}
	sort.Strings(ids)
	out := make([]string, 0, len(ids))
	for i, id := range ids {
		if id == "" || (i > 0 && ids[i-1] == id) {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// failure classifies a backend error. Cancellation by the caller is passed
// through untouched; everything else, including our own timeout, is a
// StoreError.
func (c *Client) failure(ctx context.Context, op string, err error) error {
	if ctx.Err() == context.Canceled {
		return ctx.Err()
	}
	c.logger.Warn("store query failed",
		slog.String("backend", c.backend.Name()),
		slog.String("op", op),
		slog.Any("error", err))
	return storeError(c.backend.Name(), op, err)
}

// Normalize returns a time-ordered copy of readings with UTC timestamps.
// Readings sharing an exact timestamp collapse to the one that came last in
// the input.
func Normalize(readings []models.Reading) []models.Reading {
	out := make([]models.Reading, len(readings))
	copy(out, readings)
	for i := range out {
		out[i].Timestamp = out[i].Timestamp.UTC()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	deduped := out[:0]
	for _, r := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Timestamp.Equal(r.Timestamp) {
			deduped[n-1] = r
			continue
		}
		deduped = append(deduped, r)
	}
	return deduped
}
