package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"BuoyWatch.api/internal/models"
	"BuoyWatch.api/internal/poller"
)

// DefaultRefreshInterval is the least time between two manual refreshes of
// one device.
const DefaultRefreshInterval = 10 * time.Second

var (
	ErrNotWatched     = errors.New("device is not watched")
	ErrRefreshLimited = errors.New("refresh rate limited")
)

// StatusWatcher polls the status of a fixed set of devices in the
// background and logs every status change.
type StatusWatcher struct {
	svc     *DataService
	devices map[string]*watchedDevice
	order   []string
}

type watchedDevice struct {
	poller *poller.Poller[*StatusReport]
	cache  *poller.Cache[*StatusReport]
}

// NewStatusWatcher creates one poller per device. Manual refreshes of a
// device are allowed once per refreshEvery; zero means DefaultRefreshInterval.
func NewStatusWatcher(svc *DataService, deviceIDs []string, interval, refreshEvery time.Duration) *StatusWatcher {
	if refreshEvery <= 0 {
		refreshEvery = DefaultRefreshInterval
	}
	sw := &StatusWatcher{svc: svc, devices: make(map[string]*watchedDevice)}
	for _, id := range deviceIDs {
		if _, dup := sw.devices[id]; dup {
			continue
		}
		sw.devices[id] = sw.watch(id, interval, refreshEvery)
		sw.order = append(sw.order, id)
	}
	return sw
}

func (sw *StatusWatcher) watch(deviceID string, interval, refreshEvery time.Duration) *watchedDevice {
	dlog := sw.svc.logger.With(slog.String("device_id", deviceID))
	cache := poller.NewCache[*StatusReport]()
	last := models.Status("")

	p := poller.New(func(ctx context.Context) (*StatusReport, error) {
		return sw.svc.Status(ctx, deviceID)
	}, cache, interval,
		poller.WithLogger[*StatusReport](dlog),
		poller.WithRefreshLimit[*StatusReport](refreshEvery, 1),
		poller.WithOnResult(func(report *StatusReport, err error) {
			if err != nil {
				dlog.Warn("status poll failed", slog.Any("error", err))
				return
			}
			if report.Status != last {
				dlog.Info("device status changed",
					slog.String("from", string(last)),
					slog.String("to", string(report.Status)),
					slog.Duration("age", report.Age))
				last = report.Status
			}
		}),
	)
	return &watchedDevice{poller: p, cache: cache}
}

// Devices returns the watched device ids in the order they were given.
func (sw *StatusWatcher) Devices() []string {
	return append([]string(nil), sw.order...)
}

// Run polls every device until ctx is done.
func (sw *StatusWatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, d := range sw.devices {
		wg.Add(1)
		go func(p *poller.Poller[*StatusReport]) {
			defer wg.Done()
			_ = p.Run(ctx)
		}(d.poller)
	}
	wg.Wait()
}

// Refresh schedules an immediate status poll of the device.
func (sw *StatusWatcher) Refresh(deviceID string) error {
	d, ok := sw.devices[deviceID]
	if !ok {
		return errors.Wrap(ErrNotWatched, deviceID)
	}
	if !d.poller.Refresh() {
		return errors.Wrap(ErrRefreshLimited, deviceID)
	}
	return nil
}

// Cached returns the last polled status of the device, if any.
func (sw *StatusWatcher) Cached(deviceID string) (*StatusReport, bool) {
	d, ok := sw.devices[deviceID]
	if !ok {
		return nil, false
	}
	return d.cache.Get()
}
