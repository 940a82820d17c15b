package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BuoyWatch.api/internal/models"
)

func TestStatusWatcherPollsAndRefreshes(t *testing.T) {
	svc, _ := newTestService(t, []models.Reading{at(2*time.Minute, 13.1)})
	sw := NewStatusWatcher(svc, []string{"buoy", "buoy", "other"}, time.Hour, time.Hour)
	assert.Equal(t, []string{"buoy", "other"}, sw.Devices())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		_, ok := sw.Cached("buoy")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	report, _ := sw.Cached("buoy")
	assert.Equal(t, models.StatusLive, report.Status)

	require.Eventually(t, func() bool {
		_, ok := sw.Cached("other")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	report, _ = sw.Cached("other")
	assert.Equal(t, models.StatusOffline, report.Status)

	require.NoError(t, sw.Refresh("buoy"))
	assert.ErrorIs(t, sw.Refresh("buoy"), ErrRefreshLimited)
	require.NoError(t, sw.Refresh("other"))

	assert.ErrorIs(t, sw.Refresh("unknown"), ErrNotWatched)
	_, ok := sw.Cached("unknown")
	assert.False(t, ok)
}
