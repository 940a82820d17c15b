package demo

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BuoyWatch.api/internal/repository"
)

var end = time.Date(2025, 7, 10, 12, 3, 0, 0, time.UTC)

func TestGenerate(t *testing.T) {
	readings := Generate("buoy", end, 24*time.Hour, rand.New(rand.NewSource(1)))

	require.Len(t, readings, 24*12+1)
	assert.Equal(t, time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC), readings[len(readings)-1].Timestamp)

	missing := 0
	for i, r := range readings {
		assert.True(t, r.Valid(), "reading %d: %v", i, r.Validate())
		assert.InDelta(t, baseTempC, r.TemperatureC, 4)
		if i > 0 {
			assert.Equal(t, Interval, r.Timestamp.Sub(readings[i-1].Timestamp))
		}
		if r.RSSI == nil {
			missing++
			continue
		}
		assert.GreaterOrEqual(t, *r.RSSI, -80)
		assert.LessOrEqual(t, *r.RSSI, -60)
	}
	assert.Greater(t, missing, 0)
	assert.Less(t, missing, len(readings)/4)
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate("buoy", end, time.Hour, rand.New(rand.NewSource(7)))
	b := Generate("buoy", end, time.Hour, rand.New(rand.NewSource(7)))
	assert.Equal(t, a, b)
}

func TestSeed(t *testing.T) {
	repo, err := repository.NewSQLiteRepository(filepath.Join(t.TempDir(), "demo.db"))
	require.NoError(t, err)
	defer repo.Close()

	n, err := Seed(context.Background(), repo, []string{"a", "b"}, end, time.Hour, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 2*13, n)

	devices, err := repo.QueryDevices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, devices)
}
