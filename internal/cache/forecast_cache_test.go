package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/domain"
)

func sampleKey() ForecastKey {
	return ForecastKey{
		OrderCount:    12,
		LastOrderDate: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		WindowSize:    5,
		Trees:         100,
		MaxDepth:      6,
		Seed:          42,
	}
}

func TestForecastKeyHash(t *testing.T) {
	t.Parallel()

	t.Run("stable for equal keys", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, buildForecastKey(sampleKey()), buildForecastKey(sampleKey()))
	})

	t.Run("changes when the history changes", func(t *testing.T) {
		t.Parallel()
		base := buildForecastKey(sampleKey())

		grown := sampleKey()
		grown.OrderCount++
		assert.NotEqual(t, base, buildForecastKey(grown))

		later := sampleKey()
		later.LastOrderDate = later.LastOrderDate.Add(time.Hour)
		assert.NotEqual(t, base, buildForecastKey(later))
	})

	t.Run("distinguishes histories with equal count and date", func(t *testing.T) {
		t.Parallel()
		a := sampleKey()
		a.HistoryDigest = HistoryDigest([]domain.Order{
			{ID: 1, Status: domain.OrderStatusPending},
			{ID: 2, Status: domain.OrderStatusPending},
		})
		b := sampleKey()
		b.HistoryDigest = HistoryDigest([]domain.Order{
			{ID: 1, Status: domain.OrderStatusPending},
			{ID: 3, Status: domain.OrderStatusPending},
		})
		assert.NotEqual(t, buildForecastKey(a), buildForecastKey(b))
	})

	t.Run("digest is order independent", func(t *testing.T) {
		t.Parallel()
		forward := HistoryDigest([]domain.Order{
			{ID: 1, Status: domain.OrderStatusCompleted},
			{ID: 2, Status: domain.OrderStatusPending},
		})
		reversed := HistoryDigest([]domain.Order{
			{ID: 2, Status: domain.OrderStatusPending},
			{ID: 1, Status: domain.OrderStatusCompleted},
		})
		assert.Equal(t, forward, reversed)
	})

	t.Run("digest reflects status transitions", func(t *testing.T) {
		t.Parallel()
		pending := HistoryDigest([]domain.Order{{ID: 1, Status: domain.OrderStatusPending}})
		completed := HistoryDigest([]domain.Order{{ID: 1, Status: domain.OrderStatusCompleted}})
		assert.NotEqual(t, pending, completed)
	})

	t.Run("changes when model settings change", func(t *testing.T) {
		t.Parallel()
		base := buildForecastKey(sampleKey())

		reseeded := sampleKey()
		reseeded.Seed = 7
		assert.NotEqual(t, base, buildForecastKey(reseeded))
	})

	t.Run("keys share the invalidation prefix", func(t *testing.T) {
		t.Parallel()
		assert.Contains(t, buildForecastKey(sampleKey()), forecastKeyPrefix+":")
	})
}

func TestNoopForecastCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewNoopForecastCache()

	require.NoError(t, c.Set(ctx, sampleKey(), []domain.Prediction{{ProductID: 1}}))

	_, ok, err := c.Get(ctx, sampleKey())
	require.NoError(t, err)
	assert.False(t, ok, "noop cache never hits")

	require.NoError(t, c.InvalidateAll(ctx))
}

func TestDisabledConfigYieldsNoop(t *testing.T) {
	t.Parallel()

	c, err := NewForecastCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	_, ok, err := c.Get(context.Background(), sampleKey())
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestRedisForecastCache exercises the real client when a local redis is
// available, and skips otherwise.
func TestRedisForecastCache(t *testing.T) {
	c, err := NewForecastCache(config.CacheConfig{
		Enabled:            true,
		RedisHost:          "127.0.0.1",
		RedisPort:          "6379",
		ForecastTTLSeconds: 60,
	})
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}

	ctx := context.Background()
	key := sampleKey()
	key.Seed = time.Now().UnixNano() // avoid clashing with other runs

	predictions := []domain.Prediction{{
		ProductID:       1,
		PredictedDemand: 4.5,
		Severity:        domain.SeverityLow,
	}}

	require.NoError(t, c.Set(ctx, key, predictions))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, predictions, got)

	require.NoError(t, c.InvalidateAll(ctx))

	_, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
