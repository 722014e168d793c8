package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	forecastKeyPrefix     = "forecast:predictions"
	forecastScanBatchSize = 100
)

// ForecastKey identifies one forecast run. Two runs over the same order
// history with the same model settings share a cache entry; anything that
// changes the output changes the key.
type ForecastKey struct {
	OrderCount    int
	LastOrderDate time.Time
	HistoryDigest string
	WindowSize    int
	Trees         int
	MaxDepth      int
	Seed          int64
}

// HistoryDigest fingerprints an order history by id and status. Count and
// latest date alone cannot tell two histories apart once orders are deleted
// and re-imported; the digest makes the key stand on its own.
func HistoryDigest(orders []domain.Order) string {
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		parts = append(parts, fmt.Sprintf("%d:%s", o.ID, o.Status))
	}
	sort.Strings(parts)

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

type ForecastCache interface {
	Get(ctx context.Context, key ForecastKey) ([]domain.Prediction, bool, error)
	Set(ctx context.Context, key ForecastKey, predictions []domain.Prediction) error
	InvalidateAll(ctx context.Context) error
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

func NewForecastCache(cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisForecastCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (c *redisForecastCache) Get(ctx context.Context, key ForecastKey) ([]domain.Prediction, bool, error) {
	payload, err := c.client.Get(ctx, buildForecastKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var predictions []domain.Prediction
	if err := json.Unmarshal(payload, &predictions); err != nil {
		return nil, false, fmt.Errorf("decode forecast cache: %w", err)
	}

	return predictions, true, nil
}

func (c *redisForecastCache) Set(ctx context.Context, key ForecastKey, predictions []domain.Prediction) error {
	payload, err := json.Marshal(predictions)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}

	if err := c.client.Set(ctx, buildForecastKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisForecastCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, forecastKeyPrefix, forecastScanBatchSize)
}

func (n *noopForecastCache) Get(ctx context.Context, key ForecastKey) ([]domain.Prediction, bool, error) {
	return nil, false, nil
}

func (n *noopForecastCache) Set(ctx context.Context, key ForecastKey, predictions []domain.Prediction) error {
	return nil
}

func (n *noopForecastCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildForecastKey(key ForecastKey) string {
	return fmt.Sprintf("%s:%s", forecastKeyPrefix, forecastKeyHash(key))
}

func forecastKeyHash(key ForecastKey) string {
	parts := []string{
		fmt.Sprintf("orders=%d", key.OrderCount),
		fmt.Sprintf("window=%d", key.WindowSize),
		fmt.Sprintf("trees=%d", key.Trees),
		fmt.Sprintf("depth=%d", key.MaxDepth),
		fmt.Sprintf("seed=%d", key.Seed),
	}
	if !key.LastOrderDate.IsZero() {
		parts = append(parts, "last_order="+key.LastOrderDate.UTC().Format(time.RFC3339))
	}
	if key.HistoryDigest != "" {
		parts = append(parts, "history="+key.HistoryDigest)
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
