package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/predictify/predictifyd/internal/domain"
	"github.com/redis/go-redis/v9"
)

const marketTTL = 30 * time.Second

// MarketCache implements domain.MarketCache using Redis hashes with JSON-
// serialized Market data.
//
// Key schema:
//
//	market:{id} - hash with field "data" containing JSON
//
// The TTL is short because a cached market going stale delays visibility of
// lifecycle transitions; the write paths invalidate explicitly as well.
type MarketCache struct {
	rdb *redis.Client
}

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client) *MarketCache {
	return &MarketCache{rdb: c.Underlying()}
}

func marketKey(id string) string { return "market:" + id }

// Set stores a Market in the cache.
func (mc *MarketCache) Set(ctx context.Context, market domain.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", market.ID, err)
	}

	key := marketKey(market.ID)

	pipe := mc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, marketTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set market %s: %w", market.ID, err)
	}
	return nil
}

// Get retrieves a Market by its ID from the cache.
// It returns domain.ErrNotFound when the key does not exist.
func (mc *MarketCache) Get(ctx context.Context, id string) (domain.Market, error) {
	data, err := mc.rdb.HGet(ctx, marketKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market %s: %w", id, err)
	}

	var market domain.Market
	if err := json.Unmarshal(data, &market); err != nil {
		return domain.Market{}, fmt.Errorf("redis: unmarshal market %s: %w", id, err)
	}
	return market, nil
}

// Invalidate removes a Market from the cache.
func (mc *MarketCache) Invalidate(ctx context.Context, id string) error {
	if err := mc.rdb.Del(ctx, marketKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
