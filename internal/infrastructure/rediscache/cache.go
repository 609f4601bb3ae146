package rediscache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	// LivePrefix keys the most recent trade price per symbol.
	LivePrefix = "stock:live:"
	// PrevPrefix keys the previous day's official close per symbol.
	PrevPrefix = "stock:prev:"

	// LiveTTL bounds staleness when the websocket dies: a live tick older
	// than this is indistinguishable from absence.
	LiveTTL = 5 * time.Minute
	// PrevTTL keeps a close until the next daily refresh replaces it.
	PrevTTL = 24 * time.Hour
)

// Cache stores live and previous-close prices in Redis as decimal strings.
//
// Every operation is fail-soft: the cache is a latency shield in front of
// the rate-limited vendor, never a correctness dependency. Backend errors
// log and read as absence.
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func New(rdb *redis.Client) *Cache {
	return &Cache{
		rdb:    rdb,
		logger: slog.Default().With("component", "market_cache"),
	}
}

// FromURL connects to Redis at the given URL and verifies it is reachable.
func FromURL(ctx context.Context, rawURL string) (*Cache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return New(rdb), nil
}

func (c *Cache) PutLive(ctx context.Context, symbol string, price decimal.Decimal) {
	if err := c.rdb.Set(ctx, LivePrefix+symbol, price.String(), LiveTTL).Err(); err != nil {
		c.logger.Error("failed to cache live price", "symbol", symbol, "err", err)
	}
}

func (c *Cache) GetLive(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	return c.getPrice(ctx, LivePrefix+symbol)
}

func (c *Cache) PutPrevClose(ctx context.Context, symbol string, price decimal.Decimal) {
	if err := c.rdb.Set(ctx, PrevPrefix+symbol, price.String(), PrevTTL).Err(); err != nil {
		c.logger.Error("failed to cache previous close", "symbol", symbol, "err", err)
	}
}

func (c *Cache) GetPrevClose(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	return c.getPrice(ctx, PrevPrefix+symbol)
}

// GetAllLive fetches live prices for many symbols with one MGET. Symbols
// without a fresh tick are simply missing from the result.
func (c *Cache) GetAllLive(ctx context.Context, symbols []string) map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal, len(symbols))
	if len(symbols) == 0 {
		return result
	}

	keys := make([]string, len(symbols))
	for i, symbol := range symbols {
		keys[i] = LivePrefix + symbol
	}

	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Error("mget failed", "keys", len(keys), "err", err)
		return result
	}

	for i, raw := range values {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(str)
		if err != nil {
			c.logger.Warn("unparsable cached price", "symbol", symbols[i], "value", str)
			continue
		}
		result[symbols[i]] = price
	}
	return result
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}

func (c *Cache) getPrice(ctx context.Context, key string) (decimal.Decimal, bool) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Error("get failed", "key", key, "err", err)
		}
		return decimal.Decimal{}, false
	}
	price, err := decimal.NewFromString(val)
	if err != nil {
		c.logger.Warn("unparsable cached price", "key", key, "value", val)
		return decimal.Decimal{}, false
	}
	return price, true
}
