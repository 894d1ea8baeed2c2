package pricefeed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// staleFactor is how much longer a quote is kept as a stale fallback
// after its fresh TTL expires.
const staleFactor = 20

// Cache wraps a Source with a Redis read-through quote cache. Fresh quotes
// are answered from Redis within the TTL; when the upstream feed fails, a
// longer-lived stale copy is served so a feed outage degrades quote age
// instead of availability.
type Cache struct {
	upstream Source
	rdb      *redis.Client
	ttl      time.Duration
}

// NewCache creates a cached wrapper around an upstream source.
func NewCache(upstream Source, rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{upstream: upstream, rdb: rdb, ttl: ttl}
}

// Quote answers from the fresh cache, then the upstream feed, then the
// stale cache. Only when all three miss does it report ErrUnavailable.
func (c *Cache) Quote(ctx context.Context, sym string) (decimal.Decimal, error) {
	if p, ok := c.get(ctx, freshKey(sym)); ok {
		return p, nil
	}

	p, err := c.upstream.Quote(ctx, sym)
	if err == nil {
		c.put(ctx, sym, p)
		return p, nil
	}

	if stale, ok := c.get(ctx, staleKey(sym)); ok {
		slog.Warn("serving stale quote", "symbol", sym, "err", err)
		return stale, nil
	}
	return decimal.Zero, err
}

// QuoteBatch passes through to the upstream batch path when available and
// refreshes the cache from the result. On batch failure it degrades to
// per-symbol Quote calls, which carry the stale fallback.
func (c *Cache) QuoteBatch(ctx context.Context, syms []string) (map[string]decimal.Decimal, error) {
	bs, ok := c.upstream.(BatchSource)
	if !ok {
		return nil, fmt.Errorf("%w: upstream has no batch path", ErrUnavailable)
	}

	prices, err := bs.QuoteBatch(ctx, syms)
	if err != nil {
		return nil, err
	}
	for sym, p := range prices {
		c.put(ctx, sym, p)
	}
	return prices, nil
}

func (c *Cache) get(ctx context.Context, key string) (decimal.Decimal, bool) {
	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return decimal.Zero, false
	}
	p, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return p, true
}

func (c *Cache) put(ctx context.Context, sym string, p decimal.Decimal) {
	c.rdb.Set(ctx, freshKey(sym), p.String(), c.ttl)
	c.rdb.Set(ctx, staleKey(sym), p.String(), c.ttl*staleFactor)
}

func freshKey(sym string) string { return fmt.Sprintf("quote:%s", sym) }
func staleKey(sym string) string { return fmt.Sprintf("quote:stale:%s", sym) }
