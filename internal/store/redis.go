package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mockvest/trading-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache over per-user trade history. Writes go to the primary store and
// invalidate the cache; reads check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary journal.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) InsertTrade(ctx context.Context, t *model.Trade) error {
	if err := s.primary.InsertTrade(ctx, t); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, tradesKey(t.Username))
	return nil
}

func (s *CachedStore) TradesByUser(ctx context.Context, username string) ([]model.Trade, error) {
	data, err := s.rdb.Get(ctx, tradesKey(username)).Bytes()
	if err == nil {
		var trades []model.Trade
		if json.Unmarshal(data, &trades) == nil {
			return trades, nil
		}
	}

	// Cache miss: read from primary.
	trades, err := s.primary.TradesByUser(ctx, username)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(trades); err == nil {
		s.rdb.Set(ctx, tradesKey(username), data, s.ttl)
	}
	return trades, nil
}

// TradesBySymbol is not cached — symbol history is an admin query, not a
// hot path.
func (s *CachedStore) TradesBySymbol(ctx context.Context, sym string) ([]model.Trade, error) {
	return s.primary.TradesBySymbol(ctx, sym)
}

func tradesKey(username string) string { return fmt.Sprintf("trades:%s", username) }
